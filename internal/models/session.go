package models

import (
	"time"

	"gorm.io/gorm"
)

// ChatSession represents a 1-on-1 anonymous pairing between two users.
// The token is the human-shareable identifier admins use to pull transcripts.
type ChatSession struct {
	// Token is an 8-character A-Z0-9 identifier, unique across all sessions.
	Token string `gorm:"primaryKey"`
	// User1ID is the user whose search created the session.
	User1ID int64 `gorm:"index"`
	// User2ID is the partner picked from the queue.
	User2ID int64 `gorm:"index"`

	StartedAt time.Time
	// EndedAt is nil while the session is live.
	EndedAt *time.Time

	Messages []SessionMessage `gorm:"foreignKey:SessionToken;references:Token"`
}

// Active reports whether the session has not been closed yet.
func (s *ChatSession) Active() bool {
	return s.EndedAt == nil
}

// OtherMember returns the partner of the given member, and false if the
// user is not part of the session at all.
func (s *ChatSession) OtherMember(userID int64) (int64, bool) {
	switch userID {
	case s.User1ID:
		return s.User2ID, true
	case s.User2ID:
		return s.User1ID, true
	}
	return 0, false
}

// SessionMessage is one transcript entry of a ChatSession. Media content is
// stored as a fixed placeholder, never the payload itself.
type SessionMessage struct {
	gorm.Model

	SessionToken string `gorm:"type:text;not null;index"`
	SenderID     int64  `gorm:"not null"`
	Text         string `gorm:"type:text;not null"`
}
