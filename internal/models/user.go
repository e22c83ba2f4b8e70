package models

import (
	"time"

	"github.com/lib/pq"
)

// ChatState is the explicit pairing state of a user. The invariant
// "searching implies no partner" is carried by the enum instead of
// nullable-field conventions.
type ChatState string

const (
	StateIdle      ChatState = "idle"
	StateSearching ChatState = "searching"
	StatePaired    ChatState = "paired"
)

// User represents a Telegram user known to the bot.
type User struct {
	// ID is the Telegram chat ID, assigned externally.
	ID        int64  `gorm:"primaryKey" json:"id"`
	Username  string `gorm:"type:text"`
	FirstName string `gorm:"type:text"`
	// Gender is "male", "female" or empty until chosen via /start.
	Gender string `gorm:"type:text"`

	ChatState ChatState `gorm:"type:text;not null;default:idle"`
	// PartnerID is set only while ChatState == StatePaired.
	PartnerID *int64

	Interests  pq.StringArray `gorm:"type:text[]"`
	JoinedDate time.Time      `gorm:"autoCreateTime"`
}

// InChat reports whether the user currently has a live partner.
func (u *User) InChat() bool {
	return u.ChatState == StatePaired && u.PartnerID != nil
}
