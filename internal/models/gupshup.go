package models

import (
	"time"

	"gorm.io/gorm"
)

// GupshupProfile is the public face a user shows in group rooms.
// It is mutable and read on every decorated broadcast.
type GupshupProfile struct {
	// UserID is either a Telegram chat ID rendered as a string, or a
	// generated guest ID for web-only visitors.
	UserID      string `gorm:"primaryKey" json:"user_id"`
	DisplayName string `gorm:"type:text" json:"display_name"`
	PhotoURL    string `gorm:"type:text" json:"photo_url"`
	// TelegramUsername is kept for the /api/user endpoint, never broadcast.
	TelegramUsername string `gorm:"type:text" json:"telegram_username"`
}

// RoomMessage is one entry of a room's rolling log. Entries older than the
// retention window are purged lazily on the next history read.
type RoomMessage struct {
	gorm.Model `json:"-"`

	Room     string `gorm:"type:text;not null;index:idx_room_sent" json:"-"`
	UserID   string `gorm:"type:text;not null" json:"user_id"`
	Text     string `gorm:"type:text" json:"text,omitempty"`
	ImageURL string `gorm:"type:text" json:"image_url,omitempty"`
	GifURL   string `gorm:"type:text" json:"gif_url,omitempty"`
	SentAt   time.Time `gorm:"index:idx_room_sent" json:"timestamp"`

	// Decoration filled from the sender's current profile before broadcast;
	// not persisted.
	UserName  string `gorm:"-" json:"user_name,omitempty"`
	UserPhoto string `gorm:"-" json:"user_photo,omitempty"`
}
