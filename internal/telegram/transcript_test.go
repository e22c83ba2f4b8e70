package telegram

import (
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/tk22kalal/chatbot/internal/models"
)

func TestFormatTranscript(t *testing.T) {
	sent := time.Date(2026, 3, 1, 15, 4, 0, 0, time.UTC)
	session := &models.ChatSession{
		Token:   "ABCD1234",
		User1ID: 1,
		User2ID: 2,
		Messages: []models.SessionMessage{
			{Model: gorm.Model{CreatedAt: sent}, SenderID: 1, Text: "hi"},
			{Model: gorm.Model{CreatedAt: sent.Add(time.Minute)}, SenderID: 2, Text: models.MediaPlaceholder},
		},
	}
	user1 := &models.User{ID: 1, Username: "alice", Gender: "female"}
	user2 := &models.User{ID: 2, Username: "bob", Gender: "male"}

	out := FormatTranscript(session, user1, user2)

	assert.Contains(t, out, "Token: ABCD1234")
	assert.Contains(t, out, "[User1: @alice | ID: 1 | Gender: female]")
	assert.Contains(t, out, "[User2: @bob | ID: 2 | Gender: male]")
	assert.Contains(t, out, "[03:04 PM] User1: hi")
	assert.Contains(t, out, "[03:05 PM] User2: [Media]")
}

func TestFormatTranscriptEmptyAndUnknownUsers(t *testing.T) {
	session := &models.ChatSession{Token: "ABCD1234", User1ID: 1, User2ID: 2}

	out := FormatTranscript(session, nil, nil)

	assert.Contains(t, out, "(No messages in this chat)")
	assert.Contains(t, out, "@N/A")
	assert.Contains(t, out, "Gender: N/A")
}

func TestExtractContent(t *testing.T) {
	text := extractContent(&tgbotapi.Message{Text: "hello"})
	assert.Equal(t, models.Content{Kind: models.ContentText, Text: "hello"}, text)

	photo := extractContent(&tgbotapi.Message{
		Photo:   []tgbotapi.PhotoSize{{FileID: "small"}, {FileID: "large"}},
		Caption: "look",
	})
	assert.Equal(t, models.ContentPhoto, photo.Kind)
	assert.Equal(t, "large", photo.FileID, "largest size wins")
	assert.Equal(t, "look", photo.Caption)

	sticker := extractContent(&tgbotapi.Message{Sticker: &tgbotapi.Sticker{FileID: "stk"}})
	assert.Equal(t, models.ContentSticker, sticker.Kind)

	unknown := extractContent(&tgbotapi.Message{})
	assert.Equal(t, models.ContentUnsupported, unknown.Kind)
}

func TestCapitalize(t *testing.T) {
	assert.Equal(t, "Male", capitalize("male"))
	assert.Equal(t, "Female", capitalize("female"))
	assert.Equal(t, "", capitalize(""))
}

func TestExtractContentAnimationBeatsDocument(t *testing.T) {
	// Telegram sends animations with a Document side-car; the animation
	// mapping must win.
	content := extractContent(&tgbotapi.Message{
		Animation: &tgbotapi.Animation{FileID: "anim"},
		Document:  &tgbotapi.Document{FileID: "doc"},
	})
	assert.Equal(t, models.ContentAnimation, content.Kind)
	assert.Equal(t, "anim", content.FileID)
}
