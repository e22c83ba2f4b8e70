package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tk22kalal/chatbot/internal/models"
)

func TestUserInChat(t *testing.T) {
	partnerID := int64(42)

	user := models.User{ChatState: models.StateIdle}
	assert.False(t, user.InChat())

	user.ChatState = models.StateSearching
	assert.False(t, user.InChat())

	user.ChatState = models.StatePaired
	user.PartnerID = &partnerID
	assert.True(t, user.InChat())

	// Paired without a partner pointer is an inconsistent row, not a chat.
	user.PartnerID = nil
	assert.False(t, user.InChat())
}
