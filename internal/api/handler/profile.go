package handler

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tk22kalal/chatbot/internal/models"
)

// GetUser returns the gupshup profile, creating a default one for
// first-time web visitors.
func (h *Handler) GetUser(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user_id"})
		return
	}

	profile, err := h.Storage.GetProfile(userID)
	if err != nil {
		log.Printf("ERROR: Failed to load profile %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load profile"})
		return
	}
	if profile == nil {
		profile, err = h.Storage.EnsureProfile(&models.GupshupProfile{
			UserID:      userID,
			DisplayName: defaultDisplayName(userID),
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create profile"})
			return
		}
	}
	c.JSON(http.StatusOK, profile)
}

// defaultDisplayName builds the placeholder name for a fresh profile.
// Telegram ids are numeric and read fine as "User123"; generated guest
// ids do not, so guests start out anonymous.
func defaultDisplayName(userID string) string {
	if strings.HasPrefix(userID, "guest-") {
		return "Anonymous"
	}
	return "User" + userID
}

type updateProfileRequest struct {
	UserID      string `json:"user_id" binding:"required"`
	DisplayName string `json:"display_name"`
	PhotoURL    string `json:"photo_url"`
}

// UpdateUserProfile persists profile edits made outside a websocket
// session (the settings form posts here).
func (h *Handler) UpdateUserProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing user_id"})
		return
	}
	if err := h.Storage.UpdateProfile(req.UserID, req.DisplayName, req.PhotoURL); err != nil {
		log.Printf("ERROR: Failed to update profile %s: %v", req.UserID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
