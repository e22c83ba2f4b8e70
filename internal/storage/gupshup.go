package storage

import (
	"errors"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/tk22kalal/chatbot/internal/models"
)

// GetProfile returns nil without an error when no profile exists yet.
func (s *Service) GetProfile(userID string) (*models.GupshupProfile, error) {
	var profile models.GupshupProfile
	err := s.DB.Where("user_id = ?", userID).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// EnsureProfile creates the profile on first contact and returns the stored
// row either way, so repeated /group taps never reset a customized name.
func (s *Service) EnsureProfile(profile *models.GupshupProfile) (*models.GupshupProfile, error) {
	var stored models.GupshupProfile
	result := s.DB.Where("user_id = ?", profile.UserID).FirstOrCreate(&stored, *profile)
	if result.Error != nil {
		log.Printf("ERROR: Failed to ensure gupshup profile %s: %v", profile.UserID, result.Error)
		return nil, result.Error
	}
	return &stored, nil
}

func (s *Service) UpdateProfile(userID, displayName, photoURL string) error {
	updates := map[string]interface{}{}
	if displayName != "" {
		updates["display_name"] = displayName
	}
	if photoURL != "" {
		updates["photo_url"] = photoURL
	}
	if len(updates) == 0 {
		return nil
	}
	return s.DB.Model(&models.GupshupProfile{}).
		Where("user_id = ?", userID).
		Updates(updates).Error
}

func (s *Service) SaveRoomMessage(msg *models.RoomMessage) error {
	if msg.SentAt.IsZero() {
		msg.SentAt = time.Now()
	}
	if err := s.DB.Create(msg).Error; err != nil {
		log.Printf("ERROR: Failed to save room message for %s: %v", msg.Room, err)
		return err
	}
	return nil
}

// RecentRoomMessages returns up to limit newest messages in chronological order.
func (s *Service) RecentRoomMessages(room string, limit int) ([]models.RoomMessage, error) {
	var messages []models.RoomMessage
	err := s.DB.Where("room = ?", room).
		Order("sent_at desc").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	// Newest-first from the query; history is served oldest-first.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// PurgeExpiredRoomMessages hard-deletes log entries older than the cutoff.
// Called lazily from history reads, never from a background sweep.
func (s *Service) PurgeExpiredRoomMessages(room string, before time.Time) error {
	return s.DB.Unscoped().
		Where("room = ? AND sent_at < ?", room, before).
		Delete(&models.RoomMessage{}).Error
}
