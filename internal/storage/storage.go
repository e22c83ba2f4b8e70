package storage

import (
	"context"
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/tk22kalal/chatbot/internal/models"
)

const searchQueueKey = "search_queue"

// Storage is the narrow persistence contract the engine, relay and group
// chat service depend on. The concrete Service talks to PostgreSQL via GORM
// and mirrors the search queue into Redis.
type Storage interface {
	// Users
	SaveUser(user *models.User) error
	GetUser(userID int64) (*models.User, error)
	SaveUserIfNotExists(userID int64, username, firstName string) (*models.User, error)
	UpdateUserGender(userID int64, gender string) error
	CountUsers() (int64, error)

	// Sessions
	CreateSession(session *models.ChatSession) error
	GetSessionByToken(token string) (*models.ChatSession, error)
	GetActiveSessionForUser(userID int64) (*models.ChatSession, error)
	CloseSession(token string) error
	AppendSessionMessage(token string, senderID int64, text string) error
	TokenExists(token string) (bool, error)
	CountSessions() (int64, error)
	CountActiveSessions() (int64, error)

	// Search queue mirror (restart recovery)
	AddToSearchQueue(userID int64) error
	RemoveFromSearchQueue(userID int64) error
	SearchQueueMembers() ([]int64, error)

	// Gupshup profiles and room log
	GetProfile(userID string) (*models.GupshupProfile, error)
	EnsureProfile(profile *models.GupshupProfile) (*models.GupshupProfile, error)
	UpdateProfile(userID, displayName, photoURL string) error
	SaveRoomMessage(msg *models.RoomMessage) error
	RecentRoomMessages(room string, limit int) ([]models.RoomMessage, error)
	PurgeExpiredRoomMessages(room string, before time.Time) error
}

// Service implements Storage over PostgreSQL and Redis.
type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
	Ctx   context.Context
}

// NewService wires the database handles. The Redis client may be nil in
// CLI contexts that never touch the search queue.
func NewService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
		Ctx:   context.Background(),
	}
}

// AutoMigrate creates the schema for every model the service persists.
func (s *Service) AutoMigrate() error {
	return s.DB.AutoMigrate(
		&models.User{},
		&models.ChatSession{},
		&models.SessionMessage{},
		&models.GupshupProfile{},
		&models.RoomMessage{},
	)
}

func (s *Service) SaveUser(user *models.User) error {
	return s.DB.Save(user).Error
}

// GetUser returns nil without an error when the user is unknown.
func (s *Service) GetUser(userID int64) (*models.User, error) {
	var user models.User
	err := s.DB.First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Service) SaveUserIfNotExists(userID int64, username, firstName string) (*models.User, error) {
	var user models.User
	defaults := models.User{
		ID:        userID,
		Username:  username,
		FirstName: firstName,
		ChatState: models.StateIdle,
	}
	result := s.DB.Where("id = ?", userID).FirstOrCreate(&user, defaults)
	if result.Error != nil {
		log.Printf("ERROR: Failed to save user %d on first contact: %v", userID, result.Error)
		return nil, result.Error
	}
	if result.RowsAffected > 0 {
		log.Printf("INFO: New user %d saved to database.", userID)
	}
	return &user, nil
}

func (s *Service) UpdateUserGender(userID int64, gender string) error {
	return s.DB.Model(&models.User{}).Where("id = ?", userID).
		Update("gender", gender).Error
}

func (s *Service) CountUsers() (int64, error) {
	var n int64
	err := s.DB.Model(&models.User{}).Count(&n).Error
	return n, err
}

func (s *Service) CreateSession(session *models.ChatSession) error {
	return s.DB.Create(session).Error
}

// GetSessionByToken loads a session with its full transcript.
func (s *Service) GetSessionByToken(token string) (*models.ChatSession, error) {
	var session models.ChatSession
	err := s.DB.Preload("Messages", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at asc")
	}).Where("token = ?", token).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// GetActiveSessionForUser finds the open session the user is a member of.
func (s *Service) GetActiveSessionForUser(userID int64) (*models.ChatSession, error) {
	var session models.ChatSession
	err := s.DB.Where("ended_at IS NULL").
		Where("user1_id = ? OR user2_id = ?", userID, userID).
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		log.Printf("ERROR: Failed to find active session for user %d: %v", userID, err)
		return nil, err
	}
	return &session, nil
}

// CloseSession stamps the end time. Closing an already-closed session is a
// no-op so the engine's idempotency does not depend on row state.
func (s *Service) CloseSession(token string) error {
	return s.DB.Model(&models.ChatSession{}).
		Where("token = ? AND ended_at IS NULL", token).
		Update("ended_at", time.Now()).Error
}

func (s *Service) AppendSessionMessage(token string, senderID int64, text string) error {
	entry := models.SessionMessage{
		SessionToken: token,
		SenderID:     senderID,
		Text:         text,
	}
	if err := s.DB.Create(&entry).Error; err != nil {
		log.Printf("ERROR: Failed to log message for session %s: %v", token, err)
		return err
	}
	return nil
}

func (s *Service) TokenExists(token string) (bool, error) {
	var n int64
	err := s.DB.Model(&models.ChatSession{}).Where("token = ?", token).Count(&n).Error
	return n > 0, err
}

func (s *Service) CountSessions() (int64, error) {
	var n int64
	err := s.DB.Model(&models.ChatSession{}).Count(&n).Error
	return n, err
}

func (s *Service) CountActiveSessions() (int64, error) {
	var n int64
	err := s.DB.Model(&models.ChatSession{}).Where("ended_at IS NULL").Count(&n).Error
	return n, err
}

func (s *Service) AddToSearchQueue(userID int64) error {
	return s.Redis.SAdd(s.Ctx, searchQueueKey, userID).Err()
}

func (s *Service) RemoveFromSearchQueue(userID int64) error {
	return s.Redis.SRem(s.Ctx, searchQueueKey, userID).Err()
}

// SearchQueueMembers returns the mirrored queue, dropping entries that do
// not parse as user IDs.
func (s *Service) SearchQueueMembers() ([]int64, error) {
	members, err := s.Redis.SMembers(s.Ctx, searchQueueKey).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			log.Printf("WARNING: dropping malformed queue entry %q", m)
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
