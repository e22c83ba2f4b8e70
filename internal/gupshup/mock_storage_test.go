package gupshup_test

import (
	"errors"
	"sync"
	"time"

	"github.com/tk22kalal/chatbot/internal/models"
)

// memStore implements the profile and room-log half of the storage
// contract in memory. The pairing-side methods are stubs; the group chat
// service never touches them.
type memStore struct {
	mu       sync.Mutex
	profiles map[string]*models.GupshupProfile
	messages []models.RoomMessage
	nextID   uint
}

func newMemStore() *memStore {
	return &memStore{profiles: make(map[string]*models.GupshupProfile)}
}

func (m *memStore) addProfile(userID, name, photo string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[userID] = &models.GupshupProfile{UserID: userID, DisplayName: name, PhotoURL: photo}
}

func (m *memStore) addMessage(room, userID, text string, sentAt time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	msg := models.RoomMessage{Room: room, UserID: userID, Text: text, SentAt: sentAt}
	msg.ID = m.nextID
	m.messages = append(m.messages, msg)
}

func (m *memStore) GetProfile(userID string) (*models.GupshupProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	profile, ok := m.profiles[userID]
	if !ok {
		return nil, nil
	}
	copied := *profile
	return &copied, nil
}

func (m *memStore) EnsureProfile(profile *models.GupshupProfile) (*models.GupshupProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.profiles[profile.UserID]; ok {
		copied := *existing
		return &copied, nil
	}
	copied := *profile
	m.profiles[profile.UserID] = &copied
	result := copied
	return &result, nil
}

func (m *memStore) UpdateProfile(userID, displayName, photoURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	profile, ok := m.profiles[userID]
	if !ok {
		profile = &models.GupshupProfile{UserID: userID}
		m.profiles[userID] = profile
	}
	if displayName != "" {
		profile.DisplayName = displayName
	}
	if photoURL != "" {
		profile.PhotoURL = photoURL
	}
	return nil
}

func (m *memStore) SaveRoomMessage(msg *models.RoomMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	msg.ID = m.nextID
	m.messages = append(m.messages, *msg)
	return nil
}

func (m *memStore) RecentRoomMessages(room string, limit int) ([]models.RoomMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []models.RoomMessage
	for _, msg := range m.messages {
		if msg.Room == room {
			result = append(result, msg)
		}
	}
	if len(result) > limit {
		result = result[len(result)-limit:]
	}
	return result, nil
}

func (m *memStore) PurgeExpiredRoomMessages(room string, before time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.messages[:0]
	for _, msg := range m.messages {
		if msg.Room == room && msg.SentAt.Before(before) {
			continue
		}
		kept = append(kept, msg)
	}
	m.messages = kept
	return nil
}

func (m *memStore) roomMessageCount(room string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, msg := range m.messages {
		if msg.Room == room {
			n++
		}
	}
	return n
}

var errNotUsed = errors.New("not used by group chat")

func (m *memStore) SaveUser(*models.User) error { return errNotUsed }

func (m *memStore) GetUser(int64) (*models.User, error) { return nil, errNotUsed }

func (m *memStore) SaveUserIfNotExists(int64, string, string) (*models.User, error) {
	return nil, errNotUsed
}

func (m *memStore) UpdateUserGender(int64, string) error { return errNotUsed }

func (m *memStore) CountUsers() (int64, error) { return 0, errNotUsed }

func (m *memStore) CreateSession(*models.ChatSession) error { return errNotUsed }

func (m *memStore) GetSessionByToken(string) (*models.ChatSession, error) {
	return nil, errNotUsed
}

func (m *memStore) GetActiveSessionForUser(int64) (*models.ChatSession, error) {
	return nil, errNotUsed
}

func (m *memStore) CloseSession(string) error { return errNotUsed }

func (m *memStore) AppendSessionMessage(string, int64, string) error { return errNotUsed }

func (m *memStore) TokenExists(string) (bool, error) { return false, errNotUsed }

func (m *memStore) CountSessions() (int64, error) { return 0, errNotUsed }

func (m *memStore) CountActiveSessions() (int64, error) { return 0, errNotUsed }

func (m *memStore) AddToSearchQueue(int64) error { return errNotUsed }

func (m *memStore) RemoveFromSearchQueue(int64) error { return errNotUsed }

func (m *memStore) SearchQueueMembers() ([]int64, error) { return nil, errNotUsed }
