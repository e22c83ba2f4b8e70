package engine_test

import (
	"errors"
	"sync"
	"time"

	"github.com/tk22kalal/chatbot/internal/models"
)

// memStore is an in-memory Storage double with just enough state for the
// engine and relay to run real scenarios against.
type memStore struct {
	mu       sync.Mutex
	users    map[int64]*models.User
	sessions map[string]*models.ChatSession
	queueSet map[int64]struct{}

	failAppend bool
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[int64]*models.User),
		sessions: make(map[string]*models.ChatSession),
		queueSet: make(map[int64]struct{}),
	}
}

func (m *memStore) addUser(id int64, gender string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[id] = &models.User{ID: id, Gender: gender, ChatState: models.StateIdle}
}

func (m *memStore) SaveUser(user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *user
	m.users[user.ID] = &copied
	return nil
}

func (m *memStore) GetUser(userID int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[userID]
	if !ok {
		return nil, nil
	}
	copied := *user
	return &copied, nil
}

func (m *memStore) SaveUserIfNotExists(userID int64, username, firstName string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user, ok := m.users[userID]; ok {
		copied := *user
		return &copied, nil
	}
	user := &models.User{ID: userID, Username: username, FirstName: firstName, ChatState: models.StateIdle}
	m.users[userID] = user
	copied := *user
	return &copied, nil
}

func (m *memStore) UpdateUserGender(userID int64, gender string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user, ok := m.users[userID]; ok {
		user.Gender = gender
	}
	return nil
}

func (m *memStore) CountUsers() (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.users)), nil
}

func (m *memStore) CreateSession(session *models.ChatSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *session
	m.sessions[session.Token] = &copied
	return nil
}

func (m *memStore) GetSessionByToken(token string) (*models.ChatSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[token]
	if !ok {
		return nil, nil
	}
	copied := *session
	return &copied, nil
}

func (m *memStore) GetActiveSessionForUser(userID int64) (*models.ChatSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, session := range m.sessions {
		if session.EndedAt != nil {
			continue
		}
		if session.User1ID == userID || session.User2ID == userID {
			copied := *session
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memStore) CloseSession(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if session, ok := m.sessions[token]; ok && session.EndedAt == nil {
		now := time.Now()
		session.EndedAt = &now
	}
	return nil
}

func (m *memStore) AppendSessionMessage(token string, senderID int64, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAppend {
		return errors.New("append failed")
	}
	session, ok := m.sessions[token]
	if !ok {
		return errors.New("no such session")
	}
	session.Messages = append(session.Messages, models.SessionMessage{
		SessionToken: token,
		SenderID:     senderID,
		Text:         text,
	})
	return nil
}

func (m *memStore) TokenExists(token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[token]
	return ok, nil
}

func (m *memStore) CountSessions() (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.sessions)), nil
}

func (m *memStore) CountActiveSessions() (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, session := range m.sessions {
		if session.EndedAt == nil {
			n++
		}
	}
	return n, nil
}

func (m *memStore) AddToSearchQueue(userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queueSet[userID] = struct{}{}
	return nil
}

func (m *memStore) RemoveFromSearchQueue(userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.queueSet, userID)
	return nil
}

func (m *memStore) SearchQueueMembers() ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int64, 0, len(m.queueSet))
	for id := range m.queueSet {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *memStore) GetProfile(userID string) (*models.GupshupProfile, error) {
	return nil, nil
}

func (m *memStore) EnsureProfile(profile *models.GupshupProfile) (*models.GupshupProfile, error) {
	return profile, nil
}

func (m *memStore) UpdateProfile(userID, displayName, photoURL string) error {
	return nil
}

func (m *memStore) SaveRoomMessage(msg *models.RoomMessage) error {
	return nil
}

func (m *memStore) RecentRoomMessages(room string, limit int) ([]models.RoomMessage, error) {
	return nil, nil
}

func (m *memStore) PurgeExpiredRoomMessages(room string, before time.Time) error {
	return nil
}

// scriptedRand replays a fixed sequence of values, then zeroes. It makes
// partner choice and token generation a pure function of the script.
type scriptedRand struct {
	values []int
	pos    int
}

func (r *scriptedRand) Intn(n int) int {
	if r.pos >= len(r.values) {
		return 0
	}
	v := r.values[r.pos]
	r.pos++
	return v % n
}
