// Package gupshup serves the named group rooms: join with history,
// live messages, typing indicators and profile propagation, all fanned
// out through the presence hub.
package gupshup

import (
	"log"
	"time"

	"github.com/tk22kalal/chatbot/internal/hub"
	"github.com/tk22kalal/chatbot/internal/models"
	"github.com/tk22kalal/chatbot/internal/storage"
)

// Service composes the presence hub with the room message log and
// profile lookups.
type Service struct {
	hub   *hub.Hub
	store storage.Storage

	// retention is how long room messages survive; older entries are
	// purged lazily when a joiner reads history.
	retention    time.Duration
	historyLimit int
}

func NewService(h *hub.Hub, store storage.Storage, retention time.Duration, historyLimit int) *Service {
	return &Service{
		hub:          h,
		store:        store,
		retention:    retention,
		historyLimit: historyLimit,
	}
}

// OnJoin registers the connection, sends the room history and online
// count to the joiner, and announces the join to everyone else.
func (s *Service) OnJoin(userID, room string, conn hub.Conn) error {
	cutoff := time.Now().Add(-s.retention)
	if err := s.store.PurgeExpiredRoomMessages(room, cutoff); err != nil {
		log.Printf("ERROR: Failed to purge expired messages in %s: %v", room, err)
	}
	messages, err := s.store.RecentRoomMessages(room, s.historyLimit)
	if err != nil {
		return err
	}
	s.decorate(messages)

	count := s.hub.Join(userID, room, conn)

	if err := conn.Send(models.Event{
		Type:        models.EventHistory,
		Messages:    messages,
		OnlineCount: count,
	}); err != nil {
		// Joiner died before the history frame; the hub will prune it on
		// the next broadcast.
		log.Printf("Failed to send history to %s in %s: %v", userID, room, err)
	}

	profile := s.profileOf(userID)
	exclude := hub.Key{UserID: userID, Room: room}
	s.hub.Broadcast(room, models.Event{
		Type:        models.EventUserJoined,
		User:        &models.PresenceUser{Name: profile.DisplayName, Photo: profile.PhotoURL},
		OnlineCount: count,
	}, &exclude)
	return nil
}

// OnLeave deregisters the connection and announces the departure with the
// updated count. Called on explicit leave and on transport close alike.
// A stale leave from a replaced connection removes nothing and stays
// silent; the user is still live on the replacement.
func (s *Service) OnLeave(userID, room string, conn hub.Conn) {
	if !s.hub.Leave(userID, room, conn) {
		return
	}

	profile := s.profileOf(userID)
	s.hub.Broadcast(room, models.Event{
		Type:        models.EventUserLeft,
		User:        &models.PresenceUser{Name: profile.DisplayName},
		OnlineCount: s.hub.OnlineCount(room),
	}, nil)
}

// OnMessage persists the message, decorates it with the sender's current
// profile and broadcasts it to the room, excluding the sender's own
// connection (the sender already rendered it optimistically).
func (s *Service) OnMessage(userID, room string, ev models.InboundEvent) error {
	msg := &models.RoomMessage{
		Room:     room,
		UserID:   userID,
		Text:     ev.Text,
		ImageURL: ev.ImageURL,
		GifURL:   ev.GifURL,
		SentAt:   time.Now(),
	}
	if err := s.store.SaveRoomMessage(msg); err != nil {
		return err
	}

	profile := s.profileOf(userID)
	msg.UserName = profile.DisplayName
	msg.UserPhoto = profile.PhotoURL

	exclude := hub.Key{UserID: userID, Room: room}
	s.hub.Broadcast(room, models.Event{
		Type:    models.EventNewMessage,
		Message: msg,
	}, &exclude)
	return nil
}

// OnTyping is a stateless ephemeral broadcast; nothing is persisted.
func (s *Service) OnTyping(userID, room string) {
	profile := s.profileOf(userID)
	exclude := hub.Key{UserID: userID, Room: room}
	s.hub.Broadcast(room, models.Event{
		Type:     models.EventTyping,
		UserName: profile.DisplayName,
	}, &exclude)
}

// OnProfileUpdate persists the change and pushes it to every connection
// system-wide, so every open room reflects the new name and photo.
func (s *Service) OnProfileUpdate(userID, name, photoURL string) error {
	if err := s.store.UpdateProfile(userID, name, photoURL); err != nil {
		return err
	}
	s.hub.BroadcastAll(models.Event{
		Type:   models.EventProfileUpdated,
		UserID: userID,
		Name:   name,
		Photo:  photoURL,
	})
	return nil
}

// decorate fills the transient profile fields on history entries, reading
// each distinct sender's profile once.
func (s *Service) decorate(messages []models.RoomMessage) {
	profiles := make(map[string]*models.GupshupProfile)
	for i := range messages {
		id := messages[i].UserID
		profile, ok := profiles[id]
		if !ok {
			profile = s.profileOf(id)
			profiles[id] = profile
		}
		messages[i].UserName = profile.DisplayName
		messages[i].UserPhoto = profile.PhotoURL
	}
}

func (s *Service) profileOf(userID string) *models.GupshupProfile {
	profile, err := s.store.GetProfile(userID)
	if err != nil {
		log.Printf("ERROR: Failed to load profile %s: %v", userID, err)
	}
	if profile == nil {
		return &models.GupshupProfile{UserID: userID, DisplayName: "Anonymous"}
	}
	if profile.DisplayName == "" {
		profile.DisplayName = "Anonymous"
	}
	return profile
}
