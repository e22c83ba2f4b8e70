// Package hub is the in-memory presence registry for group chat: one
// entry per live (user, room) connection, with fault-tolerant fan-out.
package hub

import (
	"log"
	"sync"

	"github.com/tk22kalal/chatbot/internal/models"
)

// Conn is the transport channel back to one client. Send must not block:
// implementations enqueue to a buffer and report a stale or closed
// connection with an error, which makes the hub drop them.
type Conn interface {
	Send(event models.Event) error
	Close()
}

// Key identifies one live connection.
type Key struct {
	UserID string
	Room   string
}

// Hub tracks live connections and broadcasts events over them. All map
// access happens under one mutex; events are enqueued to per-connection
// buffers while it is held, which is what keeps delivery order per
// recipient identical to the order events were accepted.
type Hub struct {
	mu    sync.Mutex
	conns map[Key]Conn
}

func New() *Hub {
	return &Hub{conns: make(map[Key]Conn)}
}

// Join registers the connection and returns the room's online count
// including the newcomer. A previous connection under the same key is
// replaced and closed; anything it still had queued dies with it. A
// client re-joining on the connection it already holds keeps it alive.
func (h *Hub) Join(userID, room string, conn Conn) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	key := Key{UserID: userID, Room: room}
	if prior, ok := h.conns[key]; ok && prior != conn {
		prior.Close()
	}
	h.conns[key] = conn
	return h.countLocked(room)
}

// Leave deregisters the connection and reports whether a registration
// was actually removed. The conn argument guards against a late
// disconnect of a replaced connection evicting its successor; pass nil
// to remove whatever is registered. A false return means the user is
// still live (on a replacement connection) and no departure happened.
func (h *Hub) Leave(userID, room string, conn Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	key := Key{UserID: userID, Room: room}
	current, ok := h.conns[key]
	if !ok {
		return false
	}
	if conn != nil && current != conn {
		return false
	}
	delete(h.conns, key)
	return true
}

// OnlineCount recomputes the room's live connection count. It is never
// cached, so it cannot drift.
func (h *Hub) OnlineCount(room string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.countLocked(room)
}

// Broadcast delivers the event to every live connection in the room,
// except the excluded key. A failed send prunes that connection and the
// fan-out continues to the rest.
func (h *Hub) Broadcast(room string, event models.Event, exclude *Key) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for key, conn := range h.conns {
		if key.Room != room {
			continue
		}
		if exclude != nil && key == *exclude {
			continue
		}
		if err := conn.Send(event); err != nil {
			log.Printf("Dropping stale connection %s in %s: %v", key.UserID, key.Room, err)
			delete(h.conns, key)
			conn.Close()
		}
	}
}

// BroadcastAll delivers the event to every live connection in every room.
// Used for profile updates, which must reach every open page.
func (h *Hub) BroadcastAll(event models.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for key, conn := range h.conns {
		if err := conn.Send(event); err != nil {
			log.Printf("Dropping stale connection %s in %s: %v", key.UserID, key.Room, err)
			delete(h.conns, key)
			conn.Close()
		}
	}
}

func (h *Hub) countLocked(room string) int {
	n := 0
	for key := range h.conns {
		if key.Room == room {
			n++
		}
	}
	return n
}
