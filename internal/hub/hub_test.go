package hub_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tk22kalal/chatbot/internal/hub"
	"github.com/tk22kalal/chatbot/internal/models"
)

// fakeConn records delivered events and can be flipped into a failing state
// to simulate a dead transport.
type fakeConn struct {
	events []models.Event
	fail   bool
	closed bool
}

func (c *fakeConn) Send(event models.Event) error {
	if c.fail {
		return errors.New("connection gone")
	}
	c.events = append(c.events, event)
	return nil
}

func (c *fakeConn) Close() {
	c.closed = true
}

func TestJoinCountsIncludeNewcomer(t *testing.T) {
	h := hub.New()

	assert.Equal(t, 1, h.Join("alice", "ENGINEER", &fakeConn{}))
	assert.Equal(t, 2, h.Join("bob", "ENGINEER", &fakeConn{}))
	assert.Equal(t, 1, h.Join("carol", "DOCTOR", &fakeConn{}), "rooms are counted independently")
	assert.Equal(t, 2, h.OnlineCount("ENGINEER"))
	assert.Equal(t, 0, h.OnlineCount("12TH"))
}

func TestJoinReplacesPriorConnection(t *testing.T) {
	h := hub.New()
	first := &fakeConn{}
	second := &fakeConn{}

	h.Join("alice", "ENGINEER", first)
	count := h.Join("alice", "ENGINEER", second)

	assert.Equal(t, 1, count, "same user must not count twice")
	assert.True(t, first.closed, "replaced connection gets closed")
	assert.False(t, second.closed)

	h.Broadcast("ENGINEER", models.Event{Type: models.EventTyping}, nil)
	assert.Empty(t, first.events)
	assert.Len(t, second.events, 1)
}

func TestRejoinOnSameConnectionKeepsItAlive(t *testing.T) {
	h := hub.New()
	conn := &fakeConn{}

	assert.Equal(t, 1, h.Join("alice", "ENGINEER", conn))
	assert.Equal(t, 1, h.Join("alice", "ENGINEER", conn), "re-sending join is not a replacement")
	assert.False(t, conn.closed, "the connection the client still holds must stay open")

	h.Broadcast("ENGINEER", models.Event{Type: models.EventNewMessage}, nil)
	require.Len(t, conn.events, 1)
	assert.Equal(t, 1, h.OnlineCount("ENGINEER"))
}

func TestLeaveIgnoresReplacedConnection(t *testing.T) {
	h := hub.New()
	first := &fakeConn{}
	second := &fakeConn{}

	h.Join("alice", "ENGINEER", first)
	h.Join("alice", "ENGINEER", second)

	// The replaced connection disconnects late; its leave must not evict
	// the successor.
	assert.False(t, h.Leave("alice", "ENGINEER", first))
	assert.Equal(t, 1, h.OnlineCount("ENGINEER"))

	assert.True(t, h.Leave("alice", "ENGINEER", second))
	assert.Equal(t, 0, h.OnlineCount("ENGINEER"))
}

func TestLeaveWithNilConnRemovesCurrent(t *testing.T) {
	h := hub.New()
	h.Join("alice", "ENGINEER", &fakeConn{})

	assert.True(t, h.Leave("alice", "ENGINEER", nil))
	assert.Equal(t, 0, h.OnlineCount("ENGINEER"))

	// Leaving an empty room is a no-op.
	assert.False(t, h.Leave("alice", "ENGINEER", nil))
	assert.Equal(t, 0, h.OnlineCount("ENGINEER"))
}

func TestBroadcastExcludesOneKey(t *testing.T) {
	h := hub.New()
	alice := &fakeConn{}
	bob := &fakeConn{}
	h.Join("alice", "ENGINEER", alice)
	h.Join("bob", "ENGINEER", bob)

	exclude := hub.Key{UserID: "alice", Room: "ENGINEER"}
	h.Broadcast("ENGINEER", models.Event{Type: models.EventNewMessage}, &exclude)

	assert.Empty(t, alice.events)
	require.Len(t, bob.events, 1)
	assert.Equal(t, models.EventNewMessage, bob.events[0].Type)
}

func TestBroadcastStaysInRoom(t *testing.T) {
	h := hub.New()
	engineer := &fakeConn{}
	doctor := &fakeConn{}
	h.Join("alice", "ENGINEER", engineer)
	h.Join("bob", "DOCTOR", doctor)

	h.Broadcast("ENGINEER", models.Event{Type: models.EventNewMessage}, nil)

	assert.Len(t, engineer.events, 1)
	assert.Empty(t, doctor.events)
}

func TestBroadcastPrunesDeadConnections(t *testing.T) {
	h := hub.New()
	alive1 := &fakeConn{}
	dead := &fakeConn{fail: true}
	alive2 := &fakeConn{}
	h.Join("alice", "ENGINEER", alive1)
	h.Join("bob", "ENGINEER", dead)
	h.Join("carol", "ENGINEER", alive2)

	h.Broadcast("ENGINEER", models.Event{Type: models.EventNewMessage}, nil)

	assert.Len(t, alive1.events, 1, "fan-out continues past the dead connection")
	assert.Len(t, alive2.events, 1)
	assert.True(t, dead.closed)
	assert.Equal(t, 2, h.OnlineCount("ENGINEER"))
}

func TestBroadcastAllReachesEveryRoom(t *testing.T) {
	h := hub.New()
	engineer := &fakeConn{}
	doctor := &fakeConn{}
	h.Join("alice", "ENGINEER", engineer)
	h.Join("bob", "DOCTOR", doctor)

	h.BroadcastAll(models.Event{Type: models.EventProfileUpdated, UserID: "alice"})

	require.Len(t, engineer.events, 1)
	require.Len(t, doctor.events, 1)
	assert.Equal(t, models.EventProfileUpdated, doctor.events[0].Type)
}

func TestBroadcastPreservesPerRecipientOrder(t *testing.T) {
	h := hub.New()
	bob := &fakeConn{}
	h.Join("alice", "ENGINEER", &fakeConn{})
	h.Join("bob", "ENGINEER", bob)

	for i := 0; i < 5; i++ {
		h.Broadcast("ENGINEER", models.Event{Type: models.EventNewMessage, Name: string(rune('a' + i))}, nil)
	}

	require.Len(t, bob.events, 5)
	for i, event := range bob.events {
		assert.Equal(t, string(rune('a'+i)), event.Name)
	}
}
