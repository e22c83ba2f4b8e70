package handler

import (
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tk22kalal/chatbot/internal/gupshup"
	"github.com/tk22kalal/chatbot/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 256
)

// wsClient is one browser connection. It implements hub.Conn: the hub
// enqueues events into send, the write pump drains them onto the wire.
type wsClient struct {
	userID  string
	room    string
	conn    *websocket.Conn
	service *gupshup.Service

	send      chan models.Event
	done      chan struct{}
	closeOnce sync.Once
}

func newWSClient(userID string, conn *websocket.Conn, service *gupshup.Service) *wsClient {
	return &wsClient{
		userID:  userID,
		conn:    conn,
		service: service,
		send:    make(chan models.Event, sendBufferSize),
		done:    make(chan struct{}),
	}
}

// Send enqueues an event without blocking the hub. A closed or saturated
// connection reports an error so the hub prunes it.
func (c *wsClient) Send(event models.Event) error {
	select {
	case <-c.done:
		return errors.New("connection closed")
	default:
	}
	select {
	case c.send <- event:
		return nil
	default:
		return errors.New("send buffer full")
	}
}

// Close marks the connection dead. The write pump notices and shuts the
// socket down; queued events are discarded.
func (c *wsClient) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Run starts the read and write pumps.
func (c *wsClient) Run() {
	go c.writePump()
	go c.readPump()
}

// readPump decodes inbound frames and dispatches them to the group chat
// service. A transport error or close triggers leave cleanup before the
// pump exits.
func (c *wsClient) readPump() {
	defer func() {
		if c.room != "" {
			c.service.OnLeave(c.userID, c.room, c)
		}
		c.Close()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("websocket read error for %s: %v", c.userID, err)
			}
			return
		}

		var event models.InboundEvent
		if err := json.Unmarshal(data, &event); err != nil {
			log.Printf("Dropping malformed frame from %s: %v", c.userID, err)
			continue
		}
		c.dispatch(event)
	}
}

func (c *wsClient) dispatch(event models.InboundEvent) {
	switch event.Action {
	case models.ActionJoin:
		if event.Group == "" {
			return
		}
		if c.room != "" && c.room != event.Group {
			// One connection, one room. Joining another room leaves the first.
			c.service.OnLeave(c.userID, c.room, c)
		}
		c.room = event.Group
		if err := c.service.OnJoin(c.userID, c.room, c); err != nil {
			log.Printf("ERROR: Join failed for %s in %s: %v", c.userID, c.room, err)
		}
	case models.ActionMessage:
		if c.room == "" {
			return
		}
		if err := c.service.OnMessage(c.userID, c.room, event); err != nil {
			log.Printf("ERROR: Message failed for %s in %s: %v", c.userID, c.room, err)
		}
	case models.ActionTyping:
		if c.room == "" {
			return
		}
		c.service.OnTyping(c.userID, c.room)
	case models.ActionUpdateProfile:
		if err := c.service.OnProfileUpdate(c.userID, event.Name, event.PhotoURL); err != nil {
			log.Printf("ERROR: Profile update failed for %s: %v", c.userID, err)
		}
	}
}

// writePump drains the send queue onto the socket and keeps the
// connection alive with pings.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case event := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(event); err != nil {
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
