package models

// Outbound event types pushed to group-chat connections.
const (
	EventHistory        = "history"
	EventUserJoined     = "user_joined"
	EventUserLeft       = "user_left"
	EventNewMessage     = "new_message"
	EventTyping         = "typing"
	EventProfileUpdated = "profile_updated"
)

// PresenceUser is the minimal profile view attached to join/leave events.
type PresenceUser struct {
	Name  string `json:"name"`
	Photo string `json:"photo,omitempty"`
}

// Event is the JSON envelope written to every group-chat connection.
// Only the fields relevant to the Type are set.
type Event struct {
	Type string `json:"type"`

	Messages    []RoomMessage `json:"messages,omitempty"`
	Message     *RoomMessage  `json:"message,omitempty"`
	OnlineCount int           `json:"online_count,omitempty"`
	User        *PresenceUser `json:"user,omitempty"`

	// profile_updated payload, broadcast system-wide.
	UserID string `json:"user_id,omitempty"`
	Name   string `json:"name,omitempty"`
	Photo  string `json:"photo,omitempty"`

	// typing payload.
	UserName string `json:"user_name,omitempty"`
}

// Inbound action types accepted from group-chat connections.
const (
	ActionJoin          = "join"
	ActionMessage       = "message"
	ActionTyping        = "typing"
	ActionUpdateProfile = "update_profile"
)

// InboundEvent is one decoded frame read from a group-chat connection.
type InboundEvent struct {
	Action string `json:"action"`

	UserID string `json:"user_id,omitempty"`
	Group  string `json:"group,omitempty"`

	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
	GifURL   string `json:"gif_url,omitempty"`

	Name     string `json:"name,omitempty"`
	PhotoURL string `json:"photo_url,omitempty"`
}
