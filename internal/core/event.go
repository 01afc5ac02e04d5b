package core

import "time"

// Event names pushed to clients.
const (
	// EventConnected acknowledges a successful handshake.
	EventConnected = "connected"
	// EventMessage carries a chat message.
	EventMessage = "message"
	// EventError reports a recoverable operation error to the sender.
	EventError = "error"
)

// Event is the envelope pushed over a channel.
type Event struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// MessagePayload is the data of an EventMessage. Room is present only for
// room-originated messages.
type MessagePayload struct {
	From      int64     `json:"from"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
	Room      *int64    `json:"room,omitempty"`
}

// ConnectedPayload is the data of an EventConnected acknowledgment.
type ConnectedPayload struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
}

// ErrorPayload is the data of an EventError.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
