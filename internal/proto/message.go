package proto

import "encoding/json"

// Inbound is the envelope for events coming from the client over the socket.
type Inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Inbound event names.
const (
	// InboundUserMessage is a one-to-one send: {content, userId}.
	InboundUserMessage = "user/message"
	// InboundRoomMessage is a room send: {content, roomId}.
	InboundRoomMessage = "room/message"
)

// UserMessageData is the payload of a user/message event.
type UserMessageData struct {
	Content string `json:"content"`
	UserID  int64  `json:"userId"`
}

// RoomMessageData is the payload of a room/message event.
type RoomMessageData struct {
	Content string `json:"content"`
	RoomID  int64  `json:"roomId"`
}

// Error codes surfaced to the originating connection.
const (
	CodeBadRequest       = "bad_request"
	CodeNotFound         = "not_found"
	CodeForbidden        = "forbidden"
	CodeValidation       = "validation_error"
	CodeInvalidOperation = "invalid_operation"
	CodeInternal         = "internal_error"
)
