package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Sentinel errors surfaced by store implementations. Callers match with errors.Is.
var (
	// ErrNotFound is returned when a referenced user, room, or message does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when the requester is not allowed to perform the operation.
	ErrForbidden = errors.New("forbidden")
	// ErrValidation is returned for malformed input, e.g. empty message content.
	ErrValidation = errors.New("validation error")
	// ErrInvalidOperation is returned for operations the target cannot support,
	// e.g. deleting a direct room.
	ErrInvalidOperation = errors.New("invalid operation")
	// ErrDuplicate is returned when a uniqueness constraint is violated.
	ErrDuplicate = errors.New("already exists")
)

// User represents a registered account.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	DeviceToken  string // empty when the user never registered a push token
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Room represents a conversation. Group rooms are created explicitly and carry
// an owner; direct rooms are created lazily per user pair, have no owner, and
// are identified by DirectKey.
type Room struct {
	ID        int64
	Name      string
	IsGroup   bool
	OwnerID   *int64  // nil for direct rooms
	DirectKey *string // "dm:{minUserID}:{maxUserID}" for direct rooms
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Message is an immutable, append-only chat message bound to one room.
type Message struct {
	ID        int64
	RoomID    int64
	UserID    int64
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Participant is a room member as needed for delivery: identity plus the
// stored push token, if any.
type Participant struct {
	ID          int64
	Username    string
	DeviceToken string
}

// DirectKey builds the canonical key for the unordered user pair. The UNIQUE
// constraint on this key is what makes GetOrCreateDirectRoom idempotent.
func DirectKey(a, b int64) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("dm:%d:%d", a, b)
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user with hashed password.
	CreateUser(ctx context.Context, username, passwordHash string) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id int64) (*User, error)

	// GetUserByUsername retrieves a user by username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// SetDeviceToken stores or replaces the user's push token.
	SetDeviceToken(ctx context.Context, userID int64, token string) error
}

// RoomStore handles room persistence.
type RoomStore interface {
	// GetOrCreateDirectRoom returns the unique direct room for the unordered
	// pair, creating it (with both users as participants) on first use.
	// Concurrent calls for the same pair converge to a single room.
	GetOrCreateDirectRoom(ctx context.Context, userA, userB int64) (*Room, error)

	// CreateGroupRoom creates an owned group room. The owner is always added
	// as a participant even if absent from participantIDs.
	CreateGroupRoom(ctx context.Context, name string, ownerID int64, participantIDs []int64) (*Room, error)

	// GetRoomByID retrieves a room by ID.
	GetRoomByID(ctx context.Context, id int64) (*Room, error)

	// AddParticipant adds a user to a room. No-op if already a participant.
	AddParticipant(ctx context.Context, roomID, userID int64) error

	// RemoveParticipant removes a user from a room. No-op if absent.
	RemoveParticipant(ctx context.Context, roomID, userID int64) error

	// IsParticipant reports whether the user is currently in the room.
	IsParticipant(ctx context.Context, roomID, userID int64) (bool, error)

	// ListParticipants lists room members with their device tokens.
	ListParticipants(ctx context.Context, roomID int64) ([]*Participant, error)

	// DeleteRoom deletes a group room and its messages. Fails with
	// ErrForbidden unless requesterID is the owner, and with
	// ErrInvalidOperation for direct rooms.
	DeleteRoom(ctx context.Context, roomID, requesterID int64) error

	// SearchRooms lists group rooms matching the optional name filter.
	SearchRooms(ctx context.Context, name string, page, limit int) ([]*Room, int, error)

	// ListRoomsForUser lists rooms the user participates in.
	ListRoomsForUser(ctx context.Context, userID int64, page, limit int) ([]*Room, int, error)
}

// MessageStore handles message persistence.
type MessageStore interface {
	// AppendMessage persists a message. Fails with ErrNotFound if the room
	// does not exist and ErrValidation if content is empty.
	AppendMessage(ctx context.Context, roomID, authorID int64, content string) (*Message, error)

	// ListRoomMessages retrieves room messages in chronological order with
	// offset pagination, plus the total count.
	ListRoomMessages(ctx context.Context, roomID int64, page, limit int) ([]*Message, int, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	RoomStore
	MessageStore

	// Close closes the underlying database connection.
	Close() error
}
