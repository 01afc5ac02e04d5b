package core

import "context"

// Identity is the verified {id, displayName} claim derived from a bearer
// token at connection time. Immutable for the connection's lifetime.
type Identity struct {
	ID       int64
	Username string
}

// Channel is a live bidirectional transport bound to one identity. The
// registry owns a channel while it is registered; it is closed and discarded
// on eviction or disconnect.
type Channel interface {
	// ID returns the unique handle identifier. The registry compares it to
	// tell a stale channel from its replacement.
	ID() string

	// Identity returns the claim bound at handshake.
	Identity() Identity

	// Send pushes an event to the client. Safe for concurrent use.
	Send(ctx context.Context, event Event) error

	// Close tears down the transport. Idempotent.
	Close()
}
