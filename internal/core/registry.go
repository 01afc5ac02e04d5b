package core

import (
	"sync"

	"github.com/rs/zerolog"
)

// Registry is the in-memory presence table: at most one live channel per
// identity at any instant. All mutations are serialized by a single mutex;
// no I/O happens under the lock.
type Registry struct {
	mu       sync.Mutex
	channels map[int64]Channel
	log      *zerolog.Logger
}

// NewRegistry creates an empty presence registry.
func NewRegistry(logger *zerolog.Logger) *Registry {
	return &Registry{
		channels: make(map[int64]Channel),
		log:      logger,
	}
}

// Register stores ch as the identity's current channel and returns the
// evicted previous channel, already closed, or nil. Last connection wins:
// a second registration for the same identity always replaces the first.
func (r *Registry) Register(ch Channel) Channel {
	userID := ch.Identity().ID

	r.mu.Lock()
	prev := r.channels[userID]
	r.channels[userID] = ch
	r.mu.Unlock()

	if prev != nil {
		// Closing may block on the transport, so it happens after unlock.
		prev.Close()
		r.log.Debug().
			Int64("user_id", userID).
			Str("evicted_channel", prev.ID()).
			Str("channel", ch.ID()).
			Msg("replaced previous channel")
	}

	return prev
}

// UnregisterIfCurrent removes the identity's entry only when the stored
// channel is exactly ch. A disconnect event for an already-replaced channel
// is a no-op, so a stale disconnect never evicts a newer connection.
func (r *Registry) UnregisterIfCurrent(ch Channel) bool {
	userID := ch.Identity().ID

	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.channels[userID]
	if !ok || current.ID() != ch.ID() {
		return false
	}

	delete(r.channels, userID)
	return true
}

// Lookup returns the identity's current channel, if any.
func (r *Registry) Lookup(userID int64) (Channel, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch, ok := r.channels[userID]
	return ch, ok
}

// Online returns the number of currently registered identities.
func (r *Registry) Online() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.channels)
}
