package core

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/dkurbatov/huddle/internal/store"
)

// Router decides per recipient whether a persisted message can be pushed
// live. Exactly one delivery attempt is made per recipient per message: a
// recipient is either pushed live or reported as a notification candidate,
// never both.
type Router struct {
	registry *Registry
	log      *zerolog.Logger
}

// NewRouter creates a delivery router over the given presence registry.
func NewRouter(registry *Registry, logger *zerolog.Logger) *Router {
	return &Router{
		registry: registry,
		log:      logger,
	}
}

// DeliverDirect attempts live delivery of msg to recipientID. It returns true
// when the recipient holds a registered channel; the caller handles the
// notification fallback otherwise. A write failure on a registered channel
// still counts as a live attempt, not as grounds for a second delivery.
func (r *Router) DeliverDirect(ctx context.Context, msg *store.Message, recipientID int64) bool {
	return r.push(ctx, msg, recipientID, nil)
}

// DeliverRoom fans msg out to every participant except the sender and returns
// the IDs of participants that could not be reached live. It never dispatches
// notifications itself.
func (r *Router) DeliverRoom(ctx context.Context, msg *store.Message, participantIDs []int64, excludeSenderID int64) []int64 {
	var candidates []int64
	for _, participantID := range participantIDs {
		if participantID == excludeSenderID {
			continue
		}
		if !r.push(ctx, msg, participantID, &msg.RoomID) {
			candidates = append(candidates, participantID)
		}
	}
	return candidates
}

func (r *Router) push(ctx context.Context, msg *store.Message, recipientID int64, roomID *int64) bool {
	ch, ok := r.registry.Lookup(recipientID)
	if !ok {
		r.log.Debug().Int64("recipient_id", recipientID).Msg("recipient not connected")
		return false
	}

	event := Event{
		Event: EventMessage,
		Data: MessagePayload{
			From:      msg.UserID,
			Message:   msg.Content,
			CreatedAt: msg.CreatedAt,
			Room:      roomID,
		},
	}

	if err := ch.Send(ctx, event); err != nil {
		r.log.Warn().
			Err(err).
			Int64("recipient_id", recipientID).
			Str("channel", ch.ID()).
			Msg("live delivery write failed")
	}

	return true
}
