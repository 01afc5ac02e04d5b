package chat

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dkurbatov/huddle/internal/core"
	"github.com/dkurbatov/huddle/internal/notify"
	"github.com/dkurbatov/huddle/internal/store"
)

// Service orchestrates message sends: persist first, then route each
// recipient to exactly one of live delivery or notification fallback.
type Service struct {
	store    store.Store
	router   *core.Router
	notifier notify.Dispatcher
	log      *zerolog.Logger
}

// NewService creates the chat service.
func NewService(st store.Store, router *core.Router, notifier notify.Dispatcher, logger *zerolog.Logger) *Service {
	return &Service{
		store:    st,
		router:   router,
		notifier: notifier,
		log:      logger,
	}
}

// SendDirect persists a one-to-one message against the pair's direct room and
// delivers it to the recipient, falling back to a single push notification
// when the recipient is not connected. A persistence failure means no
// delivery attempt of any kind.
func (s *Service) SendDirect(ctx context.Context, sender core.Identity, recipientID int64, content string) (*store.Message, error) {
	recipient, err := s.store.GetUserByID(ctx, recipientID)
	if err != nil {
		return nil, fmt.Errorf("resolve recipient: %w", err)
	}

	room, err := s.store.GetOrCreateDirectRoom(ctx, sender.ID, recipientID)
	if err != nil {
		return nil, fmt.Errorf("resolve direct room: %w", err)
	}

	msg, err := s.store.AppendMessage(ctx, room.ID, sender.ID, content)
	if err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}

	if delivered := s.router.DeliverDirect(ctx, msg, recipientID); !delivered {
		s.notifyOffline(ctx, msg,
			[]string{recipient.DeviceToken},
			fmt.Sprintf("Message from %s", sender.Username))
	}

	return msg, nil
}

// SendRoom persists a room message and fans it out to all participants except
// the sender. Participants without a live channel are batched into a single
// notification dispatch; candidates without a stored device token receive
// nothing.
func (s *Service) SendRoom(ctx context.Context, sender core.Identity, roomID int64, content string) (*store.Message, error) {
	room, err := s.store.GetRoomByID(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("resolve room: %w", err)
	}

	isMember, err := s.store.IsParticipant(ctx, roomID, sender.ID)
	if err != nil {
		return nil, fmt.Errorf("check membership: %w", err)
	}
	if !isMember {
		return nil, fmt.Errorf("sender %d is not in room %d: %w", sender.ID, roomID, store.ErrForbidden)
	}

	msg, err := s.store.AppendMessage(ctx, roomID, sender.ID, content)
	if err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}

	participants, err := s.store.ListParticipants(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}

	participantIDs := make([]int64, 0, len(participants))
	tokenByUser := make(map[int64]string, len(participants))
	for _, p := range participants {
		participantIDs = append(participantIDs, p.ID)
		tokenByUser[p.ID] = p.DeviceToken
	}

	candidates := s.router.DeliverRoom(ctx, msg, participantIDs, sender.ID)

	tokens := make([]string, 0, len(candidates))
	for _, candidateID := range candidates {
		if token := tokenByUser[candidateID]; token != "" {
			tokens = append(tokens, token)
		}
	}

	s.notifyOffline(ctx, msg, tokens,
		fmt.Sprintf("Message from %s in %s", sender.Username, room.Name))

	return msg, nil
}

// notifyOffline makes the single fallback dispatch call. Errors are logged
// and never surfaced: live-delivery outcome alone determines what the sender
// sees.
func (s *Service) notifyOffline(ctx context.Context, msg *store.Message, tokens []string, title string) {
	valid := tokens[:0]
	for _, t := range tokens {
		if t != "" {
			valid = append(valid, t)
		}
	}
	if len(valid) == 0 {
		return
	}

	if err := s.notifier.Send(ctx, valid, title, msg.Content); err != nil {
		s.log.Warn().
			Err(err).
			Int64("message_id", msg.ID).
			Int("tokens", len(valid)).
			Msg("notification dispatch failed")
	}
}
