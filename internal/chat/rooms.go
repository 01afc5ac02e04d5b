package chat

import (
	"context"
	"fmt"

	"github.com/dkurbatov/huddle/internal/store"
)

// CreateGroupRoom creates an owned group room. The owner always ends up a
// participant.
func (s *Service) CreateGroupRoom(ctx context.Context, name string, ownerID int64, participantIDs []int64) (*store.Room, error) {
	room, err := s.store.CreateGroupRoom(ctx, name, ownerID, participantIDs)
	if err != nil {
		return nil, fmt.Errorf("create group room: %w", err)
	}

	s.log.Info().
		Int64("room_id", room.ID).
		Str("name", room.Name).
		Int64("owner_id", ownerID).
		Msg("group room created")

	return room, nil
}

// JoinRoom adds the user to a group room. Idempotent. Direct-room membership
// is fixed at creation, so joining one is rejected.
func (s *Service) JoinRoom(ctx context.Context, roomID, userID int64) (*store.Room, error) {
	room, err := s.store.GetRoomByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.IsGroup {
		return nil, fmt.Errorf("direct room membership is fixed: %w", store.ErrInvalidOperation)
	}

	if err := s.store.AddParticipant(ctx, roomID, userID); err != nil {
		return nil, fmt.Errorf("add participant: %w", err)
	}

	return room, nil
}

// LeaveRoom removes the user from a group room. Idempotent.
func (s *Service) LeaveRoom(ctx context.Context, roomID, userID int64) error {
	room, err := s.store.GetRoomByID(ctx, roomID)
	if err != nil {
		return err
	}
	if !room.IsGroup {
		return fmt.Errorf("direct room membership is fixed: %w", store.ErrInvalidOperation)
	}

	if err := s.store.RemoveParticipant(ctx, roomID, userID); err != nil {
		return fmt.Errorf("remove participant: %w", err)
	}

	return nil
}

// DeleteRoom deletes a group room on behalf of its owner.
func (s *Service) DeleteRoom(ctx context.Context, roomID, requesterID int64) error {
	if err := s.store.DeleteRoom(ctx, roomID, requesterID); err != nil {
		return err
	}

	s.log.Info().
		Int64("room_id", roomID).
		Int64("requester_id", requesterID).
		Msg("group room deleted")

	return nil
}

// SearchRooms lists group rooms matching the optional name filter.
func (s *Service) SearchRooms(ctx context.Context, name string, page, limit int) ([]*store.Room, int, error) {
	return s.store.SearchRooms(ctx, name, page, limit)
}

// ListJoinedRooms lists rooms the user currently participates in.
func (s *Service) ListJoinedRooms(ctx context.Context, userID int64, page, limit int) ([]*store.Room, int, error) {
	return s.store.ListRoomsForUser(ctx, userID, page, limit)
}

// RoomHistory returns paginated room messages in chronological order.
func (s *Service) RoomHistory(ctx context.Context, roomID int64, page, limit int) ([]*store.Message, int, error) {
	if _, err := s.store.GetRoomByID(ctx, roomID); err != nil {
		return nil, 0, err
	}
	return s.store.ListRoomMessages(ctx, roomID, page, limit)
}

// DirectHistory returns the paginated one-to-one history between two users.
// The direct room is resolved (or lazily created) the same way sends do.
func (s *Service) DirectHistory(ctx context.Context, userA, userB int64, page, limit int) ([]*store.Message, int, error) {
	room, err := s.store.GetOrCreateDirectRoom(ctx, userA, userB)
	if err != nil {
		return nil, 0, fmt.Errorf("resolve direct room: %w", err)
	}
	return s.store.ListRoomMessages(ctx, room.ID, page, limit)
}
