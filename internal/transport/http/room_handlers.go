package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/dkurbatov/huddle/internal/chat"
	"github.com/dkurbatov/huddle/internal/store"
)

// RoomHandlers provides the REST room-management and history surface.
type RoomHandlers struct {
	chatService *chat.Service
	log         *zerolog.Logger
}

// NewRoomHandlers creates a new room handlers instance.
func NewRoomHandlers(chatService *chat.Service, logger *zerolog.Logger) *RoomHandlers {
	return &RoomHandlers{
		chatService: chatService,
		log:         logger,
	}
}

// CreateRoomRequest is the create room request body.
type CreateRoomRequest struct {
	Name           string  `json:"name" binding:"required,min=1,max=64"`
	ParticipantIDs []int64 `json:"participant_ids"`
}

// RoomResponse represents a room in API responses.
type RoomResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	IsGroup   bool   `json:"is_group"`
	OwnerID   *int64 `json:"owner_id,omitempty"`
	CreatedAt string `json:"created_at"`
}

// MessageResponse represents a message in API responses.
type MessageResponse struct {
	ID        int64  `json:"id"`
	RoomID    int64  `json:"room_id"`
	AuthorID  int64  `json:"author_id"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

// PaginatedResponse wraps a page of items with pagination metadata.
type PaginatedResponse struct {
	Items any `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

func roomResponse(room *store.Room) RoomResponse {
	return RoomResponse{
		ID:        room.ID,
		Name:      room.Name,
		IsGroup:   room.IsGroup,
		OwnerID:   room.OwnerID,
		CreatedAt: room.CreatedAt.Format(time.RFC3339),
	}
}

func messageResponses(messages []*store.Message) []MessageResponse {
	out := make([]MessageResponse, 0, len(messages))
	for _, msg := range messages {
		out = append(out, MessageResponse{
			ID:        msg.ID,
			RoomID:    msg.RoomID,
			AuthorID:  msg.UserID,
			Content:   msg.Content,
			CreatedAt: msg.CreatedAt.Format(time.RFC3339),
		})
	}
	return out
}

func pagination(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + name})
		return 0, false
	}
	return id, true
}

// CreateRoom handles group room creation.
// POST /api/rooms
func (h *RoomHandlers) CreateRoom(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	room, err := h.chatService.CreateGroupRoom(c.Request.Context(), req.Name, identity.ID, req.ParticipantIDs)
	if err != nil {
		h.log.Error().Err(err).Str("room_name", req.Name).Msg("failed to create room")
		c.JSON(httpStatus(err), ErrorResponse{Error: "failed to create room", Code: errorCode(err)})
		return
	}

	c.JSON(http.StatusCreated, roomResponse(room))
}

// ListRooms handles group-room search with pagination.
// GET /api/rooms
func (h *RoomHandlers) ListRooms(c *gin.Context) {
	page, limit := pagination(c)

	rooms, total, err := h.chatService.SearchRooms(c.Request.Context(), c.Query("name"), page, limit)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list rooms")
		c.JSON(httpStatus(err), ErrorResponse{Error: "failed to list rooms", Code: errorCode(err)})
		return
	}

	items := make([]RoomResponse, 0, len(rooms))
	for _, room := range rooms {
		items = append(items, roomResponse(room))
	}
	c.JSON(http.StatusOK, PaginatedResponse{Items: items, Total: total, Page: page, Limit: limit})
}

// ListJoinedRooms lists the caller's rooms with pagination.
// GET /api/rooms/joined
func (h *RoomHandlers) ListJoinedRooms(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	page, limit := pagination(c)

	rooms, total, err := h.chatService.ListJoinedRooms(c.Request.Context(), identity.ID, page, limit)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", identity.ID).Msg("failed to list joined rooms")
		c.JSON(httpStatus(err), ErrorResponse{Error: "failed to list joined rooms", Code: errorCode(err)})
		return
	}

	items := make([]RoomResponse, 0, len(rooms))
	for _, room := range rooms {
		items = append(items, roomResponse(room))
	}
	c.JSON(http.StatusOK, PaginatedResponse{Items: items, Total: total, Page: page, Limit: limit})
}

// JoinRoom adds the caller to a group room.
// POST /api/rooms/:roomID/join
func (h *RoomHandlers) JoinRoom(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	roomID, ok := pathID(c, "roomID")
	if !ok {
		return
	}

	room, err := h.chatService.JoinRoom(c.Request.Context(), roomID, identity.ID)
	if err != nil {
		c.JSON(httpStatus(err), ErrorResponse{Error: "failed to join room", Code: errorCode(err)})
		return
	}

	c.JSON(http.StatusOK, roomResponse(room))
}

// LeaveRoom removes the caller from a group room.
// POST /api/rooms/:roomID/leave
func (h *RoomHandlers) LeaveRoom(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	roomID, ok := pathID(c, "roomID")
	if !ok {
		return
	}

	if err := h.chatService.LeaveRoom(c.Request.Context(), roomID, identity.ID); err != nil {
		c.JSON(httpStatus(err), ErrorResponse{Error: "failed to leave room", Code: errorCode(err)})
		return
	}

	c.Status(http.StatusNoContent)
}

// DeleteRoom deletes a group room; only its owner may do so.
// DELETE /api/rooms/:roomID
func (h *RoomHandlers) DeleteRoom(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	roomID, ok := pathID(c, "roomID")
	if !ok {
		return
	}

	if err := h.chatService.DeleteRoom(c.Request.Context(), roomID, identity.ID); err != nil {
		c.JSON(httpStatus(err), ErrorResponse{Error: "failed to delete room", Code: errorCode(err)})
		return
	}

	c.Status(http.StatusNoContent)
}

// RoomMessages returns paginated room history.
// GET /api/rooms/:roomID/messages
func (h *RoomHandlers) RoomMessages(c *gin.Context) {
	roomID, ok := pathID(c, "roomID")
	if !ok {
		return
	}

	page, limit := pagination(c)

	messages, total, err := h.chatService.RoomHistory(c.Request.Context(), roomID, page, limit)
	if err != nil {
		c.JSON(httpStatus(err), ErrorResponse{Error: "failed to list messages", Code: errorCode(err)})
		return
	}

	c.JSON(http.StatusOK, PaginatedResponse{Items: messageResponses(messages), Total: total, Page: page, Limit: limit})
}

// DirectMessages returns the paginated one-to-one history between the caller
// and the target user.
// GET /api/users/:userID/messages
func (h *RoomHandlers) DirectMessages(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	targetID, ok := pathID(c, "userID")
	if !ok {
		return
	}

	page, limit := pagination(c)

	messages, total, err := h.chatService.DirectHistory(c.Request.Context(), identity.ID, targetID, page, limit)
	if err != nil {
		c.JSON(httpStatus(err), ErrorResponse{Error: "failed to list messages", Code: errorCode(err)})
		return
	}

	c.JSON(http.StatusOK, PaginatedResponse{Items: messageResponses(messages), Total: total, Page: page, Limit: limit})
}
