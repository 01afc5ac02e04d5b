package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/dkurbatov/huddle/internal/auth"
	"github.com/dkurbatov/huddle/internal/chat"
	"github.com/dkurbatov/huddle/internal/core"
	"github.com/dkurbatov/huddle/internal/proto"
)

// WSHandler owns the connection lifecycle: handshake, presence registration,
// inbound event dispatch, and deregistration on disconnect.
type WSHandler struct {
	authService *auth.Service
	registry    *core.Registry
	chatService *chat.Service
	log         *zerolog.Logger
}

// NewWSHandler builds the websocket handler.
func NewWSHandler(authService *auth.Service, registry *core.Registry, chatService *chat.Service, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{
		authService: authService,
		registry:    registry,
		chatService: chatService,
		log:         logger,
	}
}

// Handle upgrades the connection and runs its read loop until disconnect.
// The bearer token comes from the `token` query parameter or the
// Authorization header; missing or invalid credentials reject the connection
// without a reason payload.
func (h *WSHandler) Handle(c *gin.Context) {
	token := extractToken(c)
	if token == "" {
		c.AbortWithStatus(stdhttp.StatusUnauthorized)
		return
	}

	claims, err := h.authService.ValidateToken(token)
	if err != nil {
		h.log.Debug().Err(err).Msg("ws handshake rejected")
		c.AbortWithStatus(stdhttp.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}

	identity := core.Identity{ID: claims.UserID, Username: claims.Username}
	channel := newWSChannel(identity, conn)

	// Last connection wins: a prior channel for this identity is closed by
	// the registry before the new one takes its slot.
	h.registry.Register(channel)
	h.log.Info().
		Int64("user_id", identity.ID).
		Str("channel", channel.ID()).
		Msg("user connected")

	ctx := c.Request.Context()

	defer func() {
		// Only this channel's own entry is removed; a newer replacement
		// survives a stale disconnect.
		if h.registry.UnregisterIfCurrent(channel) {
			h.log.Info().
				Int64("user_id", identity.ID).
				Str("channel", channel.ID()).
				Msg("user disconnected")
		}
		channel.Close()
	}()

	if err := channel.Send(ctx, core.Event{
		Event: core.EventConnected,
		Data:  core.ConnectedPayload{UserID: identity.ID, Username: identity.Username},
	}); err != nil {
		h.log.Warn().Err(err).Int64("user_id", identity.ID).Msg("write connect ack")
		return
	}

	h.readLoop(ctx, conn, channel)
}

func extractToken(c *gin.Context) string {
	if token := c.Query("token"); token != "" {
		return token
	}
	authHeader := c.GetHeader("Authorization")
	if after, ok := cutBearer(authHeader); ok {
		return after
	}
	return ""
}

func cutBearer(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):], true
	}
	return "", false
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, channel *wsChannel) {
	identity := channel.Identity()

	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			if !isExpectedClose(err) {
				h.log.Warn().Err(err).Int64("user_id", identity.ID).Msg("read ws inbound")
			}
			return
		}

		if err := h.dispatch(ctx, identity, inbound); err != nil {
			// Operation errors go back to the originating connection only;
			// they never affect other participants or the registry.
			sendErr := channel.Send(ctx, core.Event{
				Event: core.EventError,
				Data: core.ErrorPayload{
					Code:    errorCode(err),
					Message: err.Error(),
				},
			})
			if sendErr != nil {
				return
			}
		}
	}
}

func (h *WSHandler) dispatch(ctx context.Context, sender core.Identity, inbound proto.Inbound) error {
	switch inbound.Event {
	case proto.InboundUserMessage:
		var data proto.UserMessageData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return errBadPayload
		}
		_, err := h.chatService.SendDirect(ctx, sender, data.UserID, data.Content)
		return err

	case proto.InboundRoomMessage:
		var data proto.RoomMessageData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return errBadPayload
		}
		_, err := h.chatService.SendRoom(ctx, sender, data.RoomID, data.Content)
		return err

	default:
		return errUnknownEvent
	}
}

var (
	errBadPayload   = errors.New("malformed event payload")
	errUnknownEvent = errors.New("unknown event")
)

func isExpectedClose(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		return true
	}
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	}
	return false
}
