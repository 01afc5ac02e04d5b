package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/dkurbatov/huddle/internal/auth"
	"github.com/dkurbatov/huddle/internal/chat"
	"github.com/dkurbatov/huddle/internal/config"
	"github.com/dkurbatov/huddle/internal/core"
	"github.com/dkurbatov/huddle/internal/store"
)

// NewServer builds the HTTP server: REST surface plus the websocket endpoint.
func NewServer(
	cfg config.Config,
	authService *auth.Service,
	registry *core.Registry,
	chatService *chat.Service,
	st store.Store,
	logger *zerolog.Logger,
) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(stdhttp.StatusOK, gin.H{"status": "ok", "online": registry.Online()})
	})

	wsHandler := NewWSHandler(authService, registry, chatService, logger)
	router.GET("/ws/chat", wsHandler.Handle)

	userHandlers := NewUserHandlers(authService, st, logger)
	roomHandlers := NewRoomHandlers(chatService, logger)

	api := router.Group("/api")
	{
		api.POST("/users/register", userHandlers.Register)
		api.POST("/users/login", userHandlers.Login)

		authed := api.Group("")
		authed.Use(AuthMiddleware(authService, logger))
		{
			authed.POST("/users/device-token", userHandlers.AddDeviceToken)
			authed.GET("/users/:userID/messages", roomHandlers.DirectMessages)

			authed.POST("/rooms", roomHandlers.CreateRoom)
			authed.GET("/rooms", roomHandlers.ListRooms)
			authed.GET("/rooms/joined", roomHandlers.ListJoinedRooms)
			authed.POST("/rooms/:roomID/join", roomHandlers.JoinRoom)
			authed.POST("/rooms/:roomID/leave", roomHandlers.LeaveRoom)
			authed.DELETE("/rooms/:roomID", roomHandlers.DeleteRoom)
			authed.GET("/rooms/:roomID/messages", roomHandlers.RoomMessages)
		}
	}

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
