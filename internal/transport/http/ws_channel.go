package http

import (
	"context"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"

	"github.com/dkurbatov/huddle/internal/core"
)

// wsChannel adapts a websocket connection to core.Channel. Each connection
// gets a fresh uuid so the registry can distinguish a stale handle from its
// replacement.
type wsChannel struct {
	id        string
	identity  core.Identity
	conn      *websocket.Conn
	closeOnce sync.Once
}

func newWSChannel(identity core.Identity, conn *websocket.Conn) *wsChannel {
	return &wsChannel{
		id:       uuid.NewString(),
		identity: identity,
		conn:     conn,
	}
}

func (c *wsChannel) ID() string {
	return c.id
}

func (c *wsChannel) Identity() core.Identity {
	return c.identity
}

func (c *wsChannel) Send(ctx context.Context, event core.Event) error {
	return wsjson.Write(ctx, c.conn, event)
}

func (c *wsChannel) Close() {
	c.closeOnce.Do(func() {
		_ = c.conn.Close(websocket.StatusNormalClosure, "closing")
	})
}
