package core

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"github.com/dkurbatov/huddle/internal/log"
)

// fakeChannel records events and close calls for assertions.
type fakeChannel struct {
	id    string
	ident Identity

	mu     sync.Mutex
	events []Event
	closed bool
}

func newFakeChannel(id string, userID int64, username string) *fakeChannel {
	return &fakeChannel{
		id:    id,
		ident: Identity{ID: userID, Username: username},
	}
}

func (c *fakeChannel) ID() string { return c.id }

func (c *fakeChannel) Identity() Identity { return c.ident }

func (c *fakeChannel) Send(_ context.Context, event Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("channel %s is closed", c.id)
	}
	c.events = append(c.events, event)
	return nil
}

func (c *fakeChannel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *fakeChannel) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

func (c *fakeChannel) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func quietLogger() *zerolog.Logger {
	return log.NewWithOutput("error", io.Discard)
}
