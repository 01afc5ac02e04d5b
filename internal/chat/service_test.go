package chat

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dkurbatov/huddle/internal/core"
	"github.com/dkurbatov/huddle/internal/log"
	"github.com/dkurbatov/huddle/internal/store"
	"github.com/dkurbatov/huddle/internal/store/sqlite"
)

// dispatchCall records one notification dispatch.
type dispatchCall struct {
	Tokens []string
	Title  string
	Body   string
}

// captureDispatcher records dispatch calls for assertions.
type captureDispatcher struct {
	mu    sync.Mutex
	calls []dispatchCall
	err   error
}

func (d *captureDispatcher) Send(_ context.Context, tokens []string, title, body string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, dispatchCall{Tokens: tokens, Title: title, Body: body})
	return d.err
}

func (d *captureDispatcher) Calls() []dispatchCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]dispatchCall, len(d.calls))
	copy(out, d.calls)
	return out
}

// memChannel is an in-memory core.Channel for tests.
type memChannel struct {
	id    string
	ident core.Identity

	mu     sync.Mutex
	events []core.Event
}

func newMemChannel(id string, ident core.Identity) *memChannel {
	return &memChannel{id: id, ident: ident}
}

func (c *memChannel) ID() string              { return c.id }
func (c *memChannel) Identity() core.Identity { return c.ident }
func (c *memChannel) Close()                  {}

func (c *memChannel) Send(_ context.Context, event core.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *memChannel) Events() []core.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]core.Event, len(c.events))
	copy(out, c.events)
	return out
}

type fixture struct {
	store      *sqlite.SQLiteStore
	registry   *core.Registry
	dispatcher *captureDispatcher
	service    *Service

	alice core.Identity
	bob   core.Identity
	carol core.Identity
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := log.NewWithOutput("error", io.Discard)

	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	registry := core.NewRegistry(logger)
	router := core.NewRouter(registry, logger)
	dispatcher := &captureDispatcher{}
	service := NewService(st, router, dispatcher, logger)

	f := &fixture{
		store:      st,
		registry:   registry,
		dispatcher: dispatcher,
		service:    service,
	}

	ctx := context.Background()
	for _, u := range []struct {
		name  string
		ident *core.Identity
	}{
		{"alice", &f.alice},
		{"bob", &f.bob},
		{"carol", &f.carol},
	} {
		user, err := st.CreateUser(ctx, u.name, "hash")
		require.NoError(t, err)
		*u.ident = core.Identity{ID: user.ID, Username: user.Username}
	}

	return f
}

func (f *fixture) connect(t *testing.T, ident core.Identity) *memChannel {
	t.Helper()
	ch := newMemChannel("ch-"+ident.Username, ident)
	f.registry.Register(ch)
	return ch
}

func TestSendDirectLiveDelivery(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bobCh := f.connect(t, f.bob)

	msg, err := f.service.SendDirect(ctx, f.alice, f.bob.ID, "hi")
	require.NoError(t, err)
	require.NotZero(t, msg.ID)

	events := bobCh.Events()
	require.Len(t, events, 1)
	require.Equal(t, core.EventMessage, events[0].Event)

	payload, ok := events[0].Data.(core.MessagePayload)
	require.True(t, ok)
	require.Equal(t, f.alice.ID, payload.From)
	require.Equal(t, "hi", payload.Message)
	require.Nil(t, payload.Room)

	require.Empty(t, f.dispatcher.Calls(), "live delivery must not trigger a notification")
}

func TestSendDirectOfflineFallsBackToNotification(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.SetDeviceToken(ctx, f.bob.ID, "tok-2"))

	msg, err := f.service.SendDirect(ctx, f.alice, f.bob.ID, "hi")
	require.NoError(t, err)

	calls := f.dispatcher.Calls()
	require.Len(t, calls, 1)
	require.Equal(t, []string{"tok-2"}, calls[0].Tokens)
	require.Contains(t, calls[0].Title, "alice")
	require.Equal(t, "hi", calls[0].Body)

	// The message is durably recorded regardless of delivery channel.
	room, err := f.store.GetOrCreateDirectRoom(ctx, f.alice.ID, f.bob.ID)
	require.NoError(t, err)
	stored, total, err := f.store.ListRoomMessages(ctx, room.ID, 1, 10)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, msg.ID, stored[0].ID)
}

func TestSendDirectOfflineWithoutTokenReceivesNothing(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.SendDirect(context.Background(), f.alice, f.bob.ID, "hi")
	require.NoError(t, err)

	require.Empty(t, f.dispatcher.Calls(), "no token means no dispatch, not an error")
}

func TestSendDirectUnknownRecipient(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.SendDirect(context.Background(), f.alice, 9999, "hi")
	require.ErrorIs(t, err, store.ErrNotFound)
	require.Empty(t, f.dispatcher.Calls())
}

func TestSendDirectPersistenceFailureYieldsNoDelivery(t *testing.T) {
	f := newFixture(t)

	bobCh := f.connect(t, f.bob)

	_, err := f.service.SendDirect(context.Background(), f.alice, f.bob.ID, "   ")
	require.ErrorIs(t, err, store.ErrValidation)

	require.Empty(t, bobCh.Events(), "an unpersisted message must never be delivered live")
	require.Empty(t, f.dispatcher.Calls(), "an unpersisted message must never be pushed")
}

func TestSendRoomFanout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	room, err := f.store.CreateGroupRoom(ctx, "general", f.alice.ID, []int64{f.bob.ID, f.carol.ID})
	require.NoError(t, err)
	require.NoError(t, f.store.SetDeviceToken(ctx, f.carol.ID, "tok-carol"))

	senderCh := f.connect(t, f.alice)
	bobCh := f.connect(t, f.bob)
	// carol stays offline

	msg, err := f.service.SendRoom(ctx, f.alice, room.ID, "meeting at 5")
	require.NoError(t, err)
	require.Equal(t, room.ID, msg.RoomID)

	// Bob: exactly one live push carrying the room id.
	events := bobCh.Events()
	require.Len(t, events, 1)
	payload := events[0].Data.(core.MessagePayload)
	require.NotNil(t, payload.Room)
	require.Equal(t, room.ID, *payload.Room)

	// Carol: zero live pushes, one batched dispatch with her token.
	calls := f.dispatcher.Calls()
	require.Len(t, calls, 1)
	require.Equal(t, []string{"tok-carol"}, calls[0].Tokens)
	require.Contains(t, calls[0].Title, "alice")
	require.Contains(t, calls[0].Title, "general")

	// Sender receives nothing.
	require.Empty(t, senderCh.Events())
}

func TestSendRoomTokenlessCandidatesAreSkipped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	room, err := f.store.CreateGroupRoom(ctx, "general", f.alice.ID, []int64{f.bob.ID})
	require.NoError(t, err)

	_, err = f.service.SendRoom(ctx, f.alice, room.ID, "anyone here?")
	require.NoError(t, err)

	require.Empty(t, f.dispatcher.Calls(), "candidates without tokens are silently excluded")
}

func TestSendRoomRequiresMembership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	room, err := f.store.CreateGroupRoom(ctx, "private", f.alice.ID, nil)
	require.NoError(t, err)

	_, err = f.service.SendRoom(ctx, f.bob, room.ID, "let me in")
	require.ErrorIs(t, err, store.ErrForbidden)

	_, total, err := f.store.ListRoomMessages(ctx, room.ID, 1, 10)
	require.NoError(t, err)
	require.Zero(t, total, "a rejected send must not persist anything")
}

func TestSendRoomUnknownRoom(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.SendRoom(context.Background(), f.alice, 4242, "hello?")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestSendRoomDispatchFailureIsSwallowed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.dispatcher.err = errors.New("fcm unreachable")

	room, err := f.store.CreateGroupRoom(ctx, "general", f.alice.ID, []int64{f.bob.ID})
	require.NoError(t, err)
	require.NoError(t, f.store.SetDeviceToken(ctx, f.bob.ID, "tok-bob"))

	_, err = f.service.SendRoom(ctx, f.alice, room.ID, "hello")
	require.NoError(t, err, "notification failures must not surface to the sender")
	require.Len(t, f.dispatcher.Calls(), 1)
}

func TestJoinAndLeaveDirectRoomRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	room, err := f.store.GetOrCreateDirectRoom(ctx, f.alice.ID, f.bob.ID)
	require.NoError(t, err)

	_, err = f.service.JoinRoom(ctx, room.ID, f.carol.ID)
	require.ErrorIs(t, err, store.ErrInvalidOperation)

	err = f.service.LeaveRoom(ctx, room.ID, f.bob.ID)
	require.ErrorIs(t, err, store.ErrInvalidOperation)
}
