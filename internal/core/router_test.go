package core

import (
	"context"
	"testing"
	"time"

	"github.com/dkurbatov/huddle/internal/store"
)

func testMessage(roomID int64) *store.Message {
	return &store.Message{
		ID:        101,
		RoomID:    roomID,
		UserID:    1,
		Content:   "hi",
		CreatedAt: time.Now(),
	}
}

func TestDeliverDirectToRegisteredRecipient(t *testing.T) {
	reg := NewRegistry(quietLogger())
	router := NewRouter(reg, quietLogger())

	recipient := newFakeChannel("ch-2", 2, "bob")
	reg.Register(recipient)

	msg := testMessage(10)
	if !router.DeliverDirect(context.Background(), msg, 2) {
		t.Fatal("expected live delivery to a registered recipient")
	}

	events := recipient.Events()
	if len(events) != 1 {
		t.Fatalf("expected exactly one event, got %d", len(events))
	}
	if events[0].Event != EventMessage {
		t.Fatalf("unexpected event name: %s", events[0].Event)
	}

	payload, ok := events[0].Data.(MessagePayload)
	if !ok {
		t.Fatalf("unexpected payload type: %T", events[0].Data)
	}
	if payload.From != 1 || payload.Message != "hi" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if payload.Room != nil {
		t.Fatal("direct messages must not carry a room field")
	}
}

func TestDeliverDirectToAbsentRecipient(t *testing.T) {
	reg := NewRegistry(quietLogger())
	router := NewRouter(reg, quietLogger())

	if router.DeliverDirect(context.Background(), testMessage(10), 99) {
		t.Fatal("expected delivery to fail for an unregistered recipient")
	}
}

func TestDeliverRoomSplitsLiveAndCandidates(t *testing.T) {
	reg := NewRegistry(quietLogger())
	router := NewRouter(reg, quietLogger())

	sender := newFakeChannel("ch-s", 1, "sender")
	live := newFakeChannel("ch-a", 2, "alice")
	reg.Register(sender)
	reg.Register(live)
	// user 3 is offline

	msg := testMessage(55)
	candidates := router.DeliverRoom(context.Background(), msg, []int64{1, 2, 3}, 1)

	if len(candidates) != 1 || candidates[0] != 3 {
		t.Fatalf("expected candidate set {3}, got %v", candidates)
	}

	events := live.Events()
	if len(events) != 1 {
		t.Fatalf("live participant expected exactly one push, got %d", len(events))
	}
	payload := events[0].Data.(MessagePayload)
	if payload.Room == nil || *payload.Room != 55 {
		t.Fatalf("room messages must carry the room id, got %+v", payload)
	}

	if got := len(sender.Events()); got != 0 {
		t.Fatalf("sender must receive nothing, got %d events", got)
	}
}

func TestDeliverRoomWriteFailureStillCountsAsLive(t *testing.T) {
	reg := NewRegistry(quietLogger())
	router := NewRouter(reg, quietLogger())

	broken := newFakeChannel("ch-b", 2, "bob")
	broken.Close() // Send will fail, but the channel is still registered
	reg.mu.Lock()
	reg.channels[2] = broken
	reg.mu.Unlock()

	candidates := router.DeliverRoom(context.Background(), testMessage(5), []int64{1, 2}, 1)
	if len(candidates) != 0 {
		t.Fatalf("a registered channel counts as a live attempt, got candidates %v", candidates)
	}
}
