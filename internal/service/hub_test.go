package service

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"messenger-backend/internal/model"
)

func newTestClient(userID string) *WSClient {
	return NewWSClient(nil, userID, "User "+userID, RoleUser, 16)
}

func settle() { time.Sleep(20 * time.Millisecond) }

func drain(c *WSClient) []model.WSEvent {
	var out []model.WSEvent
	for {
		select {
		case ev := <-c.Send:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestHubRoomDelivery(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Shutdown()

	convA := uuid.New()
	convB := uuid.New()

	alice := newTestClient("alice")
	bob := newTestClient("bob")
	carol := newTestClient("carol")
	for _, c := range []*WSClient{alice, bob, carol} {
		hub.Register(c)
	}
	hub.Join(alice, convA)
	hub.Join(bob, convA)
	hub.Join(carol, convB)
	settle()

	hub.BroadcastToConversation(convA, model.NewWSEvent("message", map[string]string{"text": "hi"}))
	settle()

	if got := len(drain(alice)); got != 1 {
		t.Errorf("alice: expected 1 event, got %d", got)
	}
	if got := len(drain(bob)); got != 1 {
		t.Errorf("bob: expected 1 event, got %d", got)
	}
	if got := len(drain(carol)); got != 0 {
		t.Errorf("carol is in another room, got %d events", got)
	}
}

func TestHubLeaveStopsDelivery(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Shutdown()

	conv := uuid.New()
	alice := newTestClient("alice")
	hub.Register(alice)
	hub.Join(alice, conv)
	settle()

	hub.BroadcastToConversation(conv, model.NewWSEvent("message", nil))
	settle()
	hub.Leave(alice, conv)
	settle()
	hub.BroadcastToConversation(conv, model.NewWSEvent("message", nil))
	settle()

	if got := len(drain(alice)); got != 1 {
		t.Errorf("expected only the pre-leave event, got %d", got)
	}
	if hub.RoomCount(conv) != 0 {
		t.Errorf("room should be empty after leave")
	}
}

func TestHubJoinIdempotent(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Shutdown()

	conv := uuid.New()
	alice := newTestClient("alice")
	hub.Register(alice)
	hub.Join(alice, conv)
	hub.Join(alice, conv)
	settle()

	if hub.RoomCount(conv) != 1 {
		t.Fatalf("double join counted twice: %d", hub.RoomCount(conv))
	}

	hub.BroadcastToConversation(conv, model.NewWSEvent("message", nil))
	settle()
	if got := len(drain(alice)); got != 1 {
		t.Errorf("expected a single delivery, got %d", got)
	}
}

func TestHubLateJoinerGetsNothing(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Shutdown()

	conv := uuid.New()
	hub.BroadcastToConversation(conv, model.NewWSEvent("message", nil))
	settle()

	alice := newTestClient("alice")
	hub.Register(alice)
	hub.Join(alice, conv)
	settle()

	if got := len(drain(alice)); got != 0 {
		t.Errorf("events are not replayed to late joiners, got %d", got)
	}
}

func TestHubUnregisterCleansRooms(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Shutdown()

	conv := uuid.New()
	alice := newTestClient("alice")
	hub.Register(alice)
	hub.Join(alice, conv)
	settle()

	hub.Unregister(alice)
	settle()

	if hub.OnlineCount() != 0 {
		t.Errorf("expected no clients, got %d", hub.OnlineCount())
	}
	if hub.RoomCount(conv) != 0 {
		t.Errorf("expected empty room, got %d", hub.RoomCount(conv))
	}
	select {
	case <-alice.Done():
	default:
		t.Error("done channel should be closed after unregister")
	}
}

func TestHubDropsSlowConsumer(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Shutdown()

	conv := uuid.New()
	slow := NewWSClient(nil, "slow", "Slow", RoleUser, 1)
	hub.Register(slow)
	hub.Join(slow, conv)
	settle()

	hub.BroadcastToConversation(conv, model.NewWSEvent("message", nil))
	hub.BroadcastToConversation(conv, model.NewWSEvent("message", nil))
	settle()

	if hub.OnlineCount() != 0 {
		t.Errorf("slow consumer should be dropped, got %d online", hub.OnlineCount())
	}
	select {
	case <-slow.Done():
	default:
		t.Error("done channel should be closed after the drop")
	}
}
