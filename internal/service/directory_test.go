package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"messenger-backend/internal/events"
)

func TestResolveOrCreateValidation(t *testing.T) {
	d := NewDirectory(newMemStore(), events.NopPublisher{})

	cases := []struct {
		name        string
		viewer      Viewer
		counterpart string
		want        error
	}{
		{"self", Viewer{ID: "1", Role: RoleUser}, "1", ErrInvalidParticipant},
		{"empty counterpart", Viewer{ID: "1", Role: RoleUser}, "", ErrInvalidParticipant},
		{"empty viewer", Viewer{ID: "", Role: RoleUser}, "2", ErrInvalidParticipant},
		{"observer", Viewer{ID: "admin", Role: RoleObserver}, "2", ErrPermissionDenied},
	}
	for _, tc := range cases {
		if _, err := d.ResolveOrCreate(context.Background(), tc.viewer, tc.counterpart); !errors.Is(err, tc.want) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestResolveOrCreateReturnsExisting(t *testing.T) {
	store := newMemStore()
	d := NewDirectory(store, events.NopPublisher{})

	first, err := d.ResolveOrCreate(context.Background(), Viewer{ID: "1", Role: RoleUser}, "2")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// Counterpart resolves from the other side: same conversation, no new row.
	second, err := d.ResolveOrCreate(context.Background(), Viewer{ID: "2", Role: RoleUser}, "1")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("expected one conversation, got %s and %s", first.ID, second.ID)
	}
	if store.creates != 1 {
		t.Errorf("expected 1 create, got %d", store.creates)
	}
}

func TestResolveOrCreateConcurrent(t *testing.T) {
	store := newMemStore()
	d := NewDirectory(store, events.NopPublisher{})

	const sessions = 16
	ids := make([]uuid.UUID, sessions)
	var wg sync.WaitGroup
	for i := 0; i < sessions; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			viewer, counterpart := "1", "2"
			if i%2 == 1 {
				viewer, counterpart = "2", "1"
			}
			conv, err := d.ResolveOrCreate(context.Background(), Viewer{ID: viewer, Role: RoleUser}, counterpart)
			if err != nil {
				t.Errorf("session %d: %v", i, err)
				return
			}
			ids[i] = conv.ID
		}(i)
	}
	wg.Wait()

	for i := 1; i < sessions; i++ {
		if ids[i] != ids[0] {
			t.Fatalf("session %d got conversation %s, session 0 got %s", i, ids[i], ids[0])
		}
	}
	if store.creates != 1 {
		t.Errorf("expected exactly 1 conversation created, got %d", store.creates)
	}
}

func TestResolveOrCreateHasBothMembers(t *testing.T) {
	d := NewDirectory(newMemStore(), events.NopPublisher{})

	conv, err := d.ResolveOrCreate(context.Background(), Viewer{ID: "1", Role: RoleUser}, "2")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if !conv.HasMember("1") || !conv.HasMember("2") {
		t.Errorf("expected both participants as members, got %v", conv.Members)
	}
}
