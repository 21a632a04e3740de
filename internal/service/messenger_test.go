package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"messenger-backend/internal/events"
	"messenger-backend/internal/model"
)

func newMessengerFixture(t *testing.T) (*Messenger, *memStore, *recordingHub, *model.Conversation) {
	t.Helper()
	store := newMemStore()
	hub := newRecordingHub()
	conv := store.addConversation("1", "2")
	return NewMessenger(store, store, hub, events.NopPublisher{}), store, hub, conv
}

func TestSendPersistsAndBroadcasts(t *testing.T) {
	svc, store, hub, conv := newMessengerFixture(t)

	msg, err := svc.Send(context.Background(), Viewer{ID: "1", Name: "One", Role: RoleUser}, model.WSOutgoing{
		ConversationID: conv.ID,
		Kind:           model.KindText,
		Text:           "hello",
	})
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if msg.ID == uuid.Nil || msg.SenderName != "One" {
		t.Errorf("unexpected message %+v", msg)
	}
	if len(store.messages) != 1 {
		t.Errorf("expected 1 stored message, got %d", len(store.messages))
	}

	evs := hub.eventsFor(conv.ID)
	if len(evs) != 1 || evs[0].Type != "message" {
		t.Fatalf("expected one message broadcast, got %v", evs)
	}
}

func TestSendValidation(t *testing.T) {
	svc, store, _, conv := newMessengerFixture(t)

	cases := []struct {
		name   string
		sender Viewer
		out    model.WSOutgoing
		want   error
	}{
		{"observer", Viewer{ID: "admin", Role: RoleObserver},
			model.WSOutgoing{ConversationID: conv.ID, Kind: model.KindText, Text: "hi"}, ErrPermissionDenied},
		{"outsider", Viewer{ID: "99", Role: RoleUser},
			model.WSOutgoing{ConversationID: conv.ID, Kind: model.KindText, Text: "hi"}, ErrNotMember},
		{"unknown conversation", Viewer{ID: "1", Role: RoleUser},
			model.WSOutgoing{ConversationID: uuid.New(), Kind: model.KindText, Text: "hi"}, ErrConversationNotFound},
		{"empty text", Viewer{ID: "1", Role: RoleUser},
			model.WSOutgoing{ConversationID: conv.ID, Kind: model.KindText, Text: "   "}, ErrEmptyMessage},
		{"file without url", Viewer{ID: "1", Role: RoleUser},
			model.WSOutgoing{ConversationID: conv.ID, Kind: model.KindFile, FileName: "a.pdf"}, ErrMissingFile},
		{"poll kind", Viewer{ID: "1", Role: RoleUser},
			model.WSOutgoing{ConversationID: conv.ID, Kind: model.KindPoll, Text: "q"}, ErrInvalidKind},
	}
	for _, tc := range cases {
		if _, err := svc.Send(context.Background(), tc.sender, tc.out); !errors.Is(err, tc.want) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}

	if len(store.messages) != 0 {
		t.Errorf("rejected sends left %d messages behind", len(store.messages))
	}
}

func TestHistoryAccess(t *testing.T) {
	svc, _, _, conv := newMessengerFixture(t)

	if _, err := svc.Send(context.Background(), Viewer{ID: "1", Name: "One", Role: RoleUser}, model.WSOutgoing{
		ConversationID: conv.ID, Kind: model.KindText, Text: "hello",
	}); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	// Members and observers read history; outsiders do not.
	if msgs, err := svc.History(context.Background(), Viewer{ID: "2", Role: RoleUser}, conv.ID, nil, 50); err != nil || len(msgs) != 1 {
		t.Errorf("member history: %d msgs, err %v", len(msgs), err)
	}
	if msgs, err := svc.History(context.Background(), Viewer{ID: "admin", Role: RoleObserver}, conv.ID, nil, 50); err != nil || len(msgs) != 1 {
		t.Errorf("observer history: %d msgs, err %v", len(msgs), err)
	}
	if _, err := svc.History(context.Background(), Viewer{ID: "99", Role: RoleUser}, conv.ID, nil, 50); !errors.Is(err, ErrNotMember) {
		t.Errorf("expected ErrNotMember, got %v", err)
	}
}

func TestHistoryPaging(t *testing.T) {
	svc, store, _, conv := newMessengerFixture(t)
	sender := Viewer{ID: "1", Name: "One", Role: RoleUser}

	base := time.Now().UTC()
	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		msg := msgAt(conv.ID, base.Add(time.Duration(i)*time.Second))
		if err := store.Insert(context.Background(), &msg); err != nil {
			t.Fatalf("insert %d failed: %v", i, err)
		}
		ids = append(ids, msg.ID)
	}

	page, err := svc.History(context.Background(), sender, conv.ID, nil, 2)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(page) != 2 || page[0].ID != ids[3] || page[1].ID != ids[4] {
		t.Fatalf("expected newest two oldest-first, got %v", page)
	}

	older, err := svc.History(context.Background(), sender, conv.ID, &page[0].ID, 2)
	if err != nil {
		t.Fatalf("history before cursor failed: %v", err)
	}
	if len(older) != 2 || older[0].ID != ids[1] || older[1].ID != ids[2] {
		t.Fatalf("expected the two before the cursor, got %v", older)
	}
}
