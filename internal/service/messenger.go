package service

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"messenger-backend/internal/events"
	"messenger-backend/internal/model"
)

// MessageEmitter is the outgoing half of the channel contract: persist a
// message and push it to joined viewers. Timeline and the attachment
// pipeline send through it.
type MessageEmitter interface {
	Send(ctx context.Context, sender Viewer, out model.WSOutgoing) (*model.Message, error)
}

// Messenger owns message persistence, history pages and channel fanout.
type Messenger struct {
	messages MessageStore
	convs    ConversationStore
	hub      Broadcaster
	events   events.Publisher
}

func NewMessenger(messages MessageStore, convs ConversationStore, hub Broadcaster, pub events.Publisher) *Messenger {
	return &Messenger{messages: messages, convs: convs, hub: hub, events: pub}
}

// Send validates, persists and broadcasts an outgoing text or file message.
// Observers are rejected before any side effect. Delivery to other viewers
// is fire-and-forget: the message either persists and arrives via the
// channel (or a history refetch), or the caller gets an error to retry.
// There is no locally-sent-but-never-emitted state.
func (s *Messenger) Send(ctx context.Context, sender Viewer, out model.WSOutgoing) (*model.Message, error) {
	if sender.IsObserver() {
		return nil, ErrPermissionDenied
	}

	conv, err := s.convs.Get(ctx, out.ConversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, ErrConversationNotFound
	}
	if !conv.HasMember(sender.ID) {
		return nil, ErrNotMember
	}

	switch out.Kind {
	case model.KindText:
		if strings.TrimSpace(out.Text) == "" {
			return nil, ErrEmptyMessage
		}
	case model.KindFile:
		if out.FileURL == "" || out.FileName == "" {
			return nil, ErrMissingFile
		}
	default:
		// Poll messages go through PollService, never through Send.
		return nil, ErrInvalidKind
	}

	msg := &model.Message{
		ID:             uuid.New(),
		ConversationID: out.ConversationID,
		SenderID:       sender.ID,
		SenderName:     sender.Name,
		Kind:           out.Kind,
		Text:           out.Text,
		FileURL:        out.FileURL,
		FileName:       out.FileName,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.messages.Insert(ctx, msg); err != nil {
		return nil, err
	}

	s.hub.BroadcastToConversation(msg.ConversationID, model.NewWSEvent("message", msg))

	if perr := s.events.Publish(ctx, events.KeyMessageCreated,
		events.NewEnvelope(events.KeyMessageCreated, msg)); perr != nil {
		log.Printf("[Messenger] publish message.created: %v", perr)
	}

	return msg, nil
}

// History returns a page of past messages, oldest first. Members and
// observers may read; anyone else is rejected.
func (s *Messenger) History(ctx context.Context, viewer Viewer, conversationID uuid.UUID, before *uuid.UUID, limit int) ([]model.Message, error) {
	conv, err := s.convs.Get(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, ErrConversationNotFound
	}
	if !viewer.IsObserver() && !conv.HasMember(viewer.ID) {
		return nil, ErrNotMember
	}

	msgs, err := s.messages.HistoryPage(ctx, conversationID, before, limit)
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []model.Message{}
	}
	return msgs, nil
}
