package service

import (
	"context"
	"log"

	"messenger-backend/internal/events"
	"messenger-backend/internal/model"
)

// Directory resolves which conversation exists between two users and owns
// the find-or-create flow. Uniqueness under concurrent creates is delegated
// to the store's pair-key constraint: losing that race still returns the
// surviving conversation as a normal success.
type Directory struct {
	convs  ConversationStore
	events events.Publisher
}

func NewDirectory(convs ConversationStore, pub events.Publisher) *Directory {
	return &Directory{convs: convs, events: pub}
}

// ResolveOrCreate returns the direct conversation between the viewer and the
// counterpart, creating it on first contact. Either outcome of a creation
// race is success; the caller cannot tell which side created the row.
func (d *Directory) ResolveOrCreate(ctx context.Context, viewer Viewer, counterpartID string) (*model.Conversation, error) {
	if viewer.ID == "" || counterpartID == "" || viewer.ID == counterpartID {
		return nil, ErrInvalidParticipant
	}
	if viewer.IsObserver() {
		return nil, ErrPermissionDenied
	}

	existing, err := d.convs.FindDirect(ctx, viewer.ID, counterpartID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	conv, created, err := d.convs.CreateDirect(ctx, viewer.ID, counterpartID)
	if err != nil {
		return nil, err
	}
	if created {
		if perr := d.events.Publish(ctx, events.KeyConversationCreated,
			events.NewEnvelope(events.KeyConversationCreated, conv)); perr != nil {
			log.Printf("[Directory] publish conversation.created: %v", perr)
		}
	}
	return conv, nil
}

// ListForViewer returns every conversation the viewer belongs to.
func (d *Directory) ListForViewer(ctx context.Context, viewer Viewer) ([]model.Conversation, error) {
	return d.convs.ListForUser(ctx, viewer.ID)
}
