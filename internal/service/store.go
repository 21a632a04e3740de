package service

import (
	"context"

	"github.com/google/uuid"

	"messenger-backend/internal/model"
)

// Store interfaces consumed by the services. The pgx repositories implement
// them; tests substitute in-memory fakes.

type ConversationStore interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Conversation, error)
	FindDirect(ctx context.Context, userA, userB string) (*model.Conversation, error)
	CreateDirect(ctx context.Context, viewerID, counterpartID string) (*model.Conversation, bool, error)
	ListForUser(ctx context.Context, userID string) ([]model.Conversation, error)
}

type MessageStore interface {
	Insert(ctx context.Context, msg *model.Message) error
	HistoryPage(ctx context.Context, conversationID uuid.UUID, before *uuid.UUID, limit int) ([]model.Message, error)
}

type PollStore interface {
	CreatePollMessage(ctx context.Context, poll *model.Poll, msg *model.Message) error
	GetPoll(ctx context.Context, id uuid.UUID) (*model.Poll, error)
	Vote(ctx context.Context, pollID, optionID uuid.UUID, userID string, evictOthers bool) error
}

// Broadcaster pushes an event to every client currently joined to the
// conversation's room.
type Broadcaster interface {
	BroadcastToConversation(conversationID uuid.UUID, event model.WSEvent)
}
