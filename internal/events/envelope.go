package events

import (
	"time"

	"github.com/google/uuid"
)

// Routing keys published by the messaging core.
const (
	KeyConversationCreated = "conversation.created"
	KeyMessageCreated      = "message.created"
	KeyPollCreated         = "poll.created"
	KeyPollVoted           = "poll.voted"
)

type Meta struct {
	// Unique event ID
	ID string `json:"id"`
	// Event name, e.g. message.created
	Type string `json:"type"`
	// Emitting service
	Producer string `json:"producer,omitempty"`
	// Timestamp when the event was emitted
	Time time.Time `json:"time"`
}

type Envelope struct {
	Meta Meta `json:"meta"`
	Data any  `json:"data"`
}

func NewEnvelope(eventType string, data any) Envelope {
	return Envelope{
		Meta: Meta{
			ID:       uuid.NewString(),
			Type:     eventType,
			Producer: "messenger-backend",
			Time:     time.Now().UTC(),
		},
		Data: data,
	}
}
