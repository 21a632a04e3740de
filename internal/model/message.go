package model

import (
	"time"

	"github.com/google/uuid"
)

// Message kinds.
const (
	KindText = "text"
	KindFile = "file"
	KindPoll = "poll"
)

// Message is a single immutable entry in a conversation. Messages are
// append-only and totally ordered by (CreatedAt, ID).
type Message struct {
	ID             uuid.UUID  `json:"id"`
	ConversationID uuid.UUID  `json:"conversation_id"`
	SenderID       string     `json:"sender_id"`
	SenderName     string     `json:"sender_name"`
	Kind           string     `json:"kind"`
	Text           string     `json:"text,omitempty"`
	FileURL        string     `json:"file_url,omitempty"`
	FileName       string     `json:"file_name,omitempty"`
	PollID         *uuid.UUID `json:"poll_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Before reports whether m sorts before other in the (CreatedAt, ID) total
// order. The ID tiebreak keeps the order deterministic for equal timestamps.
func (m *Message) Before(other *Message) bool {
	if !m.CreatedAt.Equal(other.CreatedAt) {
		return m.CreatedAt.Before(other.CreatedAt)
	}
	return m.ID.String() < other.ID.String()
}
