package model

import (
	"encoding/json"

	"github.com/google/uuid"
)

type WSEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Client -> server payloads.

type WSJoin struct {
	ConversationID uuid.UUID `json:"conversation_id"`
}

type WSLeave struct {
	ConversationID uuid.UUID `json:"conversation_id"`
}

type WSOutgoing struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	Kind           string    `json:"kind"`
	Text           string    `json:"text,omitempty"`
	FileURL        string    `json:"file_url,omitempty"`
	FileName       string    `json:"file_name,omitempty"`
}

// Server -> client payloads.

type WSJoined struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	Messages       []Message `json:"messages"`
}

type WSError struct {
	Message string `json:"message"`
}

// NewWSEvent wraps payload in a typed event. Our payload types cannot fail
// to marshal, so the error is dropped.
func NewWSEvent(eventType string, payload any) WSEvent {
	data, _ := json.Marshal(payload)
	return WSEvent{Type: eventType, Data: data}
}
