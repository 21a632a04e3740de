package model

import (
	"time"

	"github.com/google/uuid"
)

// Member is one participant of a conversation.
type Member struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// Conversation is a direct thread between two users. At most one direct
// conversation exists per unordered pair of members; PairKey carries that
// uniqueness down to the database constraint.
type Conversation struct {
	ID        uuid.UUID `json:"id"`
	PairKey   string    `json:"-"`
	Members   []Member  `json:"members"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// HasMember reports whether userID is a member of the conversation.
func (c *Conversation) HasMember(userID string) bool {
	for _, m := range c.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

// PairKeyFor returns the canonical pair key for a direct conversation
// between two users, independent of argument order.
func PairKeyFor(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + ":" + b
}
