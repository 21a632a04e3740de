package service

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"messenger-backend/internal/model"
)

// Timeline is the per-view assembled sequence of one conversation's
// messages. It is the single merge point for the two message sources, the
// paged history fetch and live channel deliveries, keyed by message
// identity so the channel's at-least-once delivery becomes effectively-once
// at the presentation layer. Entries are kept sorted by (CreatedAt, ID).
type Timeline struct {
	mu             sync.Mutex
	conversationID uuid.UUID
	viewer         Viewer
	emitter        MessageEmitter

	seen     map[uuid.UUID]struct{}
	messages []model.Message
	closed   bool
}

func NewTimeline(conversationID uuid.UUID, viewer Viewer, emitter MessageEmitter) *Timeline {
	return &Timeline{
		conversationID: conversationID,
		viewer:         viewer,
		emitter:        emitter,
		seen:           make(map[uuid.UUID]struct{}),
	}
}

func (t *Timeline) ConversationID() uuid.UUID {
	return t.conversationID
}

// MergeHistory folds a history page into the timeline and returns how many
// entries were new. Re-merging an overlapping page is idempotent.
func (t *Timeline) MergeHistory(page []model.Message) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return 0
	}

	inserted := 0
	for i := range page {
		if t.insertLocked(page[i]) {
			inserted++
		}
	}
	return inserted
}

// AppendLive folds one live delivery into the timeline. It reports whether
// the message was new; duplicates (the sender's echo, or an entry a history
// refetch already picked up) are dropped. Appends after Close are discarded.
func (t *Timeline) AppendLive(msg model.Message) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed || msg.ConversationID != t.conversationID {
		return false
	}
	return t.insertLocked(msg)
}

// insertLocked places msg at its sorted position unless its id is already
// present. Callers hold t.mu.
func (t *Timeline) insertLocked(msg model.Message) bool {
	if _, ok := t.seen[msg.ID]; ok {
		return false
	}
	t.seen[msg.ID] = struct{}{}

	i := sort.Search(len(t.messages), func(i int) bool {
		return msg.Before(&t.messages[i])
	})
	t.messages = append(t.messages, model.Message{})
	copy(t.messages[i+1:], t.messages[i:])
	t.messages[i] = msg
	return true
}

// Messages returns a snapshot of the assembled sequence, oldest first.
func (t *Timeline) Messages() []model.Message {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]model.Message, len(t.messages))
	copy(out, t.messages)
	return out
}

func (t *Timeline) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.messages)
}

// Send emits an outgoing message on the conversation this timeline views.
// Observer sessions are rejected here, at the contract boundary, before any
// network effect. The sent message is not appended locally; it comes back
// through the channel echo and is deduped like any other delivery.
func (t *Timeline) Send(ctx context.Context, out model.WSOutgoing) (*model.Message, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, ErrTimelineClosed
	}
	viewer := t.viewer
	out.ConversationID = t.conversationID
	t.mu.Unlock()

	if viewer.IsObserver() {
		return nil, ErrPermissionDenied
	}
	return t.emitter.Send(ctx, viewer, out)
}

// Close marks the view closed. Later merges and appends are discarded, so a
// history response that arrives after the view is gone never mutates it.
func (t *Timeline) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
}
