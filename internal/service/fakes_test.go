package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"messenger-backend/internal/model"
)

// memStore is an in-memory stand-in for the pgx repositories. It applies the
// same rules the database enforces: pair-key uniqueness, vote eviction, and
// vote idempotence.
type memStore struct {
	mu       sync.Mutex
	convs    map[uuid.UUID]*model.Conversation
	byPair   map[string]uuid.UUID
	messages []model.Message
	polls    map[uuid.UUID]*model.Poll
	creates  int
}

func newMemStore() *memStore {
	return &memStore{
		convs:  make(map[uuid.UUID]*model.Conversation),
		byPair: make(map[string]uuid.UUID),
		polls:  make(map[uuid.UUID]*model.Poll),
	}
}

func (s *memStore) addConversation(users ...string) *model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &model.Conversation{ID: uuid.New(), CreatedAt: time.Now()}
	if len(users) == 2 {
		c.PairKey = model.PairKeyFor(users[0], users[1])
		s.byPair[c.PairKey] = c.ID
	}
	for _, u := range users {
		c.Members = append(c.Members, model.Member{UserID: u, Role: "member"})
	}
	s.convs[c.ID] = c
	return c
}

func (s *memStore) Get(_ context.Context, id uuid.UUID) (*model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.convs[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (s *memStore) FindDirect(_ context.Context, userA, userB string) (*model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byPair[model.PairKeyFor(userA, userB)]
	if !ok {
		return nil, nil
	}
	cp := *s.convs[id]
	return &cp, nil
}

func (s *memStore) CreateDirect(_ context.Context, viewerID, counterpartID string) (*model.Conversation, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := model.PairKeyFor(viewerID, counterpartID)
	// Uniqueness lives here, like the database constraint: a lost race
	// yields the winner's row as a normal success.
	if id, ok := s.byPair[key]; ok {
		cp := *s.convs[id]
		return &cp, false, nil
	}
	c := &model.Conversation{
		ID:        uuid.New(),
		PairKey:   key,
		CreatedBy: viewerID,
		CreatedAt: time.Now(),
		Members: []model.Member{
			{UserID: viewerID, Role: "member"},
			{UserID: counterpartID, Role: "member"},
		},
	}
	s.convs[c.ID] = c
	s.byPair[key] = c.ID
	s.creates++
	cp := *c
	return &cp, true, nil
}

func (s *memStore) ListForUser(_ context.Context, userID string) ([]model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Conversation
	for _, c := range s.convs {
		if c.HasMember(userID) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (s *memStore) Insert(_ context.Context, msg *model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, *msg)
	return nil
}

func (s *memStore) HistoryPage(_ context.Context, conversationID uuid.UUID, before *uuid.UUID, limit int) ([]model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 {
		limit = 50
	}

	var all []model.Message
	for _, m := range s.messages {
		if m.ConversationID == conversationID {
			all = append(all, m)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Before(&all[j]) })

	if before != nil {
		cut := len(all)
		for i := range all {
			if all[i].ID == *before {
				cut = i
				break
			}
		}
		all = all[:cut]
	}
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

func (s *memStore) CreatePollMessage(_ context.Context, poll *model.Poll, msg *model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, *msg)
	s.polls[poll.ID] = copyPoll(poll)
	return nil
}

func (s *memStore) GetPoll(_ context.Context, id uuid.UUID) (*model.Poll, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.polls[id]
	if !ok {
		return nil, nil
	}
	return copyPoll(p), nil
}

func (s *memStore) Vote(_ context.Context, pollID, optionID uuid.UUID, userID string, evictOthers bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.polls[pollID]
	if !ok {
		return fmt.Errorf("poll %s not found", pollID)
	}
	for i := range p.Options {
		opt := &p.Options[i]
		if opt.ID == optionID {
			if !contains(opt.Voters, userID) {
				opt.Voters = append(opt.Voters, userID)
			}
		} else if evictOthers {
			opt.Voters = remove(opt.Voters, userID)
		}
	}
	return nil
}

func copyPoll(p *model.Poll) *model.Poll {
	cp := *p
	cp.Options = make([]model.PollOption, len(p.Options))
	for i, o := range p.Options {
		cp.Options[i] = o
		cp.Options[i].Voters = append([]string{}, o.Voters...)
	}
	return &cp
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

func remove(ss []string, s string) []string {
	out := ss[:0]
	for _, v := range ss {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}

// recordingHub captures broadcasts per conversation.
type recordingHub struct {
	mu     sync.Mutex
	events map[uuid.UUID][]model.WSEvent
}

func newRecordingHub() *recordingHub {
	return &recordingHub{events: make(map[uuid.UUID][]model.WSEvent)}
}

func (h *recordingHub) BroadcastToConversation(conversationID uuid.UUID, event model.WSEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events[conversationID] = append(h.events[conversationID], event)
}

func (h *recordingHub) eventsFor(conversationID uuid.UUID) []model.WSEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]model.WSEvent{}, h.events[conversationID]...)
}

// recordingEmitter captures what Timeline.Send hands to the emit path.
type recordingEmitter struct {
	mu   sync.Mutex
	sent []model.WSOutgoing
	err  error
}

func (e *recordingEmitter) Send(_ context.Context, sender Viewer, out model.WSOutgoing) (*model.Message, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	e.sent = append(e.sent, out)
	return &model.Message{
		ID:             uuid.New(),
		ConversationID: out.ConversationID,
		SenderID:       sender.ID,
		SenderName:     sender.Name,
		Kind:           out.Kind,
		Text:           out.Text,
		FileURL:        out.FileURL,
		FileName:       out.FileName,
		CreatedAt:      time.Now().UTC(),
	}, nil
}

func (e *recordingEmitter) sentCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.sent)
}

func msgAt(conversationID uuid.UUID, ts time.Time) model.Message {
	return model.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		SenderID:       "u1",
		SenderName:     "User One",
		Kind:           model.KindText,
		Text:           "hello",
		CreatedAt:      ts,
	}
}
