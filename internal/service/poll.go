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

// PollService creates polls and applies votes. Vote tallies are always
// derived from the stored voter sets and re-read after every mutation: the
// store is the single record of truth, local state is only a cache.
type PollService struct {
	polls  PollStore
	convs  ConversationStore
	hub    Broadcaster
	events events.Publisher
}

func NewPollService(polls PollStore, convs ConversationStore, hub Broadcaster, pub events.Publisher) *PollService {
	return &PollService{polls: polls, convs: convs, hub: hub, events: pub}
}

// Create validates and stores a poll together with its owning poll-kind
// message, then broadcasts the message to the conversation. Validation
// failures happen before any side effect.
func (s *PollService) Create(ctx context.Context, conversationID uuid.UUID, sender Viewer, question string, optionLabels []string, allowMultiple bool) (*model.Message, *model.Poll, error) {
	if sender.IsObserver() {
		return nil, nil, ErrPermissionDenied
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, nil, ErrPollQuestion
	}
	var labels []string
	for _, l := range optionLabels {
		if l = strings.TrimSpace(l); l != "" {
			labels = append(labels, l)
		}
	}
	if len(labels) < 2 {
		return nil, nil, ErrPollOptions
	}

	conv, err := s.convs.Get(ctx, conversationID)
	if err != nil {
		return nil, nil, err
	}
	if conv == nil {
		return nil, nil, ErrConversationNotFound
	}
	if !conv.HasMember(sender.ID) {
		return nil, nil, ErrNotMember
	}

	now := time.Now().UTC()
	pollID := uuid.New()
	msg := &model.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		SenderID:       sender.ID,
		SenderName:     sender.Name,
		Kind:           model.KindPoll,
		Text:           question,
		PollID:         &pollID,
		CreatedAt:      now,
	}
	poll := &model.Poll{
		ID:             pollID,
		ConversationID: conversationID,
		MessageID:      msg.ID,
		Question:       question,
		AllowMultiple:  allowMultiple,
		CreatedAt:      now,
	}
	for _, label := range labels {
		poll.Options = append(poll.Options, model.PollOption{
			ID:     uuid.New(),
			Label:  label,
			Voters: []string{},
		})
	}

	if err := s.polls.CreatePollMessage(ctx, poll, msg); err != nil {
		return nil, nil, err
	}

	s.hub.BroadcastToConversation(conversationID, model.NewWSEvent("message", msg))

	if perr := s.events.Publish(ctx, events.KeyPollCreated,
		events.NewEnvelope(events.KeyPollCreated, poll)); perr != nil {
		log.Printf("[Poll] publish poll.created: %v", perr)
	}

	return msg, poll, nil
}

// Vote records the viewer's vote and returns the poll re-read from the
// store. For single-choice polls the store evicts the voter's other votes in
// the same transaction. Re-voting an already-selected option is a no-op, not
// a toggle.
func (s *PollService) Vote(ctx context.Context, pollID uuid.UUID, voter Viewer, optionID uuid.UUID) (*model.Poll, error) {
	if voter.IsObserver() {
		return nil, ErrPermissionDenied
	}

	poll, err := s.polls.GetPoll(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if poll == nil {
		return nil, ErrPollNotFound
	}
	// Option sets are immutable after creation, so this check cannot go
	// stale between here and the vote transaction.
	if !poll.HasOption(optionID) {
		return nil, ErrUnknownOption
	}

	conv, err := s.convs.Get(ctx, poll.ConversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil || !conv.HasMember(voter.ID) {
		return nil, ErrNotMember
	}

	if err := s.polls.Vote(ctx, pollID, optionID, voter.ID, !poll.AllowMultiple); err != nil {
		return nil, err
	}

	// Refetch: the tally shown anywhere is a cache invalidated by this vote.
	updated, err := s.polls.GetPoll(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrPollNotFound
	}

	s.hub.BroadcastToConversation(updated.ConversationID, model.NewWSEvent("poll_updated", updated))

	if perr := s.events.Publish(ctx, events.KeyPollVoted,
		events.NewEnvelope(events.KeyPollVoted, updated)); perr != nil {
		log.Printf("[Poll] publish poll.voted: %v", perr)
	}

	return updated, nil
}

// Get returns the poll with its current voter sets.
func (s *PollService) Get(ctx context.Context, pollID uuid.UUID) (*model.Poll, error) {
	poll, err := s.polls.GetPoll(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if poll == nil {
		return nil, ErrPollNotFound
	}
	return poll, nil
}
