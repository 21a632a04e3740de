package model

import (
	"time"

	"github.com/google/uuid"
)

// Poll is attached to a message of kind "poll". Options and their voter sets
// are the only mutable part of the data model; the backend serializes votes.
type Poll struct {
	ID             uuid.UUID    `json:"id"`
	ConversationID uuid.UUID    `json:"conversation_id"`
	MessageID      uuid.UUID    `json:"message_id"`
	Question       string       `json:"question"`
	AllowMultiple  bool         `json:"allow_multiple"`
	Options        []PollOption `json:"options"`
	CreatedAt      time.Time    `json:"created_at"`
}

type PollOption struct {
	ID     uuid.UUID `json:"id"`
	Label  string    `json:"label"`
	Voters []string  `json:"voters"`
}

// OptionTally is the derived count and percentage for one option.
type OptionTally struct {
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// HasOption reports whether optionID belongs to the poll.
func (p *Poll) HasOption(optionID uuid.UUID) bool {
	for _, o := range p.Options {
		if o.ID == optionID {
			return true
		}
	}
	return false
}

// DistinctVoters returns the number of unique users who voted on any option.
func (p *Poll) DistinctVoters() int {
	seen := make(map[string]struct{})
	for _, o := range p.Options {
		for _, v := range o.Voters {
			seen[v] = struct{}{}
		}
	}
	return len(seen)
}

// Tally derives per-option counts and percentages from the voter sets.
// Percentages use the distinct voter count as denominator, not the sum of
// per-option counts, so they stay correct for multi-choice polls.
func (p *Poll) Tally() map[uuid.UUID]OptionTally {
	total := p.DistinctVoters()
	tally := make(map[uuid.UUID]OptionTally, len(p.Options))
	for _, o := range p.Options {
		var pct float64
		if total > 0 {
			pct = float64(len(o.Voters)) / float64(total) * 100
		}
		tally[o.ID] = OptionTally{Count: len(o.Voters), Percent: pct}
	}
	return tally
}
