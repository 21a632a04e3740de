package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"messenger-backend/internal/model"
)

type PollRepository struct {
	pool *pgxpool.Pool
}

func NewPollRepository(pool *pgxpool.Pool) *PollRepository {
	return &PollRepository{pool: pool}
}

// CreatePollMessage writes the poll-kind message, the poll and its options in
// one transaction.
func (r *PollRepository) CreatePollMessage(ctx context.Context, poll *model.Poll, msg *model.Message) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO messages (id, conversation_id, sender_id, sender_name, kind, text, file_url, file_name, poll_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, msg.ID, msg.ConversationID, msg.SenderID, msg.SenderName, msg.Kind,
		msg.Text, msg.FileURL, msg.FileName, msg.PollID, msg.CreatedAt); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO polls (id, conversation_id, message_id, question, allow_multiple, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, poll.ID, poll.ConversationID, poll.MessageID, poll.Question, poll.AllowMultiple, poll.CreatedAt); err != nil {
		return err
	}

	for i, opt := range poll.Options {
		if _, err := tx.Exec(ctx, `
			INSERT INTO poll_options (id, poll_id, label, position)
			VALUES ($1, $2, $3, $4)
		`, opt.ID, poll.ID, opt.Label, i); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// GetPoll loads a poll with options in display order and each option's voter
// set. Returns (nil, nil) when the id is unknown.
func (r *PollRepository) GetPoll(ctx context.Context, id uuid.UUID) (*model.Poll, error) {
	var p model.Poll
	err := r.pool.QueryRow(ctx, `
		SELECT id, conversation_id, message_id, question, allow_multiple, created_at
		FROM polls WHERE id = $1
	`, id).Scan(&p.ID, &p.ConversationID, &p.MessageID, &p.Question, &p.AllowMultiple, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, label FROM poll_options WHERE poll_id = $1 ORDER BY position
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var o model.PollOption
		if err := rows.Scan(&o.ID, &o.Label); err != nil {
			return nil, err
		}
		o.Voters = []string{}
		p.Options = append(p.Options, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	voteRows, err := r.pool.Query(ctx, `
		SELECT option_id, user_id FROM poll_votes WHERE poll_id = $1 ORDER BY created_at, user_id
	`, id)
	if err != nil {
		return nil, err
	}
	defer voteRows.Close()

	for voteRows.Next() {
		var optionID uuid.UUID
		var userID string
		if err := voteRows.Scan(&optionID, &userID); err != nil {
			return nil, err
		}
		for i := range p.Options {
			if p.Options[i].ID == optionID {
				p.Options[i].Voters = append(p.Options[i].Voters, userID)
				break
			}
		}
	}
	if err := voteRows.Err(); err != nil {
		return nil, err
	}

	return &p, nil
}

// Vote records a vote for the option. The poll row is locked as the
// per-poll serialization point; with evictOthers set, the voter's rows on
// every other option are removed in the same transaction, so the
// single-choice invariant is never visible as violated. Re-voting the same
// option is a no-op.
func (r *PollRepository) Vote(ctx context.Context, pollID, optionID uuid.UUID, userID string, evictOthers bool) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var locked uuid.UUID
	if err := tx.QueryRow(ctx, `
		SELECT id FROM polls WHERE id = $1 FOR UPDATE
	`, pollID).Scan(&locked); err != nil {
		return err
	}

	if evictOthers {
		if _, err := tx.Exec(ctx, `
			DELETE FROM poll_votes WHERE poll_id = $1 AND user_id = $2 AND option_id <> $3
		`, pollID, userID, optionID); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO poll_votes (poll_id, option_id, user_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (poll_id, option_id, user_id) DO NOTHING
	`, pollID, optionID, userID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
