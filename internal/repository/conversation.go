package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"messenger-backend/internal/model"
)

type ConversationRepository struct {
	pool *pgxpool.Pool
}

func NewConversationRepository(pool *pgxpool.Pool) *ConversationRepository {
	return &ConversationRepository{pool: pool}
}

// Get loads a conversation with its members. Returns (nil, nil) when the id
// is unknown.
func (r *ConversationRepository) Get(ctx context.Context, id uuid.UUID) (*model.Conversation, error) {
	var c model.Conversation
	err := r.pool.QueryRow(ctx, `
		SELECT id, pair_key, created_by, created_at FROM conversations WHERE id = $1
	`, id).Scan(&c.ID, &c.PairKey, &c.CreatedBy, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := r.loadMembers(ctx, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// FindDirect returns the direct conversation containing both users, or
// (nil, nil) when no such conversation exists.
func (r *ConversationRepository) FindDirect(ctx context.Context, userA, userB string) (*model.Conversation, error) {
	var c model.Conversation
	err := r.pool.QueryRow(ctx, `
		SELECT id, pair_key, created_by, created_at FROM conversations WHERE pair_key = $1
	`, model.PairKeyFor(userA, userB)).Scan(&c.ID, &c.PairKey, &c.CreatedBy, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := r.loadMembers(ctx, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateDirect inserts the conversation for the pair, or returns the existing
// one when a concurrent create won the pair_key race. The bool reports
// whether a new row was created. Conversation and member rows are written in
// one transaction so no partial conversation is ever visible.
func (r *ConversationRepository) CreateDirect(ctx context.Context, viewerID, counterpartID string) (*model.Conversation, bool, error) {
	pairKey := model.PairKeyFor(viewerID, counterpartID)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback(ctx)

	id := uuid.New()
	var insertedID uuid.UUID
	err = tx.QueryRow(ctx, `
		INSERT INTO conversations (id, pair_key, created_by)
		VALUES ($1, $2, $3)
		ON CONFLICT (pair_key) DO NOTHING
		RETURNING id
	`, id, pairKey, viewerID).Scan(&insertedID)
	if errors.Is(err, pgx.ErrNoRows) {
		// Lost the race: the other side's create is the conversation.
		_ = tx.Rollback(ctx)
		existing, ferr := r.FindDirect(ctx, viewerID, counterpartID)
		if ferr != nil {
			return nil, false, ferr
		}
		if existing == nil {
			return nil, false, fmt.Errorf("conversation for %s vanished after conflict", pairKey)
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	for _, userID := range []string{viewerID, counterpartID} {
		if _, err := tx.Exec(ctx, `
			INSERT INTO conversation_members (conversation_id, user_id, role)
			VALUES ($1, $2, 'member')
		`, insertedID, userID); err != nil {
			return nil, false, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, err
	}

	conv, err := r.Get(ctx, insertedID)
	if err != nil {
		return nil, false, err
	}
	return conv, true, nil
}

// ListForUser returns every conversation the user is a member of, including
// member lists, newest first.
func (r *ConversationRepository) ListForUser(ctx context.Context, userID string) ([]model.Conversation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT c.id, c.pair_key, c.created_by, c.created_at
		FROM conversations c
		JOIN conversation_members m ON m.conversation_id = c.id
		WHERE m.user_id = $1
		ORDER BY c.created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var convs []model.Conversation
	for rows.Next() {
		var c model.Conversation
		if err := rows.Scan(&c.ID, &c.PairKey, &c.CreatedBy, &c.CreatedAt); err != nil {
			return nil, err
		}
		convs = append(convs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range convs {
		if err := r.loadMembers(ctx, &convs[i]); err != nil {
			return nil, err
		}
	}
	return convs, nil
}

func (r *ConversationRepository) loadMembers(ctx context.Context, c *model.Conversation) error {
	rows, err := r.pool.Query(ctx, `
		SELECT user_id, role FROM conversation_members WHERE conversation_id = $1 ORDER BY user_id
	`, c.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var m model.Member
		if err := rows.Scan(&m.UserID, &m.Role); err != nil {
			return err
		}
		c.Members = append(c.Members, m)
	}
	return rows.Err()
}
