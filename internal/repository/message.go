package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"messenger-backend/internal/model"
)

type MessageRepository struct {
	pool *pgxpool.Pool
}

func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{pool: pool}
}

// Insert stores a single message. Messages are append-only; there is no
// update path.
func (r *MessageRepository) Insert(ctx context.Context, msg *model.Message) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO messages (id, conversation_id, sender_id, sender_name, kind, text, file_url, file_name, poll_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, msg.ID, msg.ConversationID, msg.SenderID, msg.SenderName, msg.Kind,
		msg.Text, msg.FileURL, msg.FileName, msg.PollID, msg.CreatedAt)
	return err
}

// HistoryPage returns up to limit messages of the conversation strictly
// before the cursor message, oldest first. A nil cursor returns the newest
// page. Rows are selected newest-first then reversed for chronological
// order.
func (r *MessageRepository) HistoryPage(ctx context.Context, conversationID uuid.UUID, before *uuid.UUID, limit int) ([]model.Message, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := `
		SELECT id, conversation_id, sender_id, sender_name, kind, text, file_url, file_name, poll_id, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	args := []interface{}{conversationID, limit}
	if before != nil {
		query = `
			SELECT id, conversation_id, sender_id, sender_name, kind, text, file_url, file_name, poll_id, created_at
			FROM messages
			WHERE conversation_id = $1
			  AND (created_at, id) < (SELECT created_at, id FROM messages WHERE id = $2)
			ORDER BY created_at DESC, id DESC
			LIMIT $3
		`
		args = []interface{}{conversationID, *before, limit}
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []model.Message
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.SenderName, &m.Kind,
			&m.Text, &m.FileURL, &m.FileName, &m.PollID, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse for chronological order (oldest first)
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}

	return msgs, nil
}
