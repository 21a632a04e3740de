package database

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
)

type migration struct {
	version string
	sql     string
}

// Migrations are embedded in order; applied versions are tracked in
// schema_migrations so re-running on boot is a no-op.
var migrations = []migration{
	{
		version: "001_conversations",
		sql: `
			CREATE TABLE IF NOT EXISTS conversations (
				id UUID PRIMARY KEY,
				pair_key TEXT NOT NULL UNIQUE,
				created_by TEXT NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);

			CREATE TABLE IF NOT EXISTS conversation_members (
				conversation_id UUID NOT NULL REFERENCES conversations(id),
				user_id TEXT NOT NULL,
				role TEXT NOT NULL DEFAULT 'member',
				PRIMARY KEY (conversation_id, user_id)
			);

			CREATE INDEX IF NOT EXISTS idx_members_user ON conversation_members (user_id);
		`,
	},
	{
		version: "002_messages",
		sql: `
			CREATE TABLE IF NOT EXISTS messages (
				id UUID PRIMARY KEY,
				conversation_id UUID NOT NULL REFERENCES conversations(id),
				sender_id TEXT NOT NULL,
				sender_name TEXT NOT NULL,
				kind TEXT NOT NULL CHECK (kind IN ('text', 'file', 'poll')),
				text TEXT NOT NULL DEFAULT '',
				file_url TEXT NOT NULL DEFAULT '',
				file_name TEXT NOT NULL DEFAULT '',
				poll_id UUID,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_messages_timeline
				ON messages (conversation_id, created_at, id);
		`,
	},
	{
		version: "003_polls",
		sql: `
			CREATE TABLE IF NOT EXISTS polls (
				id UUID PRIMARY KEY,
				conversation_id UUID NOT NULL REFERENCES conversations(id),
				message_id UUID NOT NULL REFERENCES messages(id),
				question TEXT NOT NULL,
				allow_multiple BOOLEAN NOT NULL DEFAULT FALSE,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);

			CREATE TABLE IF NOT EXISTS poll_options (
				id UUID PRIMARY KEY,
				poll_id UUID NOT NULL REFERENCES polls(id),
				label TEXT NOT NULL,
				position INT NOT NULL
			);

			CREATE TABLE IF NOT EXISTS poll_votes (
				poll_id UUID NOT NULL REFERENCES polls(id),
				option_id UUID NOT NULL REFERENCES poll_options(id),
				user_id TEXT NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				PRIMARY KEY (poll_id, option_id, user_id)
			);
		`,
	},
}

func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	for _, m := range migrations {
		var count int
		if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE version = $1", m.version).Scan(&count); err != nil {
			return fmt.Errorf("check migration %s: %w", m.version, err)
		}
		if count > 0 {
			continue
		}

		if _, err := pool.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("apply migration %s: %w", m.version, err)
		}
		if _, err := pool.Exec(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", m.version); err != nil {
			return fmt.Errorf("record migration %s: %w", m.version, err)
		}
		log.Printf("Applied migration %s", m.version)
	}

	return nil
}
