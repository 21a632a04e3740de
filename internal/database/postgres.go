package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const connectAttempts = 8

// NewPool opens a pgx pool sized for the chat workload: many short reads
// (history pages, membership checks) and small write transactions. Connect
// is retried with a growing delay because the database container usually
// comes up after the app in local compose setups.
func NewPool(ctx context.Context, databaseURL string, maxConns int32) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	if maxConns > 0 {
		config.MaxConns = maxConns
	}
	config.MinConns = config.MaxConns / 4
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 10 * time.Minute
	config.HealthCheckPeriod = time.Minute

	var pool *pgxpool.Pool
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		pool, err = pgxpool.NewWithConfig(ctx, config)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				log.Printf("[DB] connected (attempt %d, max_conns %d)", attempt, config.MaxConns)
				return pool, nil
			}
			pool.Close()
		}
		if attempt < connectAttempts {
			delay := time.Duration(attempt) * time.Second
			log.Printf("[DB] connect attempt %d/%d failed: %v (retrying in %s)", attempt, connectAttempts, err, delay)
			time.Sleep(delay)
		}
	}

	return nil, fmt.Errorf("database unreachable after %d attempts: %w", connectAttempts, err)
}
