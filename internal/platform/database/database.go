// Package database provides PostgreSQL connection management via pgx.
package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps a pgx connection pool.
type DB struct {
	Pool *pgxpool.Pool
}

// ParseURL validates a PostgreSQL connection URL.
func ParseURL(url string) (*pgxpool.Config, error) {
	if url == "" {
		return nil, fmt.Errorf("database URL is empty")
	}
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("invalid database URL: %w", err)
	}
	return cfg, nil
}

// New creates a new database connection pool.
func New(ctx context.Context, url string, maxConns, minConns int) (*DB, error) {
	cfg, err := ParseURL(url)
	if err != nil {
		return nil, err
	}

	cfg.MaxConns = int32(maxConns)
	cfg.MinConns = int32(minConns)
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Schema is the progress schema. Every statement is idempotent.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS learners (
		id           TEXT PRIMARY KEY,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		total_points BIGINT NOT NULL DEFAULT 0 CHECK (total_points >= 0)
	)`,
	`CREATE TABLE IF NOT EXISTS lesson_records (
		learner_id            TEXT NOT NULL REFERENCES learners(id) ON DELETE CASCADE,
		lesson_id             TEXT NOT NULL,
		status                TEXT NOT NULL CHECK (status IN ('not_started', 'in_progress', 'completed')),
		started_at            TIMESTAMPTZ,
		completed_at          TIMESTAMPTZ,
		completion_percentage INTEGER NOT NULL DEFAULT 0 CHECK (completion_percentage BETWEEN 0 AND 100),
		quiz_score            INTEGER CHECK (quiz_score BETWEEN 0 AND 100),
		time_spent_minutes    INTEGER NOT NULL DEFAULT 0,
		challenges_completed  JSONB NOT NULL DEFAULT '[]'::jsonb,
		PRIMARY KEY (learner_id, lesson_id)
	)`,
	`CREATE TABLE IF NOT EXISTS learner_badges (
		learner_id TEXT NOT NULL REFERENCES learners(id) ON DELETE CASCADE,
		badge_id   TEXT NOT NULL,
		position   INTEGER NOT NULL,
		PRIMARY KEY (learner_id, badge_id)
	)`,
	`CREATE TABLE IF NOT EXISTS learner_activity (
		id         UUID PRIMARY KEY,
		learner_id TEXT NOT NULL REFERENCES learners(id) ON DELETE CASCADE,
		seq        INTEGER NOT NULL,
		kind       TEXT NOT NULL,
		payload    JSONB NOT NULL DEFAULT '{}'::jsonb,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS learner_activity_seq_idx ON learner_activity (learner_id, seq)`,
	`CREATE TABLE IF NOT EXISTS learner_events (
		id          BIGSERIAL PRIMARY KEY,
		learner_id  TEXT NOT NULL,
		activity_id UUID,
		event_type  TEXT NOT NULL,
		data        JSONB NOT NULL DEFAULT '{}'::jsonb,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS learner_events_activity_idx ON learner_events (activity_id)`,
}

// Migrate applies Schema.
func (db *DB) Migrate(ctx context.Context) error {
	for _, stmt := range Schema {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("applying schema: %w", err)
		}
	}
	slog.Info("database schema applied", "statements", len(Schema))
	return nil
}

// Close shuts down the connection pool.
func (db *DB) Close() {
	db.Pool.Close()
}

// HealthCheck verifies the database connection is alive.
func (db *DB) HealthCheck(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}
