package store

import (
	"context"
	"database/sql"
	"fmt"
)

// CreateSchema creates all tables needed by SQLStore.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// Statements are kept to the subset of SQL both SQLite and PostgreSQL accept.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS voting_session (
    id TEXT PRIMARY KEY,
    access_code TEXT NOT NULL UNIQUE,
    active BOOLEAN NOT NULL,
    created_at TIMESTAMP NOT NULL,
    closed_at TIMESTAMP
)`,
	`CREATE TABLE IF NOT EXISTS participant (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    is_admin BOOLEAN NOT NULL,
    session_id TEXT NOT NULL REFERENCES voting_session(id),
    created_at TIMESTAMP NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_participant_session ON participant(session_id)`,
	`CREATE TABLE IF NOT EXISTS card (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    description TEXT NOT NULL,
    session_id TEXT NOT NULL REFERENCES voting_session(id),
    created_at TIMESTAMP NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_card_session ON card(session_id)`,
	`CREATE TABLE IF NOT EXISTS vote (
    id TEXT PRIMARY KEY,
    card_id TEXT NOT NULL REFERENCES card(id),
    user_id TEXT NOT NULL REFERENCES participant(id),
    vote BOOLEAN NOT NULL,
    session_id TEXT NOT NULL REFERENCES voting_session(id),
    created_at TIMESTAMP NOT NULL,
    UNIQUE (card_id, user_id, session_id)
)`,
	`CREATE INDEX IF NOT EXISTS idx_vote_session ON vote(session_id)`,
}
