package database

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// DB wraps the database connection
type DB struct {
	conn *sql.DB
}

// New creates a new database connection and bootstraps the schema.
func New(dsn string) (*DB, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	if err := db.createIndexes(); err != nil {
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// createTables creates the necessary tables
func (db *DB) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			user_id TEXT NOT NULL,
			display_name TEXT NOT NULL DEFAULT '',
			last_seen_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS voice_sessions (
			user_id TEXT NOT NULL,
			guild_id TEXT NOT NULL,
			channel_id TEXT NOT NULL,
			channel_name TEXT NOT NULL DEFAULT '',
			joined_at TIMESTAMPTZ NOT NULL,
			left_at TIMESTAMPTZ NOT NULL,
			duration_seconds BIGINT NOT NULL DEFAULT 0,
			UNIQUE (user_id, guild_id, joined_at)
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			user_id TEXT NOT NULL,
			guild_id TEXT NOT NULL,
			channel_id TEXT NOT NULL,
			message_id TEXT NOT NULL,
			emojis TEXT[] NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL,
			UNIQUE (message_id)
		)`,
		`CREATE TABLE IF NOT EXISTS reactions (
			id BIGSERIAL PRIMARY KEY,
			user_id TEXT NOT NULL,
			guild_id TEXT NOT NULL,
			channel_id TEXT NOT NULL,
			message_id TEXT NOT NULL,
			emoji TEXT NOT NULL,
			action TEXT NOT NULL CHECK (action IN ('add', 'remove')),
			created_at TIMESTAMPTZ NOT NULL
		)`,
	}

	for _, query := range queries {
		if _, err := db.conn.Exec(query); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	return nil
}

// createIndexes creates the indexes the aggregation queries lean on.
func (db *DB) createIndexes() error {
	queries := []string{
		`CREATE INDEX IF NOT EXISTS voice_sessions_user_guild_joined
			ON voice_sessions (user_id, guild_id, joined_at)`,
		`CREATE INDEX IF NOT EXISTS voice_sessions_guild_left
			ON voice_sessions (guild_id, left_at)`,
		`CREATE INDEX IF NOT EXISTS messages_user_guild_created
			ON messages (user_id, guild_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS reactions_user_guild_created
			ON reactions (user_id, guild_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS reactions_guild_action
			ON reactions (guild_id, action, created_at)`,
	}

	for _, query := range queries {
		if _, err := db.conn.Exec(query); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}
