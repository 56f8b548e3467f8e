package store

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// RunMigrations applies the PostgreSQL schema. Idempotent.
func RunMigrations(databaseURL string) error {
	ctx := context.Background()

	conn, err := pgx.Connect(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	schema := `
	CREATE TABLE IF NOT EXISTS users (
		email TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		avatar TEXT NOT NULL DEFAULT '',
		online BOOLEAN NOT NULL DEFAULT FALSE,
		last_seen TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		from_email TEXT NOT NULL,
		to_email TEXT NOT NULL,
		body TEXT NOT NULL DEFAULT '',
		image TEXT NOT NULL DEFAULT '',
		kind TEXT NOT NULL DEFAULT 'text',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		read BOOLEAN NOT NULL DEFAULT FALSE
	);

	CREATE INDEX IF NOT EXISTS idx_messages_pair ON messages(from_email, to_email, created_at);
	CREATE INDEX IF NOT EXISTS idx_users_online ON users(online);
	`

	_, err = conn.Exec(ctx, schema)
	return err
}
