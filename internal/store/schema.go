package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema is the mailbox DDL the Postgres store reads and writes.
const Schema = `
CREATE TABLE IF NOT EXISTS categories (
	id   BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS emails (
	id            BIGSERIAL PRIMARY KEY,
	subject       TEXT,
	content       TEXT,
	category_id   BIGINT REFERENCES categories(id),
	ai_confidence INTEGER,
	labels        TEXT[],
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS activities (
	id          TEXT PRIMARY KEY,
	type        TEXT NOT NULL,
	description TEXT NOT NULL,
	details     TEXT,
	email_ids   BIGINT[],
	created_at  TIMESTAMPTZ NOT NULL
);`

// Migrate creates the mailbox tables when they do not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("migrate mailbox schema: %w", err)
	}
	return nil
}
