package db

import (
	"context"
	"fmt"
	"log"
)

// migrations are applied in order; each statement is idempotent.
var migrations = []string{
	`CREATE EXTENSION IF NOT EXISTS pgcrypto`,
	`CREATE TABLE IF NOT EXISTS forms (
		id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		title       TEXT NOT NULL,
		public_id   TEXT,
		schema      JSONB NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_forms_public_id ON forms (public_id)`,
	`CREATE INDEX IF NOT EXISTS idx_forms_created_at ON forms (created_at)`,
	`CREATE TABLE IF NOT EXISTS replay_log (
		id             UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		form_id        UUID NOT NULL REFERENCES forms(id) ON DELETE CASCADE,
		submission_id  UUID NOT NULL,
		status         TEXT NOT NULL,
		http_status    INTEGER,
		error_message  TEXT,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_replay_log_form_id ON replay_log (form_id, created_at DESC)`,
}

// Migrate creates the forms and replay_log tables if they do not exist
func (db *DB) Migrate(ctx context.Context) error {
	for i, stmt := range migrations {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	log.Printf("[DB] Applied %d migration statements", len(migrations))
	return nil
}
