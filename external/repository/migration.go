package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

var migrationStatements = []string{
	`CREATE SEQUENCE IF NOT EXISTS ticket_id START WITH 1`,
	`DO $$ BEGIN CREATE TYPE ticket_status AS ENUM ('open', 'closed'); EXCEPTION WHEN duplicate_object THEN NULL; END $$`,
	`CREATE TABLE IF NOT EXISTS tickets (
		id BIGINT PRIMARY KEY,
		channel_id TEXT NOT NULL UNIQUE,
		author_id TEXT NOT NULL,
		ticket_type SMALLINT NOT NULL,
		issue TEXT NOT NULL DEFAULT '',
		status ticket_status NOT NULL DEFAULT 'open',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		closed_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tickets_author ON tickets (author_id)`,
}

func RunMigration(ctx context.Context, pool *pgxpool.Pool) error {
	for _, s := range migrationStatements {
		stmt := strings.TrimSpace(s)
		if stmt == "" {
			continue
		}
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
