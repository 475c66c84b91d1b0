// Package store provides Postgres persistence for conversations, leads and
// tenants.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// DB wraps the shared database handle.
type DB struct {
	db *sql.DB
}

// Open connects to Postgres and ensures the schema exists.
func Open(ctx context.Context, databaseURL string) (*DB, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := ensureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap schema: %w", err)
	}

	return &DB{db: db}, nil
}

// NewWithDB wraps an existing database handle. Used in tests.
func NewWithDB(db *sql.DB) *DB {
	return &DB{db: db}
}

// Close closes the database handle.
func (d *DB) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

// Ping verifies the database connection.
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

func ensureSchema(ctx context.Context, db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS tenants (
	id              TEXT PRIMARY KEY,
	company_name    TEXT NOT NULL DEFAULT '',
	practice_areas  TEXT NOT NULL DEFAULT '',
	welcome_message TEXT NOT NULL DEFAULT '',
	business_hours  TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS conversations (
	id            UUID PRIMARY KEY,
	tenant_id     TEXT NOT NULL,
	visitor_id    TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'active',
	message_count INT  NOT NULL DEFAULT 0,
	started_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	ended_at      TIMESTAMPTZ,
	lead_id       UUID
);
CREATE INDEX IF NOT EXISTS conversations_tenant_idx ON conversations (tenant_id, started_at DESC);

CREATE TABLE IF NOT EXISTS leads (
	id              UUID PRIMARY KEY,
	tenant_id       TEXT NOT NULL,
	first_name      TEXT NOT NULL,
	last_name       TEXT NOT NULL,
	email           TEXT NOT NULL,
	phone           TEXT NOT NULL,
	legal_issue     TEXT NOT NULL DEFAULT '',
	status          TEXT NOT NULL DEFAULT 'new',
	priority        TEXT NOT NULL DEFAULT 'medium',
	source          TEXT NOT NULL DEFAULT 'chatbot',
	conversation_id UUID NOT NULL UNIQUE,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS leads_tenant_idx ON leads (tenant_id, created_at DESC);
`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return err
	}
	return nil
}
