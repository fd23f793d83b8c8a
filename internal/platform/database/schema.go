package database

import (
	"context"
	"fmt"

	"auditflow/internal/platform/config"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL CHECK (role IN ('USER', 'AUDITOR')),
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS audits (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		type TEXT NOT NULL DEFAULT 'Purchase',
		assigned_to INTEGER REFERENCES users(id),
		created_by INTEGER NOT NULL REFERENCES users(id),
		config TEXT NOT NULL DEFAULT '{}',
		purchase_data TEXT NOT NULL DEFAULT '{}',
		status TEXT NOT NULL DEFAULT 'PENDING_DATA'
			CHECK (status IN ('PENDING_DATA', 'PENDING_REVIEW', 'VERIFIED', 'REJECTED')),
		admin_notes TEXT,
		submitted_at TIMESTAMP,
		reviewed_at TIMESTAMP,
		reviewed_by INTEGER REFERENCES users(id),
		created_at TIMESTAMP NOT NULL
	)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL CHECK (role IN ('USER', 'AUDITOR')),
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS audits (
		id BIGSERIAL PRIMARY KEY,
		title TEXT NOT NULL,
		type TEXT NOT NULL DEFAULT 'Purchase',
		assigned_to BIGINT REFERENCES users(id),
		created_by BIGINT NOT NULL REFERENCES users(id),
		config TEXT NOT NULL DEFAULT '{}',
		purchase_data TEXT NOT NULL DEFAULT '{}',
		status TEXT NOT NULL DEFAULT 'PENDING_DATA'
			CHECK (status IN ('PENDING_DATA', 'PENDING_REVIEW', 'VERIFIED', 'REJECTED')),
		admin_notes TEXT,
		submitted_at TIMESTAMPTZ,
		reviewed_at TIMESTAMPTZ,
		reviewed_by BIGINT REFERENCES users(id),
		created_at TIMESTAMPTZ NOT NULL
	)`,
}

var indexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_audits_status ON audits(status)`,
	`CREATE INDEX IF NOT EXISTS idx_audits_created_by ON audits(created_by)`,
	`CREATE INDEX IF NOT EXISTS idx_audits_assigned_to ON audits(assigned_to)`,
}

// Migrate creates the tables and indexes if they do not exist yet.
func (d *DB) Migrate(ctx context.Context) error {
	stmts := sqliteSchema
	if d.driver == config.DriverPostgres {
		stmts = postgresSchema
	}
	stmts = append(append([]string{}, stmts...), indexes...)
	for _, stmt := range stmts {
		if _, err := d.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
