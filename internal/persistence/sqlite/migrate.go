package sqlite

import (
	"context"
	"fmt"
)

// schema defines the full database layout. Statements are idempotent so
// Migrate can run on every startup.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS team_members (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		active INTEGER NOT NULL DEFAULT 1,
		meeting_count INTEGER NOT NULL DEFAULT 0 CHECK (meeting_count >= 0),
		access_token TEXT,
		refresh_token TEXT,
		calendar_id TEXT,
		calendar_sync_enabled INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS meetings (
		id TEXT PRIMARY KEY,
		customer_name TEXT NOT NULL,
		customer_email TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'assigned', 'completed')),
		assigned_to TEXT REFERENCES team_members(id),
		external_event_id TEXT,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_meetings_status ON meetings(status)`,
	`CREATE TABLE IF NOT EXISTS slot_templates (
		id TEXT PRIMARY KEY,
		day_of_week INTEGER NOT NULL CHECK (day_of_week BETWEEN 0 AND 6),
		start_minute INTEGER NOT NULL CHECK (start_minute BETWEEN 0 AND 1439),
		end_minute INTEGER NOT NULL CHECK (end_minute BETWEEN 1 AND 1440),
		duration_minutes INTEGER NOT NULL CHECK (duration_minutes > 0),
		active INTEGER NOT NULL DEFAULT 1,
		CHECK (start_minute < end_minute)
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		member_id TEXT NOT NULL REFERENCES team_members(id),
		token TEXT NOT NULL UNIQUE,
		expires_at TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at)`,
}

// Migrate creates or updates the database schema.
func (cp *ConnectionPool) Migrate(ctx context.Context) error {
	for _, statement := range schema {
		if _, err := cp.db.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	return nil
}
