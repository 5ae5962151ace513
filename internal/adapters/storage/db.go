package storage

import (
	"database/sql"
	"fmt"
)

// InitDB initializes the database schema.
// PRE: db is a valid database connection
// POST: All tables are created, WAL mode enabled
func InitDB(db *sql.DB) error {
	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	// Enable foreign key enforcement
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// Create tables
	schema := `
	CREATE TABLE IF NOT EXISTS account (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL DEFAULT '',
		participant_id TEXT,
		capabilities TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'active',
		created_at TEXT NOT NULL,
		failed_logins INTEGER NOT NULL DEFAULT 0,
		locked_until TEXT
	);

	CREATE TABLE IF NOT EXISTS cell (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		weekday INTEGER NOT NULL,
		frequency TEXT NOT NULL,
		leader_id TEXT,
		co_leader_id TEXT,
		meeting_time TEXT,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS membership (
		id TEXT PRIMARY KEY,
		cell_id TEXT NOT NULL,
		participant_id TEXT,
		full_name TEXT,
		phone TEXT,
		role TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL,
		FOREIGN KEY (cell_id) REFERENCES cell(id)
	);
	CREATE INDEX IF NOT EXISTS idx_membership_cell ON membership(cell_id, status);

	CREATE TABLE IF NOT EXISTS occurrence (
		id TEXT PRIMARY KEY,
		cell_id TEXT NOT NULL,
		date TEXT NOT NULL,
		reference_month TEXT NOT NULL,
		contribution_value REAL NOT NULL DEFAULT 0,
		contribution_status TEXT NOT NULL DEFAULT 'unset',
		filled_by TEXT,
		confirmed_by TEXT,
		confirmed_at TEXT,
		edit_approval_status TEXT NOT NULL DEFAULT 'none',
		pending_edit_group TEXT,
		pending_edit_payload TEXT,
		pending_edit_requested_by TEXT,
		pending_edit_requested_at TEXT,
		late_attendance_edit_used INTEGER NOT NULL DEFAULT 0,
		late_date_edit_used INTEGER NOT NULL DEFAULT 0,
		late_contribution_edit_used INTEGER NOT NULL DEFAULT 0,
		leader_date_edit_used INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT,
		UNIQUE (cell_id, date),
		FOREIGN KEY (cell_id) REFERENCES cell(id)
	);
	CREATE INDEX IF NOT EXISTS idx_occurrence_month ON occurrence(cell_id, reference_month);

	CREATE TABLE IF NOT EXISTS attendance_mark (
		id TEXT PRIMARY KEY,
		occurrence_id TEXT NOT NULL,
		membership_id TEXT,
		participant_id TEXT,
		status TEXT NOT NULL,
		FOREIGN KEY (occurrence_id) REFERENCES occurrence(id)
	);
	CREATE INDEX IF NOT EXISTS idx_mark_occurrence ON attendance_mark(occurrence_id);

	CREATE TABLE IF NOT EXISTS outbox (
		id TEXT PRIMARY KEY,
		action_type TEXT NOT NULL,
		payload TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		attempts INTEGER NOT NULL DEFAULT 0,
		max_attempts INTEGER NOT NULL DEFAULT 5,
		last_attempted_at TEXT,
		created_at TEXT NOT NULL,
		external_id TEXT,
		error_message TEXT
	);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}
