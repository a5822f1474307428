package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    target_date TEXT NOT NULL,
    started_at TEXT NOT NULL,
    finished_at TEXT DEFAULT (datetime('now')),
    links_tried INTEGER DEFAULT 0,
    accepted INTEGER DEFAULT 0,
    appended INTEGER DEFAULT 0,
    skip_reasons TEXT
);

CREATE INDEX IF NOT EXISTS idx_runs_target_date ON runs(target_date);
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
