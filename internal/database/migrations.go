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
		Description: "memory records",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS memory_records (
    id TEXT PRIMARY KEY,
    url TEXT NOT NULL,
    title TEXT NOT NULL,
    category TEXT NOT NULL,
    source TEXT,
    quality_score REAL DEFAULT 0,
    sent_date TEXT NOT NULL,
    embedding TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_memory_sent_date ON memory_records(sent_date);
CREATE INDEX IF NOT EXISTS idx_memory_category ON memory_records(category, sent_date);
`)
			return err
		},
	},
	{
		Version:     2,
		Description: "run reports",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS run_reports (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    day TEXT NOT NULL,
    category TEXT NOT NULL,
    run_at TEXT DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
    fetched INTEGER DEFAULT 0,
    categorized INTEGER DEFAULT 0,
    unique_count INTEGER DEFAULT 0,
    relevant INTEGER DEFAULT 0,
    scored INTEGER DEFAULT 0,
    vetoed INTEGER DEFAULT 0,
    selected INTEGER DEFAULT 0,
    fallbacks INTEGER DEFAULT 0,
    empty_stage TEXT,
    test_mode INTEGER DEFAULT 0,
    archive_path TEXT
);

CREATE INDEX IF NOT EXISTS idx_run_reports_day ON run_reports(day);
`)
			return err
		},
	},
	{
		Version:     3,
		Description: "refresher history",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS refresher_history (
    category TEXT NOT NULL,
    topic TEXT NOT NULL,
    shown_date TEXT NOT NULL,
    PRIMARY KEY (category, topic, shown_date)
);
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
