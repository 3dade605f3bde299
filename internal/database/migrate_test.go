package database

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

func TestMigrateNewDB(t *testing.T) {
	db := openTestDB(t)

	version, err := schemaVersion(context.Background(), db.conn)
	if err != nil {
		t.Fatalf("schemaVersion: %v", err)
	}
	if version != latestVersion() {
		t.Errorf("expected version %d, got %d", latestVersion(), version)
	}
}

func TestMigratePartialDB(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "partial.db")

	// Simulate a database that stopped after the first migration.
	raw, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("open raw db: %v", err)
	}
	tx, _ := raw.Begin()
	if err := migrations[0].Up(tx); err != nil {
		t.Fatalf("first migration: %v", err)
	}
	tx.Commit()
	raw.Exec("PRAGMA user_version = 1")
	raw.Close()

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	version, err := schemaVersion(context.Background(), db.conn)
	if err != nil {
		t.Fatalf("schemaVersion: %v", err)
	}
	if version != latestVersion() {
		t.Errorf("expected version %d after catch-up, got %d", latestVersion(), version)
	}

	var n int
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE name='run_reports'").Scan(&n); err != nil || n != 1 {
		t.Errorf("expected run_reports table, got %d (%v)", n, err)
	}
}

func TestMigrateIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "idem.db")

	db1, err := Open(dbPath)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	db1.Close()

	db2, err := Open(dbPath)
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	defer db2.Close()

	version, err := schemaVersion(context.Background(), db2.conn)
	if err != nil {
		t.Fatalf("schemaVersion: %v", err)
	}
	if version != latestVersion() {
		t.Errorf("expected version %d, got %d", latestVersion(), version)
	}
}

func TestSchemaVersionNewDB(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "empty.db")
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer conn.Close()

	version, err := schemaVersion(context.Background(), conn)
	if err != nil {
		t.Fatalf("schemaVersion: %v", err)
	}
	if version != 0 {
		t.Errorf("expected version 0 on new db, got %d", version)
	}
}
