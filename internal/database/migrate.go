package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
)

func schemaVersion(ctx context.Context, conn *sql.DB) (int, error) {
	var v int
	if err := conn.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return v, nil
}

// migrate applies every migration newer than PRAGMA user_version, in order.
func migrate(ctx context.Context, conn *sql.DB) error {
	current, err := schemaVersion(ctx, conn)
	if err != nil {
		return err
	}

	pending := 0
	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		if err := apply(ctx, conn, m); err != nil {
			return err
		}
		pending++
	}
	if pending > 0 {
		log.Debug().Int("from", current).Int("to", latestVersion()).Msg("schema up to date")
	}
	return nil
}

func apply(ctx context.Context, conn *sql.DB, m Migration) error {
	log.Info().Int("version", m.Version).Str("description", m.Description).Msg("applying migration")

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %d: %w", m.Version, err)
	}
	if err := m.Up(tx); err != nil {
		tx.Rollback()
		return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %d: %w", m.Version, err)
	}

	// modernc/sqlite ignores user_version set inside a transaction. The DDL
	// is idempotent, so a crash before this line only re-runs m.
	if _, err := conn.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", m.Version)); err != nil {
		return fmt.Errorf("setting version %d: %w", m.Version, err)
	}
	return nil
}
