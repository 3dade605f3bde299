package database

import (
	"context"
	"database/sql"
)

// InsertRunReport records the outcome of one pipeline run.
func (db *DB) InsertRunReport(ctx context.Context, r RunReport) (int64, error) {
	var emptyStage, archive *string
	if r.EmptyStage != "" {
		emptyStage = &r.EmptyStage
	}
	if r.ArchivePath != "" {
		archive = &r.ArchivePath
	}
	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO run_reports
		(day, category, fetched, categorized, unique_count, relevant, scored, vetoed,
		 selected, fallbacks, empty_stage, test_mode, archive_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Day, r.Category, r.Fetched, r.Categorized, r.Unique, r.Relevant, r.Scored, r.Vetoed,
		r.Selected, r.Fallbacks, emptyStage, r.TestMode, archive,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// RecentRunReports returns the latest reports, newest first.
func (db *DB) RecentRunReports(ctx context.Context, limit int) ([]RunReport, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, day, category, run_at, fetched, categorized, unique_count, relevant,
		        scored, vetoed, selected, fallbacks, empty_stage, test_mode, archive_path
		FROM run_reports ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []RunReport
	for rows.Next() {
		var r RunReport
		var emptyStage, archive sql.NullString
		if err := rows.Scan(&r.ID, &r.Day, &r.Category, &r.RunAt, &r.Fetched, &r.Categorized,
			&r.Unique, &r.Relevant, &r.Scored, &r.Vetoed, &r.Selected, &r.Fallbacks,
			&emptyStage, &r.TestMode, &archive); err != nil {
			return nil, err
		}
		r.EmptyStage = emptyStage.String
		r.ArchivePath = archive.String
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

// GetStats returns aggregate statistics.
func (db *DB) GetStats(ctx context.Context) (*Stats, error) {
	s := &Stats{}

	queries := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM memory_records", &s.MemoryRecords},
		{"SELECT COUNT(*) FROM run_reports", &s.RunReports},
		{"SELECT COUNT(*) FROM run_reports WHERE empty_stage IS NOT NULL", &s.EmptyRuns},
	}

	for _, q := range queries {
		if err := db.conn.QueryRowContext(ctx, q.query).Scan(q.dest); err != nil {
			return nil, err
		}
	}

	var last sql.NullString
	if err := db.conn.QueryRowContext(ctx, "SELECT MAX(run_at) FROM run_reports").Scan(&last); err != nil {
		return nil, err
	}
	s.LastRunAt = last.String

	return s, nil
}
