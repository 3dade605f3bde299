package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// sentDateLayout keeps sent_date lexically ordered.
const sentDateLayout = "2006-01-02T15:04:05Z"

func formatSentDate(t time.Time) string {
	return t.UTC().Format(sentDateLayout)
}

// InsertMemoryRecord stores a sent article with its embedding.
func (db *DB) InsertMemoryRecord(ctx context.Context, r MemoryRecord) error {
	emb, err := json.Marshal(r.Embedding)
	if err != nil {
		return fmt.Errorf("encoding embedding: %w", err)
	}
	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO memory_records
		(id, url, title, category, source, quality_score, sent_date, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.URL, r.Title, r.Category, r.Source, r.QualityScore, formatSentDate(r.SentDate), string(emb),
	)
	return err
}

// MemoryRecordsSince returns records sent at or after since, with embeddings.
func (db *DB) MemoryRecordsSince(ctx context.Context, since time.Time) ([]MemoryRecord, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, url, title, category, source, quality_score, sent_date, embedding
		FROM memory_records WHERE sent_date >= ? ORDER BY sent_date DESC`,
		formatSentDate(since),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMemoryRecords(rows)
}

// MemoryRecordsByCategory returns records for a category sent at or after since.
func (db *DB) MemoryRecordsByCategory(ctx context.Context, category string, since time.Time) ([]MemoryRecord, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, url, title, category, source, quality_score, sent_date, embedding
		FROM memory_records WHERE category = ? AND sent_date >= ? ORDER BY sent_date DESC`,
		category, formatSentDate(since),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMemoryRecords(rows)
}

// CountMemoryRecords returns the number of stored records.
func (db *DB) CountMemoryRecords(ctx context.Context) (int, error) {
	var n int
	err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM memory_records").Scan(&n)
	return n, err
}

func scanMemoryRecords(rows *sql.Rows) ([]MemoryRecord, error) {
	var records []MemoryRecord
	for rows.Next() {
		var r MemoryRecord
		var source sql.NullString
		var sentDate, emb string
		if err := rows.Scan(&r.ID, &r.URL, &r.Title, &r.Category, &source,
			&r.QualityScore, &sentDate, &emb); err != nil {
			return nil, err
		}
		r.Source = source.String

		t, err := time.Parse(sentDateLayout, sentDate)
		if err != nil {
			return nil, fmt.Errorf("record %s: parsing sent_date: %w", r.ID, err)
		}
		r.SentDate = t

		if err := json.Unmarshal([]byte(emb), &r.Embedding); err != nil {
			return nil, fmt.Errorf("record %s: decoding embedding: %w", r.ID, err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
