package database

import (
	"context"
	"time"
)

// RefresherTopicsShownSince returns topic names shown for a category on or
// after since.
func (db *DB) RefresherTopicsShownSince(ctx context.Context, category string, since time.Time) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT DISTINCT topic FROM refresher_history
		WHERE category = ? AND shown_date >= ? ORDER BY topic`,
		category, since.Format("2006-01-02"),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var topics []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		topics = append(topics, t)
	}
	return topics, rows.Err()
}

// RecordRefresherShown marks a topic as shown on day.
func (db *DB) RecordRefresherShown(ctx context.Context, category, topic string, day time.Time) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT OR IGNORE INTO refresher_history (category, topic, shown_date) VALUES (?, ?, ?)`,
		category, topic, day.Format("2006-01-02"),
	)
	return err
}
