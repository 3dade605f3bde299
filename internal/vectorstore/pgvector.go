package vectorstore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"

	"github.com/TobiSchelling/AIDigest/internal/memory"
)

const table = "memory_records"

const schema = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS memory_records (
    id UUID PRIMARY KEY,
    url TEXT NOT NULL,
    title TEXT NOT NULL,
    category TEXT NOT NULL,
    source TEXT,
    quality_score DOUBLE PRECISION DEFAULT 0,
    sent_date TIMESTAMPTZ NOT NULL,
    embedding vector NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_memory_records_sent_date ON memory_records (sent_date);
CREATE INDEX IF NOT EXISTS idx_memory_records_category ON memory_records (category, sent_date);
`

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PgVectorStore keeps memory records in PostgreSQL with the pgvector
// extension and ranks neighbours by cosine distance in SQL.
type PgVectorStore struct {
	db *sql.DB
}

var _ memory.Store = (*PgVectorStore)(nil)

// Open connects to dsn and ensures the schema exists.
func Open(ctx context.Context, dsn string) (*PgVectorStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating pgvector schema: %w", err)
	}
	return &PgVectorStore{db: db}, nil
}

// New wraps an existing connection. The schema is assumed to exist.
func New(db *sql.DB) *PgVectorStore {
	return &PgVectorStore{db: db}
}

// Close closes the connection pool.
func (s *PgVectorStore) Close() error {
	return s.db.Close()
}

func (s *PgVectorStore) Nearest(ctx context.Context, vec []float64, since time.Time, k int) ([]memory.Neighbor, error) {
	q := psql.Select("id", "url", "title", "category", "COALESCE(source, '')", "quality_score", "sent_date").
		Column(sq.Expr("1 - (embedding <=> ?::vector) AS similarity", Literal(vec))).
		From(table).
		Where(sq.GtOrEq{"sent_date": since.UTC()}).
		OrderBy("similarity DESC")
	if k > 0 {
		q = q.Limit(uint64(k))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building nearest query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query nearest: %w", err)
	}
	defer rows.Close()

	var out []memory.Neighbor
	for rows.Next() {
		var n memory.Neighbor
		if err := rows.Scan(&n.ID, &n.URL, &n.Title, &n.Category, &n.Source,
			&n.QualityScore, &n.SentDate, &n.Similarity); err != nil {
			return nil, fmt.Errorf("scan neighbor: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *PgVectorStore) Insert(ctx context.Context, rec memory.Record, vec []float64) error {
	query, args, err := psql.Insert(table).
		Columns("id", "url", "title", "category", "source", "quality_score", "sent_date", "embedding").
		Values(rec.ID, rec.URL, rec.Title, rec.Category, rec.Source, rec.QualityScore,
			rec.SentDate.UTC(), sq.Expr("?::vector", Literal(vec))).
		ToSql()
	if err != nil {
		return fmt.Errorf("building insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert memory record: %w", err)
	}
	return nil
}

func (s *PgVectorStore) ByCategory(ctx context.Context, category string, since time.Time) ([]memory.Record, error) {
	query, args, err := psql.Select("id", "url", "title", "category", "COALESCE(source, '')", "quality_score", "sent_date").
		From(table).
		Where(sq.And{sq.Eq{"category": category}, sq.GtOrEq{"sent_date": since.UTC()}}).
		OrderBy("sent_date DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building category query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query category: %w", err)
	}
	defer rows.Close()

	var out []memory.Record
	for rows.Next() {
		var r memory.Record
		if err := rows.Scan(&r.ID, &r.URL, &r.Title, &r.Category, &r.Source, &r.QualityScore, &r.SentDate); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PgVectorStore) Count(ctx context.Context) (int, error) {
	query, args, err := psql.Select("COUNT(*)").From(table).ToSql()
	if err != nil {
		return 0, err
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count memory records: %w", err)
	}
	return n, nil
}

// Literal formats vec in pgvector's text form, e.g. "[0.1,0.2]".
func Literal(vec []float64) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, v := range vec {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
	}
	sb.WriteByte(']')
	return sb.String()
}
