package memory

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/TobiSchelling/AIDigest/internal/database"
)

// Record is the metadata kept for an article that was sent.
type Record struct {
	ID           string
	URL          string
	Title        string
	Category     string
	Source       string
	QualityScore float64
	SentDate     time.Time
}

// Neighbor is a stored record with its cosine similarity to a query.
type Neighbor struct {
	Record
	Similarity float64
}

// Store persists records with embeddings and answers windowed
// nearest-neighbour queries.
type Store interface {
	Nearest(ctx context.Context, vec []float64, since time.Time, k int) ([]Neighbor, error)
	Insert(ctx context.Context, rec Record, vec []float64) error
	ByCategory(ctx context.Context, category string, since time.Time) ([]Record, error)
	Count(ctx context.Context) (int, error)
}

// SQLiteStore keeps records in the local database and ranks them in
// process by cosine similarity.
type SQLiteStore struct {
	db *database.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore wraps an open database.
func NewSQLiteStore(db *database.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Nearest(ctx context.Context, vec []float64, since time.Time, k int) ([]Neighbor, error) {
	rows, err := s.db.MemoryRecordsSince(ctx, since)
	if err != nil {
		return nil, err
	}

	neighbors := make([]Neighbor, 0, len(rows))
	for _, r := range rows {
		neighbors = append(neighbors, Neighbor{
			Record:     fromDB(r),
			Similarity: Cosine(vec, r.Embedding),
		})
	}
	sort.SliceStable(neighbors, func(i, j int) bool {
		return neighbors[i].Similarity > neighbors[j].Similarity
	})
	if k > 0 && len(neighbors) > k {
		neighbors = neighbors[:k]
	}
	return neighbors, nil
}

func (s *SQLiteStore) Insert(ctx context.Context, rec Record, vec []float64) error {
	return s.db.InsertMemoryRecord(ctx, database.MemoryRecord{
		ID:           rec.ID,
		URL:          rec.URL,
		Title:        rec.Title,
		Category:     rec.Category,
		Source:       rec.Source,
		QualityScore: rec.QualityScore,
		SentDate:     rec.SentDate,
		Embedding:    vec,
	})
}

func (s *SQLiteStore) ByCategory(ctx context.Context, category string, since time.Time) ([]Record, error) {
	rows, err := s.db.MemoryRecordsByCategory(ctx, category, since)
	if err != nil {
		return nil, err
	}
	out := make([]Record, len(rows))
	for i, r := range rows {
		out[i] = fromDB(r)
	}
	return out, nil
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	return s.db.CountMemoryRecords(ctx)
}

func fromDB(r database.MemoryRecord) Record {
	return Record{
		ID:           r.ID,
		URL:          r.URL,
		Title:        r.Title,
		Category:     r.Category,
		Source:       r.Source,
		QualityScore: r.QualityScore,
		SentDate:     r.SentDate,
	}
}

// Cosine returns the cosine similarity of a and b, or 0 when the vectors
// differ in length or either is zero.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
