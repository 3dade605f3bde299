package database

import "time"

// MemoryRecord is an article that was sent, kept for near-duplicate checks.
type MemoryRecord struct {
	ID           string
	URL          string
	Title        string
	Category     string
	Source       string
	QualityScore float64
	SentDate     time.Time
	Embedding    []float64
}

// RunReport holds the per-stage counts of a pipeline run.
type RunReport struct {
	ID          int64
	Day         string
	Category    string
	RunAt       *string
	Fetched     int
	Categorized int
	Unique      int
	Relevant    int
	Scored      int
	Vetoed      int
	Selected    int
	Fallbacks   int
	EmptyStage  string
	TestMode    bool
	ArchivePath string
}

// Stats contains aggregate database statistics.
type Stats struct {
	MemoryRecords int
	RunReports    int
	EmptyRuns     int
	LastRunAt     string
}
