package storage

import "time"

// ProcessedArticle is the durable ledger entry for one processed feed item.
// Rows are append-only: once inserted they are never updated.
type ProcessedArticle struct {
	URLHash      string
	URL          string
	Title        string
	SourceName   string
	MatchedTopic string // empty when the item matched no topic
	AnalysisJSON string // serialized analysis, empty when none was produced
	CreatedAt    time.Time
}

// Run records the statistics of one completed pipeline pass.
type Run struct {
	ID           string
	StartedAt    time.Time
	FinishedAt   time.Time
	SourceCount  int
	TotalFetched int
	NewCount     int
	MatchedCount int
}
