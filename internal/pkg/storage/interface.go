package storage

import (
	"context"
	"time"
)

// ScrapeRecord is the operational outcome of one scrape request. Captured
// vendor payloads are never stored; only what an operator needs to judge the
// pipeline's health survives the request.
type ScrapeRecord struct {
	URL       string
	Outcome   string // "ok" or the error class
	Tickets   int
	Duration  time.Duration
	StartedAt time.Time
}

// HistoryStorage persists scrape outcomes.
type HistoryStorage interface {
	SaveOutcome(ctx context.Context, rec ScrapeRecord) error
	RecentOutcomes(ctx context.Context, limit int) ([]ScrapeRecord, error)
	Close() error
}
