package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"ticketwatch/internal/pkg/config"
)

// Ensure PostgresHistoryStorage implements HistoryStorage
var _ HistoryStorage = (*PostgresHistoryStorage)(nil)

// PostgresHistoryStorage stores scrape outcomes in PostgreSQL.
type PostgresHistoryStorage struct {
	db *sql.DB
}

func NewPostgresHistoryStorage(cfg *config.PostgresConfig) (*PostgresHistoryStorage, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	storage := &PostgresHistoryStorage{db: db}
	if err := storage.initSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	slog.Info("PostgreSQL scrape history storage initialized")
	return storage, nil
}

func (s *PostgresHistoryStorage) initSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS scrape_outcomes (
		id SERIAL PRIMARY KEY,
		url VARCHAR(2000) NOT NULL,
		outcome VARCHAR(100) NOT NULL,
		tickets INTEGER NOT NULL DEFAULT 0,
		duration_ms BIGINT NOT NULL,
		started_at TIMESTAMP NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_scrape_outcomes_started_at ON scrape_outcomes(started_at DESC);
	CREATE INDEX IF NOT EXISTS idx_scrape_outcomes_outcome ON scrape_outcomes(outcome);
	`

	_, err := s.db.ExecContext(ctx, query)
	return err
}

func (s *PostgresHistoryStorage) SaveOutcome(ctx context.Context, rec ScrapeRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scrape_outcomes (url, outcome, tickets, duration_ms, started_at)
		VALUES ($1, $2, $3, $4, $5)`,
		rec.URL, rec.Outcome, rec.Tickets, rec.Duration.Milliseconds(), rec.StartedAt)
	if err != nil {
		return fmt.Errorf("failed to save scrape outcome: %w", err)
	}
	return nil
}

func (s *PostgresHistoryStorage) RecentOutcomes(ctx context.Context, limit int) ([]ScrapeRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT url, outcome, tickets, duration_ms, started_at
		FROM scrape_outcomes
		ORDER BY started_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query scrape outcomes: %w", err)
	}
	defer rows.Close()

	var records []ScrapeRecord
	for rows.Next() {
		var rec ScrapeRecord
		var durationMs int64
		if err := rows.Scan(&rec.URL, &rec.Outcome, &rec.Tickets, &durationMs, &rec.StartedAt); err != nil {
			return nil, fmt.Errorf("failed to scan scrape outcome: %w", err)
		}
		rec.Duration = time.Duration(durationMs) * time.Millisecond
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *PostgresHistoryStorage) Close() error {
	return s.db.Close()
}
