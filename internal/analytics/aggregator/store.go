// Package aggregator provides persistent storage and periodic
// snapshotting of aggregated usage stats to PostgreSQL.
package aggregator

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/bookshelf-ai/recommender/internal/analytics"
	"github.com/bookshelf-ai/recommender/pkg/postgres"
)

// Store persists aggregated usage snapshots in PostgreSQL.
//
// It requires an `analytics_snapshots` table:
//
//	CREATE TABLE analytics_snapshots (
//	    id          BIGSERIAL PRIMARY KEY,
//	    data        JSONB NOT NULL,
//	    captured_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

// NewStore creates a new analytics persistence store.
func NewStore(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "analytics-store"),
	}
}

// SaveSnapshot persists a stats snapshot to the database.
func (s *Store) SaveSnapshot(ctx context.Context, stats analytics.AggregatedStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshaling stats snapshot: %w", err)
	}
	_, err = s.db.DB.ExecContext(ctx,
		`INSERT INTO analytics_snapshots (data) VALUES ($1)`, data)
	if err != nil {
		return fmt.Errorf("inserting stats snapshot: %w", err)
	}
	return nil
}

// LatestSnapshot returns the most recent persisted snapshot, or false
// when none exists yet.
func (s *Store) LatestSnapshot(ctx context.Context) (analytics.AggregatedStats, bool, error) {
	var data []byte
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT data FROM analytics_snapshots ORDER BY captured_at DESC LIMIT 1`).Scan(&data)
	if err == sql.ErrNoRows {
		return analytics.AggregatedStats{}, false, nil
	}
	if err != nil {
		return analytics.AggregatedStats{}, false, fmt.Errorf("querying latest snapshot: %w", err)
	}
	var stats analytics.AggregatedStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return analytics.AggregatedStats{}, false, fmt.Errorf("unmarshaling snapshot: %w", err)
	}
	return stats, true, nil
}

// RunPeriodicSnapshots saves a snapshot every interval until ctx is
// cancelled.
func (s *Store) RunPeriodicSnapshots(ctx context.Context, agg *analytics.Aggregator, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.SaveSnapshot(ctx, agg.Stats()); err != nil {
				s.logger.Error("periodic snapshot failed", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}
