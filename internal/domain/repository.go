package domain

import (
	"context"
	"time"
)

// Repository defines persistence for the evaluation pipeline: reading the
// pattern library and fact store, and writing per-pattern results and the
// Top-50 snapshot.
type Repository interface {
	// Pattern library (read-only to the engine; SavePattern serves seeding).
	ListEnabledPatterns(ctx context.Context) ([]*PatternTemplate, error)
	SavePattern(ctx context.Context, p *PatternTemplate) error

	// QueryCandidates executes an assembled aggregate query against the fact
	// store. Placeholders use '?' and are rebound per driver. Rows whose
	// metric value is not a finite float or whose sample size is not a
	// non-negative integer are dropped, not fatal.
	QueryCandidates(ctx context.Context, query string, args []any) ([]Candidate, error)

	// ReplacePatternResults atomically replaces the result partition for one
	// (run_date, pattern_id) key: delete then insert in a single transaction.
	ReplacePatternResults(ctx context.Context, runDate time.Time, patternID string, rows []*ScoredResult) error

	// ReplaceTop50 atomically replaces the snapshot for a run date. The write
	// is all-or-nothing: on failure the prior snapshot remains authoritative.
	ReplaceTop50(ctx context.Context, runDate time.Time, entries []*Top50Entry) error

	// GetTop50 returns the snapshot for a run date ordered by rank. This is
	// the sole contract downstream consumers depend on.
	GetTop50(ctx context.Context, runDate time.Time) ([]*Top50Entry, error)

	// CountTop50Appearances counts, per entity, how many of the lookbackDays
	// snapshots strictly before runDate include the entity. Feeds the
	// selection cooldown.
	CountTop50Appearances(ctx context.Context, runDate time.Time, lookbackDays int) (map[int64]int, error)

	// LoadMarketWeights returns the entity -> market multiplier map for a
	// season. A zero seasonYear loads all seasons. Missing entities default
	// to 1.0 at lookup time, not here.
	LoadMarketWeights(ctx context.Context, seasonYear int) (map[int64]float64, error)

	// GetEntityMeta resolves display names and teams for description
	// rendering.
	GetEntityMeta(ctx context.Context, entityIDs []int64) (map[int64]EntityMeta, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// QueryTimeout bounds each fact-store query at the storage boundary.
	QueryTimeout time.Duration
}
