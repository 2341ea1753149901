// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/diamondlab/unicorn/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db           *sql.DB
	driver       string
	queryTimeout time.Duration
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:           db,
		driver:       cfg.Driver,
		queryTimeout: cfg.QueryTimeout,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// ListEnabledPatterns retrieves all enabled pattern templates.
func (r *SQLRepository) ListEnabledPatterns(ctx context.Context) ([]*domain.PatternTemplate, error) {
	query := `
		SELECT id, name, description_template, entity_type, base_table, category,
			   enabled, filters, window_spec, metric, metric_expr, order_expr,
			   sample_expr, order_direction, min_sample, target_sample,
			   unicorn_weight, public_weight, complexity_score,
			   requires_count, count_value
		FROM pattern_templates
		WHERE enabled = 1
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var patterns []*domain.PatternTemplate
	for rows.Next() {
		p, err := scanPattern(rows)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, p)
	}

	return patterns, rows.Err()
}

func scanPattern(rows *sql.Rows) (*domain.PatternTemplate, error) {
	var p domain.PatternTemplate
	var description, category, filters, window sql.NullString
	var metricExpr, orderExpr, sampleExpr, countValue sql.NullString
	var enabled, requiresCount int

	if err := rows.Scan(
		&p.ID, &p.Name, &description, &p.EntityType, &p.BaseTable, &category,
		&enabled, &filters, &window, &p.Metric, &metricExpr, &orderExpr,
		&sampleExpr, &p.OrderDirection, &p.MinSample, &p.TargetSample,
		&p.UnicornWeight, &p.PublicWeight, &p.ComplexityScore,
		&requiresCount, &countValue,
	); err != nil {
		return nil, err
	}

	p.DescriptionTemplate = description.String
	p.Category = category.String
	p.MetricExpr = metricExpr.String
	p.OrderExpr = orderExpr.String
	p.SampleExpr = sampleExpr.String
	p.CountValue = countValue.String
	p.Enabled = enabled == 1
	p.RequiresCount = requiresCount == 1

	if filters.String != "" {
		if err := json.Unmarshal([]byte(filters.String), &p.Filters); err != nil {
			return nil, fmt.Errorf("failed to parse filters for %s: %w", p.ID, err)
		}
	}
	if window.String != "" {
		var w domain.Window
		if err := json.Unmarshal([]byte(window.String), &w); err != nil {
			return nil, fmt.Errorf("failed to parse window for %s: %w", p.ID, err)
		}
		p.Window = &w
	}

	return &p, nil
}

// SavePattern upserts a pattern template. Serves seeding; the engine itself
// treats the library as read-only.
func (r *SQLRepository) SavePattern(ctx context.Context, p *domain.PatternTemplate) error {
	if p.ID == "" {
		return fmt.Errorf("%w: pattern id is required", ErrInvalidInput)
	}

	filters, _ := json.Marshal(p.Filters)
	if p.Filters == nil {
		filters = nil
	}
	var window []byte
	if p.Window != nil {
		window, _ = json.Marshal(p.Window)
	}

	enabled := 0
	if p.Enabled {
		enabled = 1
	}
	requiresCount := 0
	if p.RequiresCount {
		requiresCount = 1
	}

	now := time.Now().UTC()

	query := `
		INSERT INTO pattern_templates (
			id, name, description_template, entity_type, base_table, category,
			enabled, filters, window_spec, metric, metric_expr, order_expr,
			sample_expr, order_direction, min_sample, target_sample,
			unicorn_weight, public_weight, complexity_score,
			requires_count, count_value, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description_template = excluded.description_template,
			entity_type = excluded.entity_type,
			base_table = excluded.base_table,
			category = excluded.category,
			enabled = excluded.enabled,
			filters = excluded.filters,
			window_spec = excluded.window_spec,
			metric = excluded.metric,
			metric_expr = excluded.metric_expr,
			order_expr = excluded.order_expr,
			sample_expr = excluded.sample_expr,
			order_direction = excluded.order_direction,
			min_sample = excluded.min_sample,
			target_sample = excluded.target_sample,
			unicorn_weight = excluded.unicorn_weight,
			public_weight = excluded.public_weight,
			complexity_score = excluded.complexity_score,
			requires_count = excluded.requires_count,
			count_value = excluded.count_value,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		p.ID, p.Name, p.DescriptionTemplate, string(p.EntityType), p.BaseTable, p.Category,
		enabled, nullableString(string(filters)), nullableString(string(window)),
		p.Metric, nullableString(p.MetricExpr), nullableString(p.OrderExpr),
		nullableString(p.SampleExpr), p.OrderDirection, p.MinSample, p.TargetSample,
		p.UnicornWeight, p.PublicWeight, p.ComplexityScore,
		requiresCount, nullableString(p.CountValue), now, now,
	)
	return err
}

// QueryCandidates executes an assembled aggregate query against the fact
// store. Rows whose columns do not coerce to (int64, finite float64,
// non-negative int) are dropped rather than failing the pattern.
func (r *SQLRepository) QueryCandidates(ctx context.Context, query string, args []any) ([]domain.Candidate, error) {
	if r.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.queryTimeout)
		defer cancel()
	}

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candidates []domain.Candidate
	for rows.Next() {
		var rawEntity, rawMetric, rawSample any
		if err := rows.Scan(&rawEntity, &rawMetric, &rawSample); err != nil {
			continue
		}

		entityID, ok := coerceInt64(rawEntity)
		if !ok {
			continue
		}
		metric, ok := coerceFloat64(rawMetric)
		if !ok || math.IsNaN(metric) || math.IsInf(metric, 0) {
			continue
		}
		sample, ok := coerceInt64(rawSample)
		if !ok || sample < 0 {
			continue
		}

		candidates = append(candidates, domain.Candidate{
			EntityID:    entityID,
			MetricValue: metric,
			SampleSize:  int(sample),
		})
	}

	return candidates, rows.Err()
}

// ReplacePatternResults atomically replaces the result partition for one
// (run_date, pattern_id) key.
func (r *SQLRepository) ReplacePatternResults(ctx context.Context, runDate time.Time, patternID string, results []*domain.ScoredResult) error {
	if patternID == "" {
		return fmt.Errorf("%w: patternID is required", ErrInvalidInput)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	date := domain.DateOnly(runDate)

	if _, err := tx.ExecContext(ctx,
		r.rebind(`DELETE FROM pattern_results WHERE run_date = ? AND pattern_id = ?`),
		date, patternID,
	); err != nil {
		return err
	}

	insert := r.rebind(`
		INSERT INTO pattern_results (
			run_date, pattern_id, entity_type, entity_id, rank,
			metric_value, sample_size, raw_score, adjusted_score, final_score
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)

	for _, row := range results {
		if _, err := tx.ExecContext(ctx, insert,
			date, patternID, string(row.EntityType), row.EntityID, row.Rank,
			row.MetricValue, row.SampleSize, row.RawScore, row.AdjustedScore, row.FinalScore,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ReplaceTop50 atomically replaces the snapshot for a run date. On failure
// the transaction rolls back and the prior snapshot remains authoritative.
func (r *SQLRepository) ReplaceTop50(ctx context.Context, runDate time.Time, entries []*domain.Top50Entry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	date := domain.DateOnly(runDate)

	if _, err := tx.ExecContext(ctx,
		r.rebind(`DELETE FROM top50_daily WHERE run_date = ?`),
		date,
	); err != nil {
		return err
	}

	insert := r.rebind(`
		INSERT INTO top50_daily (
			run_date, rank, entity_type, entity_id, pattern_id,
			metric_value, sample_size, final_score, description
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)

	for _, e := range entries {
		if _, err := tx.ExecContext(ctx, insert,
			date, e.Rank, string(e.EntityType), e.EntityID, e.PatternID,
			e.MetricValue, e.SampleSize, e.FinalScore, e.Description,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetTop50 returns the snapshot for a run date ordered by rank.
func (r *SQLRepository) GetTop50(ctx context.Context, runDate time.Time) ([]*domain.Top50Entry, error) {
	query := `
		SELECT run_date, rank, entity_type, entity_id, pattern_id,
			   metric_value, sample_size, final_score, description
		FROM top50_daily
		WHERE run_date = ?
		ORDER BY rank
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), domain.DateOnly(runDate))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.Top50Entry
	for rows.Next() {
		var e domain.Top50Entry
		var date string
		var description sql.NullString

		if err := rows.Scan(
			&date, &e.Rank, &e.EntityType, &e.EntityID, &e.PatternID,
			&e.MetricValue, &e.SampleSize, &e.FinalScore, &description,
		); err != nil {
			return nil, err
		}

		e.RunDate, _ = time.Parse("2006-01-02", date)
		e.Description = description.String
		entries = append(entries, &e)
	}

	return entries, rows.Err()
}

// CountTop50Appearances counts per-entity appearances in the lookbackDays
// snapshots strictly before runDate.
func (r *SQLRepository) CountTop50Appearances(ctx context.Context, runDate time.Time, lookbackDays int) (map[int64]int, error) {
	if lookbackDays <= 0 {
		return map[int64]int{}, nil
	}

	from := runDate.AddDate(0, 0, -lookbackDays)

	query := `
		SELECT entity_id, COUNT(*)
		FROM top50_daily
		WHERE run_date < ? AND run_date >= ?
		GROUP BY entity_id
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query),
		domain.DateOnly(runDate), domain.DateOnly(from),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[int64]int)
	for rows.Next() {
		var entityID int64
		var n int
		if err := rows.Scan(&entityID, &n); err != nil {
			return nil, err
		}
		counts[entityID] = n
	}

	return counts, rows.Err()
}

// LoadMarketWeights returns the entity -> multiplier map for a season.
// A zero seasonYear loads all seasons, later seasons overriding earlier.
func (r *SQLRepository) LoadMarketWeights(ctx context.Context, seasonYear int) (map[int64]float64, error) {
	query := `
		SELECT entity_id, weight
		FROM team_market_context
	`
	var args []any
	if seasonYear > 0 {
		query += ` WHERE season_year = ?`
		args = append(args, seasonYear)
	}
	query += ` ORDER BY season_year`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	weights := make(map[int64]float64)
	for rows.Next() {
		var entityID int64
		var w float64
		if err := rows.Scan(&entityID, &w); err != nil {
			return nil, err
		}
		weights[entityID] = w
	}

	return weights, rows.Err()
}

// GetEntityMeta resolves display names and teams for a set of entities.
func (r *SQLRepository) GetEntityMeta(ctx context.Context, entityIDs []int64) (map[int64]domain.EntityMeta, error) {
	if len(entityIDs) == 0 {
		return map[int64]domain.EntityMeta{}, nil
	}

	placeholders := make([]string, len(entityIDs))
	args := make([]any, len(entityIDs))
	for i, id := range entityIDs {
		placeholders[i] = "?"
		args[i] = id
	}

	query := fmt.Sprintf(`
		SELECT p.player_id, p.full_name, COALESCE(t.abbrev, '')
		FROM players p
		LEFT JOIN teams t ON t.team_id = p.team_id
		WHERE p.player_id IN (%s)
	`, strings.Join(placeholders, ", "))

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	meta := make(map[int64]domain.EntityMeta)
	for rows.Next() {
		var id int64
		var m domain.EntityMeta
		if err := rows.Scan(&id, &m.Name, &m.Team); err != nil {
			return nil, err
		}
		meta[id] = m
	}

	return meta, rows.Err()
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	// Convert ? to $1, $2, etc.
	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Drivers surface aggregate columns as int64, float64 or text depending on
// the expression; coerce rather than assume.
func coerceInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int64(n), true
	case []byte:
		i, err := strconv.ParseInt(string(n), 10, 64)
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	}
	return 0, false
}

func coerceFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case []byte:
		f, err := strconv.ParseFloat(string(n), 64)
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}
