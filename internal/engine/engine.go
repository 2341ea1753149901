package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/diamondlab/unicorn/internal/domain"
	"github.com/diamondlab/unicorn/internal/market"
	"github.com/diamondlab/unicorn/internal/pattern"
	"github.com/diamondlab/unicorn/internal/query"
)

var tracer = otel.Tracer("unicorn-engine")

// Engine orchestrates one full evaluation run: load the pattern library,
// evaluate each pattern concurrently, then select and publish the Top-50.
type Engine struct {
	repo   domain.Repository
	market *market.Service
	bus    domain.EventBus
	cfg    domain.EngineConfig
}

// New creates an evaluation engine. market and bus may be nil: weights then
// default to the neutral 1.0 and no events are published.
func New(repo domain.Repository, marketSvc *market.Service, bus domain.EventBus, cfg domain.EngineConfig) *Engine {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.TopN <= 0 {
		cfg.TopN = 50
	}
	return &Engine{
		repo:   repo,
		market: marketSvc,
		bus:    bus,
		cfg:    cfg,
	}
}

// RunSummary reports what a run produced.
type RunSummary struct {
	RunDate           time.Time `json:"runDate"`
	PatternsEvaluated int       `json:"patternsEvaluated"`
	PatternsSkipped   int       `json:"patternsSkipped"`
	Top50Entries      int       `json:"top50Entries"`
	DurationMs        int64     `json:"durationMs"`
}

// patternOutcome carries one pattern's evaluation result out of the pool.
type patternOutcome struct {
	pattern *domain.PatternTemplate
	rows    []*domain.ScoredResult
	err     error
}

// RunForDate executes the pipeline for one run date. Individual pattern
// failures skip the pattern and continue; only a snapshot write failure is
// fatal, leaving the prior day's snapshot authoritative.
func (e *Engine) RunForDate(ctx context.Context, runDate time.Time, seasonYear int) (*RunSummary, error) {
	start := time.Now()

	ctx, span := tracer.Start(ctx, "engine.RunForDate",
		trace.WithAttributes(
			attribute.String("run.date", domain.DateOnly(runDate)),
			attribute.Int("run.season_year", seasonYear),
		),
	)
	defer span.End()

	patterns, err := e.repo.ListEnabledPatterns(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list patterns: %w", err)
	}

	valid := make([]*domain.PatternTemplate, 0, len(patterns))
	skipped := 0
	for _, p := range patterns {
		if err := pattern.Validate(p); err != nil {
			slog.Warn("pattern failed validation, skipping",
				"pattern_id", p.ID,
				"error", err,
			)
			skipped++
			continue
		}
		valid = append(valid, p)
	}

	lookup := e.marketLookup(ctx, seasonYear)

	outcomes := make([]patternOutcome, len(valid))
	var wg sync.WaitGroup

	// Limit concurrency with semaphore
	sem := make(chan struct{}, e.cfg.Workers)

	for i, p := range valid {
		wg.Add(1)
		go func(idx int, p *domain.PatternTemplate) {
			defer wg.Done()

			sem <- struct{}{}        // Acquire
			defer func() { <-sem }() // Release

			rows, err := e.evaluatePattern(ctx, p, runDate, lookup)
			outcomes[idx] = patternOutcome{pattern: p, rows: rows, err: err}
		}(i, p)
	}

	wg.Wait()

	results := make([]PatternResults, 0, len(outcomes))
	evaluated := 0
	for _, out := range outcomes {
		if out.err != nil {
			slog.Warn("pattern evaluation failed, skipping",
				"pattern_id", out.pattern.ID,
				"error", out.err,
			)
			skipped++
			continue
		}
		evaluated++
		if len(out.rows) == 0 {
			continue
		}
		results = append(results, PatternResults{Pattern: out.pattern, Rows: out.rows})
	}

	history := e.loadCooldownHistory(ctx, runDate)
	meta := e.loadEntityMeta(ctx, results)

	entries := SelectTop50(SelectionInput{
		RunDate: runDate,
		Results: results,
		History: history,
		Meta:    meta,
	}, e.cfg)

	if err := e.repo.ReplaceTop50(ctx, runDate, entries); err != nil {
		return nil, fmt.Errorf("failed to replace top50 snapshot: %w", err)
	}

	e.publishTop50(ctx, runDate, len(entries))

	summary := &RunSummary{
		RunDate:           runDate,
		PatternsEvaluated: evaluated,
		PatternsSkipped:   skipped,
		Top50Entries:      len(entries),
		DurationMs:        time.Since(start).Milliseconds(),
	}

	slog.Info("run complete",
		"run_date", domain.DateOnly(runDate),
		"patterns_evaluated", summary.PatternsEvaluated,
		"patterns_skipped", summary.PatternsSkipped,
		"top50_entries", summary.Top50Entries,
		"duration_ms", summary.DurationMs,
	)

	return summary, nil
}

// evaluatePattern compiles, executes, scores and persists one pattern.
func (e *Engine) evaluatePattern(ctx context.Context, p *domain.PatternTemplate, runDate time.Time, lookup MarketLookup) ([]*domain.ScoredResult, error) {
	ctx, span := tracer.Start(ctx, "engine.evaluatePattern",
		trace.WithAttributes(
			attribute.String("pattern.id", p.ID),
			attribute.String("pattern.entity_type", string(p.EntityType)),
		),
	)
	defer span.End()

	start := time.Now()

	sql, args, err := query.Build(p, runDate, e.cfg.ResultLimit)
	if err != nil {
		if errors.Is(err, pattern.ErrUnknownMetric) {
			return nil, fmt.Errorf("unknown metric %q: %w", p.Metric, err)
		}
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	candidates, err := e.repo.QueryCandidates(ctx, sql, args)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	rows := ComputeScores(p, candidates, lookup, runDate)

	if err := e.repo.ReplacePatternResults(ctx, runDate, p.ID, rows); err != nil {
		return nil, fmt.Errorf("failed to persist results: %w", err)
	}

	e.publishPatternEvaluated(ctx, runDate, p.ID, len(rows))

	slog.Debug("pattern evaluated",
		"pattern_id", p.ID,
		"candidates", len(candidates),
		"rows", len(rows),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return rows, nil
}

// marketLookup loads the season's weights once per run. A load failure
// degrades to the neutral multiplier rather than aborting the run.
func (e *Engine) marketLookup(ctx context.Context, seasonYear int) MarketLookup {
	if e.market == nil {
		return nil
	}
	weights, err := e.market.Weights(ctx, seasonYear)
	if err != nil {
		slog.Warn("failed to load market weights, using neutral multipliers",
			"season_year", seasonYear,
			"error", err,
		)
		return nil
	}
	return market.Lookup(weights)
}

// loadCooldownHistory counts recent leaderboard appearances. A read failure
// disables the cooldown for this run rather than aborting it.
func (e *Engine) loadCooldownHistory(ctx context.Context, runDate time.Time) map[int64]int {
	if e.cfg.CooldownDays <= 0 {
		return nil
	}
	history, err := e.repo.CountTop50Appearances(ctx, runDate, e.cfg.CooldownDays)
	if err != nil {
		slog.Warn("failed to load cooldown history, cooldown disabled for this run",
			"run_date", domain.DateOnly(runDate),
			"error", err,
		)
		return nil
	}
	return history
}

// loadEntityMeta resolves display metadata for every candidate entity.
// Missing metadata leaves placeholders unrendered, never fails the run.
func (e *Engine) loadEntityMeta(ctx context.Context, results []PatternResults) map[int64]domain.EntityMeta {
	idSet := make(map[int64]bool)
	for _, pr := range results {
		for _, row := range pr.Rows {
			idSet[row.EntityID] = true
		}
	}
	if len(idSet) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}
	meta, err := e.repo.GetEntityMeta(ctx, ids)
	if err != nil {
		slog.Warn("failed to load entity metadata",
			"entities", len(ids),
			"error", err,
		)
		return nil
	}
	return meta
}

func (e *Engine) publishPatternEvaluated(ctx context.Context, runDate time.Time, patternID string, rows int) {
	if e.bus == nil {
		return
	}
	payload, _ := json.Marshal(domain.PatternEvaluatedEvent{
		RunDate:   domain.DateOnly(runDate),
		PatternID: patternID,
		Rows:      rows,
	})
	if err := e.bus.Publish(ctx, domain.TopicPatternEvaluated, payload); err != nil {
		slog.Error("failed to publish pattern evaluated event",
			"pattern_id", patternID,
			"error", err,
		)
	}
}

func (e *Engine) publishTop50(ctx context.Context, runDate time.Time, entries int) {
	if e.bus == nil {
		return
	}
	payload, _ := json.Marshal(domain.Top50PublishedEvent{
		RunDate: domain.DateOnly(runDate),
		Entries: entries,
	})
	if err := e.bus.Publish(ctx, domain.TopicTop50Published, payload); err != nil {
		slog.Error("failed to publish top50 event",
			"run_date", domain.DateOnly(runDate),
			"error", err,
		)
	}
}
