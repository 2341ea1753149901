package engine

import (
	"math/rand"
	"sort"
	"time"

	"github.com/diamondlab/unicorn/internal/domain"
)

// top10Boundary is the rank at which the stricter cooldown ceiling applies.
const top10Boundary = 10

// PatternResults pairs a pattern with its rank-ordered scored rows.
type PatternResults struct {
	Pattern *domain.PatternTemplate
	Rows    []*domain.ScoredResult
}

// SelectionInput carries everything the selection controller needs for one
// run date.
type SelectionInput struct {
	RunDate time.Time

	// Results holds each evaluated pattern's scored rows, already ranked.
	Results []PatternResults

	// History maps entity id to its appearance count in the prior lookback
	// window's snapshots. Nil disables the cooldown.
	History map[int64]int

	// Meta resolves display names for description rendering.
	Meta map[int64]domain.EntityMeta
}

// SelectTop50 merges all patterns' scored candidates into the final
// leaderboard: global entity uniqueness, a per-pattern contribution cap,
// optional cross-day cooldown, score spacing across the merged list, and
// dense 1-based ranks. A short list is valid.
//
// Candidates merge in final-score order; ties break by a per-day
// pseudo-random pattern priority seeded by the run date's ordinal, so no
// fixed pattern always wins equal scores at the top while re-running the
// same date reproduces the same list.
func SelectTop50(in SelectionInput, cfg domain.EngineConfig) []*domain.Top50Entry {
	priority := patternPriority(in.Results, in.RunDate)

	type mergeRow struct {
		row      *domain.ScoredResult
		pattern  *domain.PatternTemplate
		priority int
	}

	merged := make([]mergeRow, 0)
	for _, pr := range in.Results {
		for _, row := range pr.Rows {
			merged = append(merged, mergeRow{row: row, pattern: pr.Pattern, priority: priority[pr.Pattern.ID]})
		}
	}

	sort.Slice(merged, func(i, j int) bool {
		a, b := merged[i], merged[j]
		if a.row.FinalScore != b.row.FinalScore {
			return a.row.FinalScore > b.row.FinalScore
		}
		if a.priority != b.priority {
			return a.priority < b.priority
		}
		if a.row.Rank != b.row.Rank {
			return a.row.Rank < b.row.Rank
		}
		return a.row.EntityID < b.row.EntityID
	})

	topN := cfg.TopN
	if topN <= 0 {
		topN = 50
	}
	maxPerPattern := cfg.MaxPerPattern
	if maxPerPattern <= 0 {
		maxPerPattern = 5
	}

	seen := make(map[int64]bool)
	perPattern := make(map[string]int)
	accepted := make([]mergeRow, 0, topN)

	for _, m := range merged {
		if len(accepted) >= topN {
			break
		}
		if seen[m.row.EntityID] {
			continue
		}
		if perPattern[m.pattern.ID] >= maxPerPattern {
			continue
		}
		if in.History != nil {
			ceiling := cfg.CooldownMax
			if len(accepted) < top10Boundary {
				ceiling = cfg.CooldownMaxTop10
			}
			if ceiling > 0 && in.History[m.row.EntityID] >= ceiling {
				continue
			}
		}

		seen[m.row.EntityID] = true
		perPattern[m.pattern.ID]++
		accepted = append(accepted, m)
	}

	// Spacing was only guaranteed within each pattern; re-apply it across
	// the merged list on copies so the persisted per-pattern rows keep
	// their own scores.
	spaced := make([]*domain.ScoredResult, len(accepted))
	for i, m := range accepted {
		clone := *m.row
		spaced[i] = &clone
	}
	ApplyMinScoreSpacing(spaced, cfg.MinRelGap)

	entries := make([]*domain.Top50Entry, len(accepted))
	for i, m := range accepted {
		meta := in.Meta[m.row.EntityID]
		entries[i] = &domain.Top50Entry{
			RunDate:     in.RunDate,
			Rank:        i + 1,
			EntityType:  m.row.EntityType,
			EntityID:    m.row.EntityID,
			PatternID:   m.row.PatternID,
			MetricValue: m.row.MetricValue,
			SampleSize:  m.row.SampleSize,
			FinalScore:  spaced[i].FinalScore,
			Description: RenderDescription(m.pattern.DescriptionTemplate, meta, m.row.MetricValue, m.row.SampleSize),
		}
	}
	return entries
}

// patternPriority assigns each pattern a tie-break priority from a
// Fisher-Yates shuffle seeded by the run date's ordinal day number. The
// seed depends on the date alone, never the clock, so selection is
// reproducible.
func patternPriority(results []PatternResults, runDate time.Time) map[string]int {
	ids := make([]string, 0, len(results))
	for _, pr := range results {
		ids = append(ids, pr.Pattern.ID)
	}
	// Canonical order first: priority must not depend on map or input
	// ordering upstream.
	sort.Strings(ids)

	rng := rand.New(rand.NewSource(dateOrdinal(runDate)))
	rng.Shuffle(len(ids), func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})

	priority := make(map[string]int, len(ids))
	for i, id := range ids {
		priority[id] = i
	}
	return priority
}

// dateOrdinal returns the run date's day number since the Unix epoch.
func dateOrdinal(t time.Time) int64 {
	utc := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return utc.Unix() / 86400
}
