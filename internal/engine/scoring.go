// Package engine runs the evaluation pipeline: execute pattern queries,
// normalize scores, select the daily Top-50 and persist the snapshot.
package engine

import (
	"math"
	"sort"
	"time"

	"github.com/diamondlab/unicorn/internal/domain"
	"github.com/diamondlab/unicorn/internal/pattern"
)

const (
	// Below either threshold, z-scores are meaningless or undefined and the
	// rank-spread transform takes over.
	minStdev         = 1e-9
	minZScoreSamples = 5

	// patternMinRelGap is the minimum relative spacing enforced between
	// adjacent scores within one pattern's result set.
	patternMinRelGap = 0.01
)

// MarketLookup resolves an entity's external market multiplier.
// Absent entities resolve to 1.0.
type MarketLookup func(entityID int64) float64

// ComputeScores normalizes one pattern's candidate list into ranked, scored
// results. Candidates with non-finite metric values are dropped. The
// returned order is the total order persisted and fed into selection:
// final score desc, sample size desc, metric value in the pattern's
// direction, entity id asc.
func ComputeScores(p *domain.PatternTemplate, candidates []domain.Candidate, market MarketLookup, runDate time.Time) []*domain.ScoredResult {
	cleaned := make([]domain.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if math.IsNaN(c.MetricValue) || math.IsInf(c.MetricValue, 0) {
			continue
		}
		if c.SampleSize < 0 {
			continue
		}
		cleaned = append(cleaned, c)
	}
	if len(cleaned) == 0 {
		return nil
	}

	values := make([]float64, len(cleaned))
	for i, c := range cleaned {
		values[i] = c.MetricValue
	}
	descending := p.Descending()

	mean, stdev := meanStdev(values)

	var raw []float64
	if stdev <= minStdev || len(values) < minZScoreSamples {
		raw = rankSpread(cleaned, descending)
	} else {
		raw = make([]float64, len(values))
		for i, v := range values {
			if descending {
				raw[i] = (v - mean) / stdev
			} else {
				raw[i] = (mean - v) / stdev
			}
		}
	}

	unicornWeight := p.UnicornWeight
	if unicornWeight == 0 {
		unicornWeight = 1.0
	}
	publicWeight := p.PublicWeight
	if publicWeight == 0 {
		publicWeight = pattern.PublicWeightForCategory(p.Category)
	}

	scored := make([]*domain.ScoredResult, 0, len(cleaned))
	for i, c := range cleaned {
		confidence := 1.0
		if p.TargetSample > 0 {
			confidence = math.Sqrt(float64(c.SampleSize) / float64(c.SampleSize+p.TargetSample))
		}
		adjusted := raw[i] * confidence

		marketWeight := 1.0
		if market != nil {
			marketWeight = market(c.EntityID)
		}

		scored = append(scored, &domain.ScoredResult{
			RunDate:       runDate,
			PatternID:     p.ID,
			EntityType:    p.EntityType,
			EntityID:      c.EntityID,
			MetricValue:   c.MetricValue,
			SampleSize:    c.SampleSize,
			RawScore:      raw[i],
			AdjustedScore: adjusted,
			FinalScore:    adjusted * unicornWeight * publicWeight * marketWeight,
		})
	}

	sortScored(scored, descending)
	ApplyMinScoreSpacing(scored, patternMinRelGap)

	for i, r := range scored {
		r.Rank = i + 1
	}
	return scored
}

// sortScored applies the deterministic total order: entity id is the last
// tie-break, so the order is stable across runs given identical input.
func sortScored(rows []*domain.ScoredResult, descending bool) {
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.FinalScore != b.FinalScore {
			return a.FinalScore > b.FinalScore
		}
		if a.SampleSize != b.SampleSize {
			return a.SampleSize > b.SampleSize
		}
		if a.MetricValue != b.MetricValue {
			if descending {
				return a.MetricValue > b.MetricValue
			}
			return a.MetricValue < b.MetricValue
		}
		return a.EntityID < b.EntityID
	})
}

// ApplyMinScoreSpacing walks a score-ordered list and clamps any score
// closer than minRelGap to its predecessor down to predecessor*(1-minRelGap),
// scaling the adjusted score proportionally. Guarantees strictly decreasing
// scores with a minimum relative gap, so adjacent entries never render as
// visually identical.
func ApplyMinScoreSpacing(rows []*domain.ScoredResult, minRelGap float64) {
	for i := 1; i < len(rows); i++ {
		prev := rows[i-1].FinalScore
		cur := rows[i].FinalScore
		if prev > 0 && (prev-cur) < minRelGap*prev {
			clamped := prev * (1 - minRelGap)
			if cur != 0 {
				rows[i].AdjustedScore *= clamped / cur
			}
			rows[i].FinalScore = clamped
		}
	}
}

// rankSpread assigns normalized scores linearly from 2.0 (best) down to 0.0
// (worst) by rank position. Metric ties rank the larger sample first, then
// the smaller entity id.
func rankSpread(candidates []domain.Candidate, descending bool) []float64 {
	n := len(candidates)
	if n == 1 {
		return []float64{2.0}
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		a, b := candidates[order[i]], candidates[order[j]]
		if a.MetricValue != b.MetricValue {
			if descending {
				return a.MetricValue > b.MetricValue
			}
			return a.MetricValue < b.MetricValue
		}
		if a.SampleSize != b.SampleSize {
			return a.SampleSize > b.SampleSize
		}
		return a.EntityID < b.EntityID
	})

	out := make([]float64, n)
	denom := float64(n - 1)
	for rankIdx, orig := range order {
		out[orig] = 2.0 * (1 - float64(rankIdx)/denom)
	}
	return out
}

func meanStdev(values []float64) (float64, float64) {
	n := float64(len(values))
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / n

	if len(values) < 2 {
		return mean, 0
	}
	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / (n - 1))
}
