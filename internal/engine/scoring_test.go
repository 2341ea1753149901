package engine

import (
	"math"
	"testing"
	"time"

	"github.com/diamondlab/unicorn/internal/domain"
)

var runDate = time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

func scoringTemplate() *domain.PatternTemplate {
	return &domain.PatternTemplate{
		ID:             "test-pattern",
		EntityType:     domain.EntityBatter,
		Metric:         "count_hr",
		OrderDirection: "desc",
		UnicornWeight:  1.0,
		PublicWeight:   1.0,
	}
}

func TestComputeScoresRankSpreadOnZeroSpread(t *testing.T) {
	// Identical metric values leave no stdev to normalize against; the
	// rank-spread transform assigns 2.0 down to 0.0 with larger samples first.
	candidates := []domain.Candidate{
		{EntityID: 3, MetricValue: 0.300, SampleSize: 10},
		{EntityID: 1, MetricValue: 0.300, SampleSize: 30},
		{EntityID: 2, MetricValue: 0.300, SampleSize: 20},
	}

	rows := ComputeScores(scoringTemplate(), candidates, nil, runDate)
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}

	if rows[0].EntityID != 1 || rows[1].EntityID != 2 || rows[2].EntityID != 3 {
		t.Errorf("expected sample-size tie-break order 1,2,3, got %d,%d,%d",
			rows[0].EntityID, rows[1].EntityID, rows[2].EntityID)
	}
	wantRaw := []float64{2.0, 1.0, 0.0}
	for i, want := range wantRaw {
		if math.Abs(rows[i].RawScore-want) > 1e-12 {
			t.Errorf("rows[%d].RawScore = %v, want %v", i, rows[i].RawScore, want)
		}
	}
}

func TestComputeScoresRankSpreadOnSmallSample(t *testing.T) {
	// Four distinct values still fall below the z-score sample floor.
	candidates := []domain.Candidate{
		{EntityID: 1, MetricValue: 12, SampleSize: 40},
		{EntityID: 2, MetricValue: 9, SampleSize: 40},
		{EntityID: 3, MetricValue: 6, SampleSize: 40},
		{EntityID: 4, MetricValue: 3, SampleSize: 40},
	}

	rows := ComputeScores(scoringTemplate(), candidates, nil, runDate)
	if len(rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(rows))
	}
	if rows[0].RawScore != 2.0 || rows[3].RawScore != 0.0 {
		t.Errorf("expected spread endpoints 2.0 and 0.0, got %v and %v",
			rows[0].RawScore, rows[3].RawScore)
	}
}

func TestComputeScoresZScoreBranch(t *testing.T) {
	p := scoringTemplate()
	p.TargetSample = 50

	candidates := []domain.Candidate{
		{EntityID: 1, MetricValue: 10, SampleSize: 100},
		{EntityID: 2, MetricValue: 8, SampleSize: 80},
		{EntityID: 3, MetricValue: 6, SampleSize: 60},
		{EntityID: 4, MetricValue: 4, SampleSize: 40},
		{EntityID: 5, MetricValue: 2, SampleSize: 20},
	}

	rows := ComputeScores(p, candidates, nil, runDate)
	if len(rows) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(rows))
	}

	// Directional z-score: mean 6, the top value sits above it.
	if rows[0].EntityID != 1 || rows[0].RawScore <= 0 {
		t.Errorf("expected entity 1 with positive z-score first, got entity %d score %v",
			rows[0].EntityID, rows[0].RawScore)
	}

	// Confidence shrinks every score by sqrt(s/(s+target)) before the clamp;
	// the top row is never clamped.
	wantConfidence := math.Sqrt(100.0 / 150.0)
	got := rows[0].AdjustedScore / rows[0].RawScore
	if math.Abs(got-wantConfidence) > 1e-12 {
		t.Errorf("adjusted/raw = %v, want confidence %v", got, wantConfidence)
	}
}

func TestComputeScoresShrinkageSeparatesEqualMetrics(t *testing.T) {
	// Equal metric values with unequal samples: the larger sample takes the
	// top of the rank spread and the confidence weight keeps its final score
	// strictly ahead.
	p := scoringTemplate()
	p.TargetSample = 50

	candidates := []domain.Candidate{
		{EntityID: 1, MetricValue: 0.400, SampleSize: 60},
		{EntityID: 2, MetricValue: 0.400, SampleSize: 10},
	}

	rows := ComputeScores(p, candidates, nil, runDate)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	if rows[0].EntityID != 1 {
		t.Fatalf("expected the larger sample first, got entity %d", rows[0].EntityID)
	}
	if rows[0].FinalScore <= rows[1].FinalScore {
		t.Errorf("FinalScore %v must exceed %v", rows[0].FinalScore, rows[1].FinalScore)
	}

	want := 2.0 * math.Sqrt(60.0/110.0)
	if math.Abs(rows[0].AdjustedScore-want) > 1e-12 {
		t.Errorf("AdjustedScore = %v, want %v", rows[0].AdjustedScore, want)
	}
}

func TestComputeScoresConfidenceWeightMonotonic(t *testing.T) {
	// The confidence weight strictly increases with sample size and
	// approaches 1 as the sample grows without bound.
	p := scoringTemplate()
	p.TargetSample = 50

	samples := []int{5, 20, 50, 200, 1000, 1000000}
	prev := 0.0
	for _, s := range samples {
		rows := ComputeScores(p, []domain.Candidate{
			{EntityID: 1, MetricValue: 0.300, SampleSize: s},
		}, nil, runDate)
		if len(rows) != 1 {
			t.Fatalf("expected 1 row for sample %d, got %d", s, len(rows))
		}

		weight := rows[0].AdjustedScore / rows[0].RawScore
		if weight <= prev {
			t.Errorf("weight(%d) = %v, not above %v", s, weight, prev)
		}
		if weight >= 1 {
			t.Errorf("weight(%d) = %v, must stay below 1", s, weight)
		}
		prev = weight
	}

	if prev < 0.999 {
		t.Errorf("weight at the largest sample = %v, want near 1", prev)
	}
}

func TestComputeScoresAscendingDirection(t *testing.T) {
	p := scoringTemplate()
	p.OrderDirection = "asc"

	candidates := []domain.Candidate{
		{EntityID: 1, MetricValue: 0.40, SampleSize: 50},
		{EntityID: 2, MetricValue: 0.10, SampleSize: 50},
		{EntityID: 3, MetricValue: 0.25, SampleSize: 50},
	}

	rows := ComputeScores(p, candidates, nil, runDate)
	if rows[0].EntityID != 2 {
		t.Errorf("expected lowest value first for ascending pattern, got entity %d", rows[0].EntityID)
	}
}

func TestComputeScoresDropsMalformed(t *testing.T) {
	candidates := []domain.Candidate{
		{EntityID: 1, MetricValue: math.NaN(), SampleSize: 10},
		{EntityID: 2, MetricValue: math.Inf(1), SampleSize: 10},
		{EntityID: 3, MetricValue: 5, SampleSize: -1},
		{EntityID: 4, MetricValue: 5, SampleSize: 10},
	}

	rows := ComputeScores(scoringTemplate(), candidates, nil, runDate)
	if len(rows) != 1 || rows[0].EntityID != 4 {
		t.Fatalf("expected only the well-formed candidate, got %d rows", len(rows))
	}
}

func TestComputeScoresEmpty(t *testing.T) {
	if rows := ComputeScores(scoringTemplate(), nil, nil, runDate); rows != nil {
		t.Errorf("expected nil for no candidates, got %d rows", len(rows))
	}
}

func TestComputeScoresAppliesWeights(t *testing.T) {
	p := scoringTemplate()
	p.UnicornWeight = 2.0
	p.PublicWeight = 1.2

	market := func(entityID int64) float64 {
		if entityID == 1 {
			return 0.5
		}
		return 1.0
	}

	candidates := []domain.Candidate{
		{EntityID: 1, MetricValue: 10, SampleSize: 50},
		{EntityID: 2, MetricValue: 5, SampleSize: 50},
	}

	rows := ComputeScores(p, candidates, market, runDate)

	// Entity 1: raw 2.0, adjusted 2.0, final 2.0 * 2.0 * 1.2 * 0.5.
	want := 2.0 * 2.0 * 1.2 * 0.5
	if math.Abs(rows[0].FinalScore-want) > 1e-12 {
		t.Errorf("FinalScore = %v, want %v", rows[0].FinalScore, want)
	}
	if rows[0].EntityID != 1 {
		t.Errorf("expected entity 1 first, got %d", rows[0].EntityID)
	}
}

func TestComputeScoresCategoryWeightFallback(t *testing.T) {
	p := scoringTemplate()
	p.PublicWeight = 0
	p.Category = "A_BARRELS_PULLED"

	candidates := []domain.Candidate{
		{EntityID: 1, MetricValue: 10, SampleSize: 50},
		{EntityID: 2, MetricValue: 5, SampleSize: 50},
	}

	rows := ComputeScores(p, candidates, nil, runDate)

	want := 2.0 * 1.2
	if math.Abs(rows[0].FinalScore-want) > 1e-12 {
		t.Errorf("FinalScore = %v, want category tier %v", rows[0].FinalScore, want)
	}
}

func TestComputeScoresMonotonicRanks(t *testing.T) {
	candidates := []domain.Candidate{
		{EntityID: 1, MetricValue: 10.0, SampleSize: 50},
		{EntityID: 2, MetricValue: 9.999, SampleSize: 50},
		{EntityID: 3, MetricValue: 9.998, SampleSize: 50},
		{EntityID: 4, MetricValue: 5, SampleSize: 50},
		{EntityID: 5, MetricValue: 1, SampleSize: 50},
	}

	rows := ComputeScores(scoringTemplate(), candidates, nil, runDate)

	for i, r := range rows {
		if r.Rank != i+1 {
			t.Errorf("rows[%d].Rank = %d, want %d", i, r.Rank, i+1)
		}
		if i > 0 && rows[i].FinalScore >= rows[i-1].FinalScore {
			t.Errorf("scores not strictly decreasing at %d: %v >= %v",
				i, rows[i].FinalScore, rows[i-1].FinalScore)
		}
	}
}

func TestApplyMinScoreSpacing(t *testing.T) {
	rows := []*domain.ScoredResult{
		{FinalScore: 100.0, AdjustedScore: 100.0},
		{FinalScore: 99.95, AdjustedScore: 99.95},
		{FinalScore: 50.0, AdjustedScore: 50.0},
	}

	ApplyMinScoreSpacing(rows, 0.011)

	want := 100.0 * (1 - 0.011)
	if math.Abs(rows[1].FinalScore-want) > 1e-9 {
		t.Errorf("clamped score = %v, want %v", rows[1].FinalScore, want)
	}
	// Adjusted score scales by the same factor.
	if math.Abs(rows[1].AdjustedScore-want) > 1e-9 {
		t.Errorf("adjusted score = %v, want %v", rows[1].AdjustedScore, want)
	}
	// A score already far enough below stays untouched.
	if rows[2].FinalScore != 50.0 {
		t.Errorf("distant score modified: %v", rows[2].FinalScore)
	}
}

func TestApplyMinScoreSpacingNonPositiveAnchor(t *testing.T) {
	rows := []*domain.ScoredResult{
		{FinalScore: 0, AdjustedScore: 0},
		{FinalScore: -0.5, AdjustedScore: -0.5},
	}

	ApplyMinScoreSpacing(rows, 0.011)

	if rows[1].FinalScore != -0.5 {
		t.Errorf("negative scores must not be clamped, got %v", rows[1].FinalScore)
	}
}
