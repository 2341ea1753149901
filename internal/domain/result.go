package domain

import "time"

// Candidate is the raw per-entity tuple a pattern query returns. Candidates
// are ephemeral: produced by the executor, consumed by the scoring engine,
// never persisted.
type Candidate struct {
	EntityID    int64
	MetricValue float64
	SampleSize  int
}

// ScoredResult is one entity's scored outcome for a pattern on a run date.
// Persisted per (run_date, pattern_id) and replaced wholesale on re-run.
type ScoredResult struct {
	RunDate    time.Time  `json:"runDate"`
	PatternID  string     `json:"patternId"`
	EntityType EntityType `json:"entityType"`
	EntityID   int64      `json:"entityId"`

	Rank        int     `json:"rank"`
	MetricValue float64 `json:"metricValue"`
	SampleSize  int     `json:"sampleSize"`

	// RawScore is the normalized score before sample-size weighting.
	// AdjustedScore carries the confidence weight and any plateau clamp.
	// FinalScore additionally carries the unicorn, public and market weights.
	RawScore      float64 `json:"rawScore"`
	AdjustedScore float64 `json:"adjustedScore"`
	FinalScore    float64 `json:"finalScore"`
}

// Top50Entry is one row of a run date's leaderboard snapshot. Exactly one
// snapshot exists per run date; ranks are dense 1..N and entity ids unique
// within the snapshot.
type Top50Entry struct {
	RunDate     time.Time  `json:"runDate"`
	Rank        int        `json:"rank"`
	EntityType  EntityType `json:"entityType"`
	EntityID    int64      `json:"entityId"`
	PatternID   string     `json:"patternId"`
	MetricValue float64    `json:"metricValue"`
	SampleSize  int        `json:"sampleSize"`
	FinalScore  float64    `json:"finalScore"`
	Description string     `json:"description"`
}

// EntityMeta is the display metadata used when rendering descriptions.
type EntityMeta struct {
	Name string `json:"name"`
	Team string `json:"team"`
}

// DateOnly formats a run date the way it is stored and bound in queries.
func DateOnly(t time.Time) string {
	return t.Format("2006-01-02")
}
