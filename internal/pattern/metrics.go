// Package pattern provides the metric registry and the pattern validator.
package pattern

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownMetric is returned when a logical metric name has no registry
// entry and the pattern supplies no override expression. The pattern is
// skipped for the run, never the batch.
var ErrUnknownMetric = errors.New("unknown metric")

// metricRegistry maps logical metric names to portable aggregate SQL.
// Event flags are integer-backed (0/1) and float division goes through a
// 1.0* multiplier, so expressions evaluate identically on SQLite and
// PostgreSQL.
var metricRegistry = map[string]string{
	"count_hr":      "SUM(CASE WHEN is_hr = 1 THEN 1 ELSE 0 END)",
	"hr_rate":       "1.0 * SUM(CASE WHEN is_hr = 1 THEN 1 ELSE 0 END) / COUNT(*)",
	"hard_hit_rate": "1.0 * SUM(CASE WHEN is_hard_hit = 1 THEN 1 ELSE 0 END) / COUNT(*)",
	"count_barrels": "SUM(CASE WHEN is_barrel = 1 THEN 1 ELSE 0 END)",
	"avg_ev":        "AVG(launch_speed)",
	"xwoba_avg":     "AVG(xwoba)",
	"whiff_rate":    "1.0 * SUM(CASE WHEN result_pitch = 'swinging_strike' THEN 1 ELSE 0 END) / NULLIF(SUM(CASE WHEN result_pitch IN ('swinging_strike','foul','in_play') THEN 1 ELSE 0 END), 0)",
	"contact_rate":  "1.0 * SUM(CASE WHEN result_pitch = 'in_play' THEN 1 ELSE 0 END) / NULLIF(SUM(CASE WHEN result_pitch IN ('swinging_strike','foul','in_play') THEN 1 ELSE 0 END), 0)",
	"chase_rate":    "1.0 * SUM(CASE WHEN is_in_zone = 0 AND result_pitch IN ('swinging_strike','foul','in_play') THEN 1 ELSE 0 END) / NULLIF(SUM(CASE WHEN is_in_zone = 0 THEN 1 ELSE 0 END), 0)",
}

// MetricExpr resolves a logical metric name to its aggregate expression.
// An explicit override is used verbatim in place of the registry lookup.
func MetricExpr(metric, override string) (string, error) {
	if override != "" {
		return override, nil
	}
	expr, ok := metricRegistry[metric]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownMetric, metric)
	}
	return expr, nil
}

// RegisteredMetrics returns the logical metric names the registry knows.
func RegisteredMetrics() []string {
	names := make([]string, 0, len(metricRegistry))
	for name := range metricRegistry {
		names = append(names, name)
	}
	return names
}

// Public-weight tiers. Categories map to a tier by prefix; unknown
// categories get tier3 and a missing category gets tier2.
const (
	weightTier1 = 1.2
	weightTier2 = 1.0
	weightTier3 = 0.8
)

var categoryWeights = map[string]float64{
	"A_BARRELS":   weightTier1,
	"B_DIRECTION": weightTier2,
	"COUNT":       weightTier1,
	"STARTER":     weightTier1,
	"RELIEVER":    weightTier1,
	"FATIGUE":     weightTier1,
	"PARK":        weightTier1,
}

// PublicWeightForCategory returns the default public weight for a pattern
// category, used when the template carries no explicit public weight.
func PublicWeightForCategory(category string) float64 {
	if category == "" {
		return weightTier2
	}
	for prefix, weight := range categoryWeights {
		if strings.HasPrefix(category, prefix) {
			return weight
		}
	}
	return weightTier3
}
