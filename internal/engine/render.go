package engine

import (
	"math"
	"strconv"
	"strings"

	"github.com/diamondlab/unicorn/internal/domain"
)

// RenderDescription substitutes the template placeholders with entity
// metadata and the pattern's computed values.
func RenderDescription(template string, meta domain.EntityMeta, metricValue float64, sampleSize int) string {
	if template == "" {
		return ""
	}
	replacer := strings.NewReplacer(
		"{{player_name}}", meta.Name,
		"{{team_name}}", meta.Team,
		"{{metric_value}}", FormatMetric(metricValue),
		"{{sample_size}}", strconv.Itoa(sampleSize),
	)
	return replacer.Replace(template)
}

// FormatMetric renders integer-valued metrics without decimals (counts read
// as "12", not "12.000") and everything else with three decimal places.
func FormatMetric(v float64) string {
	if v == math.Trunc(v) && !math.IsInf(v, 0) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', 3, 64)
}
