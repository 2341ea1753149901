package query

import (
	"fmt"
	"strings"
	"time"

	"github.com/diamondlab/unicorn/internal/domain"
	"github.com/diamondlab/unicorn/internal/pattern"
)

// DefaultResultLimit bounds each pattern's candidate set to keep downstream
// scoring and selection cost predictable.
const DefaultResultLimit = 500

// Build compiles a validated pattern template into one parameterized
// aggregate query for the given as-of date. Placeholders use '?'; the
// repository rebinds them per driver.
//
// Shape: windowed CTE -> filters -> group by entity -> metric and sample
// aggregates -> min-sample HAVING -> declared order with deterministic
// tie-breaks -> bounded limit.
func Build(p *domain.PatternTemplate, asOf time.Time, limit int) (string, []any, error) {
	metricExpr, err := pattern.MetricExpr(p.Metric, p.MetricExpr)
	if err != nil {
		return "", nil, err
	}

	if limit <= 0 {
		limit = DefaultResultLimit
	}

	entityCol := p.EntityType.Column()
	sampleExpr := p.SampleExpr
	if sampleExpr == "" {
		sampleExpr = "COUNT(*)"
	}
	orderExpr := p.OrderExpr
	if orderExpr == "" {
		orderExpr = "metric_value"
	}
	direction := "DESC"
	if !p.Descending() {
		direction = "ASC"
	}

	cte, args := windowCTE(p.Window, p.BaseTable, entityCol, asOf)

	where := entityCol + " IS NOT NULL"
	if clause, filterArgs := BuildFilterClause(p.Filters); clause != "" {
		where += " AND " + clause
		args = append(args, filterArgs...)
	}

	var b strings.Builder
	b.WriteString(cte)
	b.WriteString("\n")
	fmt.Fprintf(&b, "SELECT %s AS entity_id,\n", entityCol)
	fmt.Fprintf(&b, "       %s AS metric_value,\n", metricExpr)
	fmt.Fprintf(&b, "       %s AS sample_size\n", sampleExpr)
	b.WriteString("FROM windowed\n")
	fmt.Fprintf(&b, "WHERE %s\n", where)
	fmt.Fprintf(&b, "GROUP BY %s\n", entityCol)
	fmt.Fprintf(&b, "HAVING %s >= ?\n", sampleExpr)
	fmt.Fprintf(&b, "ORDER BY %s %s, sample_size DESC, entity_id ASC\n", orderExpr, direction)
	fmt.Fprintf(&b, "LIMIT %d", limit)

	args = append(args, p.MinSample)
	return b.String(), args, nil
}
