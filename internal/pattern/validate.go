package pattern

import (
	"fmt"
	"strings"

	"github.com/diamondlab/unicorn/internal/domain"
)

// ComplexityCeiling is the global authoring-complexity limit.
const ComplexityCeiling = 4

// allowedCounts is the fixed enumeration of pitch counts a pattern may
// condition on.
var allowedCounts = map[string]bool{
	"3-0": true,
	"0-2": true,
	"3-2": true,
}

// bannedTerms are concepts implying temporal or environmental conditioning
// the window system does not model. Matched as lowercase substrings across
// filter fields and values.
var bannedTerms = []string{
	"inning",
	"weather",
	"wind",
	"humidity",
	"temperature",
	"sequence",
	"after fouling",
	"after two",
	"late innings",
}

// ValidationError lists every violation found in a template. A failing
// pattern is skipped for the run, not fatal to the batch.
type ValidationError struct {
	PatternID  string
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("pattern %s invalid: %s", e.PatternID, strings.Join(e.Violations, "; "))
}

// Validate checks a template against the global authoring constraints,
// accumulating all violations before failing.
func Validate(p *domain.PatternTemplate) error {
	var violations []string

	if !p.EntityType.Valid() {
		violations = append(violations, fmt.Sprintf("entity_type %q is not batter or pitcher", p.EntityType))
	}

	if p.ComplexityScore > ComplexityCeiling {
		violations = append(violations, fmt.Sprintf("complexity_score %d exceeds ceiling %d", p.ComplexityScore, ComplexityCeiling))
	}

	if p.RequiresCount && !allowedCounts[p.CountValue] {
		violations = append(violations, fmt.Sprintf("requires_count set but count_value %q is not allowed", p.CountValue))
	}
	if !p.RequiresCount && p.CountValue != "" && !allowedCounts[p.CountValue] {
		violations = append(violations, fmt.Sprintf("count_value %q not in allowed set", p.CountValue))
	}

	if p.Window != nil {
		if !p.Window.Kind.Valid() {
			violations = append(violations, fmt.Sprintf("unknown window type %q", p.Window.Kind))
		}
		if p.Window.N <= 0 {
			violations = append(violations, fmt.Sprintf("window n must be positive, got %d", p.Window.N))
		}
		// PA/AB windows rank batter plate appearances; they have no meaning
		// for pitcher-scoped patterns.
		if (p.Window.Kind == domain.WindowLastNAB || p.Window.Kind == domain.WindowLastNPA) && p.EntityType != domain.EntityBatter {
			violations = append(violations, fmt.Sprintf("window %s requires entity_type batter", p.Window.Kind))
		}
	}

	for _, cond := range p.Filters {
		if term := bannedTermIn(cond.Field); term != "" {
			violations = append(violations, fmt.Sprintf("filter field %q references banned concept %q", cond.Field, term))
		}
		if term := bannedTermInValue(cond.Value); term != "" {
			violations = append(violations, fmt.Sprintf("filter on %q has value referencing banned concept %q", cond.Field, term))
		}
		if cond.Field == "count_str" {
			if s, ok := cond.Value.(string); ok && !allowedCounts[s] {
				violations = append(violations, fmt.Sprintf("filter uses disallowed count %q", s))
			}
		}
	}

	if len(violations) == 0 {
		return nil
	}
	return &ValidationError{PatternID: p.ID, Violations: violations}
}

func bannedTermIn(s string) string {
	lower := strings.ToLower(s)
	for _, term := range bannedTerms {
		if strings.Contains(lower, term) {
			return term
		}
	}
	return ""
}

// bannedTermInValue recursively scans nested filter values: strings, lists
// and maps may all carry banned concepts.
func bannedTermInValue(v any) string {
	switch val := v.(type) {
	case string:
		return bannedTermIn(val)
	case []any:
		for _, item := range val {
			if term := bannedTermInValue(item); term != "" {
				return term
			}
		}
	case []string:
		for _, item := range val {
			if term := bannedTermIn(item); term != "" {
				return term
			}
		}
	case map[string]any:
		for key, item := range val {
			if term := bannedTermIn(key); term != "" {
				return term
			}
			if term := bannedTermInValue(item); term != "" {
				return term
			}
		}
	}
	return ""
}
