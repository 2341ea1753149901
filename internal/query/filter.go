// Package query compiles validated pattern templates into parameterized
// aggregate SQL. Every literal is bound, never interpolated.
package query

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/diamondlab/unicorn/internal/domain"
)

// identifierRe limits filter fields to column references. Anything else is
// dropped the same way unsupported operators are.
var identifierRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_.]*$`)

// BuildFilterClause turns an ordered condition list into a conjunction of
// predicates plus positional args. Unsupported operators, malformed fields
// and empty IN lists are silently dropped so a single bad condition never
// fails the run.
func BuildFilterClause(conditions []domain.FilterCondition) (string, []any) {
	var clauses []string
	var args []any

	for _, cond := range conditions {
		field := normalizeField(cond.Field)
		if field == "" {
			continue
		}
		op, ok := domain.ParseOperator(cond.Op)
		if !ok {
			continue
		}

		switch op {
		case domain.OpIsNull, domain.OpIsNotNull:
			clauses = append(clauses, fmt.Sprintf("%s %s", field, op))

		case domain.OpIn, domain.OpNotIn:
			values := coerceList(cond.Value)
			if len(values) == 0 {
				continue
			}
			placeholders := strings.Repeat("?, ", len(values))
			clauses = append(clauses, fmt.Sprintf("%s %s (%s)", field, op, placeholders[:len(placeholders)-2]))
			args = append(args, values...)

		default:
			// NULL compared with = / != means the author wants a null check.
			if cond.Value == nil {
				if op == domain.OpEq {
					clauses = append(clauses, fmt.Sprintf("%s IS NULL", field))
					continue
				}
				if op == domain.OpNeq {
					clauses = append(clauses, fmt.Sprintf("%s IS NOT NULL", field))
					continue
				}
				continue
			}
			clauses = append(clauses, fmt.Sprintf("%s %s ?", field, op))
			args = append(args, bindValue(cond.Value))
		}
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return strings.Join(clauses, " AND "), args
}

// normalizeField validates a field as a column reference and strips the
// games. prefix: the assembler flattens the calendar join into the windowed
// row set, so games columns are addressed bare.
func normalizeField(field string) string {
	field = strings.TrimSpace(field)
	if !identifierRe.MatchString(field) {
		return ""
	}
	field = strings.TrimPrefix(field, "games.")
	if strings.Contains(field, ".") {
		return ""
	}
	return field
}

// coerceList flattens an IN / NOT IN value into a fixed-order arg slice.
func coerceList(v any) []any {
	switch val := v.(type) {
	case nil:
		return nil
	case []any:
		out := make([]any, 0, len(val))
		for _, item := range val {
			out = append(out, bindValue(item))
		}
		return out
	case []string:
		out := make([]any, 0, len(val))
		for _, item := range val {
			out = append(out, item)
		}
		return out
	case []int:
		out := make([]any, 0, len(val))
		for _, item := range val {
			out = append(out, item)
		}
		return out
	case []int64:
		out := make([]any, 0, len(val))
		for _, item := range val {
			out = append(out, item)
		}
		return out
	case []float64:
		out := make([]any, 0, len(val))
		for _, item := range val {
			out = append(out, item)
		}
		return out
	default:
		return []any{bindValue(v)}
	}
}

// bindValue maps JSON-decoded values to driver-friendly bind values.
// Booleans become 0/1 so boolean flag comparisons behave identically on
// SQLite and PostgreSQL integer-backed columns.
func bindValue(v any) any {
	if b, ok := v.(bool); ok {
		if b {
			return 1
		}
		return 0
	}
	return v
}
