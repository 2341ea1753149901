package query

import (
	"errors"
	"strings"
	"testing"

	"github.com/diamondlab/unicorn/internal/domain"
	"github.com/diamondlab/unicorn/internal/pattern"
)

func buildTemplate() *domain.PatternTemplate {
	return &domain.PatternTemplate{
		ID:             "barrels-14d",
		EntityType:     domain.EntityBatter,
		BaseTable:      "pa_facts",
		Metric:         "count_barrels",
		OrderDirection: "desc",
		MinSample:      20,
		Window:         &domain.Window{Kind: domain.WindowLastNDays, N: 14},
		Filters: []domain.FilterCondition{
			{Field: "is_hard_hit", Op: "=", Value: true},
		},
	}
}

func TestBuildShape(t *testing.T) {
	p := buildTemplate()
	sql, args, err := Build(p, asOf, 100)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	for _, fragment := range []string{
		"WITH windowed AS (",
		"SELECT batter_id AS entity_id",
		"AS metric_value",
		"COUNT(*) AS sample_size",
		"FROM windowed",
		"WHERE batter_id IS NOT NULL AND is_hard_hit = ?",
		"GROUP BY batter_id",
		"HAVING COUNT(*) >= ?",
		"ORDER BY metric_value DESC, sample_size DESC, entity_id ASC",
		"LIMIT 100",
	} {
		if !strings.Contains(sql, fragment) {
			t.Errorf("query missing %q:\n%s", fragment, sql)
		}
	}

	// Args bind in placeholder order: window bounds, filters, min sample.
	want := []any{"2025-06-15", "2025-06-02", 1, 20}
	if len(args) != len(want) {
		t.Fatalf("expected %d args, got %d: %#v", len(want), len(args), args)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Errorf("args[%d] = %#v, want %#v", i, args[i], want[i])
		}
	}
}

func TestBuildUnknownMetric(t *testing.T) {
	p := buildTemplate()
	p.Metric = "spin_rate_delta"

	_, _, err := Build(p, asOf, 0)
	if !errors.Is(err, pattern.ErrUnknownMetric) {
		t.Errorf("expected ErrUnknownMetric, got: %v", err)
	}
}

func TestBuildDefaults(t *testing.T) {
	p := buildTemplate()
	p.Filters = nil
	p.Window = nil

	sql, args, err := Build(p, asOf, 0)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if !strings.Contains(sql, "LIMIT 500") {
		t.Errorf("expected default limit, got:\n%s", sql)
	}
	if len(args) != 2 {
		t.Errorf("expected as-of and min-sample args only, got %#v", args)
	}
}

func TestBuildOverrides(t *testing.T) {
	p := buildTemplate()
	p.MetricExpr = "AVG(launch_speed)"
	p.SampleExpr = "COUNT(DISTINCT game_id)"
	p.OrderExpr = "sample_size"
	p.OrderDirection = "asc"

	sql, _, err := Build(p, asOf, 50)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if !strings.Contains(sql, "AVG(launch_speed) AS metric_value") {
		t.Errorf("expected metric override, got:\n%s", sql)
	}
	if !strings.Contains(sql, "COUNT(DISTINCT game_id) AS sample_size") {
		t.Errorf("expected sample override, got:\n%s", sql)
	}
	if !strings.Contains(sql, "HAVING COUNT(DISTINCT game_id) >= ?") {
		t.Errorf("expected sample override in HAVING, got:\n%s", sql)
	}
	if !strings.Contains(sql, "ORDER BY sample_size ASC") {
		t.Errorf("expected ascending order override, got:\n%s", sql)
	}
}
