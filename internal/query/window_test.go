package query

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/diamondlab/unicorn/internal/domain"
)

var asOf = time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

func TestWindowCTENone(t *testing.T) {
	cte, args := windowCTE(nil, "pa_facts", "batter_id", asOf)

	if !strings.HasPrefix(cte, "WITH windowed AS (") {
		t.Errorf("expected windowed CTE, got %q", cte)
	}
	if !strings.Contains(cte, "g.game_date <= ?") {
		t.Errorf("expected as-of bound, got %q", cte)
	}
	if strings.Contains(cte, "game_date >= ?") {
		t.Errorf("unbounded window must not have a lower bound: %q", cte)
	}
	if !reflect.DeepEqual(args, []any{"2025-06-15"}) {
		t.Errorf("args = %#v", args)
	}
}

func TestWindowCTELastNDays(t *testing.T) {
	w := &domain.Window{Kind: domain.WindowLastNDays, N: 7}
	cte, args := windowCTE(w, "pitch_facts", "pitcher_id", asOf)

	if !strings.Contains(cte, "g.game_date >= ?") {
		t.Errorf("expected lower bound, got %q", cte)
	}
	// 7-day window is inclusive of the as-of date itself.
	want := []any{"2025-06-15", "2025-06-09"}
	if !reflect.DeepEqual(args, want) {
		t.Errorf("args = %#v, want %#v", args, want)
	}
}

func TestWindowCTELastNPA(t *testing.T) {
	w := &domain.Window{Kind: domain.WindowLastNPA, N: 50}
	cte, args := windowCTE(w, "pitch_facts", "batter_id", asOf)

	if !strings.Contains(cte, "DENSE_RANK() OVER (PARTITION BY f.batter_id ORDER BY g.game_date DESC, f.game_id DESC, f.pa_id DESC)") {
		t.Errorf("expected per-entity PA recency ranking, got %q", cte)
	}
	if !strings.Contains(cte, "windowed AS (SELECT * FROM ranked WHERE pa_recency <= ?)") {
		t.Errorf("expected recency cutoff, got %q", cte)
	}
	if strings.Contains(cte, "pa_outcome") {
		t.Errorf("PA window must not exclude outcomes: %q", cte)
	}
	want := []any{"2025-06-15", 50}
	if !reflect.DeepEqual(args, want) {
		t.Errorf("args = %#v, want %#v", args, want)
	}
}

func TestWindowCTELastNAB(t *testing.T) {
	w := &domain.Window{Kind: domain.WindowLastNAB, N: 25}
	cte, _ := windowCTE(w, "pa_facts", "batter_id", asOf)

	if !strings.Contains(cte, "NOT IN "+nonAtBatOutcomes) {
		t.Errorf("expected non-at-bat outcomes excluded, got %q", cte)
	}
	if !strings.Contains(cte, "COALESCE(f.pa_outcome, '')") {
		t.Errorf("expected null-safe outcome comparison, got %q", cte)
	}
}

func TestWindowCTEUnknownKindFallsBack(t *testing.T) {
	w := &domain.Window{Kind: "last_n_games", N: 5}
	cte, args := windowCTE(w, "pa_facts", "batter_id", asOf)

	if !strings.Contains(cte, "g.game_date <= ?") {
		t.Errorf("expected unbounded fallback, got %q", cte)
	}
	if len(args) != 1 {
		t.Errorf("expected single as-of arg, got %#v", args)
	}
}
