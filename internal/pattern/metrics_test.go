package pattern

import (
	"errors"
	"strings"
	"testing"
)

func TestMetricExpr(t *testing.T) {
	t.Run("RegisteredMetric", func(t *testing.T) {
		expr, err := MetricExpr("hr_rate", "")
		if err != nil {
			t.Fatalf("MetricExpr failed: %v", err)
		}
		if !strings.Contains(expr, "is_hr = 1") {
			t.Errorf("expected integer flag comparison, got %q", expr)
		}
		if !strings.Contains(expr, "1.0 *") {
			t.Errorf("expected float-division guard, got %q", expr)
		}
	})

	t.Run("OverrideWinsVerbatim", func(t *testing.T) {
		expr, err := MetricExpr("count_hr", "MAX(launch_speed)")
		if err != nil {
			t.Fatalf("MetricExpr failed: %v", err)
		}
		if expr != "MAX(launch_speed)" {
			t.Errorf("expected override verbatim, got %q", expr)
		}
	})

	t.Run("UnknownMetric", func(t *testing.T) {
		_, err := MetricExpr("spin_efficiency", "")
		if !errors.Is(err, ErrUnknownMetric) {
			t.Errorf("expected ErrUnknownMetric, got: %v", err)
		}
	})
}

func TestRegisteredMetrics(t *testing.T) {
	names := RegisteredMetrics()
	if len(names) != len(metricRegistry) {
		t.Errorf("expected %d metrics, got %d", len(metricRegistry), len(names))
	}
}

func TestPublicWeightForCategory(t *testing.T) {
	tests := []struct {
		category string
		want     float64
	}{
		{"A_BARRELS_PULLED", weightTier1},
		{"B_DIRECTION", weightTier2},
		{"COUNT_LEVERAGE", weightTier1},
		{"STARTER_FORM", weightTier1},
		{"", weightTier2},
		{"MYSTERY", weightTier3},
	}

	for _, tt := range tests {
		if got := PublicWeightForCategory(tt.category); got != tt.want {
			t.Errorf("PublicWeightForCategory(%q) = %v, want %v", tt.category, got, tt.want)
		}
	}
}
