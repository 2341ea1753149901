package market

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/diamondlab/unicorn/internal/cache"
	"github.com/diamondlab/unicorn/internal/domain"
)

// weightRepo stubs the single repository method the service touches.
type weightRepo struct {
	domain.Repository

	weights map[int64]float64
	err     error
	loads   int
}

func (r *weightRepo) LoadMarketWeights(ctx context.Context, seasonYear int) (map[int64]float64, error) {
	r.loads++
	if r.err != nil {
		return nil, r.err
	}
	return r.weights, nil
}

func TestWeightsReadThrough(t *testing.T) {
	repo := &weightRepo{weights: map[int64]float64{7: 1.15, 9: 0.9}}
	svc := NewService(repo, cache.NewLRUCache(100), time.Minute)
	ctx := context.Background()

	first, err := svc.Weights(ctx, 2025)
	if err != nil {
		t.Fatalf("Weights failed: %v", err)
	}
	if first[7] != 1.15 {
		t.Errorf("weights[7] = %v, want 1.15", first[7])
	}

	// Second call is served from cache.
	second, err := svc.Weights(ctx, 2025)
	if err != nil {
		t.Fatalf("Weights failed: %v", err)
	}
	if repo.loads != 1 {
		t.Errorf("expected 1 repository load, got %d", repo.loads)
	}
	if second[9] != 0.9 {
		t.Errorf("cached weights[9] = %v, want 0.9", second[9])
	}
}

func TestWeightsWithoutCache(t *testing.T) {
	repo := &weightRepo{weights: map[int64]float64{1: 2.0}}
	svc := NewService(repo, nil, time.Minute)
	ctx := context.Background()

	if _, err := svc.Weights(ctx, 2025); err != nil {
		t.Fatalf("Weights failed: %v", err)
	}
	if _, err := svc.Weights(ctx, 2025); err != nil {
		t.Fatalf("Weights failed: %v", err)
	}
	if repo.loads != 2 {
		t.Errorf("expected 2 repository loads without cache, got %d", repo.loads)
	}
}

func TestWeightsRepositoryError(t *testing.T) {
	repo := &weightRepo{err: errors.New("connection refused")}
	svc := NewService(repo, nil, time.Minute)

	if _, err := svc.Weights(context.Background(), 2025); err == nil {
		t.Fatal("expected error from repository failure")
	}
}

func TestLookupDefaultsToNeutral(t *testing.T) {
	lookup := Lookup(map[int64]float64{5: 1.3})

	if got := lookup(5); got != 1.3 {
		t.Errorf("lookup(5) = %v, want 1.3", got)
	}
	if got := lookup(42); got != 1.0 {
		t.Errorf("lookup(42) = %v, want neutral 1.0", got)
	}
}

func TestWeightsRoundTripLargeIDs(t *testing.T) {
	// JSON keys are strings; id precision must survive the cache round trip.
	big := int64(673548123456789)
	repo := &weightRepo{weights: map[int64]float64{big: 1.05}}
	svc := NewService(repo, cache.NewLRUCache(10), time.Minute)
	ctx := context.Background()

	if _, err := svc.Weights(ctx, 2024); err != nil {
		t.Fatalf("Weights failed: %v", err)
	}
	cached, err := svc.Weights(ctx, 2024)
	if err != nil {
		t.Fatalf("Weights failed: %v", err)
	}
	if cached[big] != 1.05 {
		t.Errorf("cached[%d] = %v, want 1.05", big, cached[big])
	}
}
