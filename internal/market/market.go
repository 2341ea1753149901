// Package market provides the external market-weight lookup with a
// read-through cache in front of the repository.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/diamondlab/unicorn/internal/domain"
)

// Service loads per-entity market multipliers for a season. Weights are
// supplied by an external context-weighting process and are read-only here.
type Service struct {
	repo  domain.Repository
	cache domain.Cache
	ttl   time.Duration
}

// NewService creates a market-weight service. cache may be nil, in which
// case every load goes to the repository.
func NewService(repo domain.Repository, cache domain.Cache, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Service{
		repo:  repo,
		cache: cache,
		ttl:   ttl,
	}
}

// Weights returns the entity -> multiplier map for a season, reading
// through the cache with a bounded TTL.
func (s *Service) Weights(ctx context.Context, seasonYear int) (map[int64]float64, error) {
	key := cacheKey(seasonYear)

	if s.cache != nil {
		if data, err := s.cache.Get(ctx, key); err == nil && data != nil {
			if weights, err := decodeWeights(data); err == nil {
				return weights, nil
			}
			// Corrupt cache entries are dropped and reloaded.
			_ = s.cache.Delete(ctx, key)
		}
	}

	weights, err := s.repo.LoadMarketWeights(ctx, seasonYear)
	if err != nil {
		return nil, fmt.Errorf("failed to load market weights: %w", err)
	}

	if s.cache != nil {
		if data, err := encodeWeights(weights); err == nil {
			if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
				slog.Warn("failed to cache market weights",
					"season_year", seasonYear,
					"error", err,
				)
			}
		}
	}

	return weights, nil
}

// Lookup wraps a weight map as the lookup function the scoring engine
// consumes. Missing entities resolve to the neutral 1.0.
func Lookup(weights map[int64]float64) func(entityID int64) float64 {
	return func(entityID int64) float64 {
		if w, ok := weights[entityID]; ok {
			return w
		}
		return 1.0
	}
}

func cacheKey(seasonYear int) string {
	return "market:weights:" + strconv.Itoa(seasonYear)
}

// JSON object keys are strings, so the int64 entity ids round-trip through
// their decimal form.
func encodeWeights(weights map[int64]float64) ([]byte, error) {
	out := make(map[string]float64, len(weights))
	for id, w := range weights {
		out[strconv.FormatInt(id, 10)] = w
	}
	return json.Marshal(out)
}

func decodeWeights(data []byte) (map[int64]float64, error) {
	var raw map[string]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	out := make(map[int64]float64, len(raw))
	for key, w := range raw {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, err
		}
		out[id] = w
	}
	return out, nil
}
