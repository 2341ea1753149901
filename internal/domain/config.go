package domain

import (
	"os"
	"strconv"
	"time"
)

// Config holds the complete engine configuration.
type Config struct {
	// Component configurations
	Repository RepositoryConfig `json:"repository"`
	Cache      CacheConfig      `json:"cache"`
	EventBus   EventBusConfig   `json:"eventBus"`

	// Engine tuning
	Engine EngineConfig `json:"engine"`

	// Observability
	Logging LoggingConfig `json:"logging"`
	Tracing TracingConfig `json:"tracing"`
}

// EngineConfig tunes the evaluation and selection pipeline.
type EngineConfig struct {
	// Workers bounds concurrent per-pattern evaluation.
	Workers int `json:"workers"`

	// ResultLimit caps each pattern's candidate set to bound downstream cost.
	ResultLimit int `json:"resultLimit"`

	// TopN is the leaderboard size.
	TopN int `json:"topN"`

	// MaxPerPattern caps how many entries one pattern may contribute to a
	// single day's leaderboard.
	MaxPerPattern int `json:"maxPerPattern"`

	// MinRelGap is the minimum relative spacing enforced between adjacent
	// leaderboard scores.
	MinRelGap float64 `json:"minRelGap"`

	// CooldownDays is the historical lookback for the re-appearance
	// cooldown. Zero disables the cooldown.
	CooldownDays int `json:"cooldownDays"`

	// CooldownMax is the maximum appearances within the lookback before an
	// entity is suppressed; CooldownMaxTop10 is the stricter ceiling applied
	// when the prospective rank is in the top ten.
	CooldownMax      int `json:"cooldownMax"`
	CooldownMaxTop10 int `json:"cooldownMaxTop10"`

	// MarketWeightTTL bounds how long cached market weights are served.
	MarketWeightTTL time.Duration `json:"marketWeightTTL"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool   `json:"enabled"`
	ServiceName string `json:"serviceName"`
}

// DefaultConfig returns the default configuration: SQLite storage, local LRU
// cache, in-process channel bus.
func DefaultConfig() *Config {
	return &Config{
		Repository: RepositoryConfig{
			Driver:       "sqlite",
			SQLitePath:   "./unicorn.db",
			QueryTimeout: 30 * time.Second,
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 10000,
			LocalTTL:     5 * time.Minute,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Engine: EngineConfig{
			Workers:          4,
			ResultLimit:      500,
			TopN:             50,
			MaxPerPattern:    5,
			MinRelGap:        0.011,
			CooldownDays:     7,
			CooldownMax:      3,
			CooldownMaxTop10: 2,
			MarketWeightTTL:  15 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "unicorn-engine",
		},
	}
}

// FromEnv returns the default configuration with UNICORN_* environment
// overrides applied.
func FromEnv() *Config {
	cfg := DefaultConfig()

	if v := os.Getenv("UNICORN_DB_DRIVER"); v != "" {
		cfg.Repository.Driver = v
	}
	if v := os.Getenv("UNICORN_SQLITE_PATH"); v != "" {
		cfg.Repository.SQLitePath = v
	}
	if v := os.Getenv("UNICORN_PG_HOST"); v != "" {
		cfg.Repository.PostgresHost = v
	}
	if v := envInt("UNICORN_PG_PORT"); v != 0 {
		cfg.Repository.PostgresPort = v
	}
	if v := os.Getenv("UNICORN_PG_USER"); v != "" {
		cfg.Repository.PostgresUser = v
	}
	if v := os.Getenv("UNICORN_PG_PASSWORD"); v != "" {
		cfg.Repository.PostgresPassword = v
	}
	if v := os.Getenv("UNICORN_PG_DB"); v != "" {
		cfg.Repository.PostgresDB = v
	}
	if v := os.Getenv("UNICORN_PG_SSLMODE"); v != "" {
		cfg.Repository.PostgresSSLMode = v
	}

	if v := os.Getenv("UNICORN_CACHE"); v != "" {
		cfg.Cache.Type = v
	}
	if v := os.Getenv("UNICORN_REDIS_ADDR"); v != "" {
		cfg.Cache.RedisAddr = v
	}
	if v := os.Getenv("UNICORN_REDIS_PASSWORD"); v != "" {
		cfg.Cache.RedisPassword = v
	}
	if v := envInt("UNICORN_REDIS_DB"); v != 0 {
		cfg.Cache.RedisDB = v
	}
	if os.Getenv("UNICORN_CACHE_TWO_PHASE") == "true" {
		cfg.Cache.EnableTwoPhase = true
	}

	if v := os.Getenv("UNICORN_BUS"); v != "" {
		cfg.EventBus.Type = v
	}
	if v := os.Getenv("UNICORN_NATS_URL"); v != "" {
		cfg.EventBus.NATSUrl = v
	}
	if v := os.Getenv("UNICORN_NATS_TOKEN"); v != "" {
		cfg.EventBus.NATSToken = v
	}

	if v := envInt("UNICORN_WORKERS"); v > 0 {
		cfg.Engine.Workers = v
	}
	if v := envInt("UNICORN_MAX_PER_PATTERN"); v > 0 {
		cfg.Engine.MaxPerPattern = v
	}
	if v := os.Getenv("UNICORN_COOLDOWN_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Engine.CooldownDays = n
		}
	}

	if v := os.Getenv("UNICORN_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if os.Getenv("UNICORN_TRACING") == "true" {
		cfg.Tracing.Enabled = true
	}

	return cfg
}

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}
