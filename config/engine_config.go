package config

import (
	"time"
)

// EngineConfig tunes the rule evaluation worker.
type EngineConfig struct {
	// EvaluationInterval is the sweep tick. 15 minutes keeps the
	// schedule matcher's minute tolerance from double-firing.
	EvaluationInterval time.Duration

	// WeatherTimeout bounds a single forecast request.
	WeatherTimeout time.Duration

	// WeatherCacheTTL keeps per-coordinate snapshots in Redis so users
	// sharing a coordinate reuse one fetch per sweep.
	WeatherCacheTTL time.Duration

	// SweepTimeout bounds one full user sweep.
	SweepTimeout time.Duration

	// UserWorkers is the fan-out width across users. Per-user work
	// stays sequential regardless.
	UserWorkers int
}

func LoadEngineConfig() EngineConfig {
	return EngineConfig{
		EvaluationInterval: time.Duration(getEnvAsInt("ENGINE_INTERVAL_MINUTES", 15)) * time.Minute,
		WeatherTimeout:     time.Duration(getEnvAsInt("WEATHER_TIMEOUT_SECONDS", 10)) * time.Second,
		WeatherCacheTTL:    time.Duration(getEnvAsInt("WEATHER_CACHE_TTL_MINUTES", 10)) * time.Minute,
		SweepTimeout:       time.Duration(getEnvAsInt("ENGINE_SWEEP_TIMEOUT_MINUTES", 14)) * time.Minute,
		UserWorkers:        getEnvAsInt("ENGINE_USER_WORKERS", 4),
	}
}
