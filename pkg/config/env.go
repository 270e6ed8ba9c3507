// pkg/config/env.go
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvironmentConfig holds process settings that do not belong in a
// simulation file: the health endpoint, the render sink breaker, resource
// limits and shutdown behavior.
type EnvironmentConfig struct {
	// HealthAddr is the listen address of the health server. Empty disables it.
	HealthAddr string

	// Render sink circuit breaker
	SinkBreakerMaxRequests         uint32
	SinkBreakerInterval            time.Duration
	SinkBreakerTimeout             time.Duration
	SinkBreakerMaxConsecutiveFails uint32

	// Resource management
	MaxMemoryMB           int64
	MaxGoroutines         int
	ResourceCheckInterval time.Duration
	ShutdownTimeout       time.Duration
}

// LoadConfigFromEnv reads EnvironmentConfig from BALLSIM_* variables,
// falling back to defaults for unset or unparsable values, and validates it.
func LoadConfigFromEnv() (*EnvironmentConfig, error) {
	config := &EnvironmentConfig{
		HealthAddr: getEnvOrDefault("BALLSIM_HEALTH_ADDR", ""),

		SinkBreakerMaxRequests:         uint32(getEnvAsUint64OrDefault("BALLSIM_SINK_BREAKER_MAX_REQUESTS", 1)),
		SinkBreakerInterval:            getEnvAsDurationOrDefault("BALLSIM_SINK_BREAKER_INTERVAL", 60*time.Second),
		SinkBreakerTimeout:             getEnvAsDurationOrDefault("BALLSIM_SINK_BREAKER_TIMEOUT", 5*time.Second),
		SinkBreakerMaxConsecutiveFails: uint32(getEnvAsUint64OrDefault("BALLSIM_SINK_BREAKER_MAX_FAILURES", 5)),

		MaxMemoryMB:           int64(getEnvAsIntOrDefault("BALLSIM_MAX_MEMORY_MB", 512)),
		MaxGoroutines:         getEnvAsIntOrDefault("BALLSIM_MAX_GOROUTINES", 16),
		ResourceCheckInterval: getEnvAsDurationOrDefault("BALLSIM_RESOURCE_CHECK_INTERVAL", 10*time.Second),
		ShutdownTimeout:       getEnvAsDurationOrDefault("BALLSIM_SHUTDOWN_TIMEOUT", 5*time.Second),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks that every setting is within a workable range.
func (c *EnvironmentConfig) Validate() error {
	if c.SinkBreakerMaxRequests < 1 {
		return &ValidationError{Field: "SinkBreakerMaxRequests", Value: c.SinkBreakerMaxRequests, Message: "must be at least 1"}
	}
	if c.SinkBreakerInterval < time.Second {
		return &ValidationError{Field: "SinkBreakerInterval", Value: c.SinkBreakerInterval, Message: "must be at least 1s"}
	}
	if c.SinkBreakerTimeout < 100*time.Millisecond {
		return &ValidationError{Field: "SinkBreakerTimeout", Value: c.SinkBreakerTimeout, Message: "must be at least 100ms"}
	}
	if c.SinkBreakerMaxConsecutiveFails < 1 {
		return &ValidationError{Field: "SinkBreakerMaxConsecutiveFails", Value: c.SinkBreakerMaxConsecutiveFails, Message: "must be at least 1"}
	}
	if c.MaxMemoryMB < 16 {
		return &ValidationError{Field: "MaxMemoryMB", Value: c.MaxMemoryMB, Message: "must be at least 16"}
	}
	if c.MaxGoroutines < 2 {
		return &ValidationError{Field: "MaxGoroutines", Value: c.MaxGoroutines, Message: "must be at least 2"}
	}
	if c.ResourceCheckInterval < 100*time.Millisecond {
		return &ValidationError{Field: "ResourceCheckInterval", Value: c.ResourceCheckInterval, Message: "must be at least 100ms"}
	}
	if c.ShutdownTimeout < 0 || c.ShutdownTimeout > 5*time.Minute {
		return &ValidationError{Field: "ShutdownTimeout", Value: c.ShutdownTimeout, Message: "must be between 0 and 5m"}
	}
	return nil
}

// ApplyEnvironmentOverrides overwrites file settings with any BALLSIM_*
// variables that are set and parse.
func ApplyEnvironmentOverrides(config *SimulationConfig) {
	config.Population.Count = getEnvAsIntOrDefault("BALLSIM_BODY_COUNT", config.Population.Count)
	config.BroadPhase.Strategy = getEnvOrDefault("BALLSIM_STRATEGY", config.BroadPhase.Strategy)
	config.Arena.Width = getEnvAsFloatOrDefault("BALLSIM_ARENA_WIDTH", config.Arena.Width)
	config.Arena.Height = getEnvAsFloatOrDefault("BALLSIM_ARENA_HEIGHT", config.Arena.Height)
	config.Run.MaxTicks = getEnvAsIntOrDefault("BALLSIM_MAX_TICKS", config.Run.MaxTicks)
	config.Run.TicksPerSecond = getEnvAsFloatOrDefault("BALLSIM_TICK_RATE", config.Run.TicksPerSecond)
	config.Run.RecordPath = getEnvOrDefault("BALLSIM_RECORD", config.Run.RecordPath)
	config.Render.Renderer = getEnvOrDefault("BALLSIM_RENDERER", config.Render.Renderer)
	config.Render.ShowGrid = getEnvAsBoolOrDefault("BALLSIM_SHOW_GRID", config.Render.ShowGrid)

	if seed, err := strconv.ParseUint(getEnvOrDefault("BALLSIM_SEED", ""), 10, 64); err == nil {
		config.Population.Seed = &seed
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value, err := strconv.Atoi(getEnvOrDefault(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsUint64OrDefault(key string, defaultValue uint64) uint64 {
	if value, err := strconv.ParseUint(getEnvOrDefault(key, ""), 10, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBoolOrDefault(key string, defaultValue bool) bool {
	if value, err := strconv.ParseBool(getEnvOrDefault(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloatOrDefault(key string, defaultValue float64) float64 {
	if value, err := strconv.ParseFloat(getEnvOrDefault(key, ""), 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(getEnvOrDefault(key, "")); err == nil {
		return value
	}
	return defaultValue
}
