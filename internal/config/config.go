// Package config defines service configuration and its loading from
// defaults, an optional YAML file and the environment.
package config

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// Store drivers.
const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat is json or console.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":5001".
	Addr string `koanf:"addr"`

	// ShutdownTimeoutMS bounds graceful shutdown.
	ShutdownTimeoutMS int `koanf:"shutdown_timeout_ms"`

	// StoreDriver selects the catalog backend: mongo or memory.
	StoreDriver string `koanf:"store_driver"`

	MongoURI      string `koanf:"mongo_uri"`
	MongoDatabase string `koanf:"mongo_database"`

	// MongoTimeoutMS bounds each store operation.
	MongoTimeoutMS int `koanf:"mongo_timeout_ms"`

	// SeedFile is a JSON fixture for the memory store.
	SeedFile string `koanf:"seed_file"`

	// RankerWorkdir is the ranking program's resource root; scripts and
	// model files are resolved relative to it.
	RankerWorkdir string `koanf:"ranker_workdir"`

	RankerExecutable        string `koanf:"ranker_executable"`
	RankerUserScript        string `koanf:"ranker_user_script"`
	RankerItemScript        string `koanf:"ranker_item_script"`
	RankerTimeoutMS         int    `koanf:"ranker_timeout_ms"`
	RankerBreakerThreshold  int    `koanf:"ranker_breaker_threshold"`
	RankerBreakerCooldownMS int    `koanf:"ranker_breaker_cooldown_ms"`

	// WorkerCount sets the number of concurrent ranking processes.
	WorkerCount int `koanf:"worker_count"`

	// QueueSize bounds ranking requests waiting for a worker.
	QueueSize int `koanf:"queue_size"`

	DefaultPageLimit int `koanf:"default_page_limit"`
	MaxPageLimit     int `koanf:"max_page_limit"`
	PopularLimit     int `koanf:"popular_limit"`
	SearchLimit      int `koanf:"search_limit"`

	// CORSAllowedOrigins is a comma separated origin list.
	CORSAllowedOrigins string `koanf:"cors_allowed_origins"`

	// RateLimitRequests per RateLimitWindowMS per client IP; 0 disables.
	RateLimitRequests int `koanf:"rate_limit_requests"`
	RateLimitWindowMS int `koanf:"rate_limit_window_ms"`
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention and is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:                "info",
		LogFormat:               "json",
		Addr:                    ":5001",
		ShutdownTimeoutMS:       30_000,
		StoreDriver:             StoreMongo,
		MongoDatabase:           "recommender",
		MongoTimeoutMS:          5_000,
		RankerExecutable:        "python3",
		RankerWorkdir:           "ml-services",
		RankerUserScript:        "predict.py",
		RankerItemScript:        "neighbors.py",
		RankerTimeoutMS:         30_000,
		RankerBreakerThreshold:  5,
		RankerBreakerCooldownMS: 30_000,
		WorkerCount:             runtime.NumCPU() * 2,
		QueueSize:               256,
		DefaultPageLimit:        20,
		MaxPageLimit:            100,
		PopularLimit:            10,
		SearchLimit:             20,
		CORSAllowedOrigins:      "*",
		RateLimitRequests:       300,
		RateLimitWindowMS:       60_000,
	}
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.StoreDriver != StoreMongo && c.StoreDriver != StoreMemory:
		return fmt.Errorf("%w: store_driver must be %q or %q, got %q", ErrInvalidConfig, StoreMongo, StoreMemory, c.StoreDriver)
	case c.StoreDriver == StoreMongo && strings.TrimSpace(c.MongoURI) == "":
		return fmt.Errorf("%w: mongo_uri is required for the mongo store", ErrInvalidConfig)
	case c.RankerExecutable == "":
		return fmt.Errorf("%w: ranker_executable must not be empty", ErrInvalidConfig)
	case c.WorkerCount < 1:
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	case c.QueueSize < 1:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.DefaultPageLimit < 1 || c.MaxPageLimit < c.DefaultPageLimit:
		return fmt.Errorf("%w: need 1 <= default_page_limit <= max_page_limit", ErrInvalidConfig)
	case c.RankerTimeoutMS < 0, c.RankerBreakerThreshold < 0, c.RankerBreakerCooldownMS < 0:
		return fmt.Errorf("%w: ranker durations and threshold must not be negative", ErrInvalidConfig)
	case c.RateLimitRequests < 0 || c.RateLimitWindowMS < 0:
		return fmt.Errorf("%w: rate limit must not be negative", ErrInvalidConfig)
	}
	return nil
}

// CORSOrigins splits CORSAllowedOrigins, dropping blanks.
func (c *Config) CORSOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Millisecond settings as durations.
func (c *Config) ShutdownTimeout() time.Duration       { return ms(c.ShutdownTimeoutMS) }
func (c *Config) MongoTimeout() time.Duration          { return ms(c.MongoTimeoutMS) }
func (c *Config) RankerTimeout() time.Duration         { return ms(c.RankerTimeoutMS) }
func (c *Config) RankerBreakerCooldown() time.Duration { return ms(c.RankerBreakerCooldownMS) }
func (c *Config) RateLimitWindow() time.Duration       { return ms(c.RateLimitWindowMS) }

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }
