package smoke

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/cinerec/pkg/logger"
)

// ErrChecksFailed is returned by Run when any check fails.
var ErrChecksFailed = errors.New("smoke checks failed")

// Run executes every check against cfg.BaseURL and returns the statistics.
// Checks run in order and a failing check does not stop later ones.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	if cfg.PageLimit < 1 {
		return nil, fmt.Errorf("page limit must be positive, got %d", cfg.PageLimit)
	}
	if cfg.MaxPages < 1 {
		cfg.MaxPages = 1
	}

	log := logger.Get().Named("smoke")
	c := newClient(cfg.BaseURL, cfg.Timeout)
	stats := &Stats{StartTime: time.Now()}
	st := &state{stats: stats}

	log.Info(ctx, "starting smoke run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("users", len(cfg.Users)),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout),
	)

	for _, ch := range checks {
		stats.Checks++
		start := time.Now()
		if err := ch.run(ctx, c, cfg, st); err != nil {
			stats.Failures++
			log.Error(ctx, "check failed", logger.String("check", ch.name), logger.Error(err))
			continue
		}
		log.Info(ctx, "check passed", logger.String("check", ch.name), logger.Duration("took", time.Since(start)))
	}

	stats.Duration = time.Since(stats.StartTime)
	stats.Requests = c.requests.Load()
	log.Info(ctx, "smoke run finished",
		logger.Int("checks", stats.Checks),
		logger.Int("failures", stats.Failures),
		logger.Int64("requests", stats.Requests),
		logger.Int64("recommendations", stats.Recommendations),
		logger.Int64("busy", stats.Busy),
		logger.Duration("duration", stats.Duration),
	)

	if stats.Failures > 0 {
		return stats, fmt.Errorf("%w: %d of %d", ErrChecksFailed, stats.Failures, stats.Checks)
	}
	return stats, nil
}
