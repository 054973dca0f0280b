package ranker

import (
	"time"

	"github.com/okian/cinerec/internal/domain/ranking"
	"github.com/okian/cinerec/pkg/logger"
)

// Defaults mirror the layout of the ml-services directory.
const (
	DefaultExecutable       = "python3"
	DefaultWorkdir          = "ml-services"
	DefaultUserScript       = "predict.py"
	DefaultItemScript       = "neighbors.py"
	DefaultTimeout          = 30 * time.Second
	DefaultBreakerThreshold = 5
	DefaultBreakerCooldown  = 30 * time.Second

	// waitDelay bounds how long Wait blocks on output pipes held open by
	// grandchildren after the process itself was killed.
	waitDelay = 500 * time.Millisecond
)

// Option applies a configuration option to the ProcessRanker.
type Option func(*ProcessRanker)

// WithExecutable sets the program started for every ranking request.
func WithExecutable(path string) Option {
	return func(r *ProcessRanker) {
		if path != "" {
			r.executable = path
		}
	}
}

// WithWorkdir sets the working directory of the ranking process.
func WithWorkdir(dir string) Option {
	return func(r *ProcessRanker) {
		r.workdir = dir
	}
}

// WithScript sets the script argument passed before the subject for mode.
// An empty script means the executable is invoked with the subject only.
func WithScript(mode ranking.Mode, script string) Option {
	return func(r *ProcessRanker) {
		r.scripts[mode] = script
	}
}

// WithTimeout bounds a single ranking run. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(r *ProcessRanker) {
		if d >= 0 {
			r.timeout = d
		}
	}
}

// WithBreaker sets how many consecutive failures open the breaker and how
// long it stays open. A threshold of zero disables the breaker.
func WithBreaker(threshold int, cooldown time.Duration) Option {
	return func(r *ProcessRanker) {
		if threshold >= 0 {
			r.breakerThreshold = threshold
		}
		if cooldown > 0 {
			r.breakerCooldown = cooldown
		}
	}
}

// WithLogger sets a custom logger for the ranker.
func WithLogger(l logger.Logger) Option {
	return func(r *ProcessRanker) {
		if l != nil {
			r.logger = l
		}
	}
}
