// Package ranker runs the external ranking program and turns its output into
// an ordered list of item identifiers.
package ranker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/okian/cinerec/internal/domain/ranking"
	"github.com/okian/cinerec/pkg/logger"
	"github.com/okian/cinerec/pkg/metrics"
)

// Errors carried inside *ranking.ProcessError.
var (
	ErrTimeout     = errors.New("ranking process timed out")
	ErrBreakerOpen = errors.New("ranking breaker open")
)

// Invocation outcomes reported to metrics.
const (
	outcomeOK           = "ok"
	outcomeEmpty        = "empty"
	outcomeProcessError = "process_error"
	outcomeDecodeError  = "decode_error"
	outcomeCanceled     = "canceled"
	outcomeRejected     = "rejected"
)

// ProcessRanker implements ranking.Ranker by starting one process per call:
//
//	<executable> [<script for mode>] <subject>
//
// with the configured working directory. Standard output must hold a single
// JSON array of identifier strings; standard error is kept as diagnostics.
type ProcessRanker struct {
	executable       string
	workdir          string
	scripts          map[ranking.Mode]string
	timeout          time.Duration
	breakerThreshold int
	breakerCooldown  time.Duration
	breaker          *gobreaker.CircuitBreaker[ranking.List]
	logger           logger.Logger
}

var _ ranking.Ranker = (*ProcessRanker)(nil)

// New creates a ProcessRanker.
func New(opts ...Option) *ProcessRanker {
	r := &ProcessRanker{
		executable: DefaultExecutable,
		workdir:    DefaultWorkdir,
		scripts: map[ranking.Mode]string{
			ranking.ModeUser: DefaultUserScript,
			ranking.ModeItem: DefaultItemScript,
		},
		timeout:          DefaultTimeout,
		breakerThreshold: DefaultBreakerThreshold,
		breakerCooldown:  DefaultBreakerCooldown,
		logger:           logger.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.breakerThreshold > 0 {
		threshold := uint32(r.breakerThreshold) //nolint:gosec // bounded by config validation
		r.breaker = gobreaker.NewCircuitBreaker[ranking.List](gobreaker.Settings{
			Name:        "ranker",
			MaxRequests: 1,
			Timeout:     r.breakerCooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				metrics.UpdateRankerBreakerState(int(to))
				r.logger.Warn(context.Background(), "ranker breaker state changed",
					logger.String("breaker", name),
					logger.String("from", from.String()),
					logger.String("to", to.String()),
				)
			},
			IsSuccessful: countsAsSuccess,
		})
	}
	return r
}

// countsAsSuccess keeps caller cancellations from tripping the breaker.
func countsAsSuccess(err error) bool {
	return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// Rank runs the ranking process for subject in the given mode.
func (r *ProcessRanker) Rank(ctx context.Context, subject string, mode ranking.Mode) (ranking.List, error) {
	if strings.TrimSpace(subject) == "" {
		return nil, ranking.ErrInvalidSubject
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: %q", ranking.ErrInvalidMode, mode)
	}

	start := time.Now()
	var (
		ids ranking.List
		err error
	)
	if r.breaker == nil {
		ids, err = r.run(ctx, subject, mode)
	} else {
		ids, err = r.breaker.Execute(func() (ranking.List, error) {
			return r.run(ctx, subject, mode)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = &ranking.ProcessError{
				Mode:     mode,
				Subject:  subject,
				ExitCode: -1,
				Err:      fmt.Errorf("%w: %w", ErrBreakerOpen, err),
			}
			metrics.RecordRankerInvocation(mode.String(), outcomeRejected, msSince(start))
			return nil, err
		}
	}

	metrics.RecordRankerInvocation(mode.String(), outcome(ids, err), msSince(start))
	if err != nil {
		r.logger.Warn(ctx, "ranking process failed",
			logger.String("mode", mode.String()),
			logger.String("subject", subject),
			logger.Error(err),
		)
		return nil, err
	}
	return ids, nil
}

func (r *ProcessRanker) run(ctx context.Context, subject string, mode ranking.Mode) (ranking.List, error) {
	runCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	args := make([]string, 0, 2)
	if script := r.scripts[mode]; script != "" {
		args = append(args, script)
	}
	args = append(args, subject)

	cmd := exec.CommandContext(runCtx, r.executable, args...)
	cmd.Dir = r.workdir
	cmd.WaitDelay = waitDelay
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.Debug(ctx, "starting ranking process",
		logger.String("executable", r.executable),
		logger.Strings("args", args),
		logger.String("workdir", r.workdir),
	)

	if err := cmd.Run(); err != nil {
		pe := &ranking.ProcessError{
			Mode:     mode,
			Subject:  subject,
			ExitCode: -1,
			Stderr:   stderr.String(),
			Err:      err,
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			pe.ExitCode = exitErr.ExitCode()
		}
		switch {
		case ctx.Err() != nil:
			pe.Err = ctx.Err()
		case runCtx.Err() != nil:
			pe.Err = fmt.Errorf("%w after %s", ErrTimeout, r.timeout)
		}
		return nil, pe
	}

	ids, err := Decode(stdout.Bytes())
	if err != nil {
		return nil, &ranking.DecodeError{Mode: mode, Output: truncate(stdout.String(), 512), Err: err}
	}
	return ids, nil
}

func outcome(ids ranking.List, err error) string {
	switch {
	case err == nil && len(ids) == 0:
		return outcomeEmpty
	case err == nil:
		return outcomeOK
	case countsAsSuccess(err):
		return outcomeCanceled
	case errors.Is(err, ranking.ErrDecode):
		return outcomeDecodeError
	default:
		return outcomeProcessError
	}
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
