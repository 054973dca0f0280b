package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/cinerec/internal/adapters/mq/queue"
	"github.com/okian/cinerec/internal/domain/ranking"
	"github.com/okian/cinerec/pkg/logger"
	"github.com/okian/cinerec/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()
	poolShutdownTimeout     = 30 * time.Second
)

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker runs jobs from a queue until it is shut down.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown stops the worker after the job in flight, if any.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker on top of a ranking.Ranker.
type InMemoryWorker struct {
	queue  Queue
	ranker ranking.Ranker
	name   string

	processed *atomic.Int64
	skipped   *atomic.Int64

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, r ranking.Ranker, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		ranker:    r,
		name:      "worker",
		processed: new(atomic.Int64),
		skipped:   new(atomic.Int64),
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			w.process(job)
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process runs one job and always delivers exactly one result.
func (w *InMemoryWorker) process(job queue.Job) { //nolint:gocritic // hugeParam: Job is passed by value for channel semantics
	ctx := job.Ctx
	if ctx == nil {
		ctx = context.Background()
	}

	// The caller has already given up; do not start a process for nobody.
	if err := ctx.Err(); err != nil {
		w.skipped.Add(1)
		metrics.RecordQueueRejection("expired")
		w.logger.Debug(ctx, "skipping expired ranking job",
			logger.String("subject", job.Subject),
			logger.String("mode", job.Mode.String()),
			logger.Duration("waited", time.Since(job.Enqueued)),
		)
		job.Result <- queue.Result{Err: err}
		return
	}

	metrics.IncWorkerBusy()
	ids, err := w.ranker.Rank(ctx, job.Subject, job.Mode)
	metrics.DecWorkerBusy()
	w.processed.Add(1)

	if err != nil && !errors.Is(err, context.Canceled) {
		metrics.RecordErrorByComponent("worker", "ranking_error")
	}
	job.Result <- queue.Result{IDs: ids, Err: err}
}

// Stats is a point-in-time view of the pool.
type Stats struct {
	Workers       int   `json:"workers"`
	QueueLength   int   `json:"queueLength"`
	QueueCapacity int   `json:"queueCapacity"`
	Processed     int64 `json:"processed"`
	Skipped       int64 `json:"skipped"`
	Rejected      int64 `json:"rejected"`
}

// Pool manages multiple workers and bounds how many ranking processes run
// at once. It implements ranking.Ranker so callers can use it in place of
// the underlying ranker.
type Pool struct {
	workers     []*InMemoryWorker
	workerCount int
	queue       queue.Queue
	ranker      ranking.Ranker

	started   atomic.Bool
	processed atomic.Int64
	skipped   atomic.Int64
	rejected  atomic.Int64

	logger logger.Logger
}

var _ ranking.Ranker = (*Pool)(nil)

// NewPool creates a new worker pool feeding r from q.
func NewPool(q queue.Queue, r ranking.Ranker, opts ...PoolOption) *Pool {
	pool := &Pool{
		workerCount: runtime.NumCPU() * defaultWorkerMultiplier,
		queue:       q,
		ranker:      r,
		logger:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(pool)
	}

	pool.workers = make([]*InMemoryWorker, pool.workerCount)
	for i := range pool.workers {
		w := NewInMemoryWorker(q, r,
			WithName("worker-"+strconv.Itoa(i)),
			WithLogger(pool.logger),
		)
		w.processed = &pool.processed
		w.skipped = &pool.skipped
		pool.workers[i] = w
	}

	metrics.UpdateWorkerCount(pool.workerCount)

	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	p.logger.Info(ctx, "worker pool started",
		logger.Int("workers", p.workerCount),
		logger.Int("queue_capacity", p.queue.Cap()),
	)
}

// Rank submits a job and waits for its result or for ctx to end. A full or
// closed queue yields ranking.ErrBusy without running anything.
func (p *Pool) Rank(ctx context.Context, subject string, mode ranking.Mode) (ranking.List, error) {
	result := make(chan queue.Result, 1)
	err := p.queue.Enqueue(ctx, queue.Job{
		Ctx:     ctx,
		Subject: subject,
		Mode:    mode,
		Result:  result,
	})
	switch {
	case err == nil:
	case errors.Is(err, queue.ErrFull), errors.Is(err, queue.ErrClosed):
		p.rejected.Add(1)
		return nil, fmt.Errorf("%w: %w", ranking.ErrBusy, err)
	default:
		return nil, err
	}

	select {
	case r := <-result:
		return r.IDs, r.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Stats returns current pool counters.
func (p *Pool) Stats(ctx context.Context) Stats {
	return Stats{
		Workers:       p.workerCount,
		QueueLength:   p.queue.Len(ctx),
		QueueCapacity: p.queue.Cap(),
		Processed:     p.processed.Load(),
		Skipped:       p.skipped.Load(),
		Rejected:      p.rejected.Load(),
	}
}

// Shutdown closes the queue, lets workers drain what is already queued and
// waits for them to exit or for ctx to end.
func (p *Pool) Shutdown(ctx context.Context) error {
	if err := p.queue.Close(); err != nil {
		p.logger.Error(ctx, "error closing queue", logger.Error(err))
	}
	if !p.started.Load() {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	if timedOut {
		return fmt.Errorf("worker pool shutdown: %w", shutdownCtx.Err())
	}
	return nil
}
