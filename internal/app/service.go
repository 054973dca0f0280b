// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"runtime"
	"sync"

	"github.com/okian/cinerec/internal/adapters/mq/queue"
	"github.com/okian/cinerec/internal/adapters/mq/worker"
	"github.com/okian/cinerec/internal/adapters/repository"
	"github.com/okian/cinerec/internal/domain/popularity"
	"github.com/okian/cinerec/internal/domain/ranking"
	"github.com/okian/cinerec/pkg/logger"
)

// Default service configuration constants.
const (
	defaultQueueSize        = 256
	defaultPageLimit        = 20
	defaultMaxPageLimit     = 100
	defaultSearchLimit      = 20
	defaultWorkerMultiplier = 2
)

// Service answers catalog queries from the store and recommendation
// requests by running the ranker through a bounded worker pool.
type Service struct {
	mu sync.RWMutex

	// Core components
	store  repository.Store
	ranker ranking.Ranker
	queue  queue.Queue
	pool   *worker.Pool

	// Configuration
	workerCount      int
	queueSize        int
	defaultPageLimit int
	maxPageLimit     int
	popularLimit     int
	searchLimit      int

	// State
	started bool

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:      runtime.NumCPU() * defaultWorkerMultiplier,
		queueSize:        defaultQueueSize,
		defaultPageLimit: defaultPageLimit,
		maxPageLimit:     defaultMaxPageLimit,
		popularLimit:     popularity.DefaultLimit,
		searchLimit:      defaultSearchLimit,
		logger:           logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.defaultPageLimit > s.maxPageLimit {
		s.defaultPageLimit = s.maxPageLimit
	}
	return s
}

// Start builds the ranking queue and worker pool. Workers outlive ctx and
// run until Stop.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.store == nil {
		return ErrMissingStore
	}
	if s.ranker == nil {
		return ErrMissingRanker
	}

	s.logger.Info(ctx, "starting recommendation service...")

	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.queue, s.ranker,
		worker.WithWorkerCount(s.workerCount),
		worker.WithPoolLogger(s.logger.Named("ranking")),
	)
	s.pool.Start(context.WithoutCancel(ctx))

	s.started = true
	s.logger.Info(ctx, "recommendation service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("defaultPageLimit", s.defaultPageLimit),
		logger.Int("maxPageLimit", s.maxPageLimit),
	)
	return nil
}

// Stop drains queued ranking jobs and stops the workers. The store is owned
// by the caller and is not closed.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping recommendation service...")

	err := s.pool.Shutdown(ctx)
	s.started = false
	if err != nil {
		s.logger.Warn(ctx, "worker pool did not stop cleanly", logger.Error(err))
		return err
	}
	s.logger.Info(ctx, "recommendation service stopped")
	return nil
}

// Ping reports whether the catalog store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	if s.store == nil {
		return ErrMissingStore
	}
	return s.store.Ping(ctx)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":          s.started,
		"workerCount":      s.workerCount,
		"queueSize":        s.queueSize,
		"defaultPageLimit": s.defaultPageLimit,
		"maxPageLimit":     s.maxPageLimit,
		"popularLimit":     s.popularLimit,
		"searchLimit":      s.searchLimit,
	}

	if s.started {
		ps := s.pool.Stats(ctx)
		stats["queueLength"] = ps.QueueLength
		stats["rankingProcessed"] = ps.Processed
		stats["rankingSkipped"] = ps.Skipped
		stats["rankingRejected"] = ps.Rejected
	}

	return stats
}

// rankerPool returns the pool if the service is running.
func (s *Service) rankerPool() (*worker.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.pool, nil
}
