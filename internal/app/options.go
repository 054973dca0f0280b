package service

import (
	"github.com/okian/cinerec/internal/adapters/repository"
	"github.com/okian/cinerec/internal/domain/ranking"
	"github.com/okian/cinerec/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the catalog store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithRanker sets the ranker that produces recommendation lists.
func WithRanker(r ranking.Ranker) Option {
	return func(s *Service) {
		s.ranker = r
	}
}

// WithWorkerCount sets the number of concurrent ranking jobs.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets how many ranking jobs may wait for a worker.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithPageLimits sets the default and maximum page size for Items.
func WithPageLimits(defaultLimit, maxLimit int) Option {
	return func(s *Service) {
		if defaultLimit > 0 {
			s.defaultPageLimit = defaultLimit
		}
		if maxLimit > 0 {
			s.maxPageLimit = maxLimit
		}
	}
}

// WithPopularLimit sets how many groups the popularity rollup keeps.
func WithPopularLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.popularLimit = n
		}
	}
}

// WithSearchLimit caps the number of search hits.
func WithSearchLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.searchLimit = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
