package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/okian/cinerec/internal/domain/model"
	"github.com/okian/cinerec/internal/domain/ranking"
	"github.com/okian/cinerec/pkg/logger"
	"github.com/okian/cinerec/pkg/metrics"
)

// Recommend asks the ranker for an ordered id list for subject, resolves the
// ids against the catalog and returns the items in ranked order. Ids with no
// catalog entry are skipped; an empty ranking yields an empty list.
//
// Ranker failures are returned unchanged and no catalog lookup is made.
func (s *Service) Recommend(ctx context.Context, subject string, mode ranking.Mode) ([]model.Item, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, ranking.ErrInvalidSubject)
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, ranking.ErrInvalidMode)
	}

	pool, err := s.rankerPool()
	if err != nil {
		return nil, err
	}

	ids, err := pool.Rank(ctx, subject, mode)
	if err != nil {
		if errors.Is(err, ranking.ErrInvalidSubject) || errors.Is(err, ranking.ErrInvalidMode) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		return nil, err
	}
	if len(ids) == 0 {
		metrics.RecordRecommendationServed(mode.String(), 0)
		return []model.Item{}, nil
	}

	items, err := s.store.FindByIDs(ctx, ranking.Unique(ids))
	if err != nil {
		return nil, fmt.Errorf("resolve %d ranked ids: %w", len(ids), err)
	}

	out, dropped := ranking.Reorder(ids, items)
	if dropped > 0 {
		metrics.RecordDroppedIdentifiers(mode.String(), dropped)
		s.logger.Debug(ctx, "ranked ids without catalog entry dropped",
			logger.String("mode", mode.String()),
			logger.String("subject", subject),
			logger.Int("dropped", dropped),
		)
	}
	metrics.RecordRecommendationServed(mode.String(), len(out))
	return out, nil
}
