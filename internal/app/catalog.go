package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/cinerec/internal/domain/model"
	"github.com/okian/cinerec/internal/domain/types"
	"github.com/okian/cinerec/pkg/logger"
)

// Items returns one page of the catalog. Out-of-range page or limit values
// fall back to defaults instead of failing.
func (s *Service) Items(ctx context.Context, req types.PageRequest) (types.ItemPage, error) {
	req = req.Normalize(s.defaultPageLimit, s.maxPageLimit)

	items, total, err := s.store.FindPage(ctx, req.Offset(), req.Limit)
	if err != nil {
		return types.ItemPage{}, fmt.Errorf("find items page %d: %w", req.Page, err)
	}
	if items == nil {
		items = []model.Item{}
	}
	return types.ItemPage{
		Data:       items,
		Pagination: types.NewPagination(req.Page, req.Limit, total),
	}, nil
}

// Item returns a single catalog entry.
func (s *Service) Item(ctx context.Context, itemID string) (model.Item, error) {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return model.Item{}, fmt.Errorf("%w: item id is required", ErrInvalidInput)
	}
	it, err := s.store.FindByID(ctx, itemID)
	if err != nil {
		return model.Item{}, fmt.Errorf("find item %s: %w", itemID, err)
	}
	return it, nil
}

// Popular returns the most rated items, highest count first.
func (s *Service) Popular(ctx context.Context) ([]model.PopularItem, error) {
	rows, err := s.store.Popular(ctx, s.popularLimit)
	if err != nil {
		return nil, fmt.Errorf("popular items: %w", err)
	}
	if rows == nil {
		rows = []model.PopularItem{}
	}
	return rows, nil
}

// Search returns items with artwork whose title matches query, most
// relevant first.
func (s *Service) Search(ctx context.Context, query string) ([]model.SearchHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: search query is required", ErrInvalidInput)
	}
	hits, err := s.store.Search(ctx, query, s.searchLimit)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	if hits == nil {
		hits = []model.SearchHit{}
	}
	s.logger.Debug(ctx, "search served", logger.String("query", query), logger.Int("hits", len(hits)))
	return hits, nil
}
