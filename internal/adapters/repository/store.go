// Package repository defines the catalog store contract and its
// implementations (MongoDB and in-memory).
package repository

import (
	"context"
	"time"

	"github.com/okian/cinerec/internal/domain/model"
	"github.com/okian/cinerec/pkg/metrics"
)

// Store provides read access to the catalog (items) and to user
// interactions. All operations are read-only.
type Store interface {
	// FindPage returns up to limit items after skipping offset items, plus
	// the total number of items in the catalog.
	FindPage(ctx context.Context, offset, limit int) ([]model.Item, int64, error)

	// FindByID returns the item with the given id or ErrNotFound.
	FindByID(ctx context.Context, itemID string) (model.Item, error)

	// FindByIDs returns the items whose ids are in ids, in no particular
	// order. Unknown ids are ignored. An empty input yields an empty result.
	FindByIDs(ctx context.Context, ids []string) ([]model.Item, error)

	// Search returns items with artwork whose text matches query, most
	// relevant first, at most limit of them.
	Search(ctx context.Context, query string, limit int) ([]model.SearchHit, error)

	// Popular returns the most rated items, highest count first. Items
	// missing from the catalog are dropped after the limit is applied.
	Popular(ctx context.Context, limit int) ([]model.PopularItem, error)

	// Ping checks that the backing store is reachable.
	Ping(ctx context.Context) error

	// Close releases the store's resources.
	Close(ctx context.Context) error
}

// Store operation names used for metrics and error messages.
const (
	opFindPage  = "find_page"
	opFindByID  = "find_by_id"
	opFindByIDs = "find_by_ids"
	opSearch    = "search"
	opPopular   = "popular"
	opPing      = "ping"
)

// observe records latency for op and counts it as failed when err is a
// store failure.
func observe(op string, start time.Time, err *error) {
	metrics.RecordStoreQuery(op, float64(time.Since(start).Microseconds())/1000)
	if *err != nil && !isNotFound(*err) {
		metrics.RecordStoreError(op)
	}
}
