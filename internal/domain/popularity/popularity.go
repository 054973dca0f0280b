// Package popularity computes the "most rated" rollup used as the
// cold-start fallback: it needs no user identity, only interactions.
package popularity

import (
	"sort"

	"github.com/okian/cinerec/internal/domain/model"
)

// DefaultLimit is the number of groups kept before the catalog join.
const DefaultLimit = 10

// Catalog resolves an item id to its catalog entry.
type Catalog interface {
	Lookup(itemID string) (model.Item, bool)
}

// CatalogFunc adapts a function to Catalog.
type CatalogFunc func(itemID string) (model.Item, bool)

// Lookup calls f.
func (f CatalogFunc) Lookup(itemID string) (model.Item, bool) { return f(itemID) }

type group struct {
	itemID string
	count  int64
}

// Rank groups interactions by item, sorts groups by count descending,
// keeps the first limit groups and joins them against the catalog. Groups
// whose item is not in the catalog are dropped after the limit is applied,
// so fewer than limit rows may be returned. Equal counts keep the order in
// which the item first appeared in interactions.
//
// Joining after the limit keeps the work bounded by limit lookups, but a
// top list made only of deleted items comes back empty even when other
// cataloged items have interactions. Callers see that through the dropped
// count, which is the second return value.
func Rank(interactions []model.Interaction, catalog Catalog, limit int) ([]model.PopularItem, int) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	index := make(map[string]int)
	groups := make([]group, 0)
	for _, in := range interactions {
		i, ok := index[in.ItemID]
		if !ok {
			i = len(groups)
			index[in.ItemID] = i
			groups = append(groups, group{itemID: in.ItemID})
		}
		groups[i].count++
	}

	sort.SliceStable(groups, func(a, b int) bool {
		return groups[a].count > groups[b].count
	})
	if len(groups) > limit {
		groups = groups[:limit]
	}

	out := make([]model.PopularItem, 0, len(groups))
	dropped := 0
	for _, g := range groups {
		it, ok := catalog.Lookup(g.itemID)
		if !ok {
			dropped++
			continue
		}
		out = append(out, model.PopularItem{
			ItemID:      g.itemID,
			Title:       it.Title,
			RatingCount: g.count,
			ImageURL:    it.ImageURL,
		})
	}
	return out, dropped
}
