package smoke

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/cinerec/pkg/logger"
)

// lookupSample bounds per-check item lookups.
const lookupSample = 5

// state carries what earlier checks learned about the catalog.
type state struct {
	items []Item
	stats *Stats
}

type check struct {
	name string
	run  func(ctx context.Context, c *client, cfg *Config, st *state) error
}

var checks = []check{
	{"liveness", checkLiveness},
	{"pagination", checkPagination},
	{"item lookup", checkItemLookup},
	{"popular", checkPopular},
	{"search", checkSearch},
	{"recommendations", checkRecommendations},
}

func checkLiveness(ctx context.Context, c *client, _ *Config, _ *state) error {
	status, body, err := c.get(ctx, "/")
	if err != nil {
		return err
	}
	if status != http.StatusOK || !strings.Contains(string(body), "alive") {
		return fmt.Errorf("GET /: status %d body %q", status, truncate(body))
	}
	return c.getJSON(ctx, "/healthz", http.StatusOK, nil)
}

// checkPagination walks the catalog and checks page sizes, page counts and
// that no item appears on two pages.
func checkPagination(ctx context.Context, c *client, cfg *Config, st *state) error {
	limit := cfg.PageLimit
	var first Page
	if err := c.getJSON(ctx, fmt.Sprintf("/api/items?page=1&limit=%d", limit), http.StatusOK, &first); err != nil {
		return err
	}
	total := first.Pagination.TotalItems
	wantPages := (total + int64(limit) - 1) / int64(limit)
	if first.Pagination.TotalPages != wantPages {
		return fmt.Errorf("totalPages %d, want ceil(%d/%d)=%d", first.Pagination.TotalPages, total, limit, wantPages)
	}

	seen := make(map[string]int)
	page := first
	for n := 1; ; n++ {
		if page.Pagination.CurrentPage != n {
			return fmt.Errorf("page %d reports currentPage %d", n, page.Pagination.CurrentPage)
		}
		if len(page.Data) > limit {
			return fmt.Errorf("page %d has %d items, limit %d", n, len(page.Data), limit)
		}
		if int64(n) < wantPages && len(page.Data) != limit {
			return fmt.Errorf("page %d of %d has %d items, want %d", n, wantPages, len(page.Data), limit)
		}
		for _, it := range page.Data {
			if prev, dup := seen[it.ItemID]; dup {
				return fmt.Errorf("item %s on pages %d and %d", it.ItemID, prev, n)
			}
			seen[it.ItemID] = n
			st.items = append(st.items, it)
		}
		if int64(n) >= wantPages || n >= cfg.MaxPages {
			break
		}
		page = Page{}
		if err := c.getJSON(ctx, fmt.Sprintf("/api/items?page=%d&limit=%d", n+1, limit), http.StatusOK, &page); err != nil {
			return err
		}
	}

	var past Page
	if err := c.getJSON(ctx, fmt.Sprintf("/api/items?page=%d&limit=%d", wantPages+1, limit), http.StatusOK, &past); err != nil {
		return err
	}
	if len(past.Data) != 0 {
		return fmt.Errorf("page past the end returned %d items", len(past.Data))
	}
	return nil
}

func checkItemLookup(ctx context.Context, c *client, _ *Config, st *state) error {
	for _, want := range sample(st.items) {
		var got Item
		if err := c.getJSON(ctx, "/api/item/"+escape(want.ItemID), http.StatusOK, &got); err != nil {
			return err
		}
		if got.ItemID != want.ItemID {
			return fmt.Errorf("GET /api/item/%s returned %s", want.ItemID, got.ItemID)
		}
	}

	var body ErrorBody
	if err := c.getJSON(ctx, "/api/item/smoke-"+uuid.NewString(), http.StatusNotFound, &body); err != nil {
		return err
	}
	if body.Error == "" {
		return errors.New("404 without an error message")
	}
	return nil
}

// checkPopular requires non-increasing counts and that every row names a
// catalog item.
func checkPopular(ctx context.Context, c *client, _ *Config, _ *state) error {
	var rows []PopularItem
	if err := c.getJSON(ctx, "/api/items/popular", http.StatusOK, &rows); err != nil {
		return err
	}
	for i := 1; i < len(rows); i++ {
		if rows[i].RatingCount > rows[i-1].RatingCount {
			return fmt.Errorf("popular row %d count %d above row %d count %d", i, rows[i].RatingCount, i-1, rows[i-1].RatingCount)
		}
	}
	for _, r := range rows {
		if err := c.getJSON(ctx, "/api/item/"+escape(r.ItemID), http.StatusOK, nil); err != nil {
			return fmt.Errorf("popular item not in catalog: %w", err)
		}
	}
	return nil
}

// checkSearch requires 400 without a query and, for a word taken from the
// catalog, hits that all carry artwork in non-increasing score order.
func checkSearch(ctx context.Context, c *client, _ *Config, st *state) error {
	var body ErrorBody
	if err := c.getJSON(ctx, "/api/search?q=", http.StatusBadRequest, &body); err != nil {
		return err
	}

	word := searchWord(st.items)
	if word == "" {
		return nil
	}
	var hits []SearchHit
	if err := c.getJSON(ctx, "/api/search?q="+escape(word), http.StatusOK, &hits); err != nil {
		return err
	}
	for i, h := range hits {
		if h.ImageURL == "" {
			return fmt.Errorf("search hit %s has no imageUrl", h.ItemID)
		}
		if i > 0 && h.Score > hits[i-1].Score {
			return fmt.Errorf("search hit %d score %.3f above previous %.3f", i, h.Score, hits[i-1].Score)
		}
	}
	return nil
}

// checkRecommendations requests user and item recommendations concurrently.
// Each answer must be a list of distinct catalog items or an error envelope.
func checkRecommendations(ctx context.Context, c *client, cfg *Config, st *state) error {
	paths := make([]string, 0, len(cfg.Users)+lookupSample)
	for _, u := range cfg.Users {
		paths = append(paths, "/api/recommendations/"+escape(u))
	}
	for _, it := range sample(st.items) {
		paths = append(paths, "/api/recommendations/item/"+escape(it.ItemID))
	}

	var served, busy atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.Workers, 1))
	for _, p := range paths {
		g.Go(func() error {
			status, body, err := c.get(gctx, p)
			if err != nil {
				return err
			}
			if cfg.Verbose {
				logger.Get().Debug(gctx, "recommendation response", logger.String("path", p), logger.Int("status", status))
			}
			switch {
			case status == http.StatusOK:
				served.Add(1)
				return verifyRecommendation(gctx, c, p, body)
			case status == http.StatusServiceUnavailable && cfg.AllowBusy:
				busy.Add(1)
				return nil
			default:
				var eb ErrorBody
				_ = json.Unmarshal(body, &eb)
				return fmt.Errorf("GET %s: status %d code %q: %s %s", p, status, eb.Code, eb.Error, eb.Details)
			}
		})
	}
	err := g.Wait()
	st.stats.Recommendations += served.Load()
	st.stats.Busy += busy.Load()
	return err
}

func verifyRecommendation(ctx context.Context, c *client, path string, body []byte) error {
	var items []Item
	if err := json.Unmarshal(body, &items); err != nil {
		return fmt.Errorf("GET %s: decode: %w", path, err)
	}
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if _, dup := seen[it.ItemID]; dup {
			return fmt.Errorf("GET %s: item %s repeated", path, it.ItemID)
		}
		seen[it.ItemID] = struct{}{}
	}
	for _, it := range sample(items) {
		if err := c.getJSON(ctx, "/api/item/"+escape(it.ItemID), http.StatusOK, nil); err != nil {
			return fmt.Errorf("GET %s: recommended item not in catalog: %w", path, err)
		}
	}
	return nil
}

func sample(items []Item) []Item {
	if len(items) > lookupSample {
		return items[:lookupSample]
	}
	return items
}

// searchWord picks the longest title word of an item that has artwork.
func searchWord(items []Item) string {
	best := ""
	for _, it := range items {
		if it.ImageURL == "" {
			continue
		}
		for _, w := range strings.Fields(it.Title) {
			w = strings.Trim(w, ".,:;!?'\"()")
			if len(w) > len(best) {
				best = w
			}
		}
		if best != "" {
			return best
		}
	}
	return best
}
