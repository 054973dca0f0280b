package repository

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/goccy/go-json"

	"github.com/okian/cinerec/internal/domain/model"
	"github.com/okian/cinerec/internal/domain/popularity"
	"github.com/okian/cinerec/pkg/logger"
	"github.com/okian/cinerec/pkg/metrics"
)

// Seed is the on-disk format accepted by LoadMemoryStore.
type Seed struct {
	Items        []model.Item        `json:"items"`
	Interactions []model.Interaction `json:"interactions"`
}

// MemoryStore is an in-process Store backed by a fixed snapshot of items and
// interactions. It is used for local development and tests.
type MemoryStore struct {
	mu           sync.RWMutex
	items        []model.Item
	byID         map[string]int
	terms        [][]string
	interactions []model.Interaction
	closed       bool
	logger       logger.Logger
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithMemoryLogger sets the logger used for diagnostics.
func WithMemoryLogger(l logger.Logger) MemoryOption {
	return func(s *MemoryStore) {
		if l != nil {
			s.logger = l
		}
	}
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore builds a store from items and interactions. Items keep the
// given order, which is the catalog order used by FindPage.
func NewMemoryStore(items []model.Item, interactions []model.Interaction, opts ...MemoryOption) (*MemoryStore, error) {
	s := &MemoryStore{
		logger:       logger.Nop(),
		items:        make([]model.Item, 0, len(items)),
		byID:         make(map[string]int, len(items)),
		terms:        make([][]string, 0, len(items)),
		interactions: append([]model.Interaction(nil), interactions...),
	}
	for _, it := range items {
		if it.ItemID == "" {
			return nil, fmt.Errorf("%w: item without itemId", ErrInvalidSeed)
		}
		if _, dup := s.byID[it.ItemID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateItem, it.ItemID)
		}
		s.byID[it.ItemID] = len(s.items)
		s.items = append(s.items, it)
		s.terms = append(s.terms, tokenize(it.Title))
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// LoadMemoryStore reads a JSON seed file of the form
// {"items":[...],"interactions":[...]}.
func LoadMemoryStore(path string, opts ...MemoryOption) (*MemoryStore, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var seed Seed
	if err := json.Unmarshal(raw, &seed); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSeed, err)
	}
	return NewMemoryStore(seed.Items, seed.Interactions, opts...)
}

func (s *MemoryStore) FindPage(_ context.Context, offset, limit int) (out []model.Item, total int64, err error) {
	defer observe(opFindPage, time.Now(), &err)
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, 0, ErrClosed
	}

	total = int64(len(s.items))
	out = make([]model.Item, 0)
	if offset < 0 || limit <= 0 || offset >= len(s.items) {
		return out, total, nil
	}
	end := offset + limit
	if end > len(s.items) {
		end = len(s.items)
	}
	return append(out, s.items[offset:end]...), total, nil
}

func (s *MemoryStore) FindByID(_ context.Context, itemID string) (it model.Item, err error) {
	defer observe(opFindByID, time.Now(), &err)
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return model.Item{}, ErrClosed
	}

	i, ok := s.byID[itemID]
	if !ok {
		return model.Item{}, ErrNotFound
	}
	return s.items[i], nil
}

func (s *MemoryStore) FindByIDs(_ context.Context, ids []string) (out []model.Item, err error) {
	defer observe(opFindByIDs, time.Now(), &err)
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	out = make([]model.Item, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if i, ok := s.byID[id]; ok {
			out = append(out, s.items[i])
		}
	}
	return out, nil
}

// Search scores each item with artwork by the number of distinct query terms
// found in its title. Items with equal score keep catalog order.
func (s *MemoryStore) Search(_ context.Context, query string, limit int) (out []model.SearchHit, err error) {
	defer observe(opSearch, time.Now(), &err)
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	out = make([]model.SearchHit, 0)
	want := tokenize(query)
	if len(want) == 0 || limit <= 0 {
		return out, nil
	}

	for i, it := range s.items {
		if !it.HasImage() {
			continue
		}
		score := matchCount(s.terms[i], want)
		if score == 0 {
			continue
		}
		out = append(out, model.SearchHit{Item: it, Score: float64(score)})
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Score > out[b].Score })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) Popular(ctx context.Context, limit int) (out []model.PopularItem, err error) {
	defer observe(opPopular, time.Now(), &err)
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	rows, dropped := popularity.Rank(s.interactions, popularity.CatalogFunc(s.lookup), limit)
	if dropped > 0 {
		metrics.RecordPopularDroppedRows(dropped)
		s.logger.Debug(ctx, "popular rows without catalog entry dropped", logger.Int("dropped", dropped))
	}
	return rows, nil
}

// lookup must be called with s.mu held.
func (s *MemoryStore) lookup(itemID string) (model.Item, bool) {
	i, ok := s.byID[itemID]
	if !ok {
		return model.Item{}, false
	}
	return s.items[i], true
}

func (s *MemoryStore) Ping(_ context.Context) (err error) {
	defer observe(opPing, time.Now(), &err)
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

func (s *MemoryStore) Close(_ context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// tokenize lowercases text and splits it into distinct letter/digit runs.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]struct{}, len(fields))
	out := fields[:0]
	for _, f := range fields {
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

func matchCount(have, want []string) int {
	n := 0
	for _, w := range want {
		for _, h := range have {
			if h == w {
				n++
				break
			}
		}
	}
	return n
}
