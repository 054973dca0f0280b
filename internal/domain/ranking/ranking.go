// Package ranking defines the contract of the out-of-process ranking
// computation and the order-restoring merge of its output with catalog data.
package ranking

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/cinerec/internal/domain/model"
)

// Mode selects what the subject identifier refers to.
type Mode string

// Supported ranking modes.
const (
	ModeUser Mode = "user" // subject is a userId; personal recommendations
	ModeItem Mode = "item" // subject is an itemId; related items
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeUser || m == ModeItem
}

// String implements fmt.Stringer.
func (m Mode) String() string { return string(m) }

// ParseMode converts a string into a Mode.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
	return m, nil
}

// List is an ordered sequence of item identifiers, most relevant first.
type List []string

// Ranker produces a ranked identifier list for a subject.
//
// Implementations return *ProcessError when the computation could not run
// or exited abnormally and *DecodeError when its output is malformed. An
// empty list is a valid result.
type Ranker interface {
	Rank(ctx context.Context, subject string, mode Mode) (List, error)
}

// RankerFunc adapts a function to the Ranker interface.
type RankerFunc func(ctx context.Context, subject string, mode Mode) (List, error)

// Rank calls f.
func (f RankerFunc) Rank(ctx context.Context, subject string, mode Mode) (List, error) {
	return f(ctx, subject, mode)
}

// Unique returns ids without duplicates, keeping first occurrences.
func Unique(ids List) List {
	seen := make(map[string]struct{}, len(ids))
	out := make(List, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Reorder arranges items, which may arrive in any order, in the order of ids.
// Identifiers without a matching item are skipped and each item is emitted
// at most once, at the position of its first identifier. The second return
// value is the number of identifiers that did not resolve.
func Reorder(ids List, items []model.Item) ([]model.Item, int) {
	byID := make(map[string]model.Item, len(items))
	for _, it := range items {
		byID[it.ItemID] = it
	}

	out := make([]model.Item, 0, len(byID))
	emitted := make(map[string]struct{}, len(byID))
	dropped := 0
	for _, id := range ids {
		it, ok := byID[id]
		if !ok {
			dropped++
			continue
		}
		if _, dup := emitted[id]; dup {
			continue
		}
		emitted[id] = struct{}{}
		out = append(out, it)
	}
	return out, dropped
}
