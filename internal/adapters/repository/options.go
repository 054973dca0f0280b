package repository

import (
	"time"

	"github.com/okian/cinerec/pkg/logger"
)

// Default MongoDB configuration constants.
const (
	defaultDatabase               = "recommender"
	defaultItemsCollection        = "items"
	defaultInteractionsCollection = "interactions"
	defaultOperationTimeout       = 5 * time.Second
)

// Option applies a configuration option to the MongoStore.
type Option func(*MongoStore)

// WithDatabase sets the database holding the catalog collections.
func WithDatabase(name string) Option {
	return func(s *MongoStore) {
		if name != "" {
			s.database = name
		}
	}
}

// WithCollections overrides the items and interactions collection names.
func WithCollections(items, interactions string) Option {
	return func(s *MongoStore) {
		if items != "" {
			s.itemsName = items
		}
		if interactions != "" {
			s.interactionsName = interactions
		}
	}
}

// WithOperationTimeout bounds every store call.
func WithOperationTimeout(d time.Duration) Option {
	return func(s *MongoStore) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLogger sets a custom logger for the store.
func WithLogger(l logger.Logger) Option {
	return func(s *MongoStore) {
		if l != nil {
			s.logger = l
		}
	}
}
