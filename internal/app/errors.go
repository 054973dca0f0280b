package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrNotStarted    = errors.New("service not started")
	ErrMissingStore  = errors.New("catalog store is required")
	ErrMissingRanker = errors.New("ranker is required")
)
