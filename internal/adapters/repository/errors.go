package repository

import "errors"

// Sentinel kinds for catalog store errors.
var (
	ErrNotFound      = errors.New("item not found")
	ErrStore         = errors.New("catalog store failure")
	ErrClosed        = errors.New("catalog store closed")
	ErrDuplicateItem = errors.New("duplicate item id")
	ErrInvalidSeed   = errors.New("invalid seed data")
)

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
