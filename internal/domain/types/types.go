// Package types contains common read shapes used across the application.
package types

import "github.com/okian/cinerec/internal/domain/model"

// Pagination describes where a page sits in the full catalog.
type Pagination struct {
	CurrentPage int   `json:"currentPage"`
	TotalPages  int64 `json:"totalPages"`
	TotalItems  int64 `json:"totalItems"`
}

// ItemPage is one page of catalog entries.
type ItemPage struct {
	Data       []model.Item `json:"data"`
	Pagination Pagination   `json:"pagination"`
}

// PageRequest is a validated pagination request. Page and Limit are >= 1.
type PageRequest struct {
	Page  int `validate:"min=1"`
	Limit int `validate:"min=1"`
}

// Normalize replaces a page below 1 with 1 and a limit below 1 with
// defaultLimit, then caps the limit at maxLimit when maxLimit is positive.
func (r PageRequest) Normalize(defaultLimit, maxLimit int) PageRequest {
	if r.Page < 1 {
		r.Page = 1
	}
	if r.Limit < 1 {
		r.Limit = defaultLimit
	}
	if maxLimit > 0 && r.Limit > maxLimit {
		r.Limit = maxLimit
	}
	return r
}

// Offset returns the number of entries to skip.
func (r PageRequest) Offset() int {
	return (r.Page - 1) * r.Limit
}

// NewPagination computes page metadata. totalPages is ceil(total/limit)
// and 0 for an empty catalog.
func NewPagination(page, limit int, total int64) Pagination {
	var pages int64
	if limit > 0 && total > 0 {
		pages = (total + int64(limit) - 1) / int64(limit)
	}
	return Pagination{
		CurrentPage: page,
		TotalPages:  pages,
		TotalItems:  total,
	}
}
