package api

import (
	"context"
	"net/http"

	"github.com/okian/cinerec/internal/domain/model"
	"github.com/okian/cinerec/internal/domain/types"
	"github.com/okian/cinerec/pkg/logger"
)

// CatalogDependencies defines the catalog read operations.
type CatalogDependencies interface {
	Items(ctx context.Context, req types.PageRequest) (types.ItemPage, error)
	Item(ctx context.Context, itemID string) (model.Item, error)
	Popular(ctx context.Context) ([]model.PopularItem, error)
	Search(ctx context.Context, query string) ([]model.SearchHit, error)
}

// CatalogHandler handles catalog requests.
type CatalogHandler struct {
	deps   CatalogDependencies
	logger logger.Logger
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(deps CatalogDependencies, l logger.Logger) *CatalogHandler {
	return &CatalogHandler{deps: deps, logger: l}
}

// HandleItems handles GET /api/items?page=&limit= requests.
func (h *CatalogHandler) HandleItems(w http.ResponseWriter, r *http.Request) {
	page, err := h.deps.Items(r.Context(), parsePageRequest(r))
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// HandlePopular handles GET /api/items/popular requests.
func (h *CatalogHandler) HandlePopular(w http.ResponseWriter, r *http.Request) {
	rows, err := h.deps.Popular(r.Context())
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// HandleItem handles GET /api/item/{itemId} requests.
func (h *CatalogHandler) HandleItem(w http.ResponseWriter, r *http.Request) {
	req, err := parseItemRequest(r)
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}
	it, err := h.deps.Item(r.Context(), req.ItemID)
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

// HandleSearch handles GET /api/search?q= requests.
func (h *CatalogHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	req, err := parseSearchRequest(r)
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}
	hits, err := h.deps.Search(r.Context(), req.Query)
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, hits)
}
