package api

import (
	"context"
	"net/http"

	"github.com/okian/cinerec/internal/domain/model"
	"github.com/okian/cinerec/internal/domain/ranking"
	"github.com/okian/cinerec/pkg/logger"
)

// RecommendDependencies defines the recommendation operation.
type RecommendDependencies interface {
	Recommend(ctx context.Context, subject string, mode ranking.Mode) ([]model.Item, error)
}

// RecommendHandler handles recommendation requests.
type RecommendHandler struct {
	deps   RecommendDependencies
	logger logger.Logger
}

// NewRecommendHandler creates a new recommendation handler.
func NewRecommendHandler(deps RecommendDependencies, l logger.Logger) *RecommendHandler {
	return &RecommendHandler{deps: deps, logger: l}
}

// HandleUserBased handles GET /api/recommendations/{userId} requests.
func (h *RecommendHandler) HandleUserBased(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "userId", ranking.ModeUser)
}

// HandleItemBased handles GET /api/recommendations/item/{itemId} requests.
func (h *RecommendHandler) HandleItemBased(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "itemId", ranking.ModeItem)
}

func (h *RecommendHandler) serve(w http.ResponseWriter, r *http.Request, param string, mode ranking.Mode) {
	req, err := parseRecommendRequest(r, param, mode)
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}
	items, err := h.deps.Recommend(r.Context(), req.Subject, mode)
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}
	h.logger.Debug(r.Context(), "recommendations served",
		logger.String("mode", mode.String()),
		logger.String("subject", req.Subject),
		logger.Int("count", len(items)),
	)
	writeJSON(w, http.StatusOK, items)
}
