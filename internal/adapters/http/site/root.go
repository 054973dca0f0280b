// Package site serves the plain-text landing route.
package site

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// AliveMessage is the body of GET /.
const AliveMessage = "Backend server is alive!"

// Register attaches the landing route to r.
func Register(_ context.Context, r chi.Router) {
	if r == nil {
		panic("router is nil")
	}
	r.Get("/", NewRootHandler().HandleRoot)
}

// RootHandler handles root path requests.
type RootHandler struct{}

// NewRootHandler creates a new root handler.
func NewRootHandler() *RootHandler {
	return &RootHandler{}
}

// HandleRoot handles GET / requests.
func (h *RootHandler) HandleRoot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(AliveMessage))
}
