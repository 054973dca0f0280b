package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/cinerec/internal/adapters/repository"
	service "github.com/okian/cinerec/internal/app"
	"github.com/okian/cinerec/internal/domain/ranking"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest  = errors.New("bad request")
	ErrRateLimited = errors.New("too many requests")
)

// Error codes returned in the "code" field.
const (
	codeBadRequest    = "bad_request"
	codeNotFound      = "not_found"
	codeBusy          = "busy"
	codeRateLimited   = "rate_limited"
	codeProcessFailed = "ranking_process_failed"
	codeDecodeFailed  = "ranking_output_invalid"
	codeCancelled     = "cancelled"
	codeInternal      = "internal_error"
)

// maxDetails bounds the diagnostic text copied into a response.
const maxDetails = 2048

// classify maps an error to a status code and the body shown to clients.
func classify(err error) (int, errorResponse) {
	var (
		pe *ranking.ProcessError
		re *requestError
	)
	switch {
	case errors.As(err, &re):
		return http.StatusBadRequest, errorResponse{Error: re.Message, Code: codeBadRequest}
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, ranking.ErrInvalidSubject),
		errors.Is(err, ranking.ErrInvalidMode):
		return http.StatusBadRequest, errorResponse{Error: err.Error(), Code: codeBadRequest}
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, errorResponse{Error: "Item not found", Code: codeNotFound}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorResponse{Error: "Too many requests", Code: codeRateLimited}
	case errors.Is(err, ranking.ErrBusy), errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, errorResponse{Error: "Recommendation capacity exhausted, retry later", Code: codeBusy}
	case errors.Is(err, repository.ErrStore):
		return http.StatusInternalServerError, errorResponse{Error: "Internal server error", Code: codeInternal}
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, errorResponse{Error: "Request cancelled", Code: codeCancelled}
	// A deadline that interrupts a running process is a process failure.
	case errors.As(err, &pe):
		details := strings.TrimSpace(pe.Stderr)
		if details == "" && pe.Err != nil {
			details = pe.Err.Error()
		}
		return http.StatusInternalServerError, errorResponse{
			Error:   "Error running recommendation script",
			Code:    codeProcessFailed,
			Details: truncate(details, maxDetails),
		}
	case errors.Is(err, ranking.ErrDecode):
		return http.StatusInternalServerError, errorResponse{Error: "Error parsing script output", Code: codeDecodeFailed}
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, errorResponse{Error: "Request cancelled", Code: codeCancelled}
	default:
		return http.StatusInternalServerError, errorResponse{Error: "Internal server error", Code: codeInternal}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
