package api

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/okian/cinerec/internal/domain/ranking"
	"github.com/okian/cinerec/internal/domain/types"
)

// validate is shared; validator caches struct metadata per type.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their public parameter name.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("param"); name != "" {
			return name
		}
		return f.Name
	})
	if err := v.RegisterValidation("nocontrol", noControl); err != nil {
		panic(err)
	}
	return v
}

// noControl accepts valid UTF-8 without control characters. Identifiers may
// be any script; they reach the ranking process as a single argv entry.
func noControl(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return utf8.ValidString(s) && strings.IndexFunc(s, unicode.IsControl) < 0
}

// Identifiers are bounded before they reach the store or the ranking
// process command line.
type itemRequest struct {
	ItemID string `param:"itemId" validate:"required,max=256,nocontrol"`
}

type searchRequest struct {
	Query string `param:"q" validate:"required,max=512"`
}

type recommendRequest struct {
	Subject string `param:"subject" validate:"required,max=256,nocontrol"`
	Mode    string `param:"mode" validate:"required,oneof=user item"`
}

// requestError is a rejected request parameter. Message is shown to clients;
// Err keeps the validator detail for the logs.
type requestError struct {
	Message string
	Err     error
}

func (e *requestError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *requestError) Unwrap() error { return e.Err }

// Is matches ErrBadRequest.
func (e *requestError) Is(target error) bool { return target == ErrBadRequest }

// validateRequest runs the struct rules and turns the first failure into a
// fixed client message. aliases renames fields whose public name depends on
// the route.
func validateRequest(req any, aliases map[string]string) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &requestError{Message: "invalid request", Err: err}
	}
	fe := fieldErrs[0]
	name := fe.Field()
	if alias, ok := aliases[name]; ok {
		name = alias
	}
	return &requestError{Message: fieldMessage(fe, name), Err: err}
}

func fieldMessage(fe validator.FieldError, name string) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", name)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", name, fe.Param())
	case "nocontrol":
		return fmt.Sprintf("%s must not contain control characters", name)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", name, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", name)
	}
}

// parsePageRequest reads page and limit from the query string. Missing or
// non-numeric values become zero and are replaced by defaults later.
func parsePageRequest(r *http.Request) types.PageRequest {
	q := r.URL.Query()
	return types.PageRequest{
		Page:  atoiOrZero(q.Get("page")),
		Limit: atoiOrZero(q.Get("limit")),
	}
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

func parseItemRequest(r *http.Request) (itemRequest, error) {
	req := itemRequest{ItemID: strings.TrimSpace(chi.URLParam(r, "itemId"))}
	return req, validateRequest(req, nil)
}

func parseSearchRequest(r *http.Request) (searchRequest, error) {
	req := searchRequest{Query: strings.TrimSpace(r.URL.Query().Get("q"))}
	return req, validateRequest(req, nil)
}

func parseRecommendRequest(r *http.Request, param string, mode ranking.Mode) (recommendRequest, error) {
	req := recommendRequest{
		Subject: strings.TrimSpace(chi.URLParam(r, param)),
		Mode:    mode.String(),
	}
	return req, validateRequest(req, map[string]string{"subject": param})
}
