package transport

import (
	"net/http"
	"strconv"
	"time"

	"price-catalog/internal/clock"
	"price-catalog/internal/domain"
	"price-catalog/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Middleware wraps a handler
type Middleware = func(http.Handler) http.Handler

// pathID parses a uuid URL parameter
func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, domain.NewValidationError(name, "must be a UUID")
	}
	return id, nil
}

// queryID parses a required uuid query parameter
func queryID(r *http.Request, name string) (uuid.UUID, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return uuid.Nil, domain.NewValidationError(name, "is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, domain.NewValidationError(name, "must be a UUID")
	}
	return id, nil
}

// queryDate parses a required YYYY-MM-DD query parameter in loc
func queryDate(r *http.Request, name string, loc *time.Location) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, domain.NewValidationError(name, "is required")
	}
	d, err := clock.ParseDate(raw, loc)
	if err != nil {
		return time.Time{}, domain.NewValidationError(name, "must be a date formatted as YYYY-MM-DD")
	}
	return d, nil
}

// queryInt parses an optional integer query parameter, zero when absent
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.NewValidationError(name, "must be an integer")
	}
	return n, nil
}

// actorFrom returns the authenticated caller, answering 401 when there is none
func actorFrom(w http.ResponseWriter, r *http.Request) (domain.Actor, bool) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
	}
	return actor, ok
}
