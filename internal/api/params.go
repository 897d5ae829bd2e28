package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/peopledb/internal/db"
)

// parseLimit parses the "limit" query parameter, capped at MaxPageLimit.
// Returns DefaultPageLimit if missing or invalid.
func parseLimit(r *http.Request) int {
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			return min(parsed, MaxPageLimit)
		}
	}
	return DefaultPageLimit
}

// parseOffset parses the "offset" query parameter.
// Returns 0 if the parameter is missing or invalid.
func parseOffset(r *http.Request) int {
	if o := r.URL.Query().Get("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			return parsed
		}
	}
	return 0
}

// parseBool parses an optional boolean query parameter.
func parseBool(r *http.Request, name string) (*bool, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %q", name, v)
	}
	return &b, nil
}

// parseOrder reads the "order" and "desc" query parameters.
func parseOrder(r *http.Request) (db.Order, error) {
	desc, err := parseBool(r, "desc")
	if err != nil {
		return db.Order{}, err
	}
	order := db.Order{Field: r.URL.Query().Get("order")}
	if desc != nil {
		order.Desc = *desc
	}
	return order, nil
}

func pathID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id: %q", raw)
	}
	return id, nil
}

// writeStoreError maps store sentinels onto HTTP status codes.
func writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, db.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, db.ErrInvalidOrder):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, db.ErrMultipleMatches):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("Store operation failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
