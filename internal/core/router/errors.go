package router

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mohammed-shakir/digipin/internal/registry"
	"github.com/mohammed-shakir/digipin/pkg/digipin"
)

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// classify maps an error to its HTTP status and kind label.
func classify(err error) (int, string) {
	if k := digipin.ErrorKind(err); k != "" {
		return http.StatusBadRequest, k
	}
	var br badRequest
	var mbe *http.MaxBytesError
	switch {
	case errors.As(err, &mbe):
		return http.StatusRequestEntityTooLarge, "too_large"
	case errors.As(err, &br):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, registry.ErrInvalidID):
		return http.StatusBadRequest, "invalid_id"
	case errors.Is(err, registry.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, registry.ErrStale):
		return http.StatusConflict, "stale"
	default:
		return http.StatusBadGateway, "store"
	}
}

func writeError(l *slog.Logger, w http.ResponseWriter, r *http.Request, err error) {
	status, kind := classify(err)
	if status >= http.StatusInternalServerError {
		l.ErrorContext(r.Context(), "request failed", "err", err, "kind", kind)
	} else {
		l.DebugContext(r.Context(), "request rejected", "err", err, "kind", kind)
	}
	writeJSON(w, status, errorBody{Error: err.Error(), Kind: kind})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
