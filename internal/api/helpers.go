package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/gyeh/billcheck/internal/completion"
	"github.com/gyeh/billcheck/internal/decode"
	"github.com/gyeh/billcheck/internal/describe"
	"github.com/gyeh/billcheck/internal/narrative"
	"github.com/gyeh/billcheck/internal/reconcile"
	"github.com/gyeh/billcheck/internal/resilience"
)

const jsonBodyLimit = 1 << 20

// readJSON decodes a JSON request body with a size limit.
func readJSON[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var v T
	r.Body = http.MaxBytesReader(w, r.Body, jsonBodyLimit)
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		} else {
			writeError(w, http.StatusBadRequest, "invalid request body")
		}
		return v, false
	}
	return v, true
}

// splitCodes reads a comma-separated code list such as "99213, 80053".
func splitCodes(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeServiceError maps errors from the reconciliation and completion
// services onto HTTP statuses. Unclassified errors are logged and reported
// as 500 without detail.
func writeServiceError(w http.ResponseWriter, log zerolog.Logger, err error) {
	switch {
	case errors.Is(err, reconcile.ErrStoreUnavailable):
		log.Error().Err(err).Msg("price store unavailable")
		writeError(w, http.StatusServiceUnavailable, "price data is temporarily unavailable")
	case errors.Is(err, completion.ErrNotConfigured), errors.Is(err, resilience.ErrCircuitOpen):
		writeError(w, http.StatusServiceUnavailable, "text generation is unavailable")
	case errors.Is(err, narrative.ErrNothingToDispute), errors.Is(err, narrative.ErrNoCodes):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, describe.ErrInvalidCode):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, decode.ErrUnsupported):
		writeError(w, http.StatusUnsupportedMediaType, err.Error())
	default:
		log.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
