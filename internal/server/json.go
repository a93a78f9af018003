package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/playperu/partynight/internal/party"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func readJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeServiceError maps domain errors to status codes. Anything unexpected
// is logged and reported as a 500 without details.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, party.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, party.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, party.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, party.ErrPersistence):
		logger.Error("state unavailable", "error", err)
		writeError(w, http.StatusServiceUnavailable, "state storage unavailable")
	default:
		logger.Error("internal error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
