package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/playperu/pickem/internal/game"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
	// Reason is set when a join is rejected.
	Reason game.JoinReason `json:"reason,omitempty"`
	// UpdatedAt carries the current version on conflicts.
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

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

var joinStatus = map[game.JoinReason]int{
	game.JoinNotFound:        http.StatusNotFound,
	game.JoinExpired:         http.StatusGone,
	game.JoinEnded:           http.StatusGone,
	game.JoinEntryClosed:     http.StatusForbidden,
	game.JoinNicknameTaken:   http.StatusConflict,
	game.JoinSessionMismatch: http.StatusForbidden,
}

// writeServiceError maps game service errors onto HTTP responses.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var (
		joinErr     *game.JoinError
		conflictErr *game.ConflictError
	)
	switch {
	case errors.As(err, &joinErr):
		status, ok := joinStatus[joinErr.Reason]
		if !ok {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, ErrorResponse{Error: joinErr.Error(), Reason: joinErr.Reason})
	case errors.As(err, &conflictErr):
		at := conflictErr.Current
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: "stale update", UpdatedAt: &at})
	case errors.Is(err, game.ErrConflict):
		writeError(w, http.StatusConflict, "stale update")
	case errors.Is(err, game.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, game.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, game.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, game.ErrGameEnded):
		writeError(w, http.StatusConflict, "game has ended")
	case errors.Is(err, game.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	default:
		logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
