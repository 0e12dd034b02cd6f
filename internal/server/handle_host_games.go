package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/pickem/internal/game"
	"github.com/playperu/pickem/internal/pickem"
)

// LocksRequest is the request body for PUT /api/host/games/{gameID}/locks.
type LocksRequest struct {
	Locks             pickem.LockState `json:"locks"`
	ExpectedUpdatedAt *time.Time       `json:"expectedUpdatedAt,omitempty"`
}

// KeyRequest is the request body for PUT /api/host/games/{gameID}/key.
type KeyRequest struct {
	Key               pickem.KeyPayload `json:"key"`
	ExpectedUpdatedAt *time.Time        `json:"expectedUpdatedAt,omitempty"`
}

// OverrideRequest is the request body for POST /api/host/games/{gameID}/overrides.
type OverrideRequest struct {
	pickem.OverrideDecision
	ExpectedUpdatedAt *time.Time `json:"expectedUpdatedAt,omitempty"`
}

func handleCreateGame(games *game.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req game.CreateGameRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.CardID == "" {
			writeError(w, http.StatusBadRequest, "cardId is required")
			return
		}
		g, err := games.CreateGame(r.Context(), hostFrom(r).ID, req)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, g)
	}
}

func handleHostGetGame(games *game.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, err := games.GetGameForHost(r.Context(), chi.URLParam(r, "gameID"), hostFrom(r).ID)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, g)
	}
}

func handleUpdateStatus(games *game.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req game.StatusUpdate
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		g, err := games.UpdateGameStatus(r.Context(), chi.URLParam(r, "gameID"), hostFrom(r).ID, req)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, g)
	}
}

func handleUpdateLocks(games *game.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LocksRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		g, err := games.UpdateLocks(r.Context(), chi.URLParam(r, "gameID"), hostFrom(r).ID, req.Locks, req.ExpectedUpdatedAt)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, g)
	}
}

func handleUpdateKey(games *game.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req KeyRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		g, err := games.UpdateKey(r.Context(), chi.URLParam(r, "gameID"), hostFrom(r).ID, req.Key, req.ExpectedUpdatedAt)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, g)
	}
}

func handleReview(games *game.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cs, err := games.ListReviewCandidates(r.Context(), chi.URLParam(r, "gameID"), hostFrom(r).ID)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		if cs == nil {
			cs = []pickem.ReviewCandidate{}
		}
		writeJSON(w, http.StatusOK, cs)
	}
}

func handleResolveOverride(games *game.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req OverrideRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		g, err := games.ResolveOverride(r.Context(), chi.URLParam(r, "gameID"), hostFrom(r).ID, req.OverrideDecision, req.ExpectedUpdatedAt)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, g)
	}
}
