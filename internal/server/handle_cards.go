package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/pickem/internal/game"
	"github.com/playperu/pickem/internal/pickem"
)

func handleListCards(games *game.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cards, err := games.ListCards(r.Context(), hostFrom(r).ID)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		if cards == nil {
			cards = []pickem.Card{}
		}
		writeJSON(w, http.StatusOK, cards)
	}
}

func handleCreateCard(games *game.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var c pickem.Card
		if err := readJSON(r, &c); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		c, err := games.CreateCard(r.Context(), hostFrom(r).ID, c)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, c)
	}
}

func handleGetCard(games *game.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := games.GetCard(r.Context(), chi.URLParam(r, "cardID"), hostFrom(r).ID)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

func handleUpdateCard(games *game.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var c pickem.Card
		if err := readJSON(r, &c); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		c.ID = chi.URLParam(r, "cardID")
		c, err := games.UpdateCard(r.Context(), hostFrom(r).ID, c)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}
