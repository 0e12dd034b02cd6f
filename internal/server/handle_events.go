package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/pickem/internal/game"
	"github.com/playperu/pickem/internal/notify"
)

func handleEvents(games *game.Service, hosts HostStore, broker *notify.Broker, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, ok := viewerFromRequest(r, hosts)
		if !ok {
			writeError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		gameID := chi.URLParam(r, "gameID")
		if err := games.Authorize(r.Context(), gameID, v); err != nil {
			writeServiceError(w, r, logger, err)
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			writeError(w, http.StatusInternalServerError, "streaming not supported")
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		flusher.Flush()

		ch := broker.Subscribe(gameID)
		defer broker.Unsubscribe(gameID, ch)

		ping := time.NewTicker(30 * time.Second)
		defer ping.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case data := <-ch:
				fmt.Fprintf(w, "event: state\ndata: %s\n\n", data)
				flusher.Flush()
			case <-ping.C:
				fmt.Fprintf(w, ": ping\n\n")
				flusher.Flush()
			}
		}
	}
}

// FeedAuthorizer checks live-feed access the same way the SSE route does,
// for transports mounted outside this package.
func FeedAuthorizer(games *game.Service, hosts HostStore) func(r *http.Request, gameID string) (int, error) {
	return func(r *http.Request, gameID string) (int, error) {
		v, ok := viewerFromRequest(r, hosts)
		if !ok {
			return http.StatusUnauthorized, errNoSession
		}
		err := games.Authorize(r.Context(), gameID, v)
		switch {
		case err == nil:
			return http.StatusOK, nil
		case errors.Is(err, game.ErrNotFound):
			return http.StatusNotFound, err
		case errors.Is(err, game.ErrForbidden):
			return http.StatusForbidden, err
		}
		return http.StatusInternalServerError, err
	}
}
