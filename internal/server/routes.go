package server

import (
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"
)

func addRoutes(r chi.Router, logger *slog.Logger, deps Deps) {
	games, hosts := deps.Games, deps.Hosts
	joins := newIPLimiter(deps.JoinRatePerMinute)

	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("Pick'em API", "/openapi.json", "/docs"))

	r.Route("/api/host", func(r chi.Router) {
		r.Post("/login", handleHostLogin(hosts, logger))
		r.Post("/logout", handleHostLogout(hosts))
		r.Get("/me", handleHostMe(hosts))

		// Cards and games, host_session cookie required.
		r.Group(func(r chi.Router) {
			r.Use(hostAuthMiddleware(hosts))

			r.Get("/cards", handleListCards(games, logger))
			r.Post("/cards", handleCreateCard(games, logger))
			r.Get("/cards/{cardID}", handleGetCard(games, logger))
			r.Put("/cards/{cardID}", handleUpdateCard(games, logger))

			r.Post("/games", handleCreateGame(games, logger))
			r.Get("/games/{gameID}", handleHostGetGame(games, logger))
			r.Patch("/games/{gameID}/status", handleUpdateStatus(games, logger))
			r.Put("/games/{gameID}/locks", handleUpdateLocks(games, logger))
			r.Put("/games/{gameID}/key", handleUpdateKey(games, logger))
			r.Get("/games/{gameID}/review", handleReview(games, logger))
			r.Post("/games/{gameID}/overrides", handleResolveOverride(games, logger))
		})
	})

	// Player routes, Bearer token from POST /api/join.
	r.Get("/api/join/{code}", handleJoinLookup(games, logger))
	r.With(joins.middleware).Post("/api/join", handleJoin(games, hosts, logger))
	r.Route("/api/games/{gameID}", func(r chi.Router) {
		r.Put("/picks", handleSubmitPicks(games, logger))
		r.Post("/submit", handleMarkSubmitted(games, logger))
		r.Get("/state", handleGameState(games, hosts, logger))
		r.Get("/events", handleEvents(games, hosts, deps.Broker, logger))
	})

	if deps.SPADir != "" {
		if info, err := os.Stat(deps.SPADir); err == nil && info.IsDir() {
			logger.Info("serving SPA", "dir", deps.SPADir)
			r.NotFound(handleSPA(deps.SPADir))
		}
	}
}
