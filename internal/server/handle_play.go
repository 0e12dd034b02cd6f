package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/pickem/internal/game"
	"github.com/playperu/pickem/internal/pickem"
)

// JoinLookupResponse previews a game before joining.
type JoinLookupResponse struct {
	GameID         string            `json:"gameId"`
	JoinCode       string            `json:"joinCode"`
	Mode           pickem.GameMode   `json:"mode"`
	Status         pickem.GameStatus `json:"status"`
	AllowLateJoins bool              `json:"allowLateJoins"`
	ExpiresAt      time.Time         `json:"expiresAt"`
}

type JoinRequest struct {
	Code     string            `json:"code"`
	Nickname string            `json:"nickname"`
	Device   pickem.DeviceInfo `json:"device"`
}

// JoinResponse carries the bearer token the player uses from now on.
type JoinResponse struct {
	Token  string        `json:"token"`
	Game   pickem.Game   `json:"game"`
	Player pickem.Player `json:"player"`
	IsNew  bool          `json:"isNew"`
}

// PicksRequest is the request body for PUT /api/games/{gameID}/picks.
type PicksRequest struct {
	Picks             pickem.PicksPayload `json:"picks"`
	ExpectedUpdatedAt *time.Time          `json:"expectedUpdatedAt,omitempty"`
}

func handleJoinLookup(games *game.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, err := games.GetGameByJoinCode(r.Context(), chi.URLParam(r, "code"))
		if errors.Is(err, game.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "game not found", Reason: game.JoinNotFound})
			return
		}
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, JoinLookupResponse{
			GameID:         g.ID,
			JoinCode:       g.JoinCode,
			Mode:           g.Mode,
			Status:         g.Status,
			AllowLateJoins: g.AllowLateJoins,
			ExpiresAt:      g.ExpiresAt,
		})
	}
}

func handleJoin(games *game.Service, hosts HostStore, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req JoinRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		req.Nickname = strings.TrimSpace(req.Nickname)
		if req.Nickname == "" || req.Code == "" {
			writeError(w, http.StatusBadRequest, "code and nickname are required")
			return
		}

		// A returning caller keeps their token so the same player comes back.
		token := playerToken(r)
		if token == "" {
			token = newToken()
		}
		join := game.JoinRequest{
			Code:        req.Code,
			Nickname:    req.Nickname,
			SessionHash: hashToken(token),
			Device:      req.Device,
		}
		if join.Device.UserAgent == "" {
			join.Device.UserAgent = r.UserAgent()
		}
		if h, err := hostFromRequest(r, hosts); err == nil {
			join.Identity = "host:" + h.ID
		}

		res, err := games.JoinGame(r.Context(), join)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}

		status := http.StatusOK
		if res.IsNew {
			status = http.StatusCreated
		}
		writeJSON(w, status, JoinResponse{
			Token:  token,
			Game:   res.Game,
			Player: res.Player,
			IsNew:  res.IsNew,
		})
	}
}

func handleSubmitPicks(games *game.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := playerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "bearer token required")
			return
		}
		var req PicksRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		res, err := games.SubmitPicks(r.Context(), chi.URLParam(r, "gameID"), hashToken(token), req.Picks, req.ExpectedUpdatedAt)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		if res.IgnoredLockedFields == nil {
			res.IgnoredLockedFields = []string{}
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func handleMarkSubmitted(games *game.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := playerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "bearer token required")
			return
		}
		p, err := games.MarkSubmitted(r.Context(), chi.URLParam(r, "gameID"), hashToken(token))
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

// viewerFromRequest collects the host cookie and player bearer token. The
// service decides which of them grants access to a given game.
func viewerFromRequest(r *http.Request, hosts HostStore) (game.Viewer, bool) {
	var v game.Viewer
	if h, err := hostFromRequest(r, hosts); err == nil {
		v.HostID = h.ID
	}
	if token := playerToken(r); token != "" {
		v.SessionHash = hashToken(token)
	}
	return v, v.HostID != "" || v.SessionHash != ""
}

func handleGameState(games *game.Service, hosts HostStore, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, ok := viewerFromRequest(r, hosts)
		if !ok {
			writeError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		st, err := games.GetGameState(r.Context(), chi.URLParam(r, "gameID"), v)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}
