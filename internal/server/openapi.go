package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/playperu/pickem/internal/game"
	"github.com/playperu/pickem/internal/pickem"
)

// HealthResponse maps each dependency to its check result.
type HealthResponse map[string]struct {
	Status string `json:"status"`
}

// Path parameters, declared so every templated path documents them.
type (
	gamePath struct {
		GameID string `path:"gameID"`
	}
	cardPath struct {
		CardID string `path:"cardID"`
	}
	codePath struct {
		Code string `path:"code"`
	}
)

type resp struct {
	status int
	body   any
}

type operation struct {
	method, path string
	summary      string
	description  string
	params       any
	request      any
	responses    []resp
	contentType  string
}

var (
	errUnauthorized = resp{http.StatusUnauthorized, ErrorResponse{}}
	errForbidden    = resp{http.StatusForbidden, ErrorResponse{}}
	errNotFound     = resp{http.StatusNotFound, ErrorResponse{}}
	errBadRequest   = resp{http.StatusBadRequest, ErrorResponse{}}
	errConflict     = resp{http.StatusConflict, ErrorResponse{}}
)

var operations = []operation{
	{
		method: http.MethodGet, path: "/healthz",
		summary:     "Health check",
		description: "Returns the health status of backend dependencies.",
		responses:   []resp{{http.StatusOK, HealthResponse{}}, {http.StatusServiceUnavailable, HealthResponse{}}},
	},
	{
		method: http.MethodGet, path: "/ws/games/{gameID}",
		params:      gamePath{},
		summary:     "Live feed over WebSocket",
		description: "Upgrades to a WebSocket that streams game notifications. Pass token as query parameter or use the host cookie.",
		responses:   []resp{{http.StatusSwitchingProtocols, nil}, errUnauthorized},
		contentType: "text/plain",
	},
	{
		method: http.MethodPost, path: "/api/host/login",
		summary:     "Host login",
		description: "Authenticate with email and password. Sets host_session cookie.",
		request:     HostLoginRequest{},
		responses:   []resp{{http.StatusOK, HostMeResponse{}}, errUnauthorized},
	},
	{
		method: http.MethodPost, path: "/api/host/logout",
		summary:     "Host logout",
		description: "Clears host session and cookie.",
		responses:   []resp{{http.StatusOK, nil}},
	},
	{
		method: http.MethodGet, path: "/api/host/me",
		summary:     "Current host",
		description: "Returns the currently authenticated host.",
		responses:   []resp{{http.StatusOK, HostMeResponse{}}, errUnauthorized},
	},
	{
		method: http.MethodGet, path: "/api/host/cards",
		summary:     "List cards",
		description: "Returns the host's cards.",
		responses:   []resp{{http.StatusOK, []pickem.Card{}}, errUnauthorized},
	},
	{
		method: http.MethodPost, path: "/api/host/cards",
		summary:     "Create card",
		description: "Creates a card of matches, bonus questions and a tiebreaker.",
		request:     pickem.Card{},
		responses:   []resp{{http.StatusCreated, pickem.Card{}}, errBadRequest, errUnauthorized},
	},
	{
		method: http.MethodGet, path: "/api/host/cards/{cardID}",
		params:    cardPath{},
		summary:   "Get card",
		responses: []resp{{http.StatusOK, pickem.Card{}}, errNotFound, errForbidden},
	},
	{
		method: http.MethodPut, path: "/api/host/cards/{cardID}",
		params:      cardPath{},
		summary:     "Update card",
		description: "Replaces a card. Open games using it get their system timers re-derived.",
		request:     pickem.Card{},
		responses:   []resp{{http.StatusOK, pickem.Card{}}, errBadRequest, errNotFound, errForbidden},
	},
	{
		method: http.MethodPost, path: "/api/host/games",
		summary:     "Create game",
		description: "Starts a room or solo game from a card and assigns a join code.",
		request:     game.CreateGameRequest{},
		responses:   []resp{{http.StatusCreated, pickem.Game{}}, errBadRequest, errForbidden},
	},
	{
		method: http.MethodGet, path: "/api/host/games/{gameID}",
		params:    gamePath{},
		summary:   "Get game",
		responses: []resp{{http.StatusOK, pickem.Game{}}, errNotFound, errForbidden},
	},
	{
		method: http.MethodPatch, path: "/api/host/games/{gameID}/status",
		params:      gamePath{},
		summary:     "Update status",
		description: "Moves the game forward (lobby, live, ended) or toggles late joins.",
		request:     game.StatusUpdate{},
		responses:   []resp{{http.StatusOK, pickem.Game{}}, errConflict, errForbidden},
	},
	{
		method: http.MethodPut, path: "/api/host/games/{gameID}/locks",
		params:      gamePath{},
		summary:     "Replace locks",
		description: "Replaces the lock state. Send expectedUpdatedAt to guard against stale writes.",
		request:     LocksRequest{},
		responses:   []resp{{http.StatusOK, pickem.Game{}}, errConflict, errForbidden},
	},
	{
		method: http.MethodPut, path: "/api/host/games/{gameID}/key",
		params:      gamePath{},
		summary:     "Update answer key",
		description: "Merges results into the key, applies auto-locks and auto-accepts near-miss answers.",
		request:     KeyRequest{},
		responses:   []resp{{http.StatusOK, pickem.Game{}}, errBadRequest, errConflict, errForbidden},
	},
	{
		method: http.MethodGet, path: "/api/host/games/{gameID}/review",
		params:      gamePath{},
		summary:     "Review candidates",
		description: "Near-miss text answers awaiting a host decision.",
		responses:   []resp{{http.StatusOK, []pickem.ReviewCandidate{}}, errForbidden},
	},
	{
		method: http.MethodPost, path: "/api/host/games/{gameID}/overrides",
		params:      gamePath{},
		summary:     "Resolve override",
		description: "Credits or rejects a player's answer.",
		request:     OverrideRequest{},
		responses:   []resp{{http.StatusOK, pickem.Game{}}, errBadRequest, errConflict, errForbidden},
	},
	{
		method: http.MethodGet, path: "/api/join/{code}",
		params:      codePath{},
		summary:     "Look up join code",
		description: "Previews a game before joining.",
		responses:   []resp{{http.StatusOK, JoinLookupResponse{}}, errNotFound},
	},
	{
		method: http.MethodPost, path: "/api/join",
		summary:     "Join a game",
		description: "Joins with a nickname and returns a bearer token. Send an existing token to rejoin as the same player.",
		request:     JoinRequest{},
		responses: []resp{
			{http.StatusCreated, JoinResponse{}},
			{http.StatusOK, JoinResponse{}},
			errBadRequest, errForbidden, errNotFound, errConflict,
			{http.StatusGone, ErrorResponse{}},
			{http.StatusTooManyRequests, ErrorResponse{}},
		},
	},
	{
		method: http.MethodPut, path: "/api/games/{gameID}/picks",
		params:      gamePath{},
		summary:     "Save picks",
		description: "Merges picks. Locked fields keep their stored values and are listed in ignoredLockedFields.",
		request:     PicksRequest{},
		responses:   []resp{{http.StatusOK, game.SubmitResult{}}, errUnauthorized, errForbidden, errConflict},
	},
	{
		method: http.MethodPost, path: "/api/games/{gameID}/submit",
		params:      gamePath{},
		summary:     "Submit picks",
		description: "Enters the player's picks into scoring.",
		responses:   []resp{{http.StatusOK, pickem.Player{}}, errUnauthorized, errForbidden, errConflict},
	},
	{
		method: http.MethodGet, path: "/api/games/{gameID}/state",
		params:      gamePath{},
		summary:     "Get game state",
		description: "Game, card, players, leaderboard and recent events. Host cookie or Bearer token.",
		responses:   []resp{{http.StatusOK, game.GameState{}}, errUnauthorized, errForbidden, errNotFound},
	},
	{
		method: http.MethodGet, path: "/api/games/{gameID}/events",
		params:      gamePath{},
		summary:     "SSE event stream",
		description: "Server-Sent Events stream of game notifications.",
		responses:   []resp{{http.StatusOK, nil}, errUnauthorized, errForbidden},
		contentType: "text/event-stream",
	},
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "Pick'em API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Live pick'em games: cards, answer keys, picks and scoring.")

	for _, op := range operations {
		oc, err := r.NewOperationContext(op.method, op.path)
		if err != nil {
			continue
		}
		oc.SetSummary(op.summary)
		if op.description != "" {
			oc.SetDescription(op.description)
		}
		if op.params != nil {
			oc.AddReqStructure(op.params)
		}
		if op.request != nil {
			oc.AddReqStructure(op.request)
		}
		for _, rs := range op.responses {
			opts := []openapi.ContentOption{openapi.WithHTTPStatus(rs.status)}
			if rs.body == nil && op.contentType != "" {
				opts = append(opts, openapi.WithContentType(op.contentType))
			}
			oc.AddRespStructure(rs.body, opts...)
		}
		_ = r.AddOperation(oc)
	}
	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
