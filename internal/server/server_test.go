package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/playperu/pickem/internal/database"
	"github.com/playperu/pickem/internal/game"
	"github.com/playperu/pickem/internal/migrations"
	"github.com/playperu/pickem/internal/notify"
	"github.com/playperu/pickem/internal/pickem"
	"github.com/playperu/pickem/internal/store"
)

type testEnv struct {
	handler http.Handler
	games   *game.Service
	store   *store.Store
	broker  *notify.Broker
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, database.Memory)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := migrations.Run(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	st := store.New(db)
	logger := slog.New(slog.DiscardHandler)
	if err := store.SeedDemo(ctx, logger, st); err != nil {
		t.Fatalf("seed: %v", err)
	}

	broker := notify.NewBroker()
	games := game.NewService(st, broker, logger)
	h := NewHandler(logger, Deps{Games: games, Hosts: st, Broker: broker}, nil)
	return &testEnv{handler: h, games: games, store: st, broker: broker}
}

type reqOpt func(*http.Request)

func withCookies(cs []*http.Cookie) reqOpt {
	return func(r *http.Request) {
		for _, c := range cs {
			r.AddCookie(c)
		}
	}
}

func withToken(token string) reqOpt {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func (e *testEnv) do(t *testing.T, method, path string, body any, opts ...reqOpt) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	for _, o := range opts {
		o(req)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func (e *testEnv) login(t *testing.T) []*http.Cookie {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/host/login", HostLoginRequest{Email: store.DemoHostEmail, Password: "changeme"})
	if w.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	return w.Result().Cookies()
}

func (e *testEnv) createGame(t *testing.T, host []*http.Cookie) pickem.Game {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/host/games", game.CreateGameRequest{CardID: "demo-card"}, withCookies(host))
	if w.Code != http.StatusCreated {
		t.Fatalf("create game: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	return decode[pickem.Game](t, w)
}

func (e *testEnv) join(t *testing.T, code, nickname string) JoinResponse {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/join", JoinRequest{Code: code, Nickname: nickname})
	if w.Code != http.StatusCreated {
		t.Fatalf("join: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	return decode[JoinResponse](t, w)
}

func TestHostLogin(t *testing.T) {
	e := setup(t)

	tests := []struct {
		name     string
		req      HostLoginRequest
		wantCode int
	}{
		{"good credentials", HostLoginRequest{Email: "  DEMO@pickem.local ", Password: "changeme"}, http.StatusOK},
		{"wrong password", HostLoginRequest{Email: store.DemoHostEmail, Password: "nope"}, http.StatusUnauthorized},
		{"unknown email", HostLoginRequest{Email: "who@example.com", Password: "changeme"}, http.StatusUnauthorized},
		{"missing fields", HostLoginRequest{}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := e.do(t, http.MethodPost, "/api/host/login", tt.req)
			if w.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d: %s", tt.wantCode, w.Code, w.Body.String())
			}
		})
	}
}

func TestHostSessionLifecycle(t *testing.T) {
	e := setup(t)
	cookies := e.login(t)

	var session *http.Cookie
	for _, c := range cookies {
		if c.Name == hostCookieName {
			session = c
		}
	}
	if session == nil || session.Value == "" || !session.HttpOnly {
		t.Fatalf("expected http-only %s cookie, got %+v", hostCookieName, cookies)
	}

	w := e.do(t, http.MethodGet, "/api/host/me", nil, withCookies(cookies))
	if w.Code != http.StatusOK {
		t.Fatalf("me: expected 200, got %d", w.Code)
	}
	if me := decode[HostMeResponse](t, w); me.Email != store.DemoHostEmail {
		t.Errorf("me email = %q", me.Email)
	}

	w = e.do(t, http.MethodPost, "/api/host/logout", nil, withCookies(cookies))
	if w.Code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", w.Code)
	}

	w = e.do(t, http.MethodGet, "/api/host/me", nil, withCookies(cookies))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("me after logout: expected 401, got %d", w.Code)
	}
}

func TestHostRoutesRequireSession(t *testing.T) {
	e := setup(t)
	for _, path := range []string{"/api/host/cards", "/api/host/games/g1"} {
		w := e.do(t, http.MethodGet, path, nil)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", path, w.Code)
		}
	}
}

func TestCardRoutes(t *testing.T) {
	e := setup(t)
	host := e.login(t)

	w := e.do(t, http.MethodGet, "/api/host/cards", nil, withCookies(host))
	if w.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", w.Code)
	}
	if cards := decode[[]pickem.Card](t, w); len(cards) != 1 || cards[0].ID != "demo-card" {
		t.Fatalf("expected the demo card, got %+v", cards)
	}

	card := pickem.Card{
		Name:    "Quick card",
		Matches: []pickem.Match{{ID: "m1", Title: "Opener", Participants: []string{"A", "B"}}},
	}
	w = e.do(t, http.MethodPost, "/api/host/cards", card, withCookies(host))
	if w.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	created := decode[pickem.Card](t, w)
	if created.ID == "" {
		t.Fatal("expected generated card id")
	}

	bad := pickem.Card{Name: "Bad", Matches: []pickem.Match{{ID: "a:b"}}}
	w = e.do(t, http.MethodPost, "/api/host/cards", bad, withCookies(host))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("invalid card: expected 400, got %d", w.Code)
	}

	created.Name = "Renamed"
	w = e.do(t, http.MethodPut, "/api/host/cards/"+created.ID, created, withCookies(host))
	if w.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = e.do(t, http.MethodGet, "/api/host/cards/"+created.ID, nil, withCookies(host))
	if got := decode[pickem.Card](t, w); got.Name != "Renamed" {
		t.Errorf("name = %q, want Renamed", got.Name)
	}

	w = e.do(t, http.MethodGet, "/api/host/cards/missing", nil, withCookies(host))
	if w.Code != http.StatusNotFound {
		t.Errorf("missing card: expected 404, got %d", w.Code)
	}
}

func TestJoinAndPlay(t *testing.T) {
	e := setup(t)
	host := e.login(t)
	g := e.createGame(t, host)

	w := e.do(t, http.MethodGet, "/api/join/"+g.JoinCode, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("lookup: expected 200, got %d", w.Code)
	}
	if lookup := decode[JoinLookupResponse](t, w); lookup.GameID != g.ID || lookup.Status != pickem.StatusLobby {
		t.Errorf("lookup = %+v", lookup)
	}

	joined := e.join(t, g.JoinCode, "Maria")
	if joined.Token == "" || !joined.IsNew {
		t.Fatalf("join response = %+v", joined)
	}

	// The same token rejoins as the same player.
	w = e.do(t, http.MethodPost, "/api/join", JoinRequest{Code: g.JoinCode, Nickname: "Maria"}, withToken(joined.Token))
	if w.Code != http.StatusOK {
		t.Fatalf("rejoin: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if again := decode[JoinResponse](t, w); again.Player.ID != joined.Player.ID || again.IsNew {
		t.Errorf("rejoin = %+v", again)
	}

	picks := PicksRequest{Picks: pickem.PicksPayload{
		MatchPicks: []pickem.MatchPick{{MatchID: "opener", WinnerName: "The Usos"}},
	}}
	w = e.do(t, http.MethodPut, "/api/games/"+g.ID+"/picks", picks, withToken(joined.Token))
	if w.Code != http.StatusOK {
		t.Fatalf("picks: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if res := decode[game.SubmitResult](t, w); len(res.IgnoredLockedFields) != 0 {
		t.Errorf("ignored = %v", res.IgnoredLockedFields)
	}

	w = e.do(t, http.MethodPost, "/api/games/"+g.ID+"/submit", nil, withToken(joined.Token))
	if w.Code != http.StatusOK {
		t.Fatalf("submit: expected 200, got %d", w.Code)
	}

	key := KeyRequest{Key: pickem.KeyPayload{
		MatchResults: []pickem.MatchResult{{MatchID: "opener", WinnerName: "the usos"}},
	}}
	w = e.do(t, http.MethodPut, "/api/host/games/"+g.ID+"/key", key, withCookies(host))
	if w.Code != http.StatusOK {
		t.Fatalf("key: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	updated := decode[pickem.Game](t, w)
	if !updated.Locks.MatchLocks["opener"].Locked {
		t.Error("recording a winner should lock the match")
	}

	// Locked now: a new winner pick is kept out.
	picks.Picks.MatchPicks[0].WinnerName = "New Day"
	w = e.do(t, http.MethodPut, "/api/games/"+g.ID+"/picks", picks, withToken(joined.Token))
	if res := decode[game.SubmitResult](t, w); len(res.IgnoredLockedFields) != 1 || res.IgnoredLockedFields[0] != "opener" {
		t.Errorf("ignored = %v, want [opener]", res.IgnoredLockedFields)
	}

	w = e.do(t, http.MethodGet, "/api/games/"+g.ID+"/state", nil, withToken(joined.Token))
	if w.Code != http.StatusOK {
		t.Fatalf("state: expected 200, got %d", w.Code)
	}
	st := decode[game.GameState](t, w)
	if st.Me == nil || st.Me.ID != joined.Player.ID {
		t.Fatalf("state.me = %+v", st.Me)
	}
	if len(st.Leaderboard) != 1 || st.Leaderboard[0].Score != 10 {
		t.Errorf("leaderboard = %+v", st.Leaderboard)
	}
	if st.SubmittedCount != 1 {
		t.Errorf("submittedCount = %d", st.SubmittedCount)
	}

	w = e.do(t, http.MethodGet, "/api/games/"+g.ID+"/state", nil, withCookies(host))
	if w.Code != http.StatusOK {
		t.Fatalf("host state: expected 200, got %d", w.Code)
	}
	w = e.do(t, http.MethodGet, "/api/games/"+g.ID+"/state", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous state: expected 401, got %d", w.Code)
	}
	w = e.do(t, http.MethodGet, "/api/games/"+g.ID+"/state", nil, withToken("stranger"))
	if w.Code != http.StatusForbidden {
		t.Fatalf("stranger state: expected 403, got %d", w.Code)
	}
}

func TestJoinRejections(t *testing.T) {
	e := setup(t)
	host := e.login(t)
	g := e.createGame(t, host)
	e.join(t, g.JoinCode, "Maria")

	tests := []struct {
		name       string
		req        JoinRequest
		wantCode   int
		wantReason game.JoinReason
	}{
		{"unknown code", JoinRequest{Code: "ZZZZZZ", Nickname: "Ana"}, http.StatusNotFound, game.JoinNotFound},
		{"nickname taken", JoinRequest{Code: g.JoinCode, Nickname: " maria "}, http.StatusConflict, game.JoinNicknameTaken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := e.do(t, http.MethodPost, "/api/join", tt.req)
			if w.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d: %s", tt.wantCode, w.Code, w.Body.String())
			}
			if got := decode[ErrorResponse](t, w).Reason; got != tt.wantReason {
				t.Errorf("reason = %q, want %q", got, tt.wantReason)
			}
		})
	}

	ended := pickem.StatusEnded
	w := e.do(t, http.MethodPatch, "/api/host/games/"+g.ID+"/status", game.StatusUpdate{Status: &ended}, withCookies(host))
	if w.Code != http.StatusOK {
		t.Fatalf("end game: expected 200, got %d", w.Code)
	}
	w = e.do(t, http.MethodPost, "/api/join", JoinRequest{Code: g.JoinCode, Nickname: "Late"})
	if w.Code != http.StatusNotFound && w.Code != http.StatusGone {
		t.Fatalf("join ended game: expected 404 or 410, got %d", w.Code)
	}
}

func TestStatusTransitionConflict(t *testing.T) {
	e := setup(t)
	host := e.login(t)
	g := e.createGame(t, host)

	live, lobby := pickem.StatusLive, pickem.StatusLobby
	path := "/api/host/games/" + g.ID + "/status"
	if w := e.do(t, http.MethodPatch, path, game.StatusUpdate{Status: &live}, withCookies(host)); w.Code != http.StatusOK {
		t.Fatalf("go live: expected 200, got %d", w.Code)
	}
	if w := e.do(t, http.MethodPatch, path, game.StatusUpdate{Status: &lobby}, withCookies(host)); w.Code != http.StatusConflict {
		t.Fatalf("back to lobby: expected 409, got %d", w.Code)
	}
}

func TestStaleKeyUpdateReturnsCurrentVersion(t *testing.T) {
	e := setup(t)
	host := e.login(t)
	g := e.createGame(t, host)

	stale := g.UpdatedAt.Add(-time.Minute)
	first := KeyRequest{
		Key:               pickem.KeyPayload{TiebreakerAnswer: "20:00"},
		ExpectedUpdatedAt: &g.UpdatedAt,
	}
	w := e.do(t, http.MethodPut, "/api/host/games/"+g.ID+"/key", first, withCookies(host))
	if w.Code != http.StatusOK {
		t.Fatalf("first write: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	current := decode[pickem.Game](t, w)

	second := KeyRequest{Key: pickem.KeyPayload{TiebreakerAnswer: "21:00"}, ExpectedUpdatedAt: &stale}
	w = e.do(t, http.MethodPut, "/api/host/games/"+g.ID+"/key", second, withCookies(host))
	if w.Code != http.StatusConflict {
		t.Fatalf("stale write: expected 409, got %d", w.Code)
	}
	resp := decode[ErrorResponse](t, w)
	if resp.UpdatedAt == nil || !resp.UpdatedAt.Equal(current.UpdatedAt) {
		t.Errorf("conflict updatedAt = %v, want %v", resp.UpdatedAt, current.UpdatedAt)
	}
}

func TestReviewAndOverrideRoutes(t *testing.T) {
	e := setup(t)
	host := e.login(t)
	g := e.createGame(t, host)
	p := e.join(t, g.JoinCode, "Sam")

	picks := PicksRequest{Picks: pickem.PicksPayload{
		EventBonusAnswers: []pickem.Answer{{QuestionID: "mvp", Answer: "Rhea Ripley"}},
	}}
	e.do(t, http.MethodPut, "/api/games/"+g.ID+"/picks", picks, withToken(p.Token))
	e.do(t, http.MethodPost, "/api/games/"+g.ID+"/submit", nil, withToken(p.Token))

	key := KeyRequest{Key: pickem.KeyPayload{
		EventBonusAnswers: []pickem.Answer{{QuestionID: "mvp", Answer: "Rhea Ripli"}},
	}}
	if w := e.do(t, http.MethodPut, "/api/host/games/"+g.ID+"/key", key, withCookies(host)); w.Code != http.StatusOK {
		t.Fatalf("key: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w := e.do(t, http.MethodGet, "/api/host/games/"+g.ID+"/review", nil, withCookies(host))
	if w.Code != http.StatusOK {
		t.Fatalf("review: expected 200, got %d", w.Code)
	}
	// Two edits over eleven characters: close enough to review, not to auto-accept.
	cs := decode[[]pickem.ReviewCandidate](t, w)
	if len(cs) != 1 || cs[0].Nickname != "Sam" || cs[0].IsAutoAccepted {
		t.Fatalf("candidates = %+v", cs)
	}

	req := OverrideRequest{OverrideDecision: pickem.OverrideDecision{
		Kind: pickem.CandidateBonus, QuestionID: "mvp", Nickname: "Sam", Accepted: true,
	}}
	w = e.do(t, http.MethodPost, "/api/host/games/"+g.ID+"/overrides", req, withCookies(host))
	if w.Code != http.StatusOK {
		t.Fatalf("override: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	updated := decode[pickem.Game](t, w)
	if len(updated.Key.ScoreOverrides) != 1 || updated.Key.ScoreOverrides[0].Source != pickem.OverrideByHost {
		t.Errorf("overrides = %+v", updated.Key.ScoreOverrides)
	}

	w = e.do(t, http.MethodGet, "/api/host/games/"+g.ID+"/review", nil, withCookies(host))
	if cs := decode[[]pickem.ReviewCandidate](t, w); len(cs) != 0 {
		t.Errorf("resolved candidate still listed: %+v", cs)
	}
}

func TestOtherHostIsForbidden(t *testing.T) {
	e := setup(t)
	host := e.login(t)
	g := e.createGame(t, host)

	// bcrypt of "changeme"
	const hash = "$2a$10$trCdqP4npsbw0R1vQxVwXeT1HebzRmP01SXaNGPz1eSAZ7mpcL0Uu"
	if _, err := e.store.CreateHost(context.Background(), "other@example.com", hash); err != nil {
		t.Fatalf("create host: %v", err)
	}
	w := e.do(t, http.MethodPost, "/api/host/login", HostLoginRequest{Email: "other@example.com", Password: "changeme"})
	if w.Code != http.StatusOK {
		t.Fatalf("login other: %d", w.Code)
	}
	other := w.Result().Cookies()

	w = e.do(t, http.MethodGet, "/api/host/games/"+g.ID, nil, withCookies(other))
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}
