package server

import (
	"context"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"github.com/playperu/pickem/internal/store"
)

const (
	hostCookieName = "host_session"
	hostSessionTTL = 7 * 24 * time.Hour
)

var errNoSession = errors.New("no valid session")

// HostStore is the host account storage the login routes need.
type HostStore interface {
	HostByEmail(ctx context.Context, email string) (store.Host, string, error)
	CreateHostSession(ctx context.Context, hostID, tokenHash string, expires time.Time) error
	HostFromSession(ctx context.Context, tokenHash string) (store.Host, error)
	DeleteHostSession(ctx context.Context, tokenHash string) error
}

type ctxKey int

const ctxKeyHost ctxKey = iota

// newToken returns a fresh opaque bearer token. Only its hash is stored.
func newToken() string {
	return uuid.NewString()
}

func hashToken(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// hostFromRequest resolves the host_session cookie to a host.
func hostFromRequest(r *http.Request, hosts HostStore) (store.Host, error) {
	cookie, err := r.Cookie(hostCookieName)
	if err != nil || cookie.Value == "" {
		return store.Host{}, errNoSession
	}
	h, err := hosts.HostFromSession(r.Context(), hashToken(cookie.Value))
	if err != nil {
		return store.Host{}, errNoSession
	}
	return h, nil
}

// playerToken reads the player's bearer token from the Authorization header,
// falling back to the token query parameter for EventSource clients.
func playerToken(r *http.Request) string {
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok && token != "" {
		return token
	}
	return r.URL.Query().Get("token")
}

func hostAuthMiddleware(hosts HostStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h, err := hostFromRequest(r, hosts)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "not authenticated")
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyHost, h)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func hostFrom(r *http.Request) store.Host {
	return r.Context().Value(ctxKeyHost).(store.Host)
}
