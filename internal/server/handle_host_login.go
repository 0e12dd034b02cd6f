package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/playperu/pickem/internal/game"
)

// HostLoginRequest is the request body for POST /api/host/login.
type HostLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HostMeResponse is the response for GET /api/host/me.
type HostMeResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func handleHostLogin(hosts HostStore, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req HostLoginRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		req.Email = strings.TrimSpace(strings.ToLower(req.Email))
		if req.Email == "" || req.Password == "" {
			writeError(w, http.StatusBadRequest, "email and password are required")
			return
		}

		h, passwordHash, err := hosts.HostByEmail(r.Context(), req.Email)
		if errors.Is(err, game.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		if err != nil {
			logger.ErrorContext(r.Context(), "looking up host", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(req.Password)); err != nil {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}

		token := newToken()
		if err := hosts.CreateHostSession(r.Context(), h.ID, hashToken(token), time.Now().Add(hostSessionTTL)); err != nil {
			logger.ErrorContext(r.Context(), "creating host session", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     hostCookieName,
			Value:    token,
			Path:     "/",
			MaxAge:   int(hostSessionTTL / time.Second),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})

		writeJSON(w, http.StatusOK, HostMeResponse{ID: h.ID, Email: h.Email})
	}
}

func handleHostLogout(hosts HostStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(hostCookieName)
		if err == nil && cookie.Value != "" {
			hosts.DeleteHostSession(r.Context(), hashToken(cookie.Value))
		}

		http.SetCookie(w, &http.Cookie{
			Name:     hostCookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})

		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func handleHostMe(hosts HostStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h, err := hostFromRequest(r, hosts)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		writeJSON(w, http.StatusOK, HostMeResponse{ID: h.ID, Email: h.Email})
	}
}
