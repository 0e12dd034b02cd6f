// Package feed streams game notifications over WebSocket.
package feed

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"nhooyr.io/websocket"
)

// Subscriber hands out per-game notification channels.
type Subscriber interface {
	Subscribe(gameID string) chan []byte
	Unsubscribe(gameID string, ch chan []byte)
}

// AuthorizeFunc checks that the request may follow gameID. The returned
// status is used when it fails.
type AuthorizeFunc func(r *http.Request, gameID string) (status int, err error)

type Handler struct {
	subs      Subscriber
	authorize AuthorizeFunc
	logger    *slog.Logger
	ping      time.Duration
}

func NewHandler(logger *slog.Logger, subs Subscriber, authorize AuthorizeFunc) *Handler {
	return &Handler{subs: subs, authorize: authorize, logger: logger, ping: 30 * time.Second}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/games/{gameID}", h.feed)
	return r
}

func (h *Handler) feed(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "gameID")
	if status, err := h.authorize(r, gameID); err != nil {
		http.Error(w, http.StatusText(status), status)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.logger.Error("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	// The feed is one-way; CloseRead handles control frames and cancels ctx
	// when the client goes away.
	ctx := conn.CloseRead(r.Context())

	ch := h.subs.Subscribe(gameID)
	defer h.subs.Unsubscribe(gameID, ch)

	ping := time.NewTicker(h.ping)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case data := <-ch:
			if err := write(ctx, conn, data); err != nil {
				h.logger.Debug("websocket write failed", "game_id", gameID, "error", err)
				return
			}
		case <-ping.C:
			pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
			err := conn.Ping(pctx)
			cancel()
			if err != nil {
				h.logger.Debug("websocket ping failed", "game_id", gameID, "error", err)
				return
			}
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, data)
}
