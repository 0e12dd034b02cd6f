package game

import (
	"context"
	"time"

	"github.com/playperu/pickem/internal/pickem"
)

// Event is a persisted feed entry.
type Event struct {
	ID        string    `json:"id"`
	GameID    string    `json:"gameId"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store persists cards, games, players and feed events. Lookups return
// ErrNotFound for missing rows. UpdateGame and UpdatePlayer are
// compare-and-set on the stored updatedAt: when the row no longer carries prev
// they write nothing and return ErrConflict. CreateGame returns ErrConflict when
// the join code is held by another open room game, and CreatePlayer when the
// nickname or identity is already taken in the game.
type Store interface {
	CreateCard(ctx context.Context, c pickem.Card) error
	GetCard(ctx context.Context, id string) (pickem.Card, error)
	ListCards(ctx context.Context, hostID string) ([]pickem.Card, error)
	UpdateCard(ctx context.Context, c pickem.Card) error

	CreateGame(ctx context.Context, g pickem.Game) error
	GetGame(ctx context.Context, id string) (pickem.Game, error)
	GameByJoinCode(ctx context.Context, code string) (pickem.Game, error)
	ListOpenGamesByCard(ctx context.Context, cardID string) ([]pickem.Game, error)
	UpdateGame(ctx context.Context, g pickem.Game, prev time.Time) error

	CreatePlayer(ctx context.Context, p pickem.Player, sessionHash string) error
	GetPlayer(ctx context.Context, id string) (pickem.Player, error)
	PlayerBySession(ctx context.Context, gameID, sessionHash string) (pickem.Player, error)
	PlayerByNickname(ctx context.Context, gameID, normalized string) (pickem.Player, error)
	PlayerByIdentity(ctx context.Context, gameID, identity string) (pickem.Player, error)
	ListPlayers(ctx context.Context, gameID string) ([]pickem.Player, error)
	UpdatePlayer(ctx context.Context, p pickem.Player, prev time.Time) error
	BindSession(ctx context.Context, playerID, sessionHash string) error
	TouchPlayer(ctx context.Context, playerID string, at time.Time) error

	AppendEvents(ctx context.Context, gameID string, events []pickem.FeedEvent, at time.Time) error
	RecentEvents(ctx context.Context, gameID string, limit int) ([]Event, error)
}

// Notification is pushed to subscribers after a mutation commits.
type Notification struct {
	Type      string             `json:"type"`
	GameID    string             `json:"gameId"`
	UpdatedAt time.Time          `json:"updatedAt"`
	Events    []pickem.FeedEvent `json:"events"`
}

// Notification types.
const (
	NotifyKey     = "key"
	NotifyLocks   = "locks"
	NotifyStatus  = "status"
	NotifyPlayers = "players"
	NotifyPicks   = "picks"
	NotifyCard    = "card"
)

// Notifier delivers notifications best-effort. Errors are logged by the
// service and never fail the mutation.
type Notifier interface {
	Notify(ctx context.Context, gameID string, n Notification) error
}

// Recorder receives outcome counts for service operations.
type Recorder interface {
	Operation(op, outcome string, d time.Duration)
	AutoAccepted(n int)
	NotifyFailed()
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, string, Notification) error { return nil }

type nopRecorder struct{}

func (nopRecorder) Operation(string, string, time.Duration) {}
func (nopRecorder) AutoAccepted(int) {}
func (nopRecorder) NotifyFailed() {}
