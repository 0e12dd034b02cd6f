// Package game is the session orchestrator: it loads the persisted game and
// player rows, runs the pickem engine over them and writes the result back
// with optimistic concurrency.
package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/playperu/pickem/internal/pickem"
)

const DefaultGameTTL = 24 * time.Hour

type Service struct {
	store    Store
	notifier Notifier
	metrics  Recorder
	logger   *slog.Logger
	now      func() time.Time
	gameTTL  time.Duration
	joinCode func() string
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithGameTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.gameTTL = d
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.metrics = r }
}

func WithJoinCodes(gen func() string) Option {
	return func(s *Service) { s.joinCode = gen }
}

func NewService(store Store, notifier Notifier, logger *slog.Logger, opts ...Option) *Service {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	s := &Service{
		store:    store,
		notifier: notifier,
		metrics:  nopRecorder{},
		logger:   logger,
		now:      time.Now,
		gameTTL:  DefaultGameTTL,
		joinCode: NewJoinCode,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) clock() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

// nextVersion returns a version strictly after prev so that two writes in the
// same millisecond still produce distinct updatedAt values.
func (s *Service) nextVersion(prev time.Time) time.Time {
	v := s.clock()
	if !v.After(prev) {
		v = prev.Add(time.Millisecond)
	}
	return v
}

func (s *Service) observe(op string, start time.Time, err *error) {
	s.metrics.Operation(op, outcome(*err), time.Since(start))
}

func outcome(err error) string {
	var je *JoinError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.As(err, &je),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrValidation),
		errors.Is(err, ErrForbidden),
		errors.Is(err, ErrGameEnded),
		errors.Is(err, ErrInvalidTransition):
		return "rejected"
	default:
		return "error"
	}
}

// hostGame loads a game and its card and checks the host owns it.
func (s *Service) hostGame(ctx context.Context, gameID, hostID string) (pickem.Game, pickem.Card, error) {
	g, err := s.store.GetGame(ctx, gameID)
	if err != nil {
		return pickem.Game{}, pickem.Card{}, fmt.Errorf("loading game: %w", err)
	}
	if g.HostID != hostID {
		return pickem.Game{}, pickem.Card{}, ErrForbidden
	}
	card, err := s.store.GetCard(ctx, g.CardID)
	if err != nil {
		return pickem.Game{}, pickem.Card{}, fmt.Errorf("loading card: %w", err)
	}
	return g, card, nil
}

func checkExpected(expected *time.Time, current time.Time) error {
	if expected != nil && !expected.UTC().Truncate(time.Millisecond).Equal(current) {
		return &ConflictError{Current: current}
	}
	return nil
}

// saveGame writes g over the row still carrying prev, then records events and
// notifies subscribers.
func (s *Service) saveGame(ctx context.Context, g pickem.Game, prev time.Time, typ string, events []pickem.FeedEvent) (pickem.Game, error) {
	g.UpdatedAt = s.nextVersion(prev)
	if err := s.store.UpdateGame(ctx, g, prev); err != nil {
		if errors.Is(err, ErrConflict) {
			return pickem.Game{}, s.conflict(ctx, g.ID)
		}
		return pickem.Game{}, fmt.Errorf("saving game: %w", err)
	}
	s.publish(ctx, g.ID, typ, g.UpdatedAt, events)
	return g, nil
}

func (s *Service) conflict(ctx context.Context, gameID string) error {
	s.logger.InfoContext(ctx, "stale game write rejected", "game_id", gameID)
	current, err := s.store.GetGame(ctx, gameID)
	if err != nil {
		return ErrConflict
	}
	return &ConflictError{Current: current.UpdatedAt}
}

// publish appends events to the feed and notifies. Both are best-effort.
func (s *Service) publish(ctx context.Context, gameID, typ string, at time.Time, events []pickem.FeedEvent) {
	if len(events) > 0 {
		if err := s.store.AppendEvents(ctx, gameID, events, at); err != nil {
			s.logger.WarnContext(ctx, "appending feed events", "game_id", gameID, "error", err)
		}
	}
	if events == nil {
		events = []pickem.FeedEvent{}
	}
	n := Notification{Type: typ, GameID: gameID, UpdatedAt: at, Events: events}
	if err := s.notifier.Notify(ctx, gameID, n); err != nil {
		s.metrics.NotifyFailed()
		s.logger.WarnContext(ctx, "notification failed", "game_id", gameID, "type", typ, "error", err)
	}
}
