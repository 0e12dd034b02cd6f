package game

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/playperu/pickem/internal/pickem"
)

func (s *Service) CreateCard(ctx context.Context, hostID string, c pickem.Card) (_ pickem.Card, err error) {
	defer s.observe("create_card", time.Now(), &err)

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.HostID = hostID
	if err := c.Validate(); err != nil {
		return pickem.Card{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	now := s.clock()
	c.CreatedAt, c.UpdatedAt = now, now
	if err := s.store.CreateCard(ctx, c); err != nil {
		return pickem.Card{}, fmt.Errorf("creating card: %w", err)
	}
	return c, nil
}

func (s *Service) GetCard(ctx context.Context, cardID, hostID string) (pickem.Card, error) {
	c, err := s.store.GetCard(ctx, cardID)
	if err != nil {
		return pickem.Card{}, fmt.Errorf("loading card: %w", err)
	}
	if c.HostID != hostID {
		return pickem.Card{}, ErrForbidden
	}
	return c, nil
}

func (s *Service) ListCards(ctx context.Context, hostID string) ([]pickem.Card, error) {
	cards, err := s.store.ListCards(ctx, hostID)
	if err != nil {
		return nil, fmt.Errorf("listing cards: %w", err)
	}
	if cards == nil {
		cards = []pickem.Card{}
	}
	return cards, nil
}

// UpdateCard replaces a card's content. Games still running from the card get
// their system timers re-derived so timers for new matches appear and timers
// for removed ones go away without resetting the others.
func (s *Service) UpdateCard(ctx context.Context, hostID string, c pickem.Card) (_ pickem.Card, err error) {
	defer s.observe("update_card", time.Now(), &err)

	existing, err := s.GetCard(ctx, c.ID, hostID)
	if err != nil {
		return pickem.Card{}, err
	}
	c.HostID = hostID
	c.CreatedAt = existing.CreatedAt
	if err := c.Validate(); err != nil {
		return pickem.Card{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	c.UpdatedAt = s.clock()
	if err := s.store.UpdateCard(ctx, c); err != nil {
		return pickem.Card{}, fmt.Errorf("updating card: %w", err)
	}

	games, err := s.store.ListOpenGamesByCard(ctx, c.ID)
	if err != nil {
		return pickem.Card{}, fmt.Errorf("listing games for card: %w", err)
	}
	for _, g := range games {
		if err := s.resyncTimers(ctx, c, g); err != nil {
			s.logger.WarnContext(ctx, "resyncing system timers", "game_id", g.ID, "card_id", c.ID, "error", err)
		}
	}
	return c, nil
}

func (s *Service) resyncTimers(ctx context.Context, c pickem.Card, g pickem.Game) error {
	timers := pickem.SyncSystemTimers(c, g.Key.Timers)
	if slices.EqualFunc(timers, g.Key.Timers, sameTimer) {
		return nil
	}
	_, err := s.saveGame(ctx, withTimers(g, timers), g.UpdatedAt, NotifyCard, nil)
	if errors.Is(err, ErrConflict) {
		// The host's next key save re-syncs against the new card.
		return nil
	}
	return err
}

func withTimers(g pickem.Game, timers []pickem.Timer) pickem.Game {
	g.Key.Timers = timers
	return g
}

func sameTimer(a, b pickem.Timer) bool {
	return a.ID == b.ID && a.Label == b.Label && a.ElapsedMs == b.ElapsedMs && a.IsRunning == b.IsRunning
}
