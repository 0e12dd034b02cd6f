package game

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/playperu/pickem/internal/pickem"
)

type CreateGameRequest struct {
	CardID         string          `json:"cardId"`
	Mode           pickem.GameMode `json:"mode"`
	AllowLateJoins bool            `json:"allowLateJoins"`
}

// StatusUpdate changes a game's status and/or late-join flag. Nil fields are
// left alone.
type StatusUpdate struct {
	Status         *pickem.GameStatus `json:"status,omitempty"`
	AllowLateJoins *bool              `json:"allowLateJoins,omitempty"`
}

func (s *Service) CreateGame(ctx context.Context, hostID string, req CreateGameRequest) (_ pickem.Game, err error) {
	defer s.observe("create_game", time.Now(), &err)

	card, err := s.GetCard(ctx, req.CardID, hostID)
	if err != nil {
		return pickem.Game{}, err
	}
	mode := req.Mode
	switch mode {
	case "":
		mode = pickem.ModeRoom
	case pickem.ModeRoom, pickem.ModeSolo:
	default:
		return pickem.Game{}, validation("unknown mode %q", mode)
	}

	now := s.clock()
	key := pickem.NormalizeKey(pickem.KeyPayload{})
	key.Timers = pickem.SyncSystemTimers(card, nil)
	g := pickem.Game{
		ID:             uuid.NewString(),
		CardID:         card.ID,
		HostID:         hostID,
		Mode:           mode,
		Status:         pickem.StatusLobby,
		AllowLateJoins: req.AllowLateJoins,
		ExpiresAt:      now.Add(s.gameTTL),
		Key:            key,
		Locks:          pickem.NewLockState(),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	for range joinCodeAttempts {
		g.JoinCode = s.joinCode()
		if taken, err := s.joinCodeTaken(ctx, g.JoinCode); err != nil {
			return pickem.Game{}, err
		} else if taken {
			continue
		}
		err := s.store.CreateGame(ctx, g)
		if errors.Is(err, ErrConflict) {
			continue
		}
		if err != nil {
			return pickem.Game{}, fmt.Errorf("creating game: %w", err)
		}
		s.logger.InfoContext(ctx, "game created", "game_id", g.ID, "card_id", card.ID, "join_code", g.JoinCode)
		return g, nil
	}
	return pickem.Game{}, fmt.Errorf("no free join code after %d attempts", joinCodeAttempts)
}

func (s *Service) joinCodeTaken(ctx context.Context, code string) (bool, error) {
	g, err := s.store.GameByJoinCode(ctx, code)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking join code: %w", err)
	}
	return g.Mode == pickem.ModeRoom && g.Status != pickem.StatusEnded && s.clock().Before(g.ExpiresAt), nil
}

func (s *Service) GetGameForHost(ctx context.Context, gameID, hostID string) (pickem.Game, error) {
	g, _, err := s.hostGame(ctx, gameID, hostID)
	return g, err
}

func (s *Service) GetGameByJoinCode(ctx context.Context, code string) (pickem.Game, error) {
	g, err := s.store.GameByJoinCode(ctx, NormalizeJoinCode(code))
	if err != nil {
		return pickem.Game{}, fmt.Errorf("looking up join code: %w", err)
	}
	return g, nil
}

func (s *Service) UpdateGameStatus(ctx context.Context, gameID, hostID string, upd StatusUpdate) (_ pickem.Game, err error) {
	defer s.observe("update_status", time.Now(), &err)

	g, _, err := s.hostGame(ctx, gameID, hostID)
	if err != nil {
		return pickem.Game{}, err
	}

	var events []pickem.FeedEvent
	next := g
	if upd.Status != nil && *upd.Status != g.Status {
		if !upd.Status.Valid() {
			return pickem.Game{}, validation("unknown status %q", *upd.Status)
		}
		if !g.Status.CanTransition(*upd.Status) {
			return pickem.Game{}, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, g.Status, *upd.Status)
		}
		next.Status = *upd.Status
		events = append(events, pickem.FeedEvent{Type: pickem.EventGameStatus, Message: statusMessage(next.Status)})
	}
	if upd.AllowLateJoins != nil && *upd.AllowLateJoins != g.AllowLateJoins {
		if g.Status == pickem.StatusEnded {
			return pickem.Game{}, ErrGameEnded
		}
		next.AllowLateJoins = *upd.AllowLateJoins
		msg := "Late entries closed"
		if next.AllowLateJoins {
			msg = "Late entries opened"
		}
		events = append(events, pickem.FeedEvent{Type: pickem.EventGameEntries, Message: msg})
	}
	if len(events) == 0 {
		return g, nil
	}
	return s.saveGame(ctx, next, g.UpdatedAt, NotifyStatus, events)
}

func statusMessage(st pickem.GameStatus) string {
	switch st {
	case pickem.StatusLive:
		return "Game is live"
	case pickem.StatusEnded:
		return "Game ended"
	}
	return "Game is in the lobby"
}

// UpdateLocks replaces the stored lock flags with ls.
func (s *Service) UpdateLocks(ctx context.Context, gameID, hostID string, ls pickem.LockState, expected *time.Time) (_ pickem.Game, err error) {
	defer s.observe("update_locks", time.Now(), &err)

	g, card, err := s.hostGame(ctx, gameID, hostID)
	if err != nil {
		return pickem.Game{}, err
	}
	if g.Status == pickem.StatusEnded {
		return pickem.Game{}, ErrGameEnded
	}
	if err := checkExpected(expected, g.UpdatedAt); err != nil {
		return pickem.Game{}, err
	}

	next := g
	next.Locks = pickem.NormalizeLocks(ls)
	events := pickem.DiffLockMutation(card, g.Locks, next.Locks)
	return s.saveGame(ctx, next, g.UpdatedAt, NotifyLocks, events)
}

// UpdateKey merges the host's key snapshot into the stored key, re-derives
// system timers, drops overrides whose key answer changed, applies automatic
// locks and auto-accepts high-confidence review candidates.
func (s *Service) UpdateKey(ctx context.Context, gameID, hostID string, incoming pickem.KeyPayload, expected *time.Time) (_ pickem.Game, err error) {
	defer s.observe("update_key", time.Now(), &err)

	g, card, err := s.hostGame(ctx, gameID, hostID)
	if err != nil {
		return pickem.Game{}, err
	}
	if g.Status == pickem.StatusEnded {
		return pickem.Game{}, ErrGameEnded
	}
	if err := checkExpected(expected, g.UpdatedAt); err != nil {
		s.logger.InfoContext(ctx, "stale key update rejected", "game_id", gameID)
		return pickem.Game{}, err
	}

	key := pickem.MergeKey(g.Key, pickem.NormalizeKey(incoming))
	key.Timers = pickem.SyncSystemTimers(card, key.Timers)
	key = pickem.PruneOverrides(card, g.Key, key)
	locks := pickem.ApplyAutoLocks(card, g.Key, key, g.Locks)

	players, err := s.store.ListPlayers(ctx, g.ID)
	if err != nil {
		return pickem.Game{}, fmt.Errorf("listing players: %w", err)
	}
	key, accepted := pickem.AutoAccept(key, pickem.ReviewCandidates(card, key, players))
	if len(accepted) > 0 {
		s.metrics.AutoAccepted(len(accepted))
	}

	events := pickem.DiffGameMutation(card, g.Key, key, g.Locks, locks)

	next := g
	next.Key = key
	next.Locks = locks
	return s.saveGame(ctx, next, g.UpdatedAt, NotifyKey, events)
}

func (s *Service) ListReviewCandidates(ctx context.Context, gameID, hostID string) ([]pickem.ReviewCandidate, error) {
	g, card, err := s.hostGame(ctx, gameID, hostID)
	if err != nil {
		return nil, err
	}
	players, err := s.store.ListPlayers(ctx, g.ID)
	if err != nil {
		return nil, fmt.Errorf("listing players: %w", err)
	}
	return pickem.ReviewCandidates(card, g.Key, players), nil
}

// ResolveOverride records a host's verdict on a review candidate. A later
// verdict for the same subject and nickname replaces the earlier one.
func (s *Service) ResolveOverride(ctx context.Context, gameID, hostID string, d pickem.OverrideDecision, expected *time.Time) (_ pickem.Game, err error) {
	defer s.observe("resolve_override", time.Now(), &err)

	g, card, err := s.hostGame(ctx, gameID, hostID)
	if err != nil {
		return pickem.Game{}, err
	}
	if g.Status == pickem.StatusEnded {
		return pickem.Game{}, ErrGameEnded
	}
	if err := checkExpected(expected, g.UpdatedAt); err != nil {
		return pickem.Game{}, err
	}
	if err := validateDecision(card, d); err != nil {
		return pickem.Game{}, err
	}

	d.Source = pickem.OverrideByHost
	next := g
	next.Key = pickem.ApplyOverride(g.Key, d)
	events := pickem.DiffKeyMutation(card, g.Key, next.Key)
	return s.saveGame(ctx, next, g.UpdatedAt, NotifyKey, events)
}

func validateDecision(card pickem.Card, d pickem.OverrideDecision) error {
	if pickem.IsEmpty(d.Nickname) {
		return validation("nickname is required")
	}
	switch d.Kind {
	case pickem.CandidateWinner:
		if _, ok := card.FindMatch(d.MatchID); !ok {
			return validation("unknown match %q", d.MatchID)
		}
	case pickem.CandidateBonus:
		if !card.HasQuestion(d.MatchID, d.QuestionID) {
			return validation("unknown question %q", pickem.BonusKey(d.MatchID, d.QuestionID))
		}
	default:
		return validation("unknown override kind %q", d.Kind)
	}
	return nil
}
