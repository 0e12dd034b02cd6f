package game

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/playperu/pickem/internal/pickem"
)

const maxNicknameLen = 40

type JoinRequest struct {
	Code        string
	Nickname    string
	SessionHash string
	Identity    string
	Device      pickem.DeviceInfo
}

type JoinResult struct {
	Game   pickem.Game   `json:"game"`
	Player pickem.Player `json:"player"`
	IsNew  bool          `json:"isNew"`
}

// JoinGame attaches a caller to the game behind a join code. A caller whose
// session or linked identity already has a player in the game gets that player
// back; everyone else becomes a new player if the game still takes entries and
// the nickname is free.
func (s *Service) JoinGame(ctx context.Context, req JoinRequest) (_ JoinResult, err error) {
	defer s.observe("join", time.Now(), &err)

	g, err := s.store.GameByJoinCode(ctx, NormalizeJoinCode(req.Code))
	if errors.Is(err, ErrNotFound) {
		return JoinResult{}, joinError(JoinNotFound)
	}
	if err != nil {
		return JoinResult{}, fmt.Errorf("looking up join code: %w", err)
	}
	if g.Status == pickem.StatusEnded {
		return JoinResult{}, joinError(JoinEnded)
	}
	now := s.clock()
	if !now.Before(g.ExpiresAt) {
		return JoinResult{}, joinError(JoinExpired)
	}

	if req.Identity != "" {
		p, err := s.store.PlayerByIdentity(ctx, g.ID, req.Identity)
		switch {
		case err == nil:
			if req.SessionHash != "" {
				if err := s.store.BindSession(ctx, p.ID, req.SessionHash); err != nil {
					return JoinResult{}, fmt.Errorf("binding session: %w", err)
				}
			}
			return JoinResult{Game: g, Player: p}, nil
		case !errors.Is(err, ErrNotFound):
			return JoinResult{}, fmt.Errorf("looking up identity: %w", err)
		}
	}

	if req.SessionHash != "" {
		p, err := s.store.PlayerBySession(ctx, g.ID, req.SessionHash)
		switch {
		case err == nil:
			if req.Identity != "" && p.Identity != "" && p.Identity != req.Identity {
				return JoinResult{}, joinError(JoinSessionMismatch)
			}
			return JoinResult{Game: g, Player: p}, nil
		case !errors.Is(err, ErrNotFound):
			return JoinResult{}, fmt.Errorf("looking up session: %w", err)
		}
	}

	nickname := strings.Join(strings.Fields(req.Nickname), " ")
	normalized := pickem.NormalizeNickname(nickname)
	if normalized == "" {
		return JoinResult{}, validation("nickname is required")
	}
	if len([]rune(nickname)) > maxNicknameLen {
		return JoinResult{}, validation("nickname is longer than %d characters", maxNicknameLen)
	}
	if req.SessionHash == "" {
		return JoinResult{}, validation("session is required")
	}
	if _, err := s.store.PlayerByNickname(ctx, g.ID, normalized); err == nil {
		return JoinResult{}, joinError(JoinNicknameTaken)
	} else if !errors.Is(err, ErrNotFound) {
		return JoinResult{}, fmt.Errorf("looking up nickname: %w", err)
	}

	if g.Status == pickem.StatusLive && !g.AllowLateJoins {
		return JoinResult{}, joinError(JoinEntryClosed)
	}
	if g.Mode == pickem.ModeSolo {
		players, err := s.store.ListPlayers(ctx, g.ID)
		if err != nil {
			return JoinResult{}, fmt.Errorf("listing players: %w", err)
		}
		if len(players) > 0 {
			return JoinResult{}, joinError(JoinEntryClosed)
		}
	}

	method := pickem.AuthGuest
	if req.Identity != "" {
		method = pickem.AuthLinked
	}
	p := pickem.Player{
		ID:                 uuid.NewString(),
		GameID:             g.ID,
		AuthMethod:         method,
		Identity:           req.Identity,
		Nickname:           nickname,
		NormalizedNickname: normalized,
		Picks:              pickem.NormalizePicks(pickem.PicksPayload{}),
		JoinedAt:           now,
		LastSeenAt:         now,
		UpdatedAt:          now,
		Device:             req.Device,
	}
	if err := s.store.CreatePlayer(ctx, p, req.SessionHash); err != nil {
		if errors.Is(err, ErrConflict) {
			return JoinResult{}, joinError(JoinNicknameTaken)
		}
		return JoinResult{}, fmt.Errorf("creating player: %w", err)
	}

	s.logger.InfoContext(ctx, "player joined", "game_id", g.ID, "player_id", p.ID)
	s.publish(ctx, g.ID, NotifyPlayers, now, []pickem.FeedEvent{{
		Type:    pickem.EventPlayerJoined,
		Message: p.Nickname + " joined",
	}})
	return JoinResult{Game: g, Player: p, IsNew: true}, nil
}

type SubmitResult struct {
	Player              pickem.Player `json:"player"`
	IgnoredLockedFields []string      `json:"ignoredLockedFields"`
}

// SubmitPicks merges a player's picks over their stored picks. Fields whose
// effective lock is set keep their stored value and are reported back.
func (s *Service) SubmitPicks(ctx context.Context, gameID, sessionHash string, picks pickem.PicksPayload, expected *time.Time) (_ SubmitResult, err error) {
	defer s.observe("submit_picks", time.Now(), &err)

	g, p, err := s.sessionPlayer(ctx, gameID, sessionHash)
	if err != nil {
		return SubmitResult{}, err
	}
	if g.Status == pickem.StatusEnded {
		return SubmitResult{}, ErrGameEnded
	}
	if expected != nil && !expected.UTC().Truncate(time.Millisecond).Equal(p.UpdatedAt) {
		return SubmitResult{}, &ConflictError{Current: p.UpdatedAt}
	}
	card, err := s.store.GetCard(ctx, g.CardID)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("loading card: %w", err)
	}

	merged, ignored := pickem.MergePicks(card, g.Locks, pickem.NormalizePicks(picks), p.Picks)
	next := p
	next.Picks = merged
	next, err = s.savePlayer(ctx, next, p.UpdatedAt)
	if err != nil {
		return SubmitResult{}, err
	}
	if next.IsSubmitted {
		s.publish(ctx, g.ID, NotifyPicks, next.UpdatedAt, nil)
	}
	return SubmitResult{Player: next, IgnoredLockedFields: ignored}, nil
}

// MarkSubmitted enters a player's picks into scoring. Marking twice is a no-op.
func (s *Service) MarkSubmitted(ctx context.Context, gameID, sessionHash string) (_ pickem.Player, err error) {
	defer s.observe("mark_submitted", time.Now(), &err)

	g, p, err := s.sessionPlayer(ctx, gameID, sessionHash)
	if err != nil {
		return pickem.Player{}, err
	}
	if g.Status == pickem.StatusEnded {
		return pickem.Player{}, ErrGameEnded
	}
	if p.IsSubmitted {
		return p, nil
	}

	next := p
	next.IsSubmitted = true
	at := s.clock()
	next.SubmittedAt = &at
	next, err = s.savePlayer(ctx, next, p.UpdatedAt)
	if err != nil {
		return pickem.Player{}, err
	}
	s.publish(ctx, g.ID, NotifyPlayers, next.UpdatedAt, []pickem.FeedEvent{{
		Type:    pickem.EventPlayerSubmit,
		Message: next.Nickname + " submitted picks",
	}})
	return next, nil
}

func (s *Service) sessionPlayer(ctx context.Context, gameID, sessionHash string) (pickem.Game, pickem.Player, error) {
	if sessionHash == "" {
		return pickem.Game{}, pickem.Player{}, ErrForbidden
	}
	g, err := s.store.GetGame(ctx, gameID)
	if err != nil {
		return pickem.Game{}, pickem.Player{}, fmt.Errorf("loading game: %w", err)
	}
	p, err := s.store.PlayerBySession(ctx, gameID, sessionHash)
	if errors.Is(err, ErrNotFound) {
		return pickem.Game{}, pickem.Player{}, ErrForbidden
	}
	if err != nil {
		return pickem.Game{}, pickem.Player{}, fmt.Errorf("loading player: %w", err)
	}
	return g, p, nil
}

func (s *Service) savePlayer(ctx context.Context, p pickem.Player, prev time.Time) (pickem.Player, error) {
	p.UpdatedAt = s.nextVersion(prev)
	if err := s.store.UpdatePlayer(ctx, p, prev); err != nil {
		if errors.Is(err, ErrConflict) {
			s.logger.InfoContext(ctx, "stale picks write rejected", "game_id", p.GameID, "player_id", p.ID)
			if cur, err := s.store.GetPlayer(ctx, p.ID); err == nil {
				return pickem.Player{}, &ConflictError{Current: cur.UpdatedAt}
			}
			return pickem.Player{}, ErrConflict
		}
		return pickem.Player{}, fmt.Errorf("saving player: %w", err)
	}
	return p, nil
}
