package game

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/playperu/pickem/internal/pickem"
)

// Viewer identifies who is polling a game: the owning host or a player
// session.
type Viewer struct {
	HostID      string
	SessionHash string
}

type PlayerSummary struct {
	ID          string     `json:"id"`
	Nickname    string     `json:"nickname"`
	IsSubmitted bool       `json:"isSubmitted"`
	SubmittedAt *time.Time `json:"submittedAt"`
	JoinedAt    time.Time  `json:"joinedAt"`
	LastSeenAt  time.Time  `json:"lastSeenAt"`
}

type GameState struct {
	Game           pickem.Game               `json:"game"`
	Card           pickem.Card               `json:"card"`
	JoinedPlayers  []PlayerSummary           `json:"joinedPlayers"`
	Leaderboard    []pickem.LeaderboardEntry `json:"leaderboard"`
	RecentEvents   []Event                   `json:"recentEvents"`
	PlayerCount    int                       `json:"playerCount"`
	SubmittedCount int                       `json:"submittedCount"`
	Me             *pickem.Player            `json:"me,omitempty"`
}

// GetGameState is the poll response for hosts, spectators on the host's
// session and players. Player polls refresh the player's lastSeenAt.
func (s *Service) GetGameState(ctx context.Context, gameID string, v Viewer) (GameState, error) {
	g, err := s.store.GetGame(ctx, gameID)
	if err != nil {
		return GameState{}, fmt.Errorf("loading game: %w", err)
	}

	me, err := s.viewerPlayer(ctx, g, v)
	if err != nil {
		return GameState{}, err
	}
	if me != nil {
		me.LastSeenAt = s.clock()
		if err := s.store.TouchPlayer(ctx, me.ID, me.LastSeenAt); err != nil {
			s.logger.WarnContext(ctx, "updating last seen", "game_id", gameID, "player_id", me.ID, "error", err)
		}
	}

	card, err := s.store.GetCard(ctx, g.CardID)
	if err != nil {
		return GameState{}, fmt.Errorf("loading card: %w", err)
	}
	players, err := s.store.ListPlayers(ctx, gameID)
	if err != nil {
		return GameState{}, fmt.Errorf("listing players: %w", err)
	}
	events, err := s.store.RecentEvents(ctx, gameID, pickem.FeedCap)
	if err != nil {
		return GameState{}, fmt.Errorf("loading events: %w", err)
	}
	if events == nil {
		events = []Event{}
	}

	st := GameState{
		Game:          g,
		Card:          card,
		JoinedPlayers: make([]PlayerSummary, 0, len(players)),
		Leaderboard:   pickem.ComputeLeaderboard(card, g.Key, players),
		RecentEvents:  events,
		PlayerCount:   len(players),
		Me:            me,
	}
	for _, p := range players {
		if me != nil && p.ID == me.ID {
			p.LastSeenAt = me.LastSeenAt
		}
		st.JoinedPlayers = append(st.JoinedPlayers, PlayerSummary{
			ID:          p.ID,
			Nickname:    p.Nickname,
			IsSubmitted: p.IsSubmitted,
			SubmittedAt: p.SubmittedAt,
			JoinedAt:    p.JoinedAt,
			LastSeenAt:  p.LastSeenAt,
		})
		if p.IsSubmitted {
			st.SubmittedCount++
		}
	}
	return st, nil
}

// Authorize checks that v may follow the game's live feed.
func (s *Service) Authorize(ctx context.Context, gameID string, v Viewer) error {
	g, err := s.store.GetGame(ctx, gameID)
	if err != nil {
		return fmt.Errorf("loading game: %w", err)
	}
	_, err = s.viewerPlayer(ctx, g, v)
	return err
}

// viewerPlayer resolves v against g. The owning host gets a nil player.
func (s *Service) viewerPlayer(ctx context.Context, g pickem.Game, v Viewer) (*pickem.Player, error) {
	if v.HostID != "" && v.HostID == g.HostID {
		return nil, nil
	}
	if v.SessionHash == "" {
		return nil, ErrForbidden
	}
	p, err := s.store.PlayerBySession(ctx, g.ID, v.SessionHash)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrForbidden
	}
	if err != nil {
		return nil, fmt.Errorf("loading player: %w", err)
	}
	return &p, nil
}
