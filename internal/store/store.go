// Package store persists pickem documents in libSQL. Each row carries its
// document as JSONB next to the columns queries filter on, and game and player
// rows are updated with compare-and-set on updated_at.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/playperu/pickem/internal/game"
	"github.com/playperu/pickem/internal/pickem"
)

type Store struct {
	db *sql.DB
}

var _ game.Store = (*Store)(nil)

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// get scans the JSON document selected by query into dest.
func (s *Store) get(ctx context.Context, dest any, query string, args ...any) error {
	var data string
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return game.ErrNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(data), dest)
}

// list scans one JSON document per row.
func list[T any](ctx context.Context, db *sql.DB, query string, args ...any) ([]T, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var v T
		if err := json.Unmarshal([]byte(data), &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// compareAndSet maps a zero-row conditional update to ErrConflict, or to
// ErrNotFound when the row is gone.
func (s *Store) compareAndSet(ctx context.Context, res sql.Result, table, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var exists bool
	err = s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE id = ?)`, table), id,
	).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return game.ErrNotFound
	}
	return game.ErrConflict
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func millis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func newID() string { return uuid.NewString() }

// Cards

func (s *Store) CreateCard(ctx context.Context, c pickem.Card) error {
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO cards (id, host_id, data, updated_at) VALUES (?, ?, jsonb(?), ?)`,
		c.ID, c.HostID, string(data), millis(c.UpdatedAt),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: card %s already exists", game.ErrConflict, c.ID)
	}
	return err
}

func (s *Store) GetCard(ctx context.Context, id string) (pickem.Card, error) {
	var c pickem.Card
	err := s.get(ctx, &c, `SELECT json(data) FROM cards WHERE id = ?`, id)
	return c, err
}

func (s *Store) ListCards(ctx context.Context, hostID string) ([]pickem.Card, error) {
	return list[pickem.Card](ctx, s.db,
		`SELECT json(data) FROM cards WHERE host_id = ? ORDER BY updated_at DESC, id`, hostID)
}

func (s *Store) UpdateCard(ctx context.Context, c pickem.Card) error {
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE cards SET host_id = ?, data = jsonb(?), updated_at = ? WHERE id = ?`,
		c.HostID, string(data), millis(c.UpdatedAt), c.ID,
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return game.ErrNotFound
	}
	return nil
}

// Games

func (s *Store) CreateGame(ctx context.Context, g pickem.Game) error {
	data, err := json.Marshal(g)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO games (id, card_id, host_id, mode, status, join_code, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, jsonb(?), ?, ?)
	`, g.ID, g.CardID, g.HostID, g.Mode, g.Status, g.JoinCode, string(data),
		millis(g.CreatedAt), millis(g.UpdatedAt))
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: join code %s in use", game.ErrConflict, g.JoinCode)
	}
	return err
}

func (s *Store) GetGame(ctx context.Context, id string) (pickem.Game, error) {
	var g pickem.Game
	err := s.get(ctx, &g, `SELECT json(data) FROM games WHERE id = ?`, id)
	return g, err
}

// GameByJoinCode prefers the open game holding the code and falls back to the
// most recent ended or solo game that used it.
func (s *Store) GameByJoinCode(ctx context.Context, code string) (pickem.Game, error) {
	var g pickem.Game
	err := s.get(ctx, &g, `
		SELECT json(data) FROM games
		WHERE join_code = ?
		ORDER BY (status <> 'ended') DESC, created_at DESC
		LIMIT 1
	`, code)
	return g, err
}

func (s *Store) ListOpenGamesByCard(ctx context.Context, cardID string) ([]pickem.Game, error) {
	return list[pickem.Game](ctx, s.db,
		`SELECT json(data) FROM games WHERE card_id = ? AND status <> 'ended' ORDER BY created_at`, cardID)
}

func (s *Store) UpdateGame(ctx context.Context, g pickem.Game, prev time.Time) error {
	data, err := json.Marshal(g)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE games SET status = ?, data = jsonb(?), updated_at = ?
		WHERE id = ? AND updated_at = ?
	`, g.Status, string(data), millis(g.UpdatedAt), g.ID, millis(prev))
	if err != nil {
		return err
	}
	return s.compareAndSet(ctx, res, "games", g.ID)
}

// Players

// Presence lives in last_seen_at rather than the document, so polls and
// picks writes never overwrite each other.
const playerColumns = `json(data), last_seen_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanPlayer(row scanner) (pickem.Player, error) {
	var (
		data string
		seen int64
		p    pickem.Player
	)
	if err := row.Scan(&data, &seen); err != nil {
		return pickem.Player{}, err
	}
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return pickem.Player{}, err
	}
	if seen > 0 {
		p.LastSeenAt = fromMillis(seen)
	}
	return p, nil
}

func (s *Store) getPlayer(ctx context.Context, where string, args ...any) (pickem.Player, error) {
	p, err := scanPlayer(s.db.QueryRowContext(ctx, `SELECT `+playerColumns+` FROM players WHERE `+where, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return pickem.Player{}, game.ErrNotFound
	}
	return p, err
}

func (s *Store) CreatePlayer(ctx context.Context, p pickem.Player, sessionHash string) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO players (id, game_id, normalized_nickname, identity, session_hash, data, updated_at, last_seen_at)
		VALUES (?, ?, ?, ?, ?, jsonb(?), ?, ?)
	`, p.ID, p.GameID, p.NormalizedNickname, p.Identity, sessionHash, string(data), millis(p.UpdatedAt), millis(p.LastSeenAt))
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: nickname or identity taken", game.ErrConflict)
	}
	return err
}

func (s *Store) GetPlayer(ctx context.Context, id string) (pickem.Player, error) {
	return s.getPlayer(ctx, `id = ?`, id)
}

func (s *Store) PlayerBySession(ctx context.Context, gameID, sessionHash string) (pickem.Player, error) {
	return s.getPlayer(ctx, `game_id = ? AND session_hash = ?`, gameID, sessionHash)
}

func (s *Store) PlayerByNickname(ctx context.Context, gameID, normalized string) (pickem.Player, error) {
	return s.getPlayer(ctx, `game_id = ? AND normalized_nickname = ?`, gameID, normalized)
}

func (s *Store) PlayerByIdentity(ctx context.Context, gameID, identity string) (pickem.Player, error) {
	return s.getPlayer(ctx, `game_id = ? AND identity = ? AND identity <> ''`, gameID, identity)
}

func (s *Store) ListPlayers(ctx context.Context, gameID string) ([]pickem.Player, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+playerColumns+` FROM players WHERE game_id = ? ORDER BY rowid`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pickem.Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) UpdatePlayer(ctx context.Context, p pickem.Player, prev time.Time) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE players SET data = jsonb(?), updated_at = ?, last_seen_at = max(last_seen_at, ?)
		WHERE id = ? AND updated_at = ?
	`, string(data), millis(p.UpdatedAt), millis(p.LastSeenAt), p.ID, millis(prev))
	if err != nil {
		return err
	}
	return s.compareAndSet(ctx, res, "players", p.ID)
}

func (s *Store) BindSession(ctx context.Context, playerID, sessionHash string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE players SET session_hash = ? WHERE id = ?`, sessionHash, playerID)
	return err
}

// TouchPlayer records presence without bumping the player's version, so a
// poll never invalidates a client's pending picks write. Presence only moves
// forward.
func (s *Store) TouchPlayer(ctx context.Context, playerID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE players SET last_seen_at = max(last_seen_at, ?) WHERE id = ?`,
		millis(at), playerID)
	return err
}

// Events

func (s *Store) AppendEvents(ctx context.Context, gameID string, events []pickem.FeedEvent, at time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, e := range events {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO events (id, game_id, type, message, created_at) VALUES (?, ?, ?, ?, ?)`,
			newID(), gameID, e.Type, e.Message, millis(at),
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// RecentEvents returns up to limit events, newest first.
func (s *Store) RecentEvents(ctx context.Context, gameID string, limit int) ([]game.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, game_id, type, message, created_at
		FROM events
		WHERE game_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, gameID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []game.Event
	for rows.Next() {
		var e game.Event
		var at int64
		if err := rows.Scan(&e.ID, &e.GameID, &e.Type, &e.Message, &at); err != nil {
			return nil, err
		}
		e.CreatedAt = fromMillis(at)
		events = append(events, e)
	}
	return events, rows.Err()
}
