package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/playperu/pickem/internal/game"
)

type Host struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func (s *Store) CreateHost(ctx context.Context, email, passwordHash string) (Host, error) {
	h := Host{ID: newID(), Email: strings.ToLower(strings.TrimSpace(email))}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO hosts (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		h.ID, h.Email, passwordHash, millis(time.Now()),
	)
	if isUniqueViolation(err) {
		return Host{}, game.ErrConflict
	}
	return h, err
}

func (s *Store) HostByEmail(ctx context.Context, email string) (Host, string, error) {
	var h Host
	var passwordHash string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash FROM hosts WHERE email = ?`, email,
	).Scan(&h.ID, &h.Email, &passwordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return Host{}, "", game.ErrNotFound
	}
	return h, passwordHash, err
}

func (s *Store) CountHosts(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM hosts`).Scan(&n)
	return n, err
}

// CreateHostSession stores a session under the hash of its token.
func (s *Store) CreateHostSession(ctx context.Context, hostID, tokenHash string, expires time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO host_sessions (id, host_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		tokenHash, hostID, millis(time.Now()), millis(expires),
	)
	return err
}

func (s *Store) HostFromSession(ctx context.Context, tokenHash string) (Host, error) {
	var h Host
	err := s.db.QueryRowContext(ctx, `
		SELECT h.id, h.email
		FROM host_sessions s
		JOIN hosts h ON h.id = s.host_id
		WHERE s.id = ? AND s.expires_at > ?
	`, tokenHash, millis(time.Now())).Scan(&h.ID, &h.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return Host{}, game.ErrNotFound
	}
	return h, err
}

func (s *Store) DeleteHostSession(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM host_sessions WHERE id = ?`, tokenHash)
	return err
}
