package game

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrValidation        = errors.New("validation failed")
	ErrForbidden         = errors.New("forbidden")
	ErrGameEnded         = errors.New("game has ended")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// ConflictError reports a stale expectedUpdatedAt. Current is the version the
// caller should reload.
type ConflictError struct {
	Current time.Time
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict: current version is %s", e.Current.Format(time.RFC3339Nano))
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// JoinReason is a user-displayable reason a join was refused.
type JoinReason string

const (
	JoinNotFound        JoinReason = "not-found"
	JoinExpired         JoinReason = "expired"
	JoinEnded           JoinReason = "ended"
	JoinEntryClosed     JoinReason = "entry-closed"
	JoinNicknameTaken   JoinReason = "nickname-taken"
	JoinSessionMismatch JoinReason = "session-mismatch"
)

type JoinError struct {
	Reason JoinReason
}

func (e *JoinError) Error() string { return "join rejected: " + string(e.Reason) }

func joinError(r JoinReason) error { return &JoinError{Reason: r} }

func validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
