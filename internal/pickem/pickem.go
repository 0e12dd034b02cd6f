// Package pickem defines the domain types of a live pick'em game and the pure
// functions that grade, lock, merge, score and diff them. Nothing in here
// touches storage or the network; every function is a value in, value out
// transformation so callers can diff against the last persisted copy.
package pickem

import (
	"strings"
	"time"
)

// KeyDelimiter joins a match id and a question id into the composite key used
// by match-bonus locks, bonus timers and override subjects. Ids must never
// contain it (see ValidID).
const KeyDelimiter = ":"

// BonusKey returns the composite key for a match-scoped bonus question.
func BonusKey(matchID, questionID string) string {
	return matchID + KeyDelimiter + questionID
}

// ValidID reports whether id can take part in a composite key.
func ValidID(id string) bool {
	return strings.TrimSpace(id) != "" && !strings.Contains(id, KeyDelimiter)
}

type GameMode string

const (
	ModeRoom GameMode = "room"
	ModeSolo GameMode = "solo"
)

type GameStatus string

const (
	StatusLobby GameStatus = "lobby"
	StatusLive  GameStatus = "live"
	StatusEnded GameStatus = "ended"
)

func (s GameStatus) order() int {
	switch s {
	case StatusLobby:
		return 0
	case StatusLive:
		return 1
	case StatusEnded:
		return 2
	}
	return -1
}

// Valid reports whether s is a known status.
func (s GameStatus) Valid() bool { return s.order() >= 0 }

// CanTransition reports whether a game may move from s to next. Status only
// moves forward and ended is terminal.
func (s GameStatus) CanTransition(next GameStatus) bool {
	if !next.Valid() || !s.Valid() {
		return false
	}
	if next == s {
		return true
	}
	return s != StatusEnded && next.order() > s.order()
}

type ValueType string

const (
	ValueString       ValueType = "string"
	ValueNumerical    ValueType = "numerical"
	ValueTime         ValueType = "time"
	ValueRosterMember ValueType = "rosterMember"
)

// Numeric reports whether answers of this type are parsed to numbers before
// comparison.
func (v ValueType) Numeric() bool {
	return v == ValueNumerical || v == ValueTime
}

type AnswerShape string

const (
	ShapeWriteIn        AnswerShape = "write-in"
	ShapeMultipleChoice AnswerShape = "multiple-choice"
)

type GradingRule string

const (
	RuleExact     GradingRule = "exact"
	RuleClosest   GradingRule = "closest"
	RuleAtOrAbove GradingRule = "atOrAbove"
	RuleAtOrBelow GradingRule = "atOrBelow"
)

type LockSource string

const (
	LockByHost  LockSource = "host"
	LockByTimer LockSource = "timer"
)

type OverrideSource string

const (
	OverrideByHost OverrideSource = "host"
	OverrideByAuto OverrideSource = "auto"
)

type AuthMethod string

const (
	AuthGuest  AuthMethod = "guest"
	AuthLinked AuthMethod = "linked"
)

// Card is the host-owned template a game is played from.
type Card struct {
	ID                  string          `json:"id"`
	HostID              string          `json:"hostId"`
	Name                string          `json:"name"`
	DefaultPoints       int             `json:"defaultPoints"`
	Matches             []Match         `json:"matches"`
	EventBonusQuestions []BonusQuestion `json:"eventBonusQuestions"`
	TiebreakerLabel     string          `json:"tiebreakerLabel"`
	TiebreakerIsTime    bool            `json:"tiebreakerIsTime"`
	CreatedAt           time.Time       `json:"createdAt"`
	UpdatedAt           time.Time       `json:"updatedAt"`
}

type Match struct {
	ID             string          `json:"id"`
	Title          string          `json:"title"`
	Participants   []string        `json:"participants"`
	Points         int             `json:"points"`
	IsBattleRoyal  bool            `json:"isBattleRoyal"`
	SurpriseSlots  int             `json:"surpriseSlots"`
	SurprisePoints int             `json:"surprisePoints"`
	BonusQuestions []BonusQuestion `json:"bonusQuestions"`
}

type BonusQuestion struct {
	ID          string      `json:"id"`
	Prompt      string      `json:"prompt"`
	Points      *int        `json:"points"`
	AnswerShape AnswerShape `json:"answerShape"`
	Options     []string    `json:"options,omitempty"`
	ValueType   ValueType   `json:"valueType"`
	GradingRule GradingRule `json:"gradingRule"`
}

// PointsOr returns the question's own points, falling back to def.
func (q BonusQuestion) PointsOr(def int) int {
	if q.Points != nil {
		return *q.Points
	}
	return def
}

// Rule returns the grading rule that actually applies. Rules other than exact
// only make sense for numeric value types.
func (q BonusQuestion) Rule() GradingRule {
	if !q.ValueType.Numeric() {
		return RuleExact
	}
	switch q.GradingRule {
	case RuleClosest, RuleAtOrAbove, RuleAtOrBelow:
		return q.GradingRule
	}
	return RuleExact
}

// MatchPoints returns the winner points for m.
func (c Card) MatchPoints(m Match) int {
	if m.Points > 0 {
		return m.Points
	}
	return c.DefaultPoints
}

// FindMatch returns the card's match with the given id.
func (c Card) FindMatch(id string) (Match, bool) {
	for _, m := range c.Matches {
		if m.ID == id {
			return m, true
		}
	}
	return Match{}, false
}

// Timer tracks a banked duration. While running, the true elapsed time is
// ElapsedMs plus the time since StartedAt.
type Timer struct {
	ID        string     `json:"id"`
	Label     string     `json:"label"`
	ElapsedMs int64      `json:"elapsedMs"`
	IsRunning bool       `json:"isRunning"`
	StartedAt *time.Time `json:"startedAt"`
}

type Answer struct {
	QuestionID string     `json:"questionId"`
	Answer     string     `json:"answer"`
	RecordedAt *time.Time `json:"recordedAt,omitempty"`
	TimerID    string     `json:"timerId,omitempty"`
}

type MatchResult struct {
	MatchID               string     `json:"matchId"`
	WinnerName            string     `json:"winnerName"`
	WinnerRecordedAt      *time.Time `json:"winnerRecordedAt"`
	BattleRoyalEntryOrder []string   `json:"battleRoyalEntryOrder"`
	BonusAnswers          []Answer   `json:"bonusAnswers"`
}

// ScoreOverride credits (or explicitly refuses) a player's bonus answer. MatchID
// is empty for event-level questions.
type ScoreOverride struct {
	MatchID        string         `json:"matchId,omitempty"`
	QuestionID     string         `json:"questionId"`
	PlayerNickname string         `json:"playerNickname"`
	Accepted       bool           `json:"accepted"`
	Source         OverrideSource `json:"source"`
	Confidence     *float64       `json:"confidence"`
}

type WinnerOverride struct {
	MatchID        string         `json:"matchId"`
	PlayerNickname string         `json:"playerNickname"`
	Accepted       bool           `json:"accepted"`
	Source         OverrideSource `json:"source"`
	Confidence     *float64       `json:"confidence"`
}

// KeyPayload is the host's ground truth for a game.
type KeyPayload struct {
	Timers               []Timer          `json:"timers"`
	MatchResults         []MatchResult    `json:"matchResults"`
	EventBonusAnswers    []Answer         `json:"eventBonusAnswers"`
	TiebreakerAnswer     string           `json:"tiebreakerAnswer"`
	TiebreakerRecordedAt *time.Time       `json:"tiebreakerRecordedAt"`
	TiebreakerTimerID    string           `json:"tiebreakerTimerId"`
	ScoreOverrides       []ScoreOverride  `json:"scoreOverrides"`
	WinnerOverrides      []WinnerOverride `json:"winnerOverrides"`
}

// MatchResult returns the key's result for a match.
func (k KeyPayload) MatchResult(matchID string) (MatchResult, bool) {
	for _, r := range k.MatchResults {
		if r.MatchID == matchID {
			return r, true
		}
	}
	return MatchResult{}, false
}

type LockFlag struct {
	Locked bool       `json:"locked"`
	Source LockSource `json:"source"`
}

// LockState holds the stored lock flags. Effective locks are resolved through
// the methods in locks.go and never written back.
type LockState struct {
	GlobalLocked    bool                `json:"globalLocked"`
	MatchLocks      map[string]LockFlag `json:"matchLocks"`
	MatchBonusLocks map[string]LockFlag `json:"matchBonusLocks"`
	EventBonusLocks map[string]LockFlag `json:"eventBonusLocks"`
}

type MatchPick struct {
	MatchID             string   `json:"matchId"`
	WinnerName          string   `json:"winnerName"`
	BattleRoyalEntrants []string `json:"battleRoyalEntrants"`
	BonusAnswers        []Answer `json:"bonusAnswers"`
}

type PicksPayload struct {
	MatchPicks        []MatchPick `json:"matchPicks"`
	EventBonusAnswers []Answer    `json:"eventBonusAnswers"`
	TiebreakerAnswer  string      `json:"tiebreakerAnswer"`
}

// MatchPick returns the pick for a match.
func (p PicksPayload) MatchPick(matchID string) (MatchPick, bool) {
	for _, mp := range p.MatchPicks {
		if mp.MatchID == matchID {
			return mp, true
		}
	}
	return MatchPick{}, false
}

type Game struct {
	ID             string     `json:"id"`
	CardID         string     `json:"cardId"`
	HostID         string     `json:"hostId"`
	Mode           GameMode   `json:"mode"`
	JoinCode       string     `json:"joinCode"`
	Status         GameStatus `json:"status"`
	AllowLateJoins bool       `json:"allowLateJoins"`
	ExpiresAt      time.Time  `json:"expiresAt"`
	Key            KeyPayload `json:"key"`
	Locks          LockState  `json:"locks"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

type DeviceInfo struct {
	UserAgent string `json:"userAgent,omitempty"`
	Platform  string `json:"platform,omitempty"`
}

type Player struct {
	ID                 string       `json:"id"`
	GameID             string       `json:"gameId"`
	AuthMethod         AuthMethod   `json:"authMethod"`
	Identity           string       `json:"identity,omitempty"`
	Nickname           string       `json:"nickname"`
	NormalizedNickname string       `json:"normalizedNickname"`
	Picks              PicksPayload `json:"picks"`
	IsSubmitted        bool         `json:"isSubmitted"`
	SubmittedAt        *time.Time   `json:"submittedAt"`
	JoinedAt           time.Time    `json:"joinedAt"`
	LastSeenAt         time.Time    `json:"lastSeenAt"`
	UpdatedAt          time.Time    `json:"updatedAt"`
	Device             DeviceInfo   `json:"device"`
}

// FeedEvent is one human-readable entry for the game's recent-event feed.
type FeedEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
