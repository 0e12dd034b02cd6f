package pickem

import (
	"strings"
	"time"
)

const (
	matchTimerPrefix = "match" + KeyDelimiter
	bonusTimerPrefix = "bonus" + KeyDelimiter
	eventTimerPrefix = "event" + KeyDelimiter
)

func MatchTimerID(matchID string) string { return matchTimerPrefix + matchID }

func BonusTimerID(matchID, questionID string) string {
	return bonusTimerPrefix + BonusKey(matchID, questionID)
}

func EventTimerID(questionID string) string { return eventTimerPrefix + questionID }

// IsSystemTimer reports whether id was derived from a match or question.
func IsSystemTimer(id string) bool {
	return strings.HasPrefix(id, matchTimerPrefix) ||
		strings.HasPrefix(id, bonusTimerPrefix) ||
		strings.HasPrefix(id, eventTimerPrefix)
}

// TimerMatchID returns the match a timer belongs to, if it is match-scoped.
func TimerMatchID(id string) (string, bool) {
	if rest, ok := strings.CutPrefix(id, matchTimerPrefix); ok {
		return rest, rest != ""
	}
	if rest, ok := strings.CutPrefix(id, bonusTimerPrefix); ok {
		matchID, _, found := strings.Cut(rest, KeyDelimiter)
		return matchID, found && matchID != ""
	}
	return "", false
}

// TimerElapsed returns the timer's true elapsed duration at now.
func TimerElapsed(t Timer, now time.Time) time.Duration {
	d := time.Duration(t.ElapsedMs) * time.Millisecond
	if t.IsRunning && t.StartedAt != nil && now.After(*t.StartedAt) {
		d += now.Sub(*t.StartedAt)
	}
	return d
}

// SyncSystemTimers derives the system timers for card: one per match and one
// per time-valued bonus question. Existing system timers keep their state,
// missing ones are added stopped at zero, and system timers whose match or
// question left the card are dropped. Custom timers pass through untouched.
func SyncSystemTimers(card Card, timers []Timer) []Timer {
	existing := make(map[string]Timer, len(timers))
	for _, t := range timers {
		existing[t.ID] = t
	}

	var system []Timer
	want := func(id, label string) {
		if t, ok := existing[id]; ok {
			t.Label = label
			system = append(system, t)
			return
		}
		system = append(system, Timer{ID: id, Label: label})
	}
	for _, m := range card.Matches {
		want(MatchTimerID(m.ID), m.Title)
		for _, q := range m.BonusQuestions {
			if q.ValueType == ValueTime {
				want(BonusTimerID(m.ID, q.ID), m.Title+" / "+q.Prompt)
			}
		}
	}
	for _, q := range card.EventBonusQuestions {
		if q.ValueType == ValueTime {
			want(EventTimerID(q.ID), q.Prompt)
		}
	}

	out := system
	for _, t := range timers {
		if !IsSystemTimer(t.ID) {
			out = append(out, t)
		}
	}
	return out
}
