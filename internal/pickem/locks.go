package pickem

import "maps"

// NewLockState returns an unlocked state with non-nil maps.
func NewLockState() LockState {
	return LockState{
		MatchLocks:      map[string]LockFlag{},
		MatchBonusLocks: map[string]LockFlag{},
		EventBonusLocks: map[string]LockFlag{},
	}
}

// Clone returns a deep copy of ls.
func (ls LockState) Clone() LockState {
	out := NewLockState()
	out.GlobalLocked = ls.GlobalLocked
	maps.Copy(out.MatchLocks, ls.MatchLocks)
	maps.Copy(out.MatchBonusLocks, ls.MatchBonusLocks)
	maps.Copy(out.EventBonusLocks, ls.EventBonusLocks)
	return out
}

// MatchLocked reports whether a match's winner and entrant picks are locked.
func (ls LockState) MatchLocked(matchID string) bool {
	return ls.GlobalLocked || ls.MatchLocks[matchID].Locked
}

// MatchBonusLocked reports whether a match bonus question is locked, either on
// its own or through its match.
func (ls LockState) MatchBonusLocked(matchID, questionID string) bool {
	return ls.MatchLocked(matchID) || ls.MatchBonusLocks[BonusKey(matchID, questionID)].Locked
}

// EventBonusLocked reports whether an event-level bonus question is locked.
func (ls LockState) EventBonusLocked(questionID string) bool {
	return ls.GlobalLocked || ls.EventBonusLocks[questionID].Locked
}

// TiebreakerLocked reports whether the tiebreaker is locked. It has no flag of
// its own and follows the global lock.
func (ls LockState) TiebreakerLocked() bool {
	return ls.GlobalLocked
}

// WithGlobal returns a copy with the global flag set.
func (ls LockState) WithGlobal(locked bool) LockState {
	out := ls.Clone()
	out.GlobalLocked = locked
	return out
}

// WithMatch returns a copy with the match flag set by the host.
func (ls LockState) WithMatch(matchID string, locked bool) LockState {
	out := ls.Clone()
	out.MatchLocks[matchID] = LockFlag{Locked: locked, Source: LockByHost}
	return out
}

// WithMatchBonus returns a copy with a match bonus flag set by the host.
func (ls LockState) WithMatchBonus(matchID, questionID string, locked bool) LockState {
	out := ls.Clone()
	out.MatchBonusLocks[BonusKey(matchID, questionID)] = LockFlag{Locked: locked, Source: LockByHost}
	return out
}

// WithEventBonus returns a copy with an event bonus flag set by the host.
func (ls LockState) WithEventBonus(questionID string, locked bool) LockState {
	out := ls.Clone()
	out.EventBonusLocks[questionID] = LockFlag{Locked: locked, Source: LockByHost}
	return out
}

// ApplyAutoLocks returns the lock state after the key moved from prev to next.
// A match locks (host) the first time its winner or any of its bonus answers
// becomes non-empty, and locks (timer) when one of its timers starts. An event
// bonus question locks itself when its answer is first recorded. Fields that
// are already locked keep their flag and source.
//
// Battle royals also lock on the first recorded entrant, before any winner
// exists: entrant picks score against the entry order, so they must close as
// soon as the order starts being written.
func ApplyAutoLocks(card Card, prev, next KeyPayload, ls LockState) LockState {
	out := ls.Clone()
	lockMatch := func(matchID string, src LockSource) {
		if out.MatchLocks[matchID].Locked {
			return
		}
		out.MatchLocks[matchID] = LockFlag{Locked: true, Source: src}
	}

	for _, m := range card.Matches {
		before, _ := prev.MatchResult(m.ID)
		after, _ := next.MatchResult(m.ID)
		if IsEmpty(before.WinnerName) && !IsEmpty(after.WinnerName) {
			lockMatch(m.ID, LockByHost)
		}
		if len(nonEmpty(before.BattleRoyalEntryOrder)) == 0 && len(nonEmpty(after.BattleRoyalEntryOrder)) > 0 {
			lockMatch(m.ID, LockByHost)
		}
		for _, q := range m.BonusQuestions {
			if IsEmpty(findAnswer(before.BonusAnswers, q.ID)) && !IsEmpty(findAnswer(after.BonusAnswers, q.ID)) {
				lockMatch(m.ID, LockByHost)
			}
		}
	}

	for _, q := range card.EventBonusQuestions {
		if IsEmpty(findAnswer(prev.EventBonusAnswers, q.ID)) && !IsEmpty(findAnswer(next.EventBonusAnswers, q.ID)) {
			if !out.EventBonusLocks[q.ID].Locked {
				out.EventBonusLocks[q.ID] = LockFlag{Locked: true, Source: LockByHost}
			}
		}
	}

	wasRunning := make(map[string]bool, len(prev.Timers))
	for _, t := range prev.Timers {
		wasRunning[t.ID] = t.IsRunning
	}
	for _, t := range next.Timers {
		if !t.IsRunning || wasRunning[t.ID] {
			continue
		}
		if matchID, ok := TimerMatchID(t.ID); ok {
			if _, known := card.FindMatch(matchID); known {
				lockMatch(matchID, LockByTimer)
			}
		}
	}
	return out
}

func nonEmpty(names []string) []string {
	var out []string
	for _, n := range names {
		if !IsEmpty(n) {
			out = append(out, n)
		}
	}
	return out
}
