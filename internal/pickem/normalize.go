package pickem

import (
	"errors"
	"fmt"
	"strings"
)

// NormalizeNickname is the per-game uniqueness key for a nickname.
func NormalizeNickname(s string) string {
	return NormalizeText(s)
}

// NormalizeKey cleans a decoded key payload: nil lists become empty, records
// without an id are dropped and text is trimmed. It never fails; anything it
// cannot interpret is reset to its empty value.
func NormalizeKey(k KeyPayload) KeyPayload {
	out := KeyPayload{
		Timers:               []Timer{},
		MatchResults:         []MatchResult{},
		EventBonusAnswers:    normalizeAnswers(k.EventBonusAnswers),
		TiebreakerAnswer:     strings.TrimSpace(k.TiebreakerAnswer),
		TiebreakerRecordedAt: k.TiebreakerRecordedAt,
		TiebreakerTimerID:    strings.TrimSpace(k.TiebreakerTimerID),
		ScoreOverrides:       []ScoreOverride{},
		WinnerOverrides:      []WinnerOverride{},
	}
	for _, t := range k.Timers {
		t.ID = strings.TrimSpace(t.ID)
		if t.ID == "" {
			continue
		}
		if t.ElapsedMs < 0 {
			t.ElapsedMs = 0
		}
		if !t.IsRunning {
			t.StartedAt = nil
		} else if t.StartedAt == nil {
			t.IsRunning = false
		}
		out.Timers = append(out.Timers, t)
	}
	for _, r := range k.MatchResults {
		r.MatchID = strings.TrimSpace(r.MatchID)
		if r.MatchID == "" {
			continue
		}
		r.WinnerName = strings.TrimSpace(r.WinnerName)
		r.BattleRoyalEntryOrder = nonEmpty(trimAll(r.BattleRoyalEntryOrder))
		if r.BattleRoyalEntryOrder == nil {
			r.BattleRoyalEntryOrder = []string{}
		}
		r.BonusAnswers = normalizeAnswers(r.BonusAnswers)
		out.MatchResults = append(out.MatchResults, r)
	}
	for _, o := range k.ScoreOverrides {
		if strings.TrimSpace(o.QuestionID) == "" || IsEmpty(o.PlayerNickname) {
			continue
		}
		o.Source = normalizeOverrideSource(o.Source)
		out.ScoreOverrides = append(out.ScoreOverrides, o)
	}
	for _, o := range k.WinnerOverrides {
		if strings.TrimSpace(o.MatchID) == "" || IsEmpty(o.PlayerNickname) {
			continue
		}
		o.Source = normalizeOverrideSource(o.Source)
		out.WinnerOverrides = append(out.WinnerOverrides, o)
	}
	return out
}

// NormalizeLocks fills nil maps and drops flags with empty keys.
func NormalizeLocks(ls LockState) LockState {
	out := NewLockState()
	out.GlobalLocked = ls.GlobalLocked
	copyFlags := func(dst, src map[string]LockFlag) {
		for k, f := range src {
			if strings.TrimSpace(k) == "" {
				continue
			}
			if f.Source != LockByTimer {
				f.Source = LockByHost
			}
			dst[k] = f
		}
	}
	copyFlags(out.MatchLocks, ls.MatchLocks)
	copyFlags(out.MatchBonusLocks, ls.MatchBonusLocks)
	copyFlags(out.EventBonusLocks, ls.EventBonusLocks)
	return out
}

// NormalizePicks cleans a decoded picks payload the same way NormalizeKey does.
func NormalizePicks(p PicksPayload) PicksPayload {
	out := PicksPayload{
		MatchPicks:        []MatchPick{},
		EventBonusAnswers: normalizeAnswers(p.EventBonusAnswers),
		TiebreakerAnswer:  strings.TrimSpace(p.TiebreakerAnswer),
	}
	for _, mp := range p.MatchPicks {
		mp.MatchID = strings.TrimSpace(mp.MatchID)
		if mp.MatchID == "" {
			continue
		}
		mp.WinnerName = strings.TrimSpace(mp.WinnerName)
		mp.BattleRoyalEntrants = dedupeNames(nonEmpty(trimAll(mp.BattleRoyalEntrants)))
		mp.BonusAnswers = normalizeAnswers(mp.BonusAnswers)
		out.MatchPicks = append(out.MatchPicks, mp)
	}
	return out
}

func normalizeAnswers(in []Answer) []Answer {
	out := []Answer{}
	for _, a := range in {
		a.QuestionID = strings.TrimSpace(a.QuestionID)
		if a.QuestionID == "" {
			continue
		}
		a.Answer = strings.TrimSpace(a.Answer)
		out = append(out, a)
	}
	return out
}

func normalizeOverrideSource(s OverrideSource) OverrideSource {
	if s == OverrideByAuto {
		return s
	}
	return OverrideByHost
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.TrimSpace(s))
	}
	return out
}

// dedupeNames drops names that normalize to one already seen; entrant picks
// are a set.
func dedupeNames(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := []string{}
	for _, s := range in {
		n := NormalizeText(s)
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, s)
	}
	return out
}

var ErrInvalidCard = errors.New("invalid card")

// Validate checks that every id on the card is usable in a composite key and
// unique in its scope.
func (c Card) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidCard)
	}
	if c.DefaultPoints < 0 {
		return fmt.Errorf("%w: defaultPoints must not be negative", ErrInvalidCard)
	}
	matchIDs := map[string]bool{}
	for _, m := range c.Matches {
		if !ValidID(m.ID) {
			return fmt.Errorf("%w: match id %q must be non-empty and must not contain %q", ErrInvalidCard, m.ID, KeyDelimiter)
		}
		if matchIDs[m.ID] {
			return fmt.Errorf("%w: duplicate match id %q", ErrInvalidCard, m.ID)
		}
		matchIDs[m.ID] = true
		if m.SurpriseSlots < 0 || m.SurprisePoints < 0 || m.Points < 0 {
			return fmt.Errorf("%w: match %q has negative points", ErrInvalidCard, m.ID)
		}
		if err := validateQuestions(m.BonusQuestions); err != nil {
			return fmt.Errorf("match %q: %w", m.ID, err)
		}
	}
	return validateQuestions(c.EventBonusQuestions)
}

func validateQuestions(qs []BonusQuestion) error {
	seen := map[string]bool{}
	for _, q := range qs {
		if !ValidID(q.ID) {
			return fmt.Errorf("%w: question id %q must be non-empty and must not contain %q", ErrInvalidCard, q.ID, KeyDelimiter)
		}
		if seen[q.ID] {
			return fmt.Errorf("%w: duplicate question id %q", ErrInvalidCard, q.ID)
		}
		seen[q.ID] = true
		switch q.ValueType {
		case ValueString, ValueNumerical, ValueTime, ValueRosterMember:
		default:
			return fmt.Errorf("%w: question %q has unknown value type %q", ErrInvalidCard, q.ID, q.ValueType)
		}
		if q.Points != nil && *q.Points < 0 {
			return fmt.Errorf("%w: question %q has negative points", ErrInvalidCard, q.ID)
		}
	}
	return nil
}
