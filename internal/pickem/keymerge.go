package pickem

import "slices"

// MergeKey reconciles a client's key snapshot with the stored one. Records are
// paired by id: an incoming record replaces the stored one, new records are
// appended and stored records the client did not send are kept. Bonus answers
// nested in a match result merge the same way by question id. Tiebreaker
// scalars take the incoming value.
func MergeKey(prev, incoming KeyPayload) KeyPayload {
	return KeyPayload{
		Timers:               mergeByID(prev.Timers, incoming.Timers, timerID, replace),
		MatchResults:         mergeByID(prev.MatchResults, incoming.MatchResults, matchResultID, mergeMatchResult),
		EventBonusAnswers:    mergeByID(prev.EventBonusAnswers, incoming.EventBonusAnswers, answerID, replace),
		TiebreakerAnswer:     incoming.TiebreakerAnswer,
		TiebreakerRecordedAt: incoming.TiebreakerRecordedAt,
		TiebreakerTimerID:    incoming.TiebreakerTimerID,
		ScoreOverrides:       mergeByID(prev.ScoreOverrides, incoming.ScoreOverrides, scoreOverrideID, replace),
		WinnerOverrides:      mergeByID(prev.WinnerOverrides, incoming.WinnerOverrides, winnerOverrideID, replace),
	}
}

func mergeMatchResult(prev, next MatchResult) MatchResult {
	next.BonusAnswers = mergeByID(prev.BonusAnswers, next.BonusAnswers, answerID, replace)
	return next
}

func timerID(t Timer) string { return t.ID }
func matchResultID(r MatchResult) string { return r.MatchID }
func answerID(a Answer) string { return a.QuestionID }

func replace[T any](_, next T) T { return next }

// mergeByID returns a new slice holding prev in its original order with
// matching records combined with their incoming counterpart, followed by the
// incoming records that had none. Later duplicates of an id win.
func mergeByID[T any](prev, incoming []T, id func(T) string, combine func(prev, next T) T) []T {
	out := make([]T, 0, len(prev)+len(incoming))
	index := make(map[string]int, len(prev)+len(incoming))
	for _, p := range prev {
		k := id(p)
		if i, ok := index[k]; ok {
			out[i] = p
			continue
		}
		index[k] = len(out)
		out = append(out, p)
	}
	for _, n := range incoming {
		k := id(n)
		if i, ok := index[k]; ok {
			out[i] = combine(out[i], n)
			continue
		}
		index[k] = len(out)
		out = append(out, n)
	}
	return out
}

func cloneKey(k KeyPayload) KeyPayload {
	out := k
	out.Timers = slices.Clone(k.Timers)
	out.MatchResults = make([]MatchResult, len(k.MatchResults))
	for i, r := range k.MatchResults {
		r.BattleRoyalEntryOrder = slices.Clone(r.BattleRoyalEntryOrder)
		r.BonusAnswers = slices.Clone(r.BonusAnswers)
		out.MatchResults[i] = r
	}
	out.EventBonusAnswers = slices.Clone(k.EventBonusAnswers)
	out.ScoreOverrides = slices.Clone(k.ScoreOverrides)
	out.WinnerOverrides = slices.Clone(k.WinnerOverrides)
	return out
}
