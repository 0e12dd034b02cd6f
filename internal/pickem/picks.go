package pickem

// TiebreakerFieldID identifies the tiebreaker in ignored-field reports.
const TiebreakerFieldID = "tiebreaker"

// MergePicks merges a player's incoming picks over their stored picks. Each
// scoreable field on the card takes the incoming value unless its effective
// lock is set, in which case the stored value is kept and, if the client tried
// to change it, the field id is reported in ignored. Field ids are the match id
// for winner and entrants, BonusKey(matchID, questionID) for match bonus
// answers, the question id for event bonus answers and TiebreakerFieldID.
// Picks for matches or questions that are not on the card are dropped.
func MergePicks(card Card, ls LockState, incoming, existing PicksPayload) (merged PicksPayload, ignored []string) {
	merged = PicksPayload{MatchPicks: []MatchPick{}, EventBonusAnswers: []Answer{}}
	ignored = []string{}

	for _, m := range card.Matches {
		in, _ := incoming.MatchPick(m.ID)
		ex, _ := existing.MatchPick(m.ID)
		mp := MatchPick{MatchID: m.ID, BattleRoyalEntrants: []string{}, BonusAnswers: []Answer{}}

		if ls.MatchLocked(m.ID) {
			mp.WinnerName = ex.WinnerName
			mp.BattleRoyalEntrants = dedupeNames(ex.BattleRoyalEntrants)
			if !AnswersEqual(ValueString, in.WinnerName, ex.WinnerName) || !sameNames(in.BattleRoyalEntrants, ex.BattleRoyalEntrants) {
				ignored = append(ignored, m.ID)
			}
		} else {
			mp.WinnerName = in.WinnerName
			mp.BattleRoyalEntrants = dedupeNames(in.BattleRoyalEntrants)
		}

		for _, q := range m.BonusQuestions {
			value, dropped := mergeField(ls.MatchBonusLocked(m.ID, q.ID), q.ValueType,
				findAnswer(in.BonusAnswers, q.ID), findAnswer(ex.BonusAnswers, q.ID))
			if dropped {
				ignored = append(ignored, BonusKey(m.ID, q.ID))
			}
			if !IsEmpty(value) {
				mp.BonusAnswers = append(mp.BonusAnswers, Answer{QuestionID: q.ID, Answer: value})
			}
		}

		if !IsEmpty(mp.WinnerName) || len(mp.BattleRoyalEntrants) > 0 || len(mp.BonusAnswers) > 0 {
			merged.MatchPicks = append(merged.MatchPicks, mp)
		}
	}

	for _, q := range card.EventBonusQuestions {
		value, dropped := mergeField(ls.EventBonusLocked(q.ID), q.ValueType,
			findAnswer(incoming.EventBonusAnswers, q.ID), findAnswer(existing.EventBonusAnswers, q.ID))
		if dropped {
			ignored = append(ignored, q.ID)
		}
		if !IsEmpty(value) {
			merged.EventBonusAnswers = append(merged.EventBonusAnswers, Answer{QuestionID: q.ID, Answer: value})
		}
	}

	value, dropped := mergeField(ls.TiebreakerLocked(), card.TiebreakerValueType(),
		incoming.TiebreakerAnswer, existing.TiebreakerAnswer)
	if dropped {
		ignored = append(ignored, TiebreakerFieldID)
	}
	merged.TiebreakerAnswer = value

	return merged, ignored
}

func mergeField(locked bool, vt ValueType, in, ex string) (value string, dropped bool) {
	if !locked {
		return in, false
	}
	return ex, !AnswersEqual(vt, in, ex)
}

// TiebreakerValueType is how tiebreaker answers are parsed and compared.
func (c Card) TiebreakerValueType() ValueType {
	if c.TiebreakerIsTime {
		return ValueTime
	}
	return ValueNumerical
}

func sameNames(a, b []string) bool {
	as, bs := nameSet(a), nameSet(b)
	if len(as) != len(bs) {
		return false
	}
	for n := range as {
		if !bs[n] {
			return false
		}
	}
	return true
}

func nameSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		if !IsEmpty(n) {
			set[NormalizeText(n)] = true
		}
	}
	return set
}
