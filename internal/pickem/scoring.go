package pickem

import (
	"cmp"
	"math"
	"slices"
)

type ScoreBreakdown struct {
	WinnerPoints   int `json:"winnerPoints"`
	BonusPoints    int `json:"bonusPoints"`
	SurprisePoints int `json:"surprisePoints"`
}

type LeaderboardEntry struct {
	PlayerID  string         `json:"playerId"`
	Nickname  string         `json:"nickname"`
	Rank      int            `json:"rank"`
	Score     int            `json:"score"`
	Breakdown ScoreBreakdown `json:"breakdown"`
}

type closestBucket struct {
	points  int
	entries []closestEntry
}

type closestEntry struct {
	index    int
	distance float64
}

// ComputeLeaderboard scores every submitted player against the key and ranks
// them. Equal scores share a rank and the next lower score takes its position
// (30, 30, 10 ranks 1, 1, 3). Within a score, entries are ordered by nickname.
func ComputeLeaderboard(card Card, key KeyPayload, players []Player) []LeaderboardEntry {
	entries := []LeaderboardEntry{}
	var scored []Player
	for _, p := range players {
		if p.IsSubmitted {
			scored = append(scored, p)
			entries = append(entries, LeaderboardEntry{PlayerID: p.ID, Nickname: p.Nickname})
		}
	}

	buckets := map[string]*closestBucket{}
	var bucketOrder []string
	grade := func(i int, bucketKey string, q BonusQuestion, matchID, keyValue, answer string) {
		points := q.PointsOr(card.DefaultPoints)
		g := GradeAnswer(q, keyValue, answer)
		switch {
		case g.Deferred:
			b, ok := buckets[bucketKey]
			if !ok {
				b = &closestBucket{points: points}
				buckets[bucketKey] = b
				bucketOrder = append(bucketOrder, bucketKey)
			}
			b.entries = append(b.entries, closestEntry{index: i, distance: g.Distance})
		case g.Awarded:
			entries[i].Breakdown.BonusPoints += points
		default:
			if IsEmpty(keyValue) || IsEmpty(answer) {
				return
			}
			if o, ok := ScoreOverrideFor(key, matchID, q.ID, scored[i].Nickname); ok && o.Accepted {
				entries[i].Breakdown.BonusPoints += points
			}
		}
	}

	for i, p := range scored {
		for _, m := range card.Matches {
			res, _ := key.MatchResult(m.ID)
			pick, _ := p.Picks.MatchPick(m.ID)

			if WinnerMatches(res.WinnerName, pick.WinnerName) {
				entries[i].Breakdown.WinnerPoints += card.MatchPoints(m)
			} else if !IsEmpty(res.WinnerName) && !IsEmpty(pick.WinnerName) {
				if o, ok := WinnerOverrideFor(key, m.ID, p.Nickname); ok && o.Accepted {
					entries[i].Breakdown.WinnerPoints += card.MatchPoints(m)
				}
			}

			if m.IsBattleRoyal {
				entries[i].Breakdown.SurprisePoints += surpriseHits(m, res.BattleRoyalEntryOrder, pick.BattleRoyalEntrants) * m.SurprisePoints
			}

			for _, q := range m.BonusQuestions {
				grade(i, BonusKey(m.ID, q.ID), q, m.ID,
					findAnswer(res.BonusAnswers, q.ID), findAnswer(pick.BonusAnswers, q.ID))
			}
		}
		for _, q := range card.EventBonusQuestions {
			grade(i, q.ID, q, "",
				findAnswer(key.EventBonusAnswers, q.ID), findAnswer(p.Picks.EventBonusAnswers, q.ID))
		}
	}

	for _, k := range bucketOrder {
		b := buckets[k]
		best := math.Inf(1)
		for _, e := range b.entries {
			best = math.Min(best, e.distance)
		}
		for _, e := range b.entries {
			if math.Abs(e.distance-best) < Tolerance {
				entries[e.index].Breakdown.BonusPoints += b.points
			}
		}
	}

	for i := range entries {
		b := entries[i].Breakdown
		entries[i].Score = b.WinnerPoints + b.BonusPoints + b.SurprisePoints
	}
	Rank(entries)
	return entries
}

// Rank sorts entries by score, then nickname, and assigns standard
// competition ranks.
func Rank(entries []LeaderboardEntry) {
	slices.SortStableFunc(entries, func(a, b LeaderboardEntry) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		if c := cmp.Compare(NormalizeText(a.Nickname), NormalizeText(b.Nickname)); c != 0 {
			return c
		}
		return cmp.Compare(a.Nickname, b.Nickname)
	})
	for i := range entries {
		if i > 0 && entries[i].Score == entries[i-1].Score {
			entries[i].Rank = entries[i-1].Rank
			continue
		}
		entries[i].Rank = i + 1
	}
}

// surpriseHits counts predicted entrants that appear anywhere in the recorded
// entry order, capped at the match's surprise slots.
func surpriseHits(m Match, entryOrder, predicted []string) int {
	if m.SurpriseSlots <= 0 {
		return 0
	}
	entered := nameSet(entryOrder)
	hits := 0
	for n := range nameSet(predicted) {
		if entered[n] {
			hits++
		}
	}
	return min(hits, m.SurpriseSlots)
}
