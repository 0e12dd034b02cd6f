package pickem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func winnerPick(matchID, name string) PicksPayload {
	return PicksPayload{MatchPicks: []MatchPick{{MatchID: matchID, WinnerName: name}}}
}

func scoresByNickname(entries []LeaderboardEntry) map[string]int {
	out := make(map[string]int, len(entries))
	for _, e := range entries {
		out[e.Nickname] = e.Score
	}
	return out
}

func TestComputeLeaderboardWinners(t *testing.T) {
	card := testCard()
	key := KeyPayload{MatchResults: []MatchResult{{MatchID: "m1", WinnerName: "Bob"}}}
	players := []Player{
		submitted("p1", "lower", winnerPick("m1", "bob")),
		submitted("p2", "padded", winnerPick("m1", "Bob ")),
		submitted("p3", "wrong", winnerPick("m1", "Rob")),
		{ID: "p4", Nickname: "draft", Picks: winnerPick("m1", "Bob")},
	}

	got := ComputeLeaderboard(card, key, players)
	require.Len(t, got, 3)
	assert.Equal(t, map[string]int{"lower": 20, "padded": 20, "wrong": 0}, scoresByNickname(got))
	assert.Equal(t, 20, got[0].Breakdown.WinnerPoints)
}

func TestComputeLeaderboardAcceptedWinnerOverride(t *testing.T) {
	card := testCard()
	key := KeyPayload{MatchResults: []MatchResult{{MatchID: "m1", WinnerName: "Stone Cold Steve Austin"}}}
	key = ApplyOverride(key, OverrideDecision{Kind: CandidateWinner, MatchID: "m1", Nickname: "Close", Accepted: true})
	key = ApplyOverride(key, OverrideDecision{Kind: CandidateWinner, MatchID: "m1", Nickname: "Rejected", Accepted: false})
	players := []Player{
		submitted("p1", "Close", winnerPick("m1", "Stone Cold Steve Austn")),
		submitted("p2", "Rejected", winnerPick("m1", "Stone Cold Steve Austn")),
	}

	got := scoresByNickname(ComputeLeaderboard(card, key, players))
	assert.Equal(t, 20, got["Close"])
	assert.Equal(t, 0, got["Rejected"])
}

func TestComputeLeaderboardClosestBucket(t *testing.T) {
	card := testCard()
	key := KeyPayload{EventBonusAnswers: []Answer{{QuestionID: "crowd", Answer: "100"}}}
	crowd := func(v string) PicksPayload {
		return PicksPayload{EventBonusAnswers: []Answer{{QuestionID: "crowd", Answer: v}}}
	}
	players := []Player{
		submitted("p1", "under", crowd("99")),
		submitted("p2", "over", crowd("101")),
		submitted("p3", "far", crowd("102")),
		submitted("p4", "blank", PicksPayload{}),
	}

	got := scoresByNickname(ComputeLeaderboard(card, key, players))
	assert.Equal(t, map[string]int{"under": 15, "over": 15, "far": 0, "blank": 0}, got)
}

func TestComputeLeaderboardClosestWithoutKeyAwardsNobody(t *testing.T) {
	card := testCard()
	players := []Player{
		submitted("p1", "a", PicksPayload{EventBonusAnswers: []Answer{{QuestionID: "crowd", Answer: "100"}}}),
	}
	got := ComputeLeaderboard(card, KeyPayload{}, players)
	require.Len(t, got, 1)
	assert.Equal(t, 0, got[0].Score)
}

func TestComputeLeaderboardSurpriseEntrantsCapped(t *testing.T) {
	card := testCard()
	key := KeyPayload{MatchResults: []MatchResult{{MatchID: "rumble", BattleRoyalEntryOrder: []string{"A", "B", "C"}}}}
	players := []Player{
		submitted("p1", "all", PicksPayload{MatchPicks: []MatchPick{{MatchID: "rumble", BattleRoyalEntrants: []string{"a", "b", "c"}}}}),
		submitted("p2", "one", PicksPayload{MatchPicks: []MatchPick{{MatchID: "rumble", BattleRoyalEntrants: []string{"C", "Z"}}}}),
	}

	got := ComputeLeaderboard(card, key, players)
	assert.Equal(t, map[string]int{"all": 10, "one": 5}, scoresByNickname(got))
	assert.Equal(t, 10, got[0].Breakdown.SurprisePoints)
}

func TestRank(t *testing.T) {
	entries := []LeaderboardEntry{
		{Nickname: "carol", Score: 10},
		{Nickname: "bob", Score: 30},
		{Nickname: "Alice", Score: 30},
	}
	Rank(entries)

	var ranks []int
	var names []string
	for _, e := range entries {
		ranks = append(ranks, e.Rank)
		names = append(names, e.Nickname)
	}
	assert.Equal(t, []int{1, 1, 3}, ranks)
	assert.Equal(t, []string{"Alice", "bob", "carol"}, names)
}
