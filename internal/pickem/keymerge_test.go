package pickem

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeKeyPreservesServerOnlyRecords(t *testing.T) {
	prev := KeyPayload{
		Timers: []Timer{{ID: "t1", Label: "one", ElapsedMs: 1000}, {ID: "t2", Label: "two"}},
		MatchResults: []MatchResult{{
			MatchID:    "m1",
			WinnerName: "Alice",
			BonusAnswers: []Answer{
				{QuestionID: "finish", Answer: "Pinfall"},
				{QuestionID: "length", Answer: "12:00"},
			},
		}},
		EventBonusAnswers: []Answer{{QuestionID: "crowd", Answer: "1000"}},
		TiebreakerAnswer:  "10:00",
	}
	incoming := KeyPayload{
		Timers: []Timer{{ID: "t1", Label: "one", ElapsedMs: 5000}, {ID: "t3", Label: "three"}},
		MatchResults: []MatchResult{{
			MatchID:      "m1",
			WinnerName:   "Bob",
			BonusAnswers: []Answer{{QuestionID: "finish", Answer: "Submission"}},
		}},
		TiebreakerAnswer: "11:00",
	}

	got := MergeKey(prev, incoming)
	want := KeyPayload{
		Timers: []Timer{{ID: "t1", Label: "one", ElapsedMs: 5000}, {ID: "t2", Label: "two"}, {ID: "t3", Label: "three"}},
		MatchResults: []MatchResult{{
			MatchID:    "m1",
			WinnerName: "Bob",
			BonusAnswers: []Answer{
				{QuestionID: "finish", Answer: "Submission"},
				{QuestionID: "length", Answer: "12:00"},
			},
		}},
		EventBonusAnswers: []Answer{{QuestionID: "crowd", Answer: "1000"}},
		TiebreakerAnswer:  "11:00",
		ScoreOverrides:    []ScoreOverride{},
		WinnerOverrides:   []WinnerOverride{},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("MergeKey() mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeKeyLastWriterPerRecord(t *testing.T) {
	base := KeyPayload{EventBonusAnswers: []Answer{{QuestionID: "x", Answer: "base"}, {QuestionID: "only-base", Answer: "b"}}}
	a := KeyPayload{EventBonusAnswers: []Answer{{QuestionID: "x", Answer: "a"}, {QuestionID: "only-a", Answer: "a"}}}
	b := KeyPayload{EventBonusAnswers: []Answer{{QuestionID: "x", Answer: "b"}, {QuestionID: "only-b", Answer: "b"}}}

	got := MergeKey(MergeKey(base, a), b)
	answers := map[string]string{}
	for _, ans := range got.EventBonusAnswers {
		answers[ans.QuestionID] = ans.Answer
	}
	assert.Equal(t, map[string]string{"x": "b", "only-base": "b", "only-a": "a", "only-b": "b"}, answers)
}

func TestMergeKeyDoesNotAliasInputs(t *testing.T) {
	prev := KeyPayload{Timers: []Timer{{ID: "t1"}}}
	got := MergeKey(prev, KeyPayload{Timers: []Timer{{ID: "t1", ElapsedMs: 9}}})
	got.Timers[0].Label = "changed"
	assert.Equal(t, "", prev.Timers[0].Label)
}

func TestSyncSystemTimers(t *testing.T) {
	card := testCard()
	started := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	timers := []Timer{
		{ID: MatchTimerID("m1"), Label: "old title", ElapsedMs: 65000, IsRunning: true, StartedAt: &started},
		{ID: MatchTimerID("gone"), ElapsedMs: 1},
		{ID: "custom-1", Label: "Intermission", ElapsedMs: 30000},
	}

	got := SyncSystemTimers(card, timers)
	ids := make([]string, len(got))
	for i, tm := range got {
		ids[i] = tm.ID
	}
	assert.Equal(t, []string{
		MatchTimerID("m1"),
		BonusTimerID("m1", "length"),
		MatchTimerID("rumble"),
		"custom-1",
	}, ids)

	require.True(t, got[0].IsRunning)
	assert.Equal(t, int64(65000), got[0].ElapsedMs)
	assert.Equal(t, "Main Event", got[0].Label)
	assert.Equal(t, int64(0), got[1].ElapsedMs)
}

func TestTimerElapsed(t *testing.T) {
	start := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	now := start.Add(90 * time.Second)

	assert.Equal(t, 100*time.Second, TimerElapsed(Timer{ElapsedMs: 10000, IsRunning: true, StartedAt: &start}, now))
	assert.Equal(t, 10*time.Second, TimerElapsed(Timer{ElapsedMs: 10000}, now))
}

func TestTimerMatchID(t *testing.T) {
	id, ok := TimerMatchID(BonusTimerID("m1", "length"))
	assert.True(t, ok)
	assert.Equal(t, "m1", id)

	_, ok = TimerMatchID(EventTimerID("crowd"))
	assert.False(t, ok)
	_, ok = TimerMatchID("custom")
	assert.False(t, ok)
}
