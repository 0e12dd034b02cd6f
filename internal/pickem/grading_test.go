package pickem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "the rock", NormalizeText("  The   ROCK "))
	assert.Equal(t, "", NormalizeText(" \t "))
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"95", 95, true},
		{"1:35", 95, true},
		{"1:02:03.5", 3723.5, true},
		{"1m35s", 95, true},
		{"1:75", 0, false},
		{"abc", 0, false},
		{"", 0, false},
		{"-3", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseTime(tt.in)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.want, got, Tolerance)
			}
		})
	}
}

func TestParseNumber(t *testing.T) {
	v, ok := ParseNumber(" 12,500 ")
	require.True(t, ok)
	assert.Equal(t, 12500.0, v)

	_, ok = ParseNumber("lots")
	assert.False(t, ok)
}

func TestAnswersEqual(t *testing.T) {
	assert.True(t, AnswersEqual(ValueTime, "1:05", "65"))
	assert.True(t, AnswersEqual(ValueNumerical, "1,000", "1000.00001"))
	assert.True(t, AnswersEqual(ValueString, "Bob ", "bob"))
	assert.True(t, AnswersEqual(ValueString, "", "  "))
	assert.False(t, AnswersEqual(ValueString, "Bob", ""))
	assert.False(t, AnswersEqual(ValueNumerical, "10", "11"))
}

func TestGradeAnswer(t *testing.T) {
	num := func(rule GradingRule) BonusQuestion {
		return BonusQuestion{ID: "q", ValueType: ValueNumerical, GradingRule: rule}
	}
	tests := []struct {
		name   string
		q      BonusQuestion
		key    string
		answer string
		want   Grade
	}{
		{"exact numeric", num(RuleExact), "10", "10.00001", Grade{Awarded: true}},
		{"exact numeric miss", num(RuleExact), "10", "11", Grade{}},
		{"at or above hit", num(RuleAtOrAbove), "10", "12", Grade{Awarded: true}},
		{"at or above equal", num(RuleAtOrAbove), "10", "10", Grade{Awarded: true}},
		{"at or above miss", num(RuleAtOrAbove), "10", "9", Grade{}},
		{"at or below hit", num(RuleAtOrBelow), "10", "3", Grade{Awarded: true}},
		{"at or below miss", num(RuleAtOrBelow), "10", "30", Grade{}},
		{"closest defers", num(RuleClosest), "10", "7", Grade{Deferred: true, Distance: 3}},
		{"unparseable player", num(RuleExact), "10", "ten", Grade{}},
		{"unparseable key", num(RuleClosest), "n/a", "10", Grade{}},
		{"empty key", num(RuleExact), "", "10", Grade{}},
		{"text", BonusQuestion{ValueType: ValueString}, "Pinfall", " pinfall ", Grade{Awarded: true}},
		{"text ignores rule", BonusQuestion{ValueType: ValueString, GradingRule: RuleClosest}, "a", "b", Grade{}},
		{"time exact", BonusQuestion{ValueType: ValueTime}, "12:30", "750", Grade{Awarded: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GradeAnswer(tt.q, tt.key, tt.answer)
			assert.Equal(t, tt.want.Awarded, got.Awarded)
			assert.Equal(t, tt.want.Deferred, got.Deferred)
			assert.InDelta(t, tt.want.Distance, got.Distance, Tolerance)
		})
	}
}

func TestWinnerMatches(t *testing.T) {
	assert.True(t, WinnerMatches("Bob", "bob"))
	assert.True(t, WinnerMatches("Bob", "Bob "))
	assert.False(t, WinnerMatches("Bob", "Rob"))
	assert.False(t, WinnerMatches("", ""))
}

func TestGameStatusTransitions(t *testing.T) {
	assert.True(t, StatusLobby.CanTransition(StatusLive))
	assert.True(t, StatusLobby.CanTransition(StatusEnded))
	assert.True(t, StatusLive.CanTransition(StatusLive))
	assert.False(t, StatusLive.CanTransition(StatusLobby))
	assert.False(t, StatusEnded.CanTransition(StatusLive))
	assert.False(t, StatusLobby.CanTransition("paused"))
}
