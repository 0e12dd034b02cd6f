package pickem

import "time"

func intPtr(v int) *int { return &v }

func testCard() Card {
	return Card{
		ID:            "card-1",
		HostID:        "host-1",
		Name:          "Fight Night",
		DefaultPoints: 10,
		Matches: []Match{
			{
				ID:           "m1",
				Title:        "Main Event",
				Participants: []string{"Alice", "Bob"},
				Points:       20,
				BonusQuestions: []BonusQuestion{
					{ID: "finish", Prompt: "Method of victory", AnswerShape: ShapeWriteIn, ValueType: ValueString},
					{ID: "length", Prompt: "Match length", AnswerShape: ShapeWriteIn, ValueType: ValueTime, GradingRule: RuleClosest},
				},
			},
			{
				ID:             "rumble",
				Title:          "Royal Rumble",
				IsBattleRoyal:  true,
				SurpriseSlots:  2,
				SurprisePoints: 5,
			},
		},
		EventBonusQuestions: []BonusQuestion{
			{ID: "crowd", Prompt: "Attendance", Points: intPtr(15), AnswerShape: ShapeWriteIn, ValueType: ValueNumerical, GradingRule: RuleClosest},
			{ID: "mvp", Prompt: "Night MVP", AnswerShape: ShapeWriteIn, ValueType: ValueRosterMember},
		},
		TiebreakerLabel:  "Main event length",
		TiebreakerIsTime: true,
	}
}

func submitted(id, nickname string, picks PicksPayload) Player {
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return Player{
		ID:                 id,
		Nickname:           nickname,
		NormalizedNickname: NormalizeNickname(nickname),
		Picks:              picks,
		IsSubmitted:        true,
		SubmittedAt:        &at,
	}
}
