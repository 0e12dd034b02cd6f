package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/playperu/pickem/internal/pickem"
)

const (
	DemoHostEmail = "demo@pickem.local"
	// bcrypt of "changeme"
	demoPasswordHash = "$2a$10$trCdqP4npsbw0R1vQxVwXeT1HebzRmP01SXaNGPz1eSAZ7mpcL0Uu"
)

// SeedDemo creates the demo host and a sample card if no host exists.
// Idempotent: does nothing once any host is present.
func SeedDemo(ctx context.Context, logger *slog.Logger, s *Store) error {
	n, err := s.CountHosts(ctx)
	if err != nil {
		return fmt.Errorf("counting hosts: %w", err)
	}
	if n > 0 {
		return nil
	}

	h, err := s.CreateHost(ctx, DemoHostEmail, demoPasswordHash)
	if err != nil {
		return fmt.Errorf("creating demo host: %w", err)
	}
	card := DemoCard(h.ID)
	now := time.Now().UTC().Truncate(time.Millisecond)
	card.CreatedAt, card.UpdatedAt = now, now
	if err := s.CreateCard(ctx, card); err != nil {
		return fmt.Errorf("creating demo card: %w", err)
	}

	logger.Info("demo host created and seeded", "email", DemoHostEmail, "card_id", card.ID)
	return nil
}

func DemoCard(hostID string) pickem.Card {
	pts := func(v int) *int { return &v }
	return pickem.Card{
		ID:            "demo-card",
		HostID:        hostID,
		Name:          "Saturday Night Showdown",
		DefaultPoints: 10,
		Matches: []pickem.Match{
			{
				ID:           "opener",
				Title:        "Tag Team Opener",
				Participants: []string{"The Usos", "New Day"},
			},
			{
				ID:             "rumble",
				Title:          "Thirty-Man Rumble",
				Points:         25,
				IsBattleRoyal:  true,
				SurpriseSlots:  3,
				SurprisePoints: 5,
			},
			{
				ID:           "main",
				Title:        "Championship Main Event",
				Participants: []string{"Roman Reigns", "Cody Rhodes"},
				Points:       20,
				BonusQuestions: []pickem.BonusQuestion{
					{ID: "finish", Prompt: "How does it end?", AnswerShape: pickem.ShapeMultipleChoice,
						Options: []string{"Pinfall", "Submission", "Count-out", "DQ"}, ValueType: pickem.ValueString},
					{ID: "length", Prompt: "Match length", AnswerShape: pickem.ShapeWriteIn,
						ValueType: pickem.ValueTime, GradingRule: pickem.RuleClosest},
				},
			},
		},
		EventBonusQuestions: []pickem.BonusQuestion{
			{ID: "attendance", Prompt: "Announced attendance", Points: pts(15), AnswerShape: pickem.ShapeWriteIn,
				ValueType: pickem.ValueNumerical, GradingRule: pickem.RuleClosest},
			{ID: "mvp", Prompt: "Who steals the show?", AnswerShape: pickem.ShapeWriteIn,
				ValueType: pickem.ValueRosterMember},
		},
		TiebreakerLabel:  "Main event length",
		TiebreakerIsTime: true,
	}
}
