package services

import "storynest/internal/models"

// DefaultCatalog returns the badge catalog the platform ships with. Seeding
// is idempotent: existing entries are never mutated.
func DefaultCatalog() []*models.Badge {
	return []*models.Badge{
		{
			Title:           "First Story",
			Description:     "Finish your very first story",
			Icon:            "badge_first_story",
			UnlockCondition: "Finish 1 story",
			BadgeType:       models.BadgeTypeStoryRead,
			RequiredAmount:  1,
			Priority:        100,
		},
		{
			Title:           "Bookworm",
			Description:     "Finish 10 stories",
			Icon:            "badge_bookworm",
			UnlockCondition: "Finish 10 stories",
			BadgeType:       models.BadgeTypeStoryRead,
			RequiredAmount:  10,
			Priority:        90,
		},
		{
			Title:           "Story Marathoner",
			Description:     "Finish 50 stories",
			Icon:            "badge_marathoner",
			UnlockCondition: "Finish 50 stories",
			BadgeType:       models.BadgeTypeStoryRead,
			RequiredAmount:  50,
			Priority:        80,
		},
		{
			Title:           "Challenge Champion",
			Description:     "Complete 10 challenges",
			Icon:            "badge_challenge_champion",
			UnlockCondition: "Complete 10 challenges",
			BadgeType:       models.BadgeTypeChallengeCompleted,
			RequiredAmount:  10,
			Priority:        85,
		},
		{
			Title:           "Quiz Whiz",
			Description:     "Answer 20 quiz questions correctly",
			Icon:            "badge_quiz_whiz",
			UnlockCondition: "Answer 20 questions correctly",
			BadgeType:       models.BadgeTypeQuizAnswered,
			RequiredAmount:  20,
			Priority:        75,
			Metadata:        &models.BadgeMetadata{CorrectOnly: true},
		},
		{
			Title:           "Early Bird",
			Description:     "Finish 5 stories before 7 in the morning",
			Icon:            "badge_early_bird",
			UnlockCondition: "Finish 5 stories before 7am",
			BadgeType:       models.BadgeTypeStoryRead,
			RequiredAmount:  5,
			Priority:        70,
			Metadata: &models.BadgeMetadata{
				Special:        true,
				TimeConstraint: models.TimeConstraintBefore7AM,
			},
		},
		{
			Title:           "Night Owl",
			Description:     "Finish 5 stories after 9 in the evening",
			Icon:            "badge_night_owl",
			UnlockCondition: "Finish 5 stories after 9pm",
			BadgeType:       models.BadgeTypeStoryRead,
			RequiredAmount:  5,
			Priority:        65,
			Metadata: &models.BadgeMetadata{
				Special:        true,
				TimeConstraint: models.TimeConstraintAfter9PM,
			},
		},
		{
			Title:           "Regular Visitor",
			Description:     "Sign in on 7 different occasions",
			Icon:            "badge_regular_visitor",
			UnlockCondition: "Sign in 7 times",
			BadgeType:       models.BadgeTypeLogin,
			RequiredAmount:  7,
			Priority:        50,
		},
	}
}
