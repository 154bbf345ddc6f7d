package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Badge type keys match the activity action keys they are fed by.
const (
	BadgeTypeStoryRead          = "story_read"
	BadgeTypeChallengeCompleted = "challenge_completed"
	BadgeTypeQuizAnswered       = "quiz_answered"
	BadgeTypeLogin              = "login"
)

// Time constraint values accepted in BadgeMetadata.TimeConstraint.
const (
	TimeConstraintBefore7AM = "before_7am"
	TimeConstraintAfter9PM  = "after_9pm"
)

// Badge is a catalog entry describing one achievable badge. Catalog rows are
// seeded once and never mutated by user actions.
type Badge struct {
	ID              int64          `json:"id" db:"id"`
	Title           string         `json:"title" db:"title"`
	Description     string         `json:"description" db:"description"`
	Icon            string         `json:"icon" db:"icon"`
	UnlockCondition string         `json:"unlock_condition" db:"unlock_condition"`
	BadgeType       string         `json:"badge_type" db:"badge_type"`
	RequiredAmount  int            `json:"required_amount" db:"required_amount"`
	Priority        int            `json:"priority" db:"priority"`
	Metadata        *BadgeMetadata `json:"metadata,omitempty" db:"metadata"`
	IsActive        bool           `json:"is_active" db:"is_active"`
	CreatedAt       time.Time      `json:"created_at" db:"created_at"`
}

// BadgeMetadata carries optional conditional rule parameters for a badge.
// Stored as JSONB in the catalog table.
type BadgeMetadata struct {
	// Special marks the badge as a conditional "special" badge whose
	// TimeConstraint must hold at evaluation time.
	Special        bool   `json:"special,omitempty"`
	TimeConstraint string `json:"time_constraint,omitempty"`
	// CorrectOnly suppresses progress for events whose isCorrect metadata
	// field is explicitly false.
	CorrectOnly bool `json:"correct_only,omitempty"`
}

// Value implements driver.Valuer for JSONB storage.
func (m *BadgeMetadata) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner for JSONB retrieval.
func (m *BadgeMetadata) Scan(src interface{}) error {
	if src == nil {
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("unsupported badge metadata type %T", src)
	}
}

// BadgeWithProgress joins a catalog badge with one user's progress state.
type BadgeWithProgress struct {
	Badge
	Count      int        `json:"count"`
	Unlocked   bool       `json:"unlocked"`
	UnlockedAt *time.Time `json:"unlocked_at,omitempty"`
}
