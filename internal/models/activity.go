package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Well-known activity action keys. The action field is a free-form string so
// new client actions never require a schema change; these are the ones the
// engine and streak calculator currently care about.
const (
	ActionStoryRead          = "story_read"
	ActionChallengeCompleted = "challenge_completed"
	ActionQuizAnswered       = "quiz_answered"
	ActionLogin              = "login"
)

// Metadata keys recognized by the badge engine and stats aggregation.
const (
	MetaIsCorrect       = "isCorrect"
	MetaDurationSeconds = "durationSeconds"
)

// ActivityEvent is one immutable, append-only record of a user/kid action.
// It is the sole input to both the badge engine and the streak calculator.
type ActivityEvent struct {
	ID         int64         `json:"id" db:"id"`
	UserID     int64         `json:"user_id" db:"user_id"`
	KidID      *int64        `json:"kid_id,omitempty" db:"kid_id"`
	Action     string        `json:"action" db:"action"`
	Metadata   EventMetadata `json:"metadata,omitempty" db:"metadata"`
	OccurredAt time.Time     `json:"occurred_at" db:"occurred_at"`
}

// EventMetadata is free-form structured metadata attached to an activity
// event (e.g. isCorrect for quiz answers). Stored as JSONB.
type EventMetadata map[string]interface{}

// Value implements driver.Valuer.
func (m EventMetadata) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner.
func (m *EventMetadata) Scan(src interface{}) error {
	if src == nil {
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("unsupported event metadata type %T", src)
	}
}

// IsCorrect reports whether the metadata carries an explicit isCorrect flag,
// and its value. Absent or non-boolean values count as "not declared".
func (m EventMetadata) IsCorrect() (value, declared bool) {
	raw, ok := m[MetaIsCorrect]
	if !ok {
		return false, false
	}
	b, ok := raw.(bool)
	if !ok {
		return false, false
	}
	return b, true
}

// DurationSeconds returns the durationSeconds metadata field, if present.
// JSON numbers decode as float64, so both forms are accepted.
func (m EventMetadata) DurationSeconds() (int, bool) {
	raw, ok := m[MetaDurationSeconds]
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	default:
		return 0, false
	}
}
