package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"storynest/internal/database"
	"storynest/internal/models"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// activityRepository implements ActivityRepository over the append-only
// activity_events table.
type activityRepository struct {
	*BaseRepository
}

// NewActivityRepository creates an activity log repository.
func NewActivityRepository(db *database.Manager, logger *zap.Logger) ActivityRepository {
	return &activityRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

// Append persists one activity event. Events are immutable once written.
func (r *activityRepository) Append(ctx context.Context, event *models.ActivityEvent) error {
	query := `
		INSERT INTO activity_events (user_id, kid_id, action, metadata, occurred_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	err := r.QueryRowContext(ctx, query,
		event.UserID, event.KidID, event.Action, event.Metadata, event.OccurredAt,
	).Scan(&event.ID)
	if err != nil {
		return fmt.Errorf("failed to append activity event: %w", err)
	}

	r.Logger().Debug("Activity event recorded",
		zap.Int64("event_id", event.ID),
		zap.Int64("user_id", event.UserID),
		zap.String("action", event.Action),
	)
	return nil
}

// ListBySubjectSince returns the subject's events at or after since,
// optionally filtered to a fixed set of action keys, oldest first.
func (r *activityRepository) ListBySubjectSince(ctx context.Context, subjectID int64, since time.Time, actions []string) ([]*models.ActivityEvent, error) {
	query := `
		SELECT id, user_id, kid_id, action, metadata, occurred_at
		FROM activity_events
		WHERE user_id = $1 AND occurred_at >= $2`
	args := []interface{}{subjectID, since}

	if len(actions) > 0 {
		query += ` AND action = ANY($3)`
		args = append(args, pq.Array(actions))
	}
	query += ` ORDER BY occurred_at ASC`

	rows, err := r.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity events: %w", err)
	}
	defer rows.Close()

	return collectActivityEvents(rows)
}

// ListRecent returns the subject's most recent events, newest first.
func (r *activityRepository) ListRecent(ctx context.Context, subjectID int64, limit int) ([]*models.ActivityEvent, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	query := `
		SELECT id, user_id, kid_id, action, metadata, occurred_at
		FROM activity_events
		WHERE user_id = $1
		ORDER BY occurred_at DESC
		LIMIT $2`

	rows, err := r.QueryContext(ctx, query, subjectID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent activity: %w", err)
	}
	defer rows.Close()

	return collectActivityEvents(rows)
}

// LastActiveAt returns the subject's most recent event timestamp, unbounded
// by any lookback window.
func (r *activityRepository) LastActiveAt(ctx context.Context, subjectID int64) (*time.Time, error) {
	query := `
		SELECT MAX(occurred_at)
		FROM activity_events
		WHERE user_id = $1`

	var last sql.NullTime
	if err := r.QueryRowContext(ctx, query, subjectID).Scan(&last); err != nil {
		return nil, fmt.Errorf("failed to get last active timestamp: %w", err)
	}
	if !last.Valid {
		return nil, nil
	}
	return &last.Time, nil
}

// Stats derives completed-item counts and total listening time from the log.
// Listening time comes from the durationSeconds metadata on story events.
func (r *activityRepository) Stats(ctx context.Context, subjectID int64) (*models.SubjectStats, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE action = $2),
			COUNT(*) FILTER (WHERE action = $3),
			COUNT(*) FILTER (WHERE action = $4),
			COALESCE(SUM(
				CASE WHEN action = $2
					THEN COALESCE((metadata->>'durationSeconds')::bigint, 0)
					ELSE 0
				END), 0)
		FROM activity_events
		WHERE user_id = $1`

	var stats models.SubjectStats
	err := r.QueryRowContext(ctx, query, subjectID,
		models.ActionStoryRead,
		models.ActionChallengeCompleted,
		models.ActionQuizAnswered,
	).Scan(
		&stats.StoriesCompleted,
		&stats.ChallengesCompleted,
		&stats.QuizzesAnswered,
		&stats.TotalListenSeconds,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate subject stats: %w", err)
	}
	return &stats, nil
}

func collectActivityEvents(rows *sql.Rows) ([]*models.ActivityEvent, error) {
	var result []*models.ActivityEvent
	for rows.Next() {
		var ev models.ActivityEvent
		var rawMetadata sql.NullString

		err := rows.Scan(&ev.ID, &ev.UserID, &ev.KidID, &ev.Action, &rawMetadata, &ev.OccurredAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity event: %w", err)
		}
		if rawMetadata.Valid {
			if err := ev.Metadata.Scan(rawMetadata.String); err != nil {
				return nil, fmt.Errorf("failed to decode event metadata: %w", err)
			}
		}
		result = append(result, &ev)
	}
	return result, rows.Err()
}
