package services

import (
	"context"
	"time"

	"storynest/internal/events"
	"storynest/internal/models"
	"storynest/internal/repositories"

	"go.uber.org/zap"
)

// activityService implements ActivityService.
type activityService struct {
	activities  repositories.ActivityRepository
	bus         events.Bus
	invalidator SummaryInvalidator
	logger      *zap.Logger
	location    *time.Location
	now         func() time.Time
}

// NewActivityService creates the activity recorder.
func NewActivityService(
	activities repositories.ActivityRepository,
	bus events.Bus,
	invalidator SummaryInvalidator,
	location *time.Location,
	logger *zap.Logger,
) ActivityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if location == nil {
		location = time.UTC
	}
	return &activityService{
		activities:  activities,
		bus:         bus,
		invalidator: invalidator,
		logger:      logger,
		location:    location,
		now:         time.Now,
	}
}

// Record appends one activity event, then hands it to the badge engine via
// the bus. The write is authoritative: once it succeeds the event is never
// rolled back, whatever happens downstream.
func (s *activityService) Record(ctx context.Context, userID int64, action string, kidID *int64, metadata models.EventMetadata) error {
	if userID <= 0 {
		return NewValidationError("user id is required", nil)
	}
	if action == "" {
		return NewValidationError("action is required", nil)
	}

	event := &models.ActivityEvent{
		UserID:     userID,
		KidID:      kidID,
		Action:     action,
		Metadata:   metadata,
		OccurredAt: s.now().In(s.location),
	}

	if err := s.activities.Append(ctx, event); err != nil {
		return NewInternalError("failed to record activity", err)
	}

	// Fire-and-forget: the caller never blocks on badge evaluation, and a
	// publish failure must not surface after the record is in.
	if err := s.bus.PublishAsync(ctx, events.NewActivityRecorded(event)); err != nil {
		s.logger.Error("Failed to publish activity event",
			zap.Int64("user_id", userID),
			zap.String("action", action),
			zap.Error(err),
		)
	}

	// The new event changes streak/stats inputs, so the cached aggregate for
	// this subject is stale now, not at TTL expiry.
	if err := s.invalidator.Invalidate(ctx, userID); err != nil {
		s.logger.Warn("Failed to invalidate summary cache",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
	}

	return nil
}

// RecentActivity returns the subject's activity feed, newest first.
func (s *activityService) RecentActivity(ctx context.Context, subjectID int64, limit int) ([]*models.ActivityEvent, error) {
	if subjectID <= 0 {
		return nil, NewValidationError("subject id is required", nil)
	}

	activity, err := s.activities.ListRecent(ctx, subjectID, limit)
	if err != nil {
		return nil, NewInternalError("failed to load recent activity", err)
	}
	return activity, nil
}
