package services

import (
	"context"
	"errors"
	"time"

	"storynest/internal/events"
	"storynest/internal/models"
	"storynest/internal/repositories"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// badgeProgressService implements BadgeProgressService.
type badgeProgressService struct {
	badges      repositories.BadgeRepository
	progress    repositories.ProgressRepository
	bus         events.Bus
	invalidator SummaryInvalidator
	logger      *zap.Logger
	location    *time.Location
	now         func() time.Time
}

// NewBadgeProgressService creates the badge progress engine.
func NewBadgeProgressService(
	badges repositories.BadgeRepository,
	progress repositories.ProgressRepository,
	bus events.Bus,
	invalidator SummaryInvalidator,
	location *time.Location,
	logger *zap.Logger,
) BadgeProgressService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if location == nil {
		location = time.UTC
	}
	return &badgeProgressService{
		badges:      badges,
		progress:    progress,
		bus:         bus,
		invalidator: invalidator,
		logger:      logger,
		location:    location,
		now:         time.Now,
	}
}

// Evaluate applies one activity increment to every catalog badge matching
// badgeType. Each (user, badge) update runs under a row lock so concurrent
// events for the same pair cannot double-count or double-unlock.
func (s *badgeProgressService) Evaluate(ctx context.Context, userID int64, badgeType string, increment int, metadata models.EventMetadata, kidID *int64) error {
	if userID <= 0 {
		return NewValidationError("user id is required", nil)
	}
	if increment < 0 {
		return NewValidationError("increment cannot be negative", nil)
	}
	if increment == 0 {
		return nil
	}

	matched, err := s.badges.GetByType(ctx, badgeType)
	if err != nil {
		return NewInternalError("failed to load badge catalog", err)
	}
	if len(matched) == 0 {
		// Unknown badge type keys are a silent no-op: clients may record
		// actions the catalog has no badge for.
		s.logger.Debug("No catalog badges for badge type",
			zap.String("badge_type", badgeType),
		)
		return nil
	}

	evaluatedAt := s.now().In(s.location)

	var errs error
	for _, badge := range matched {
		if s.shouldSkip(badge, metadata, evaluatedAt) {
			continue
		}
		if err := s.applyIncrement(ctx, userID, badge, increment); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

// applyIncrement performs the atomic read-modify-write for one badge and
// publishes the unlock when the threshold is crossed.
func (s *badgeProgressService) applyIncrement(ctx context.Context, userID int64, badge *models.Badge, increment int) error {
	var unlocked bool
	var unlockedAt time.Time

	err := s.progress.UpdateWithLock(ctx, userID, badge.ID, func(p *models.UserBadgeProgress) (bool, error) {
		if p.Unlocked {
			// Unlock is terminal: the count is frozen where it crossed the
			// threshold and no further writes happen for this badge.
			return false, nil
		}

		p.Count += increment
		if p.Count >= badge.RequiredAmount {
			now := s.now().In(s.location)
			p.Unlocked = true
			p.UnlockedAt = &now
			unlocked = true
			unlockedAt = now
		}
		return true, nil
	})
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			// User was never initialized for this badge. Skip it rather than
			// failing the rest of the batch.
			s.logger.Error("Badge progress row missing",
				zap.Int64("user_id", userID),
				zap.Int64("badge_id", badge.ID),
			)
			return nil
		}
		return err
	}

	if err := s.invalidator.Invalidate(ctx, userID); err != nil {
		s.logger.Warn("Failed to invalidate summary cache",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
	}

	if unlocked {
		// The transaction has committed, so the unlock is durable before the
		// notification goes out. Exactly one publish per unlock: only the
		// transaction that flipped the flag reaches this branch.
		if err := s.bus.Publish(ctx, events.NewBadgeUnlocked(userID, badge.ID, unlockedAt)); err != nil {
			s.logger.Error("Failed to publish badge unlock",
				zap.Int64("user_id", userID),
				zap.Int64("badge_id", badge.ID),
				zap.Error(err),
			)
		}
	}

	return nil
}

// shouldSkip applies the per-badge conditional skip predicate for an event.
func (s *badgeProgressService) shouldSkip(badge *models.Badge, metadata models.EventMetadata, evaluatedAt time.Time) bool {
	meta := badge.Metadata
	if meta == nil {
		return false
	}

	if meta.Special && meta.TimeConstraint != "" {
		hour := evaluatedAt.Hour()
		switch meta.TimeConstraint {
		case models.TimeConstraintBefore7AM:
			if hour >= 7 {
				return true
			}
		case models.TimeConstraintAfter9PM:
			if hour < 21 {
				return true
			}
		default:
			s.logger.Warn("Unknown badge time constraint",
				zap.Int64("badge_id", badge.ID),
				zap.String("time_constraint", meta.TimeConstraint),
			)
		}
	}

	if meta.CorrectOnly {
		if correct, declared := metadata.IsCorrect(); declared && !correct {
			return true
		}
	}

	return false
}

// InitializeUser creates one progress row per active catalog badge.
func (s *badgeProgressService) InitializeUser(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return NewValidationError("user id is required", nil)
	}
	if err := s.progress.InitializeUser(ctx, userID); err != nil {
		return NewInternalError("failed to initialize badge progress", err)
	}
	return nil
}

// ListBadges returns the catalog joined with the user's progress.
func (s *badgeProgressService) ListBadges(ctx context.Context, userID int64) ([]*models.BadgeWithProgress, error) {
	if userID <= 0 {
		return nil, NewValidationError("user id is required", nil)
	}

	badges, err := s.progress.ListForUser(ctx, userID)
	if err != nil {
		return nil, NewInternalError("failed to list badges", err)
	}
	return badges, nil
}
