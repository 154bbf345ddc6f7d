package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"storynest/internal/cache"
	"storynest/internal/models"
	"storynest/internal/repositories"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"
)

// summaryService implements SummaryService.
type summaryService struct {
	cache       cache.Cache
	streaks     StreakService
	progress    repositories.ProgressRepository
	activities  repositories.ActivityRepository
	logger      *zap.Logger
	ttl         time.Duration
	previewSize int
	now         func() time.Time
}

// NewSummaryService creates the progress aggregator. The cache client and
// TTL are injected explicitly; there is no ambient cache configuration.
func NewSummaryService(
	cacheClient cache.Cache,
	streaks StreakService,
	progress repositories.ProgressRepository,
	activities repositories.ActivityRepository,
	ttl time.Duration,
	previewSize int,
	logger *zap.Logger,
) SummaryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if previewSize <= 0 {
		previewSize = 3
	}
	return &summaryService{
		cache:       cacheClient,
		streaks:     streaks,
		progress:    progress,
		activities:  activities,
		logger:      logger,
		ttl:         ttl,
		previewSize: previewSize,
		now:         time.Now,
	}
}

// HomeSummary returns the cached home-screen aggregate, recomputing it with
// a concurrent fan-out on a miss. A fan-out failure propagates: serving a
// partially wrong aggregate would corrupt displayed accuracy.
func (s *summaryService) HomeSummary(ctx context.Context, subjectID int64) (*models.HomeSummary, error) {
	if subjectID <= 0 {
		return nil, NewValidationError("subject id is required", nil)
	}

	key := homeSummaryKey(subjectID)
	if raw, ok := s.cache.Get(ctx, key); ok {
		var cached models.HomeSummary
		if err := json.Unmarshal(raw, &cached); err == nil {
			return &cached, nil
		}
		// Undecodable entry: drop it and fall through to recompute.
		s.logger.Warn("Dropping corrupt summary cache entry", zap.String("key", key))
		if err := s.cache.Delete(ctx, key); err != nil {
			s.logger.Warn("Failed to delete corrupt cache entry", zap.Error(err))
		}
	}

	var (
		wg      sync.WaitGroup
		streak  *models.StreakSummary
		preview []models.BadgePreviewItem
		stats   *models.SubjectStats

		previewErr error
		statsErr   error
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		streak = s.streaks.Summary(ctx, subjectID)
	}()
	go func() {
		defer wg.Done()
		preview, previewErr = s.badgePreview(ctx, subjectID)
	}()
	go func() {
		defer wg.Done()
		stats, statsErr = s.activities.Stats(ctx, subjectID)
	}()
	wg.Wait()

	if err := multierr.Combine(previewErr, statsErr); err != nil {
		return nil, NewInternalError("failed to aggregate home summary", err)
	}

	summary := &models.HomeSummary{
		Streak:       streak,
		BadgePreview: preview,
		Stats:        stats,
		GeneratedAt:  s.now().UTC(),
	}

	if data, err := json.Marshal(summary); err == nil {
		if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
			s.logger.Warn("Failed to cache home summary",
				zap.Int64("subject_id", subjectID),
				zap.Error(err),
			)
		}
	}

	return summary, nil
}

// badgePreview selects up to previewSize badges: unlocked first, then
// catalog priority descending, then creation order; locked badges fill the
// remainder.
func (s *summaryService) badgePreview(ctx context.Context, subjectID int64) ([]models.BadgePreviewItem, error) {
	badges, err := s.progress.ListForUser(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(badges, func(a, b *models.BadgeWithProgress) int {
		if a.Unlocked != b.Unlocked {
			if a.Unlocked {
				return -1
			}
			return 1
		}
		if a.Priority != b.Priority {
			return b.Priority - a.Priority
		}
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		default:
			return 0
		}
	})

	size := s.previewSize
	if len(badges) < size {
		size = len(badges)
	}

	preview := make([]models.BadgePreviewItem, 0, size)
	for _, badge := range badges[:size] {
		preview = append(preview, models.BadgePreviewItem{
			BadgeID:        badge.ID,
			Title:          badge.Title,
			Icon:           badge.Icon,
			Unlocked:       badge.Unlocked,
			Count:          badge.Count,
			RequiredAmount: badge.RequiredAmount,
		})
	}
	return preview, nil
}

// Invalidate drops every cached aggregate view for the subject.
func (s *summaryService) Invalidate(ctx context.Context, subjectID int64) error {
	return s.cache.DeletePattern(ctx, fmt.Sprintf("summary:*:%d", subjectID))
}

func homeSummaryKey(subjectID int64) string {
	return fmt.Sprintf("summary:home:%d", subjectID)
}
