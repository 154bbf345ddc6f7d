package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"storynest/internal/database"
	"storynest/internal/models"

	"go.uber.org/zap"
)

// progressRepository implements ProgressRepository over the
// user_badge_progress table.
type progressRepository struct {
	*BaseRepository
}

// NewProgressRepository creates a badge progress repository.
func NewProgressRepository(db *database.Manager, logger *zap.Logger) ProgressRepository {
	return &progressRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

const progressColumns = `
	id, user_id, badge_id, count, unlocked, unlocked_at, created_at, updated_at`

// GetByUserAndBadge retrieves one progress row by its composite key.
func (r *progressRepository) GetByUserAndBadge(ctx context.Context, userID, badgeID int64) (*models.UserBadgeProgress, error) {
	query := `SELECT` + progressColumns + `
		FROM user_badge_progress
		WHERE user_id = $1 AND badge_id = $2`

	progress, err := scanProgress(r.QueryRowContext(ctx, query, userID, badgeID))
	if err != nil {
		if r.IsNotFound(err) {
			return nil, fmt.Errorf("progress for user %d badge %d: %w", userID, badgeID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get badge progress: %w", err)
	}
	return progress, nil
}

// ListByUser returns all progress rows for one user.
func (r *progressRepository) ListByUser(ctx context.Context, userID int64) ([]*models.UserBadgeProgress, error) {
	query := `SELECT` + progressColumns + `
		FROM user_badge_progress
		WHERE user_id = $1
		ORDER BY badge_id ASC`

	rows, err := r.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list badge progress: %w", err)
	}
	defer rows.Close()

	var result []*models.UserBadgeProgress
	for rows.Next() {
		progress, err := scanProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan badge progress: %w", err)
		}
		result = append(result, progress)
	}
	return result, rows.Err()
}

// ListForUser joins the active catalog with the user's progress. Badges the
// user has no row for yet surface with zero progress.
func (r *progressRepository) ListForUser(ctx context.Context, userID int64) ([]*models.BadgeWithProgress, error) {
	query := `
		SELECT
			b.id, b.title, b.description, b.icon, b.unlock_condition,
			b.badge_type, b.required_amount, b.priority, b.metadata,
			b.is_active, b.created_at,
			COALESCE(p.count, 0),
			COALESCE(p.unlocked, FALSE),
			p.unlocked_at
		FROM badges b
		LEFT JOIN user_badge_progress p
			ON p.badge_id = b.id AND p.user_id = $1
		WHERE b.is_active = TRUE
		ORDER BY b.priority DESC, b.id ASC`

	rows, err := r.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list badges for user: %w", err)
	}
	defer rows.Close()

	var result []*models.BadgeWithProgress
	for rows.Next() {
		var item models.BadgeWithProgress
		var metadata models.BadgeMetadata
		var rawMetadata sql.NullString

		err := rows.Scan(
			&item.ID, &item.Title, &item.Description, &item.Icon,
			&item.UnlockCondition, &item.BadgeType, &item.RequiredAmount,
			&item.Priority, &rawMetadata, &item.IsActive, &item.CreatedAt,
			&item.Count, &item.Unlocked, &item.UnlockedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan badge with progress: %w", err)
		}
		if rawMetadata.Valid {
			if err := metadata.Scan(rawMetadata.String); err != nil {
				return nil, fmt.Errorf("failed to decode badge metadata: %w", err)
			}
			item.Metadata = &metadata
		}
		result = append(result, &item)
	}
	return result, rows.Err()
}

// InitializeUser creates one progress row per active catalog badge. Safe to
// call more than once.
func (r *progressRepository) InitializeUser(ctx context.Context, userID int64) error {
	query := `
		INSERT INTO user_badge_progress (user_id, badge_id)
		SELECT $1, b.id
		FROM badges b
		WHERE b.is_active = TRUE
		ON CONFLICT (user_id, badge_id) DO NOTHING`

	result, err := r.ExecContext(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("failed to initialize badge progress for user %d: %w", userID, err)
	}

	created, _ := result.RowsAffected()
	r.Logger().Info("Badge progress initialized",
		zap.Int64("user_id", userID),
		zap.Int64("rows_created", created),
	)
	return nil
}

// UpdateWithLock serializes the read-modify-write of one (user, badge) row
// with SELECT ... FOR UPDATE. Concurrent updates for the same pair queue on
// the row lock; other pairs proceed independently.
func (r *progressRepository) UpdateWithLock(ctx context.Context, userID, badgeID int64, fn ProgressMutation) error {
	return r.WithTransaction(ctx, func(tx *sql.Tx) error {
		query := `SELECT` + progressColumns + `
			FROM user_badge_progress
			WHERE user_id = $1 AND badge_id = $2
			FOR UPDATE`

		progress, err := scanProgress(tx.QueryRowContext(ctx, query, userID, badgeID))
		if err != nil {
			if err == sql.ErrNoRows {
				return fmt.Errorf("progress for user %d badge %d: %w", userID, badgeID, ErrNotFound)
			}
			return fmt.Errorf("failed to lock badge progress: %w", err)
		}

		apply, err := fn(progress)
		if err != nil {
			return err
		}
		if !apply {
			return nil
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE user_badge_progress
			SET count = $1, unlocked = $2, unlocked_at = $3, updated_at = NOW()
			WHERE id = $4`,
			progress.Count, progress.Unlocked, progress.UnlockedAt, progress.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update badge progress: %w", err)
		}
		return nil
	})
}

func scanProgress(row rowScanner) (*models.UserBadgeProgress, error) {
	var p models.UserBadgeProgress
	err := row.Scan(
		&p.ID, &p.UserID, &p.BadgeID, &p.Count,
		&p.Unlocked, &p.UnlockedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
