package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"storynest/internal/database"
	"storynest/internal/models"

	"go.uber.org/zap"
)

// badgeRepository implements BadgeRepository over the seeded badges table.
type badgeRepository struct {
	*BaseRepository
}

// NewBadgeRepository creates a badge catalog repository.
func NewBadgeRepository(db *database.Manager, logger *zap.Logger) BadgeRepository {
	return &badgeRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

const badgeColumns = `
	id, title, description, icon, unlock_condition, badge_type,
	required_amount, priority, metadata, is_active, created_at`

// GetByID retrieves one catalog badge.
func (r *badgeRepository) GetByID(ctx context.Context, id int64) (*models.Badge, error) {
	query := `SELECT` + badgeColumns + ` FROM badges WHERE id = $1`

	badge, err := scanBadge(r.QueryRowContext(ctx, query, id))
	if err != nil {
		if r.IsNotFound(err) {
			return nil, fmt.Errorf("badge %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get badge by id: %w", err)
	}
	return badge, nil
}

// GetByType returns all active badges matching a badge type key, ordered by
// priority then creation order.
func (r *badgeRepository) GetByType(ctx context.Context, badgeType string) ([]*models.Badge, error) {
	query := `
		SELECT` + badgeColumns + `
		FROM badges
		WHERE badge_type = $1 AND is_active = TRUE
		ORDER BY priority DESC, id ASC`

	rows, err := r.QueryContext(ctx, query, badgeType)
	if err != nil {
		return nil, fmt.Errorf("failed to list badges by type: %w", err)
	}
	defer rows.Close()

	return collectBadges(rows)
}

// ListActive returns the full active catalog ordered by priority then
// creation order.
func (r *badgeRepository) ListActive(ctx context.Context) ([]*models.Badge, error) {
	query := `
		SELECT` + badgeColumns + `
		FROM badges
		WHERE is_active = TRUE
		ORDER BY priority DESC, id ASC`

	rows, err := r.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list active badges: %w", err)
	}
	defer rows.Close()

	return collectBadges(rows)
}

// Seed inserts catalog entries idempotently; existing titles are left
// untouched so a reseed never mutates a live catalog.
func (r *badgeRepository) Seed(ctx context.Context, badges []*models.Badge) error {
	if len(badges) == 0 {
		return nil
	}

	query := `
		INSERT INTO badges (
			title, description, icon, unlock_condition, badge_type,
			required_amount, priority, metadata, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE)
		ON CONFLICT (title) DO NOTHING`

	for _, b := range badges {
		if _, err := r.ExecContext(ctx, query,
			b.Title, b.Description, b.Icon, b.UnlockCondition, b.BadgeType,
			b.RequiredAmount, b.Priority, b.Metadata,
		); err != nil {
			return fmt.Errorf("failed to seed badge %q: %w", b.Title, err)
		}
	}

	r.Logger().Info("Badge catalog seeded", zap.Int("badges", len(badges)))
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBadge(row rowScanner) (*models.Badge, error) {
	var badge models.Badge
	var metadata models.BadgeMetadata
	var hasMetadata sql.NullString

	// Scan metadata through NullString first so NULL rows keep a nil pointer.
	err := row.Scan(
		&badge.ID, &badge.Title, &badge.Description, &badge.Icon,
		&badge.UnlockCondition, &badge.BadgeType, &badge.RequiredAmount,
		&badge.Priority, &hasMetadata, &badge.IsActive, &badge.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if hasMetadata.Valid {
		if err := metadata.Scan(hasMetadata.String); err != nil {
			return nil, fmt.Errorf("failed to decode badge metadata: %w", err)
		}
		badge.Metadata = &metadata
	}
	return &badge, nil
}

func collectBadges(rows *sql.Rows) ([]*models.Badge, error) {
	var badges []*models.Badge
	for rows.Next() {
		badge, err := scanBadge(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan badge: %w", err)
		}
		badges = append(badges, badge)
	}
	return badges, rows.Err()
}
