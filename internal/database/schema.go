package database

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// schemaStatements creates the achievement tables when they do not exist.
// Statements are idempotent so EnsureSchema is safe on every startup.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS badges (
		id               BIGSERIAL PRIMARY KEY,
		title            TEXT NOT NULL UNIQUE,
		description      TEXT NOT NULL DEFAULT '',
		icon             TEXT NOT NULL DEFAULT '',
		unlock_condition TEXT NOT NULL DEFAULT '',
		badge_type       TEXT NOT NULL,
		required_amount  INTEGER NOT NULL CHECK (required_amount > 0),
		priority         INTEGER NOT NULL DEFAULT 0,
		metadata         JSONB,
		is_active        BOOLEAN NOT NULL DEFAULT TRUE,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_badges_type ON badges (badge_type) WHERE is_active`,

	`CREATE TABLE IF NOT EXISTS user_badge_progress (
		id          BIGSERIAL PRIMARY KEY,
		user_id     BIGINT NOT NULL,
		badge_id    BIGINT NOT NULL REFERENCES badges (id),
		count       INTEGER NOT NULL DEFAULT 0,
		unlocked    BOOLEAN NOT NULL DEFAULT FALSE,
		unlocked_at TIMESTAMPTZ,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (user_id, badge_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_progress_user ON user_badge_progress (user_id)`,

	`CREATE TABLE IF NOT EXISTS activity_events (
		id          BIGSERIAL PRIMARY KEY,
		user_id     BIGINT NOT NULL,
		kid_id      BIGINT,
		action      TEXT NOT NULL,
		metadata    JSONB,
		occurred_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_activity_subject_time ON activity_events (user_id, occurred_at)`,
}

// EnsureSchema creates any missing tables and indexes. It never alters
// existing tables; structural changes to a live deployment are handled
// outside this core.
func (m *Manager) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := m.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	m.logger.Info("Database schema ensured",
		zap.Int("statements", len(schemaStatements)),
	)
	return nil
}
