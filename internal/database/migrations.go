package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MassBabyGeek/PumpPro-challenges/internal/logger"
)

type migration struct {
	version int
	name    string
	sql     string
}

const migration001 = `
CREATE TABLE IF NOT EXISTS activities (
	id           TEXT PRIMARY KEY,
	user_id      TEXT NOT NULL,
	occurred_on  DATE NOT NULL,
	logged_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	metric_value INTEGER NOT NULL,
	kind         TEXT NOT NULL DEFAULT '',
	notes        TEXT NOT NULL DEFAULT '',
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),

	CONSTRAINT valid_metric_value CHECK (metric_value >= 1)
);

CREATE INDEX IF NOT EXISTS idx_activities_user_date ON activities(user_id, occurred_on);
CREATE INDEX IF NOT EXISTS idx_activities_date_user ON activities(occurred_on, user_id);

CREATE TABLE IF NOT EXISTS challenges (
	id           TEXT PRIMARY KEY,
	title        TEXT NOT NULL DEFAULT '',
	description  TEXT NOT NULL DEFAULT '',
	start_date   DATE NOT NULL,
	end_date     DATE NOT NULL,
	target_value INTEGER NOT NULL DEFAULT 0,
	unit         TEXT NOT NULL,
	aggregation  TEXT NOT NULL DEFAULT 'count',
	status       TEXT NOT NULL DEFAULT 'upcoming',
	tags         TEXT[] NOT NULL DEFAULT '{}',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),

	CONSTRAINT valid_window CHECK (end_date > start_date),
	CONSTRAINT valid_status CHECK (status IN ('upcoming', 'active', 'completed')),
	CONSTRAINT valid_aggregation CHECK (aggregation IN ('count', 'sum', 'max'))
);

CREATE INDEX IF NOT EXISTS idx_challenges_status ON challenges(status);

CREATE TABLE IF NOT EXISTS progress (
	user_id           TEXT NOT NULL,
	challenge_id      TEXT NOT NULL REFERENCES challenges(id) ON DELETE CASCADE,
	current_value     INTEGER NOT NULL DEFAULT 0,
	first_activity_at TIMESTAMPTZ,
	completed_at      TIMESTAMPTZ,
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),

	PRIMARY KEY (user_id, challenge_id),
	CONSTRAINT valid_current_value CHECK (current_value >= 0)
);

CREATE INDEX IF NOT EXISTS idx_progress_ranking ON progress(challenge_id, current_value DESC);
`

const migration002 = `
CREATE TABLE IF NOT EXISTS notifications (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	type       TEXT NOT NULL,
	title      TEXT NOT NULL,
	message    TEXT NOT NULL,
	payload    JSONB,
	read       BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

	CONSTRAINT valid_type CHECK (type IN ('like', 'comment', 'follow', 'event', 'challenge'))
);

CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, created_at DESC);
`

// les sommes dépassent INTEGER ; metric_value reste borné côté modèle
const migration003 = `
ALTER TABLE progress ALTER COLUMN current_value TYPE BIGINT;
ALTER TABLE challenges ALTER COLUMN target_value TYPE BIGINT;
`

var migrations = []migration{
	{version: 1, name: "activities_challenges_progress", sql: migration001},
	{version: 2, name: "notifications", sql: migration002},
	{version: 3, name: "bigint_progress_values", sql: migration003},
}

// Migrate applique les migrations manquantes, dans l'ordre, une transaction par migration
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`); err != nil {
		return fmt.Errorf("could not create schema_migrations: %w", err)
	}

	for _, m := range migrations {
		err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
			var applied bool
			if err := tx.QueryRow(ctx,
				`SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)`, m.version,
			).Scan(&applied); err != nil {
				return err
			}
			if applied {
				return nil
			}
			if _, err := tx.Exec(ctx, m.sql); err != nil {
				return err
			}
			if _, err := tx.Exec(ctx,
				`INSERT INTO schema_migrations(version, name) VALUES($1, $2)`, m.version, m.name,
			); err != nil {
				return err
			}
			logger.Info("Applied migration %03d_%s", m.version, m.name)
			return nil
		})
		if err != nil {
			return fmt.Errorf("migration %03d_%s failed: %w", m.version, m.name, err)
		}
	}
	return nil
}
