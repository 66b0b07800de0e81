package repositories

import (
	"context"
	"database/sql"
	"fmt"
)

// Migrations returns the schema statements in apply order.
// Every statement is idempotent so Migrate can run on each deploy.
func Migrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS companies (
			id         BIGSERIAL PRIMARY KEY,
			name       TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS users (
			id               BIGSERIAL PRIMARY KEY,
			company_id       BIGINT NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
			name             TEXT NOT NULL,
			email            TEXT NOT NULL UNIQUE,
			password_hash    TEXT NOT NULL,
			role_id          INTEGER NOT NULL,
			bonus_balance    BIGINT NOT NULL DEFAULT 0,
			telegram_chat_id BIGINT,
			notify_telegram  BOOLEAN NOT NULL DEFAULT TRUE,
			created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_users_company ON users(company_id)`,

		`CREATE TABLE IF NOT EXISTS tasks (
			id                BIGSERIAL PRIMARY KEY,
			company_id        BIGINT NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
			created_by        BIGINT NOT NULL,
			worker_id         BIGINT REFERENCES users(id) ON DELETE SET NULL,
			title             TEXT NOT NULL,
			description       TEXT NOT NULL DEFAULT '',
			category          TEXT NOT NULL DEFAULT '',
			requires_photo    BOOLEAN NOT NULL DEFAULT FALSE,
			photo_urls        TEXT[] NOT NULL DEFAULT '{}',
			photo_url         TEXT,
			example_photo_url TEXT,
			is_completed      BOOLEAN NOT NULL DEFAULT FALSE,
			week_days         SMALLINT[],
			month_day         SMALLINT CHECK (month_day BETWEEN 1 AND 31),
			is_recurring      BOOLEAN NOT NULL DEFAULT TRUE,
			price             BIGINT NOT NULL DEFAULT 0 CHECK (price >= 0),
			credited_to       BIGINT REFERENCES users(id) ON DELETE SET NULL,
			credited_amount   BIGINT NOT NULL DEFAULT 0,
			created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`ALTER TABLE tasks ADD COLUMN IF NOT EXISTS credited_to BIGINT REFERENCES users(id) ON DELETE SET NULL`,
		`ALTER TABLE tasks ADD COLUMN IF NOT EXISTS credited_amount BIGINT NOT NULL DEFAULT 0`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_company ON tasks(company_id)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_worker ON tasks(worker_id)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_resettable ON tasks(is_recurring, is_completed)`,

		`CREATE TABLE IF NOT EXISTS bonus_entries (
			id         BIGSERIAL PRIMARY KEY,
			user_id    BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			task_id    BIGINT REFERENCES tasks(id) ON DELETE SET NULL,
			amount     BIGINT NOT NULL,
			reason     TEXT NOT NULL,
			ref        UUID NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bonus_entries_user ON bonus_entries(user_id, created_at)`,

		`CREATE TABLE IF NOT EXISTS telegram_links (
			id         BIGSERIAL PRIMARY KEY,
			user_id    BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			code       TEXT NOT NULL UNIQUE,
			expires_at TIMESTAMPTZ NOT NULL,
			used       BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}
}

func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range Migrations() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
