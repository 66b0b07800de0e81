package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"taskdesk/internal/taskengine"
)

// TelegramLink is a one-time code that binds a Telegram chat to a user.
type TelegramLink struct {
	ID        int64
	UserID    int64
	Code      string
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

type TelegramLinkRepository interface {
	// Create issues a code for the user. Codes issued to the user before stop working.
	Create(ctx context.Context, userID int64, code string, ttl time.Duration) (*TelegramLink, error)
	// UseByCode consumes a live code; used or expired codes are reported as not found.
	UseByCode(ctx context.Context, code string) (*TelegramLink, error)
	// PurgeExpired deletes codes that can no longer be used.
	PurgeExpired(ctx context.Context) (int64, error)
}

type telegramLinkRepository struct{ db *sql.DB }

func NewTelegramLinkRepository(db *sql.DB) TelegramLinkRepository {
	return &telegramLinkRepository{db: db}
}

const linkColumns = `id, user_id, code, expires_at, used, created_at`

func scanLink(row rowScanner) (*TelegramLink, error) {
	var l TelegramLink
	if err := row.Scan(&l.ID, &l.UserID, &l.Code, &l.ExpiresAt, &l.Used, &l.CreatedAt); err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *telegramLinkRepository) Create(ctx context.Context, userID int64, code string, ttl time.Duration) (*TelegramLink, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// одна живая ссылка на пользователя
	if _, err := tx.ExecContext(ctx,
		`UPDATE telegram_links SET used = TRUE WHERE user_id = $1 AND NOT used`, userID); err != nil {
		return nil, fmt.Errorf("revoke old link codes of user %d: %w", userID, err)
	}

	link, err := scanLink(tx.QueryRowContext(ctx, `
		INSERT INTO telegram_links (user_id, code, expires_at)
		VALUES ($1, $2, NOW() + $3::double precision * INTERVAL '1 second')
		RETURNING `+linkColumns, userID, code, int64(ttl/time.Second)))
	if err != nil {
		return nil, fmt.Errorf("insert link code for user %d: %w", userID, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return link, nil
}

func (r *telegramLinkRepository) UseByCode(ctx context.Context, code string) (*TelegramLink, error) {
	link, err := scanLink(r.db.QueryRowContext(ctx, `
		UPDATE telegram_links
		SET used = TRUE
		WHERE code = $1 AND NOT used AND expires_at > NOW()
		RETURNING `+linkColumns, code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("telegram link code is unknown, used or expired: %w", taskengine.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return link, nil
}

func (r *telegramLinkRepository) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM telegram_links WHERE used OR expires_at <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("purge link codes: %w", err)
	}
	return res.RowsAffected()
}
