package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"taskdesk/internal/models"
	"taskdesk/internal/taskengine"
)

// ErrDuplicateEmail is returned when the e-mail is already registered.
var ErrDuplicateEmail = errors.New("email already registered")

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	ListByCompany(ctx context.Context, companyID int64) ([]*models.User, error)
	// Update writes profile fields; the bonus balance is never part of it.
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id int64) error

	// ResetBalance zeroes the balance and records the write-off in the ledger.
	ResetBalance(ctx context.Context, id int64) (*models.User, error)

	// Telegram helpers
	UpdateTelegramLink(ctx context.Context, userID int64, chatID int64, enable bool) error
	GetTelegramSettings(ctx context.Context, userID int64) (chatID int64, notify bool, err error)
	GetByChatID(ctx context.Context, chatID int64) (*models.User, error)
}

type userRepository struct {
	DB *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{DB: db}
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const userColumns = `id, company_id, name, email, password_hash, role_id, bonus_balance,
       COALESCE(telegram_chat_id,0), notify_telegram, created_at`

func scanUser(row rowScanner) (*models.User, error) {
	u := &models.User{}
	if err := row.Scan(
		&u.ID, &u.CompanyID, &u.Name, &u.Email, &u.PasswordHash, &u.RoleID, &u.BonusBalance,
		&u.TelegramChatID, &u.NotifyTelegram, &u.CreatedAt,
	); err != nil {
		return nil, err
	}
	return u, nil
}

func insertUser(ctx context.Context, q queryRower, user *models.User) error {
	const query = `
		INSERT INTO users (company_id, name, email, password_hash, role_id, notify_telegram)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id, bonus_balance, created_at
	`
	err := q.QueryRowContext(ctx, query,
		user.CompanyID, user.Name, user.Email, user.PasswordHash, user.RoleID, user.NotifyTelegram,
	).Scan(&user.ID, &user.BonusBalance, &user.CreatedAt)
	return uniqueViolation(err)
}

// uniqueViolation maps a unique constraint error on users to ErrDuplicateEmail.
func uniqueViolation(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return fmt.Errorf("%s: %w", pqErr.Constraint, ErrDuplicateEmail)
	}
	return err
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return insertUser(ctx, r.DB, user)
}

func (r *userRepository) getOne(ctx context.Context, q queryRower, where string, arg any) (*models.User, error) {
	u, err := scanUser(q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user: %w", taskengine.ErrNotFound)
		}
		return nil, err
	}
	return u, nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, r.DB, "id = $1", id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, r.DB, "LOWER(email) = LOWER($1)", email)
}

func (r *userRepository) GetByChatID(ctx context.Context, chatID int64) (*models.User, error) {
	return r.getOne(ctx, r.DB, "telegram_chat_id = $1", chatID)
}

func (r *userRepository) ListByCompany(ctx context.Context, companyID int64) ([]*models.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE company_id = $1 ORDER BY id`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	const q = `
		UPDATE users
		SET name=$1, email=$2, role_id=$3, notify_telegram=$4
		WHERE id=$5
	`
	res, err := r.DB.ExecContext(ctx, q, user.Name, user.Email, user.RoleID, user.NotifyTelegram, user.ID)
	if err != nil {
		return uniqueViolation(err)
	}
	return expectAffected(res, "user", user.ID)
}

func (r *userRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectAffected(res, "user", id)
}

func (r *userRepository) ResetBalance(ctx context.Context, id int64) (*models.User, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	u, err := r.getOne(ctx, tx, "id = $1 FOR UPDATE", id)
	if err != nil {
		return nil, err
	}
	if u.BonusBalance != 0 {
		if _, err := tx.ExecContext(ctx, `UPDATE users SET bonus_balance = 0 WHERE id = $1`, id); err != nil {
			return nil, fmt.Errorf("reset balance of user %d: %w", id, err)
		}
		if err := insertBonusEntry(ctx, tx, &models.BonusEntry{
			UserID: id,
			Amount: -u.BonusBalance,
			Reason: models.BonusReset,
		}); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	u.BonusBalance = 0
	return u, nil
}

func (r *userRepository) UpdateTelegramLink(ctx context.Context, userID int64, chatID int64, enable bool) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE users SET telegram_chat_id=$1, notify_telegram=$2 WHERE id=$3`, chatID, enable, userID)
	if err != nil {
		return err
	}
	return expectAffected(res, "user", userID)
}

func (r *userRepository) GetTelegramSettings(ctx context.Context, userID int64) (int64, bool, error) {
	var (
		chatID int64
		notify bool
	)
	err := r.DB.QueryRowContext(ctx,
		`SELECT COALESCE(telegram_chat_id,0), notify_telegram FROM users WHERE id=$1`, userID,
	).Scan(&chatID, &notify)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, fmt.Errorf("user %d: %w", userID, taskengine.ErrNotFound)
		}
		return 0, false, err
	}
	return chatID, notify, nil
}
