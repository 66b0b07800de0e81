package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"taskdesk/internal/models"
)

type BonusRepository interface {
	ListByUser(ctx context.Context, userID int64) ([]models.BonusEntry, error)
}

type bonusRepository struct {
	db *sql.DB
}

func NewBonusRepository(db *sql.DB) BonusRepository {
	return &bonusRepository{db: db}
}

func (r *bonusRepository) ListByUser(ctx context.Context, userID int64) ([]models.BonusEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, task_id, amount, reason, ref, created_at
		FROM bonus_entries
		WHERE user_id = $1
		ORDER BY created_at ASC, id ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.BonusEntry
	for rows.Next() {
		var (
			e      models.BonusEntry
			taskID sql.NullInt64
		)
		if err := rows.Scan(&e.ID, &e.UserID, &taskID, &e.Amount, &e.Reason, &e.Ref, &e.CreatedAt); err != nil {
			return nil, err
		}
		if taskID.Valid {
			id := taskID.Int64
			e.TaskID = &id
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// adjustBalance moves a user's balance inside the caller's transaction.
func adjustBalance(ctx context.Context, tx *sql.Tx, userID, delta int64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE users SET bonus_balance = bonus_balance + $1 WHERE id = $2`, delta, userID)
	if err != nil {
		return fmt.Errorf("adjust balance of user %d: %w", userID, err)
	}
	return expectAffected(res, "user", userID)
}

func insertBonusEntry(ctx context.Context, tx *sql.Tx, e *models.BonusEntry) error {
	if e.Ref == "" {
		e.Ref = uuid.NewString()
	}
	err := tx.QueryRowContext(ctx, `
		INSERT INTO bonus_entries (user_id, task_id, amount, reason, ref)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id, created_at`,
		e.UserID, e.TaskID, e.Amount, e.Reason, e.Ref,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert bonus entry for user %d: %w", e.UserID, err)
	}
	return nil
}

