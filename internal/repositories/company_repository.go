package repositories

import (
	"context"
	"database/sql"

	"taskdesk/internal/models"
)

type CompanyRepository interface {
	// CreateWithAdmin registers a company together with its first admin.
	CreateWithAdmin(ctx context.Context, company *models.Company, admin *models.User) error
}

type companyRepository struct {
	db *sql.DB
}

func NewCompanyRepository(db *sql.DB) CompanyRepository {
	return &companyRepository{db: db}
}

func (r *companyRepository) CreateWithAdmin(ctx context.Context, company *models.Company, admin *models.User) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := tx.QueryRowContext(ctx,
		`INSERT INTO companies (name) VALUES ($1) RETURNING id, created_at`, company.Name,
	).Scan(&company.ID, &company.CreatedAt); err != nil {
		return err
	}

	admin.CompanyID = company.ID
	if err := insertUser(ctx, tx, admin); err != nil {
		return err
	}
	return tx.Commit()
}
