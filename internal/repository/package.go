package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/iameddypro/furaha-surfing/internal/model"
)

var ErrPackageNotFound = errors.New("package not found")

func (r *Repository) GetPackage(ctx context.Context, id uuid.UUID) (*model.Package, error) {
	var pkg model.Package
	err := r.db.GetContext(ctx, &pkg, "SELECT * FROM packages WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPackageNotFound
		}
		return nil, err
	}
	return &pkg, nil
}

func (r *Repository) GetActivePackages(ctx context.Context) ([]model.Package, error) {
	var pkgs []model.Package
	err := r.db.SelectContext(ctx, &pkgs, `
		SELECT * FROM packages
		WHERE is_active = true
		ORDER BY sort_order, price`)
	return pkgs, err
}

func (r *Repository) GetAllPackages(ctx context.Context) ([]model.Package, error) {
	var pkgs []model.Package
	err := r.db.SelectContext(ctx, &pkgs, `
		SELECT * FROM packages
		ORDER BY sort_order, price`)
	return pkgs, err
}

func (r *Repository) CreatePackage(ctx context.Context, pkg *model.Package) error {
	query := `
		INSERT INTO packages (name, description, speed_limit, validity_seconds, price, currency, is_active, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	return r.db.QueryRowContext(ctx, query,
		pkg.Name,
		pkg.Description,
		pkg.SpeedLimit,
		pkg.ValiditySeconds,
		pkg.Price,
		pkg.Currency,
		pkg.IsActive,
		pkg.SortOrder,
	).Scan(&pkg.ID, &pkg.CreatedAt)
}

func (r *Repository) UpdatePackage(ctx context.Context, pkg *model.Package) error {
	result, err := r.db.NamedExecContext(ctx, `
		UPDATE packages SET
			name = :name,
			description = :description,
			speed_limit = :speed_limit,
			validity_seconds = :validity_seconds,
			price = :price,
			currency = :currency,
			is_active = :is_active,
			sort_order = :sort_order
		WHERE id = :id
	`, pkg)
	if err != nil {
		return err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrPackageNotFound
	}
	return nil
}

func (r *Repository) DeletePackage(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM packages WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrPackageNotFound
	}
	return nil
}
