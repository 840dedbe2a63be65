package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/iameddypro/furaha-surfing/internal/model"
)

var (
	ErrVoucherNotFound    = errors.New("voucher not found")
	ErrVoucherAlreadyUsed = errors.New("voucher already used")
	ErrVoucherCodeTaken   = errors.New("voucher code already exists")
)

func (r *Repository) CreateVoucher(ctx context.Context, voucher *model.Voucher) error {
	query := `
		INSERT INTO vouchers (code, package_id, status)
		VALUES ($1, $2, $3)
		RETURNING id, generated_at`

	err := r.db.QueryRowContext(ctx, query,
		voucher.Code,
		voucher.PackageID,
		voucher.Status,
	).Scan(&voucher.ID, &voucher.GeneratedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrVoucherCodeTaken
		}
		return err
	}
	return nil
}

func (r *Repository) GetVoucher(ctx context.Context, id uuid.UUID) (*model.Voucher, error) {
	var voucher model.Voucher
	err := r.db.GetContext(ctx, &voucher, "SELECT * FROM vouchers WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVoucherNotFound
		}
		return nil, err
	}
	return &voucher, nil
}

func (r *Repository) GetVoucherByCode(ctx context.Context, code string) (*model.Voucher, error) {
	var voucher model.Voucher
	err := r.db.GetContext(ctx, &voucher, "SELECT * FROM vouchers WHERE code = $1", code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVoucherNotFound
		}
		return nil, err
	}
	return &voucher, nil
}

// ConsumeVoucher flips unused -> used and binds the device in one guarded
// update. Concurrent redemptions of the same code get exactly one winner;
// the rest see ErrVoucherAlreadyUsed together with the used voucher, so
// the caller can tell a lost race from an interrupted redemption.
func (r *Repository) ConsumeVoucher(ctx context.Context, code, deviceMAC string) (*model.Voucher, error) {
	var voucher model.Voucher
	err := r.db.GetContext(ctx, &voucher, `
		UPDATE vouchers
		SET status = 'used', bound_mac = $2, used_at = NOW()
		WHERE code = $1 AND status = 'unused'
		RETURNING *`, code, deviceMAC)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			used, lookupErr := r.GetVoucherByCode(ctx, code)
			if lookupErr != nil {
				return nil, lookupErr
			}
			return used, ErrVoucherAlreadyUsed
		}
		return nil, err
	}
	return &voucher, nil
}

func (r *Repository) ListVouchers(ctx context.Context, limit, offset int) ([]model.Voucher, error) {
	var vouchers []model.Voucher
	query := `
		SELECT * FROM vouchers
		ORDER BY generated_at DESC
		LIMIT $1 OFFSET $2`
	err := r.db.SelectContext(ctx, &vouchers, query, limit, offset)
	return vouchers, err
}
