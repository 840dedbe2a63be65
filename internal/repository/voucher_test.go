package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/iameddypro/furaha-surfing/internal/model"
)

func voucherRows(v *model.Voucher) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "code", "package_id", "status", "bound_mac", "generated_at", "used_at",
	}).AddRow(v.ID, v.Code, v.PackageID, v.Status, v.BoundMAC, v.GeneratedAt, v.UsedAt)
}

func TestConsumeVoucher_OK(t *testing.T) {
	repo, mock := newMockRepo(t)

	mac := "AA:BB:CC:DD:EE:FF"
	now := time.Now()
	used := &model.Voucher{
		ID:          uuid.New(),
		Code:        "FURAHA-K7M2PQ",
		PackageID:   uuid.New(),
		Status:      model.VoucherStatusUsed,
		BoundMAC:    &mac,
		GeneratedAt: now.Add(-24 * time.Hour),
		UsedAt:      &now,
	}

	mock.ExpectQuery(`UPDATE vouchers`).
		WithArgs("FURAHA-K7M2PQ", mac).
		WillReturnRows(voucherRows(used))

	voucher, err := repo.ConsumeVoucher(context.Background(), "FURAHA-K7M2PQ", mac)
	require.NoError(t, err)
	require.Equal(t, model.VoucherStatusUsed, voucher.Status)
	require.NotNil(t, voucher.BoundMAC)
	require.Equal(t, mac, *voucher.BoundMAC)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConsumeVoucher_AlreadyUsed(t *testing.T) {
	repo, mock := newMockRepo(t)

	mac := "AA:BB:CC:DD:EE:FF"
	now := time.Now()
	used := &model.Voucher{
		ID:          uuid.New(),
		Code:        "FURAHA-K7M2PQ",
		PackageID:   uuid.New(),
		Status:      model.VoucherStatusUsed,
		BoundMAC:    &mac,
		GeneratedAt: now.Add(-24 * time.Hour),
		UsedAt:      &now,
	}

	// The guarded update matches nothing, the follow-up lookup finds the
	// code, so the caller learns it lost the race rather than the code
	// being unknown.
	mock.ExpectQuery(`UPDATE vouchers`).
		WithArgs("FURAHA-K7M2PQ", "11:22:33:44:55:66").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`SELECT \* FROM vouchers WHERE code = \$1`).
		WithArgs("FURAHA-K7M2PQ").
		WillReturnRows(voucherRows(used))

	voucher, err := repo.ConsumeVoucher(context.Background(), "FURAHA-K7M2PQ", "11:22:33:44:55:66")
	require.ErrorIs(t, err, ErrVoucherAlreadyUsed)
	require.NotNil(t, voucher, "the used voucher rides along with the error")
	require.Equal(t, used.BoundMAC, voucher.BoundMAC)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConsumeVoucher_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`UPDATE vouchers`).
		WithArgs("FURAHA-XXXXXX", "AA:BB:CC:DD:EE:FF").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`SELECT \* FROM vouchers WHERE code = \$1`).
		WithArgs("FURAHA-XXXXXX").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.ConsumeVoucher(context.Background(), "FURAHA-XXXXXX", "AA:BB:CC:DD:EE:FF")
	require.ErrorIs(t, err, ErrVoucherNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
