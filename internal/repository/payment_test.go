package repository

import (
	"context"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/iameddypro/furaha-surfing/internal/model"
)

func newMockRepo(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewWithDB(sqlx.NewDb(db, "sqlmock")), mock
}

func TestCreatePaymentAttempt(t *testing.T) {
	repo, mock := newMockRepo(t)

	id := uuid.New()
	createdAt := time.Now()

	mock.ExpectQuery(`INSERT INTO payment_attempts`).
		WithArgs(model.PaymentProviderVodacom, sqlmock.AnyArg(), sqlmock.AnyArg(),
			int64(2000), "TZS", "255712345678", nil, model.PaymentStateCreated).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(id, createdAt))

	attempt := &model.PaymentAttempt{
		Provider:  model.PaymentProviderVodacom,
		PackageID: uuid.New(),
		RouterID:  uuid.New(),
		Amount:    2000,
		Currency:  "TZS",
		Contact:   "255712345678",
		State:     model.PaymentStateCreated,
	}
	require.NoError(t, repo.CreatePaymentAttempt(context.Background(), attempt))
	require.Equal(t, id, attempt.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionPaymentState_OK(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectExec(`UPDATE payment_attempts`).
		WithArgs(id, model.PaymentStateCreated, model.PaymentStateProviderPending, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.TransitionPaymentState(context.Background(), id,
		model.PaymentStateCreated, model.PaymentStateProviderPending)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionPaymentState_Conflict(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	// The guarded update matches no rows when the attempt already left
	// provider_pending, e.g. a webhook and the poll worker racing.
	mock.ExpectExec(`UPDATE payment_attempts`).
		WithArgs(id, model.PaymentStateProviderPending, model.PaymentStateConfirmed, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.TransitionPaymentState(context.Background(), id,
		model.PaymentStateProviderPending, model.PaymentStateConfirmed)
	require.ErrorIs(t, err, ErrStateConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionPaymentState_SetsConfirmedAt(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectExec(`UPDATE payment_attempts`).
		WithArgs(id, model.PaymentStateProviderPending, model.PaymentStateConfirmed,
			AnyTime{}).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.TransitionPaymentState(context.Background(), id,
		model.PaymentStateProviderPending, model.PaymentStateConfirmed)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFailPaymentAttempt_AlreadyTerminal(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectExec(`UPDATE payment_attempts`).
		WithArgs(id, model.PaymentStateProviderPending, model.PaymentStateExpired,
			model.FailureConfirmationTimeout).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.FailPaymentAttempt(context.Background(), id,
		model.PaymentStateProviderPending, model.PaymentStateExpired,
		model.FailureConfirmationTimeout)
	require.ErrorIs(t, err, ErrStateConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPaymentAttempt_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM payment_attempts WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetPaymentAttempt(context.Background(), id)
	require.ErrorIs(t, err, ErrPaymentNotFound)
}

func TestIncrementPollAttempts(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectQuery(`UPDATE payment_attempts`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"poll_attempts"}).AddRow(7))

	attempts, err := repo.IncrementPollAttempts(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, 7, attempts)
}

// AnyTime matches any non-nil time argument.
type AnyTime struct{}

func (AnyTime) Match(v driver.Value) bool {
	switch tv := v.(type) {
	case time.Time:
		return true
	case *time.Time:
		return tv != nil
	default:
		return false
	}
}
