package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/iameddypro/furaha-surfing/internal/model"
)

var (
	ErrPaymentNotFound = errors.New("payment attempt not found")
	// ErrStateConflict means the attempt was not in the expected state.
	// Terminal states are final, so a conflict is never retried blindly.
	ErrStateConflict = errors.New("payment attempt state conflict")
)

func (r *Repository) CreatePaymentAttempt(ctx context.Context, attempt *model.PaymentAttempt) error {
	query := `
		INSERT INTO payment_attempts (provider, package_id, router_id, amount, currency, contact, device_mac, state)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	return r.db.QueryRowContext(ctx, query,
		attempt.Provider,
		attempt.PackageID,
		attempt.RouterID,
		attempt.Amount,
		attempt.Currency,
		attempt.Contact,
		attempt.DeviceMAC,
		attempt.State,
	).Scan(&attempt.ID, &attempt.CreatedAt)
}

func (r *Repository) GetPaymentAttempt(ctx context.Context, id uuid.UUID) (*model.PaymentAttempt, error) {
	var attempt model.PaymentAttempt
	err := r.db.GetContext(ctx, &attempt, "SELECT * FROM payment_attempts WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return &attempt, nil
}

func (r *Repository) GetPaymentAttemptByProviderRef(ctx context.Context, providerRef string) (*model.PaymentAttempt, error) {
	var attempt model.PaymentAttempt
	err := r.db.GetContext(ctx, &attempt, "SELECT * FROM payment_attempts WHERE provider_ref = $1", providerRef)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return &attempt, nil
}

// TransitionPaymentState moves an attempt from one state to the next with a
// compare-and-set guard. A process that lost the race gets ErrStateConflict
// instead of silently overwriting a terminal state.
func (r *Repository) TransitionPaymentState(ctx context.Context, id uuid.UUID, from, to model.PaymentState) error {
	var confirmedAt *time.Time
	if to == model.PaymentStateConfirmed {
		now := time.Now()
		confirmedAt = &now
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE payment_attempts
		SET state = $3, confirmed_at = COALESCE($4, confirmed_at)
		WHERE id = $1 AND state = $2`,
		id, from, to, confirmedAt)
	if err != nil {
		return err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrStateConflict
	}
	return nil
}

// FailPaymentAttempt is a guarded transition into failed/expired that also
// records why.
func (r *Repository) FailPaymentAttempt(ctx context.Context, id uuid.UUID, from, to model.PaymentState, code model.FailureCode) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE payment_attempts
		SET state = $3, failure_code = $4
		WHERE id = $1 AND state = $2`,
		id, from, to, code)
	if err != nil {
		return err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrStateConflict
	}
	return nil
}

func (r *Repository) SetPaymentProviderRef(ctx context.Context, id uuid.UUID, providerRef string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE payment_attempts SET provider_ref = $2 WHERE id = $1",
		id, providerRef)
	return err
}

// IncrementPollAttempts spends one unit of the confirmation retry budget.
func (r *Repository) IncrementPollAttempts(ctx context.Context, id uuid.UUID) (int, error) {
	var attempts int
	err := r.db.QueryRowContext(ctx, `
		UPDATE payment_attempts
		SET poll_attempts = poll_attempts + 1
		WHERE id = $1
		RETURNING poll_attempts`, id).Scan(&attempts)
	return attempts, err
}

// GetPendingPaymentAttempts returns every attempt still waiting on provider
// confirmation, oldest first.
func (r *Repository) GetPendingPaymentAttempts(ctx context.Context) ([]model.PaymentAttempt, error) {
	var attempts []model.PaymentAttempt
	query := `
		SELECT * FROM payment_attempts
		WHERE state = 'provider_pending'
		ORDER BY created_at ASC`
	err := r.db.SelectContext(ctx, &attempts, query)
	return attempts, err
}

func (r *Repository) ListPaymentAttempts(ctx context.Context, limit, offset int) ([]model.PaymentAttempt, error) {
	var attempts []model.PaymentAttempt
	query := `
		SELECT * FROM payment_attempts
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`
	err := r.db.SelectContext(ctx, &attempts, query, limit, offset)
	return attempts, err
}
