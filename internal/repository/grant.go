package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/iameddypro/furaha-surfing/internal/model"
)

var (
	ErrGrantNotFound = errors.New("access grant not found")
	// ErrGrantExists means a grant was already issued for the payment
	// attempt. The unique key makes issuance exactly-once even across a
	// crash mid-transition.
	ErrGrantExists = errors.New("access grant already issued for this payment attempt")
)

// CreateGrant persists a grant. For payment-backed grants the insert is
// keyed on payment_attempt_id, so a duplicate confirmation delivery
// surfaces as ErrGrantExists instead of a second grant.
func (r *Repository) CreateGrant(ctx context.Context, grant *model.AccessGrant) error {
	query := `
		INSERT INTO access_grants (payment_attempt_id, voucher_id, router_id, session_token, device_mac,
			granted_seconds, starts_at, expires_at, applied_to_router, provisioning_failed, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (payment_attempt_id) DO NOTHING
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		grant.PaymentAttemptID,
		grant.VoucherID,
		grant.RouterID,
		grant.SessionToken,
		grant.DeviceMAC,
		grant.GrantedSeconds,
		grant.StartsAt,
		grant.ExpiresAt,
		grant.AppliedToRouter,
		grant.ProvisioningFailed,
		grant.Status,
	).Scan(&grant.ID, &grant.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrGrantExists
		}
		return err
	}
	return nil
}

func (r *Repository) GetGrant(ctx context.Context, id uuid.UUID) (*model.AccessGrant, error) {
	var grant model.AccessGrant
	err := r.db.GetContext(ctx, &grant, "SELECT * FROM access_grants WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGrantNotFound
		}
		return nil, err
	}
	return &grant, nil
}

func (r *Repository) GetGrantByPaymentAttempt(ctx context.Context, attemptID uuid.UUID) (*model.AccessGrant, error) {
	var grant model.AccessGrant
	err := r.db.GetContext(ctx, &grant,
		"SELECT * FROM access_grants WHERE payment_attempt_id = $1", attemptID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGrantNotFound
		}
		return nil, err
	}
	return &grant, nil
}

func (r *Repository) GetGrantByVoucher(ctx context.Context, voucherID uuid.UUID) (*model.AccessGrant, error) {
	var grant model.AccessGrant
	err := r.db.GetContext(ctx, &grant,
		"SELECT * FROM access_grants WHERE voucher_id = $1", voucherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGrantNotFound
		}
		return nil, err
	}
	return &grant, nil
}

// GetActiveGrantsByRouter reads the active index for one router. Safe to
// call while the orchestrator writes new grants.
func (r *Repository) GetActiveGrantsByRouter(ctx context.Context, routerID uuid.UUID) ([]model.AccessGrant, error) {
	var grants []model.AccessGrant
	query := `
		SELECT * FROM access_grants
		WHERE router_id = $1 AND status = 'active'
		ORDER BY created_at ASC`
	err := r.db.SelectContext(ctx, &grants, query, routerID)
	return grants, err
}

// GetExpiredActiveGrants returns grants whose window has elapsed but are
// still in the active index.
func (r *Repository) GetExpiredActiveGrants(ctx context.Context) ([]model.AccessGrant, error) {
	var grants []model.AccessGrant
	query := `
		SELECT * FROM access_grants
		WHERE status = 'active' AND expires_at <= NOW()
		ORDER BY expires_at ASC`
	err := r.db.SelectContext(ctx, &grants, query)
	return grants, err
}

func (r *Repository) ListProvisioningFailedGrants(ctx context.Context) ([]model.AccessGrant, error) {
	var grants []model.AccessGrant
	query := `
		SELECT * FROM access_grants
		WHERE provisioning_failed = true AND status = 'active'
		ORDER BY created_at ASC`
	err := r.db.SelectContext(ctx, &grants, query)
	return grants, err
}

func (r *Repository) MarkGrantApplied(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE access_grants
		SET applied_to_router = true, provisioning_failed = false
		WHERE id = $1`, id)
	return err
}

func (r *Repository) MarkGrantProvisioningFailed(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE access_grants
		SET provisioning_failed = true
		WHERE id = $1 AND status = 'active'`, id)
	return err
}

// ExpireGrant is idempotent: only an active grant moves out of the active
// index, history is never deleted.
func (r *Repository) ExpireGrant(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE access_grants
		SET status = 'expired'
		WHERE id = $1 AND status = 'active'`, id)
	return err
}

// RevokeGrant removes a grant from the active index before its natural
// expiry (operator kick).
func (r *Repository) RevokeGrant(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE access_grants
		SET status = 'revoked'
		WHERE id = $1 AND status = 'active'`, id)
	return err
}
