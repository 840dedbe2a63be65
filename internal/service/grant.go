package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iameddypro/furaha-surfing/internal/config"
	"github.com/iameddypro/furaha-surfing/internal/metrics"
	"github.com/iameddypro/furaha-surfing/internal/model"
	"github.com/iameddypro/furaha-surfing/internal/repository"
	"github.com/iameddypro/furaha-surfing/internal/routeros"
)

// ErrProvisioningFailed means the payment went through but the router
// push burned its whole retry budget. The grant stays valid in the
// ledger and is flagged for operators; it is never silently dropped.
var ErrProvisioningFailed = errors.New("access granted but router provisioning failed")

// GrantService issues access grants and pushes them to routers. The
// ledger write always happens before the push, so a crash in between
// leaves a record the reconciler can finish.
type GrantService struct {
	repo      *repository.Repository
	routerSvc *RouterService
	log       *zap.SugaredLogger
}

func NewGrantService(repo *repository.Repository, routerSvc *RouterService, log *zap.SugaredLogger) *GrantService {
	return &GrantService{
		repo:      repo,
		routerSvc: routerSvc,
		log:       log,
	}
}

// IssueForAttempt creates the single grant a confirmed payment attempt
// is entitled to. Duplicate confirmation deliveries (retried webhook,
// concurrent poll) converge on the same grant via the unique key.
func (s *GrantService) IssueForAttempt(ctx context.Context, attempt *model.PaymentAttempt) (*model.AccessGrant, error) {
	if attempt.State != model.PaymentStateConfirmed {
		return nil, fmt.Errorf("payment attempt %s is not confirmed", attempt.ID)
	}

	pkg, err := s.repo.GetPackage(ctx, attempt.PackageID)
	if err != nil {
		return nil, err
	}

	startsAt := time.Now()
	if attempt.ConfirmedAt != nil {
		startsAt = *attempt.ConfirmedAt
	}

	grant := &model.AccessGrant{
		PaymentAttemptID: &attempt.ID,
		RouterID:         attempt.RouterID,
		SessionToken:     newSessionToken(),
		DeviceMAC:        attempt.DeviceMAC,
		GrantedSeconds:   pkg.ValiditySeconds,
		StartsAt:         startsAt,
		ExpiresAt:        startsAt.Add(pkg.Validity()),
		Status:           model.GrantStatusActive,
	}

	if err := s.repo.CreateGrant(ctx, grant); err != nil {
		if errors.Is(err, repository.ErrGrantExists) {
			existing, getErr := s.repo.GetGrantByPaymentAttempt(ctx, attempt.ID)
			if getErr != nil {
				return nil, getErr
			}
			s.log.Infof("[Grant] Attempt %s already has grant %s, reusing", attempt.ID, existing.ID)
			return existing, nil
		}
		return nil, err
	}
	metrics.GrantsIssued.Inc()

	s.log.Infof("[Grant] Issued grant %s for attempt %s, expires %s", grant.ID, attempt.ID, grant.ExpiresAt.Format(time.RFC3339))

	if err := s.ApplyToRouter(ctx, grant); err != nil {
		// Payment was taken; the grant stays valid and the reconciler
		// keeps re-applying it every cycle.
		s.log.Errorf("[Grant] Provisioning failed for grant %s: %v", grant.ID, err)
		return grant, ErrProvisioningFailed
	}
	return grant, nil
}

// IssueForVoucher creates a grant for a freshly consumed voucher. The
// validity clock starts at redemption, not generation.
func (s *GrantService) IssueForVoucher(ctx context.Context, voucher *model.Voucher, routerID uuid.UUID) (*model.AccessGrant, error) {
	pkg, err := s.repo.GetPackage(ctx, voucher.PackageID)
	if err != nil {
		return nil, err
	}

	startsAt := time.Now()
	grant := &model.AccessGrant{
		VoucherID:      &voucher.ID,
		RouterID:       routerID,
		SessionToken:   newSessionToken(),
		DeviceMAC:      voucher.BoundMAC,
		GrantedSeconds: pkg.ValiditySeconds,
		StartsAt:       startsAt,
		ExpiresAt:      startsAt.Add(pkg.Validity()),
		Status:         model.GrantStatusActive,
	}

	if err := s.repo.CreateGrant(ctx, grant); err != nil {
		return nil, err
	}
	metrics.GrantsIssued.Inc()

	if err := s.ApplyToRouter(ctx, grant); err != nil {
		s.log.Errorf("[Grant] Provisioning failed for voucher grant %s: %v", grant.ID, err)
		return grant, ErrProvisioningFailed
	}
	return grant, nil
}

// ApplyToRouter pushes the allow rule for a grant and marks it applied
// on acknowledgment. The push is idempotent on the router side, and
// transport failures are retried with bounded backoff before the grant
// is flagged as failed provisioning.
func (s *GrantService) ApplyToRouter(ctx context.Context, grant *model.AccessGrant) error {
	ttl := time.Until(grant.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("grant %s already expired, not pushing", grant.ID)
	}

	rateLimit, err := s.rateLimitFor(ctx, grant)
	if err != nil {
		return err
	}

	var lastErr error
	for i := 0; i < config.PushRetryLimit; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(config.PushRetryBackoff * time.Duration(i)):
			}
		}

		lastErr = s.routerSvc.WithRouter(ctx, grant.RouterID, func(c *routeros.Client) error {
			return c.PushGrant(ctx, grant.SessionToken, ttl, rateLimit, grant.DeviceMAC)
		})
		if lastErr == nil {
			if err := s.repo.MarkGrantApplied(ctx, grant.ID); err != nil {
				return err
			}
			grant.AppliedToRouter = true
			grant.ProvisioningFailed = false
			return nil
		}
		if !errors.Is(lastErr, routeros.ErrUnreachable) {
			break
		}
	}

	metrics.ProvisioningFailures.Inc()
	if err := s.repo.MarkGrantProvisioningFailed(ctx, grant.ID); err != nil {
		s.log.Errorf("[Grant] Failed to flag grant %s: %v", grant.ID, err)
	}
	grant.ProvisioningFailed = true
	return lastErr
}

// RevokeGrant kicks a grant out of the active index and off the router.
// The router side is best effort; the reconciler closes any remainder.
func (s *GrantService) RevokeGrant(ctx context.Context, grantID uuid.UUID) error {
	grant, err := s.repo.GetGrant(ctx, grantID)
	if err != nil {
		return err
	}

	if err := s.repo.RevokeGrant(ctx, grantID); err != nil {
		return err
	}

	if err := s.routerSvc.WithRouter(ctx, grant.RouterID, func(c *routeros.Client) error {
		return c.Revoke(ctx, grant.SessionToken)
	}); err != nil {
		s.log.Warnf("[Grant] Router revoke for grant %s failed, reconciler will retry: %v", grantID, err)
	}
	return nil
}

func (s *GrantService) GetGrant(ctx context.Context, id uuid.UUID) (*model.AccessGrant, error) {
	return s.repo.GetGrant(ctx, id)
}

func (s *GrantService) GetGrantByPaymentAttempt(ctx context.Context, attemptID uuid.UUID) (*model.AccessGrant, error) {
	return s.repo.GetGrantByPaymentAttempt(ctx, attemptID)
}

// ListProvisioningFailed powers the support view of paid-but-unapplied
// grants.
func (s *GrantService) ListProvisioningFailed(ctx context.Context) ([]model.AccessGrant, error) {
	return s.repo.ListProvisioningFailedGrants(ctx)
}

func (s *GrantService) rateLimitFor(ctx context.Context, grant *model.AccessGrant) (string, error) {
	var packageID uuid.UUID
	switch {
	case grant.PaymentAttemptID != nil:
		attempt, err := s.repo.GetPaymentAttempt(ctx, *grant.PaymentAttemptID)
		if err != nil {
			return "", err
		}
		packageID = attempt.PackageID
	case grant.VoucherID != nil:
		voucher, err := s.repo.GetVoucher(ctx, *grant.VoucherID)
		if err != nil {
			return "", err
		}
		packageID = voucher.PackageID
	default:
		return "", fmt.Errorf("grant %s has neither payment attempt nor voucher", grant.ID)
	}

	pkg, err := s.repo.GetPackage(ctx, packageID)
	if err != nil {
		return "", err
	}
	return pkg.SpeedLimit, nil
}

func newSessionToken() string {
	return "fs-" + uuid.NewString()[:13]
}
