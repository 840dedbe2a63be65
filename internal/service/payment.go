package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iameddypro/furaha-surfing/internal/metrics"
	"github.com/iameddypro/furaha-surfing/internal/model"
	"github.com/iameddypro/furaha-surfing/internal/provider"
	"github.com/iameddypro/furaha-surfing/internal/repository"
)

var (
	ErrUnknownProvider  = errors.New("unknown payment provider")
	ErrPackageInactive  = errors.New("package is not available for purchase")
	ErrAttemptNotForRef = errors.New("no payment attempt for provider reference")
)

// PaymentService drives each purchase through the state machine
//
//	created -> provider_pending -> confirmed | failed | expired
//
// Terminal states are final; every transition is a compare-and-set in
// storage so concurrent confirmation paths cannot double-drive it.
type PaymentService struct {
	repo      *repository.Repository
	adapter   provider.Adapter
	grantSvc  *GrantService
	routerSvc *RouterService
	log       *zap.SugaredLogger
}

func NewPaymentService(
	repo *repository.Repository,
	adapter provider.Adapter,
	grantSvc *GrantService,
	routerSvc *RouterService,
	log *zap.SugaredLogger,
) *PaymentService {
	return &PaymentService{
		repo:      repo,
		adapter:   adapter,
		grantSvc:  grantSvc,
		routerSvc: routerSvc,
		log:       log,
	}
}

// PurchaseResult is returned to the portal after a purchase is accepted.
type PurchaseResult struct {
	Attempt    *model.PaymentAttempt `json:"attempt"`
	NextAction string                `json:"next_action,omitempty"`
}

// CreatePurchase starts one purchase. Contact validation happens before
// anything is persisted: an invalid contact never creates an attempt and
// never reaches the provider. A purchase does not block on router
// availability; provisioning is queued and reconciled.
func (s *PaymentService) CreatePurchase(ctx context.Context, req model.PurchaseRequest) (*PurchaseResult, error) {
	if !req.Provider.Known() {
		return nil, ErrUnknownProvider
	}
	if err := provider.ValidateContact(req.Provider, req.Contact); err != nil {
		return nil, err
	}

	pkg, err := s.repo.GetPackage(ctx, req.PackageID)
	if err != nil {
		return nil, err
	}
	if !pkg.IsActive {
		return nil, ErrPackageInactive
	}

	routerID, err := s.resolveRouter(ctx, req.RouterID)
	if err != nil {
		return nil, err
	}

	attempt := &model.PaymentAttempt{
		Provider:  req.Provider,
		PackageID: pkg.ID,
		RouterID:  routerID,
		Amount:    pkg.Price,
		Currency:  pkg.Currency,
		Contact:   req.Contact,
		DeviceMAC: req.DeviceMAC,
		State:     model.PaymentStateCreated,
	}
	if err := s.repo.CreatePaymentAttempt(ctx, attempt); err != nil {
		return nil, err
	}
	metrics.PurchasesStarted.WithLabelValues(string(req.Provider)).Inc()

	init, err := s.adapter.Initiate(ctx, req.Provider, attempt.Amount, attempt.Currency, attempt.Contact)
	if err != nil {
		code := model.FailureProviderRejected
		switch {
		case errors.Is(err, provider.ErrInvalidContact):
			code = model.FailureInvalidContact
		case errors.Is(err, provider.ErrUnreachable):
			code = model.FailureProviderUnreachable
		}
		s.failAttempt(ctx, attempt, model.PaymentStateCreated, model.PaymentStateFailed, code)
		return &PurchaseResult{Attempt: attempt}, err
	}

	if err := s.repo.SetPaymentProviderRef(ctx, attempt.ID, init.ProviderRef); err != nil {
		return nil, err
	}
	attempt.ProviderRef = &init.ProviderRef

	if err := s.repo.TransitionPaymentState(ctx, attempt.ID, model.PaymentStateCreated, model.PaymentStateProviderPending); err != nil {
		return nil, err
	}
	attempt.State = model.PaymentStateProviderPending

	s.log.Infof("[Payment] Attempt %s pending with %s (ref %s)", attempt.ID, attempt.Provider, init.ProviderRef)
	return &PurchaseResult{Attempt: attempt, NextAction: init.NextAction}, nil
}

// Confirm moves a pending attempt to confirmed and triggers grant
// issuance. Safe to call more than once for the same attempt: the state
// CAS plus the one-grant-per-attempt key make the side effect happen
// exactly once.
func (s *PaymentService) Confirm(ctx context.Context, attemptID uuid.UUID) (*model.AccessGrant, error) {
	err := s.repo.TransitionPaymentState(ctx, attemptID, model.PaymentStateProviderPending, model.PaymentStateConfirmed)
	if err != nil && !errors.Is(err, repository.ErrStateConflict) {
		return nil, err
	}

	attempt, getErr := s.repo.GetPaymentAttempt(ctx, attemptID)
	if getErr != nil {
		return nil, getErr
	}

	if errors.Is(err, repository.ErrStateConflict) {
		// Someone else won the transition. A duplicate confirmation of an
		// already confirmed attempt is idempotent; anything else is a
		// stray signal for a terminal attempt and is dropped.
		if attempt.State != model.PaymentStateConfirmed {
			s.log.Warnf("[Payment] Ignoring confirmation for attempt %s in state %s", attemptID, attempt.State)
			return nil, repository.ErrStateConflict
		}
	} else {
		metrics.PaymentsTerminal.WithLabelValues(string(model.PaymentStateConfirmed)).Inc()
		s.log.Infof("[Payment] Attempt %s confirmed", attemptID)
	}

	grant, err := s.grantSvc.IssueForAttempt(ctx, attempt)
	if err != nil && !errors.Is(err, ErrProvisioningFailed) {
		return nil, err
	}
	return grant, nil
}

// ConfirmByProviderRef is the webhook entry point.
func (s *PaymentService) ConfirmByProviderRef(ctx context.Context, providerRef string) (*model.AccessGrant, error) {
	attempt, err := s.repo.GetPaymentAttemptByProviderRef(ctx, providerRef)
	if err != nil {
		if errors.Is(err, repository.ErrPaymentNotFound) {
			return nil, ErrAttemptNotForRef
		}
		return nil, err
	}
	return s.Confirm(ctx, attempt.ID)
}

// FailByProviderRef handles a provider webhook reporting a failed charge.
func (s *PaymentService) FailByProviderRef(ctx context.Context, providerRef string) error {
	attempt, err := s.repo.GetPaymentAttemptByProviderRef(ctx, providerRef)
	if err != nil {
		if errors.Is(err, repository.ErrPaymentNotFound) {
			return ErrAttemptNotForRef
		}
		return err
	}
	if attempt.State.Terminal() {
		return nil
	}
	s.failAttempt(ctx, attempt, model.PaymentStateProviderPending, model.PaymentStateFailed, model.FailureProviderRejected)
	return nil
}

// Fail drives a pending attempt into failed/expired with a CAS guard.
func (s *PaymentService) Fail(ctx context.Context, attemptID uuid.UUID, to model.PaymentState, code model.FailureCode) error {
	if !to.Terminal() || to == model.PaymentStateConfirmed {
		return fmt.Errorf("invalid failure state %s", to)
	}
	err := s.repo.FailPaymentAttempt(ctx, attemptID, model.PaymentStateProviderPending, to, code)
	if err != nil {
		if errors.Is(err, repository.ErrStateConflict) {
			// Already terminal, nothing to do
			return nil
		}
		return err
	}
	metrics.PaymentsTerminal.WithLabelValues(string(to)).Inc()
	s.log.Infof("[Payment] Attempt %s -> %s (%s)", attemptID, to, code)
	return nil
}

// GetStatus returns the attempt plus grant details once confirmed.
type AttemptStatus struct {
	Attempt *model.PaymentAttempt `json:"attempt"`
	Message string                `json:"message"`
	Grant   *model.AccessGrant    `json:"grant,omitempty"`
}

func (s *PaymentService) GetStatus(ctx context.Context, attemptID uuid.UUID) (*AttemptStatus, error) {
	attempt, err := s.repo.GetPaymentAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}

	status := &AttemptStatus{
		Attempt: attempt,
		Message: attempt.UserMessage(),
	}
	if attempt.State == model.PaymentStateConfirmed {
		grant, err := s.repo.GetGrantByPaymentAttempt(ctx, attemptID)
		if err == nil {
			status.Grant = grant
		} else if !errors.Is(err, repository.ErrGrantNotFound) {
			return nil, err
		}
	}
	return status, nil
}

func (s *PaymentService) ListAttempts(ctx context.Context, limit, offset int) ([]model.PaymentAttempt, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.repo.ListPaymentAttempts(ctx, limit, offset)
}

func (s *PaymentService) failAttempt(ctx context.Context, attempt *model.PaymentAttempt, from, to model.PaymentState, code model.FailureCode) {
	if err := s.repo.FailPaymentAttempt(ctx, attempt.ID, from, to, code); err != nil {
		if !errors.Is(err, repository.ErrStateConflict) {
			s.log.Errorf("[Payment] Failed to fail attempt %s: %v", attempt.ID, err)
		}
		return
	}
	attempt.State = to
	fc := code
	attempt.FailureCode = &fc
	metrics.PaymentsTerminal.WithLabelValues(string(to)).Inc()
	s.log.Infof("[Payment] Attempt %s -> %s (%s)", attempt.ID, to, code)
}

func (s *PaymentService) resolveRouter(ctx context.Context, routerID *uuid.UUID) (uuid.UUID, error) {
	if routerID != nil {
		router, err := s.repo.GetRouter(ctx, *routerID)
		if err != nil {
			return uuid.Nil, err
		}
		return router.ID, nil
	}
	router, err := s.repo.GetDefaultRouter(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	return router.ID, nil
}
