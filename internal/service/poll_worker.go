package service

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/iameddypro/furaha-surfing/internal/config"
	"github.com/iameddypro/furaha-surfing/internal/model"
	"github.com/iameddypro/furaha-surfing/internal/provider"
	"github.com/iameddypro/furaha-surfing/internal/repository"
)

// PollWorker drives pending payment attempts to a terminal state.
// Poll-mode providers are asked for charge status every tick; webhook-mode
// providers are only watched for the confirmation timeout, so an abandoned
// attempt always expires server-side even if the webhook never arrives.
type PollWorker struct {
	repo       *repository.Repository
	adapter    provider.Adapter
	paymentSvc *PaymentService
	log        *zap.SugaredLogger
}

func NewPollWorker(repo *repository.Repository, adapter provider.Adapter, paymentSvc *PaymentService, log *zap.SugaredLogger) *PollWorker {
	return &PollWorker{
		repo:       repo,
		adapter:    adapter,
		paymentSvc: paymentSvc,
		log:        log,
	}
}

func (w *PollWorker) Start(ctx context.Context) {
	w.log.Info("[PollWorker] Started")
	ticker := time.NewTicker(config.PollWorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("[PollWorker] Stopped")
			return
		case <-ticker.C:
			// Jitter spreads provider requests so restarts of several
			// instances do not line their polls up.
			jitter := time.Duration(rand.Int63n(int64(config.PollJitter)))
			select {
			case <-ctx.Done():
				return
			case <-time.After(jitter):
			}
			w.runOnce(ctx)
		}
	}
}

func (w *PollWorker) runOnce(ctx context.Context) {
	attempts, err := w.repo.GetPendingPaymentAttempts(ctx)
	if err != nil {
		w.log.Errorf("[PollWorker] Failed to load pending attempts: %v", err)
		return
	}

	for i := range attempts {
		attempt := &attempts[i]
		if ctx.Err() != nil {
			return
		}
		w.process(ctx, attempt)
	}
}

func (w *PollWorker) process(ctx context.Context, attempt *model.PaymentAttempt) {
	if time.Since(attempt.CreatedAt) > config.ConfirmationTimeout {
		w.expire(ctx, attempt)
		return
	}

	if attempt.Provider.ConfirmationMode() != model.ConfirmPoll {
		return
	}
	if attempt.ProviderRef == nil {
		w.log.Warnf("[PollWorker] Attempt %s pending without provider ref", attempt.ID)
		return
	}

	status, err := w.adapter.CheckStatus(ctx, attempt.Provider, *attempt.ProviderRef)
	if err != nil {
		if errors.Is(err, provider.ErrUnreachable) {
			w.log.Warnf("[PollWorker] Provider %s unreachable for attempt %s", attempt.Provider, attempt.ID)
			w.spendPoll(ctx, attempt)
			return
		}
		w.log.Errorf("[PollWorker] Status check failed for attempt %s: %v", attempt.ID, err)
		return
	}

	switch status {
	case provider.StatusConfirmed:
		if _, err := w.paymentSvc.Confirm(ctx, attempt.ID); err != nil && !errors.Is(err, ErrProvisioningFailed) {
			w.log.Errorf("[PollWorker] Failed to confirm attempt %s: %v", attempt.ID, err)
		}
	case provider.StatusFailed:
		if err := w.paymentSvc.Fail(ctx, attempt.ID, model.PaymentStateFailed, model.FailureProviderRejected); err != nil {
			w.log.Errorf("[PollWorker] Failed to fail attempt %s: %v", attempt.ID, err)
		}
	default:
		w.spendPoll(ctx, attempt)
	}
}

// spendPoll consumes one unit of the poll budget and expires the attempt
// once the budget is gone.
func (w *PollWorker) spendPoll(ctx context.Context, attempt *model.PaymentAttempt) {
	polls, err := w.repo.IncrementPollAttempts(ctx, attempt.ID)
	if err != nil {
		w.log.Errorf("[PollWorker] Failed to count poll for attempt %s: %v", attempt.ID, err)
		return
	}
	if polls >= config.MaxPollAttempts {
		w.expire(ctx, attempt)
	}
}

func (w *PollWorker) expire(ctx context.Context, attempt *model.PaymentAttempt) {
	if err := w.paymentSvc.Fail(ctx, attempt.ID, model.PaymentStateExpired, model.FailureConfirmationTimeout); err != nil {
		w.log.Errorf("[PollWorker] Failed to expire attempt %s: %v", attempt.ID, err)
		return
	}
	w.log.Infof("[PollWorker] Attempt %s expired", attempt.ID)
}
