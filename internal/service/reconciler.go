package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/iameddypro/furaha-surfing/internal/config"
	"github.com/iameddypro/furaha-surfing/internal/metrics"
	"github.com/iameddypro/furaha-surfing/internal/model"
	"github.com/iameddypro/furaha-surfing/internal/repository"
	"github.com/iameddypro/furaha-surfing/internal/routeros"
)

// Reconciler converges each router toward the ledger. The ledger is the
// single source of truth: sessions on a router with no active grant are
// kicked, and active grants missing from the router are pushed again.
// An unreachable router is skipped and retried next cycle.
type Reconciler struct {
	repo      *repository.Repository
	grantSvc  *GrantService
	routerSvc *RouterService
	log       *zap.SugaredLogger
}

func NewReconciler(repo *repository.Repository, grantSvc *GrantService, routerSvc *RouterService, log *zap.SugaredLogger) *Reconciler {
	return &Reconciler{
		repo:      repo,
		grantSvc:  grantSvc,
		routerSvc: routerSvc,
		log:       log,
	}
}

func (w *Reconciler) Start(ctx context.Context) {
	w.log.Info("[Reconciler] Started")
	ticker := time.NewTicker(config.ReconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("[Reconciler] Stopped")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *Reconciler) runOnce(ctx context.Context) {
	w.expireGrants(ctx)

	routers, err := w.repo.GetActiveRouters(ctx)
	if err != nil {
		w.log.Errorf("[Reconciler] Failed to load routers: %v", err)
		return
	}
	for i := range routers {
		if ctx.Err() != nil {
			return
		}
		if err := w.reconcileRouter(ctx, &routers[i]); err != nil {
			w.log.Warnf("[Reconciler] Router %s skipped: %v", routers[i].Name, err)
		}
	}
}

// expireGrants moves grants past their expiry out of the active set.
// The router side is cleaned up by the per-router diff below.
func (w *Reconciler) expireGrants(ctx context.Context) {
	expired, err := w.repo.GetExpiredActiveGrants(ctx)
	if err != nil {
		w.log.Errorf("[Reconciler] Failed to load expired grants: %v", err)
		return
	}
	for i := range expired {
		if err := w.repo.ExpireGrant(ctx, expired[i].ID); err != nil {
			w.log.Errorf("[Reconciler] Failed to expire grant %s: %v", expired[i].ID, err)
			continue
		}
		metrics.ReconcilerActions.WithLabelValues("expire").Inc()
	}
	if len(expired) > 0 {
		w.log.Infof("[Reconciler] Expired %d grants", len(expired))
	}
}

func (w *Reconciler) reconcileRouter(ctx context.Context, router *model.RouterDevice) error {
	grants, err := w.repo.GetActiveGrantsByRouter(ctx, router.ID)
	if err != nil {
		return err
	}

	return w.routerSvc.WithRouter(ctx, router.ID, func(client *routeros.Client) error {
		sessions, err := client.ListActiveSessions(ctx)
		if err != nil {
			return err
		}

		active := make(map[string]*model.AccessGrant, len(grants))
		for i := range grants {
			active[grants[i].SessionToken] = &grants[i]
		}
		onRouter := make(map[string]struct{}, len(sessions))
		for _, sess := range sessions {
			onRouter[sess.SessionToken] = struct{}{}
		}

		// Kick sessions the ledger no longer backs.
		for _, sess := range sessions {
			if _, ok := active[sess.SessionToken]; ok {
				continue
			}
			if err := client.Revoke(ctx, sess.SessionToken); err != nil {
				w.log.Errorf("[Reconciler] Failed to revoke stale session %s on %s: %v", sess.SessionToken, router.Name, err)
				continue
			}
			metrics.ReconcilerActions.WithLabelValues("revoke").Inc()
			w.log.Infof("[Reconciler] Revoked stale session %s on %s", sess.SessionToken, router.Name)
		}

		// Push every grant the router has no session for, applied or not.
		// A router that lost its config (reboot, factory reset) reports
		// nothing, so the applied flag alone cannot be trusted. Pushing
		// is idempotent, a grant whose device is merely offline costs one
		// harmless update.
		for token, grant := range active {
			if _, ok := onRouter[token]; ok {
				if !grant.AppliedToRouter {
					if err := w.repo.MarkGrantApplied(ctx, grant.ID); err != nil {
						w.log.Errorf("[Reconciler] Failed to mark grant %s applied: %v", grant.ID, err)
					}
				}
				continue
			}
			if err := w.pushGrant(ctx, client, grant); err != nil {
				w.log.Errorf("[Reconciler] Failed to push grant %s to %s: %v", grant.ID, router.Name, err)
				continue
			}
			metrics.ReconcilerActions.WithLabelValues("push").Inc()
			w.log.Infof("[Reconciler] Pushed grant %s to %s", grant.ID, router.Name)
		}
		return nil
	})
}

func (w *Reconciler) pushGrant(ctx context.Context, client *routeros.Client, grant *model.AccessGrant) error {
	ttl := time.Until(grant.ExpiresAt)
	if ttl <= 0 {
		return w.repo.ExpireGrant(ctx, grant.ID)
	}
	rateLimit, err := w.grantSvc.rateLimitFor(ctx, grant)
	if err != nil {
		return err
	}
	if err := client.PushGrant(ctx, grant.SessionToken, ttl, rateLimit, grant.DeviceMAC); err != nil {
		return err
	}
	return w.repo.MarkGrantApplied(ctx, grant.ID)
}
