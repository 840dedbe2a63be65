package service

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/iameddypro/furaha-surfing/internal/config"
	"github.com/iameddypro/furaha-surfing/internal/model"
	"github.com/iameddypro/furaha-surfing/internal/repository"
)

// HealthWorker probes every active router and records reachability and
// round-trip time. Health is advisory only: purchases never block on a
// router being offline.
type HealthWorker struct {
	repo      *repository.Repository
	routerSvc *RouterService
	log       *zap.SugaredLogger
}

func NewHealthWorker(repo *repository.Repository, routerSvc *RouterService, log *zap.SugaredLogger) *HealthWorker {
	return &HealthWorker{repo: repo, routerSvc: routerSvc, log: log}
}

func (w *HealthWorker) Start(ctx context.Context) {
	w.log.Info("[HealthWorker] Started")
	ticker := time.NewTicker(config.HealthCheckInterval)
	defer ticker.Stop()

	w.checkAll(ctx)

	for {
		select {
		case <-ctx.Done():
			w.log.Info("[HealthWorker] Stopped")
			return
		case <-ticker.C:
			w.checkAll(ctx)
		}
	}
}

func (w *HealthWorker) checkAll(ctx context.Context) {
	routers, err := w.repo.GetActiveRouters(ctx)
	if err != nil {
		w.log.Errorf("[HealthWorker] Failed to load routers: %v", err)
		return
	}

	var wg sync.WaitGroup
	for i := range routers {
		wg.Add(1)
		go func(router *model.RouterDevice) {
			defer wg.Done()
			w.check(ctx, router)
		}(&routers[i])
	}
	wg.Wait()
}

func (w *HealthWorker) check(ctx context.Context, router *model.RouterDevice) {
	addr := fmt.Sprintf("%s:%d", router.Address, router.APIPort)

	start := time.Now()
	var d net.Dialer
	dialCtx, cancel := context.WithTimeout(ctx, config.PingTimeout)
	defer cancel()

	conn, err := d.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		if router.Status != "offline" {
			w.log.Warnf("[HealthWorker] Router %s (%s) is offline: %v", router.Name, addr, err)
		}
		if uerr := w.routerSvc.UpdateRouterHealth(ctx, router.ID, nil, "offline"); uerr != nil {
			w.log.Errorf("[HealthWorker] Failed to update health for %s: %v", router.Name, uerr)
		}
		return
	}
	conn.Close()

	pingMs := int(time.Since(start).Milliseconds())
	if router.Status != "online" {
		w.log.Infof("[HealthWorker] Router %s (%s) is online, ping %dms", router.Name, addr, pingMs)
	}
	if err := w.routerSvc.UpdateRouterHealth(ctx, router.ID, &pingMs, "online"); err != nil {
		w.log.Errorf("[HealthWorker] Failed to update health for %s: %v", router.Name, err)
	}
}
