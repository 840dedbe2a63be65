package service

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iameddypro/furaha-surfing/internal/model"
	"github.com/iameddypro/furaha-surfing/internal/repository"
	"github.com/iameddypro/furaha-surfing/internal/routeros"
)

// RouterService owns all communication with hotspot routers. Commands to
// one device are serialized through a per-router lock so the push path
// and the reconciler never interleave on the same router; different
// routers proceed independently.
type RouterService struct {
	repo *repository.Repository
	log  *zap.SugaredLogger

	mu    sync.Mutex
	conns map[uuid.UUID]*routerConn
}

type routerConn struct {
	mu     sync.Mutex
	client *routeros.Client
}

func NewRouterService(repo *repository.Repository, log *zap.SugaredLogger) *RouterService {
	return &RouterService{
		repo:  repo,
		log:   log,
		conns: make(map[uuid.UUID]*routerConn),
	}
}

func (s *RouterService) conn(router *model.RouterDevice) *routerConn {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conns[router.ID]
	if !ok {
		c = &routerConn{
			client: routeros.NewClient(router.Address, router.APIPort, router.APIUsername, router.APIPassword),
		}
		s.conns[router.ID] = c
	}
	return c
}

func (s *RouterService) invalidate(id uuid.UUID) {
	s.mu.Lock()
	delete(s.conns, id)
	s.mu.Unlock()
}

// WithRouter runs fn holding the router's command lock.
func (s *RouterService) WithRouter(ctx context.Context, routerID uuid.UUID, fn func(*routeros.Client) error) error {
	router, err := s.repo.GetRouter(ctx, routerID)
	if err != nil {
		return err
	}

	c := s.conn(router)
	c.mu.Lock()
	defer c.mu.Unlock()
	return fn(c.client)
}

func (s *RouterService) GetRouter(ctx context.Context, id uuid.UUID) (*model.RouterDevice, error) {
	return s.repo.GetRouter(ctx, id)
}

func (s *RouterService) GetDefaultRouter(ctx context.Context) (*model.RouterDevice, error) {
	return s.repo.GetDefaultRouter(ctx)
}

func (s *RouterService) GetActiveRouters(ctx context.Context) ([]model.RouterDevice, error) {
	return s.repo.GetActiveRouters(ctx)
}

func (s *RouterService) GetAllRouters(ctx context.Context) ([]model.RouterAdmin, error) {
	routers, err := s.repo.GetAllRouters(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]model.RouterAdmin, len(routers))
	for i, r := range routers {
		result[i] = r.ToAdmin()
	}
	return result, nil
}

func (s *RouterService) CreateRouter(ctx context.Context, router *model.RouterDevice) error {
	// New routers stay offline until the health worker has seen them
	router.Status = "unknown"
	return s.repo.CreateRouter(ctx, router)
}

func (s *RouterService) UpdateRouter(ctx context.Context, router *model.RouterDevice) error {
	s.invalidate(router.ID)
	return s.repo.UpdateRouter(ctx, router)
}

func (s *RouterService) DeleteRouter(ctx context.Context, id uuid.UUID) error {
	s.invalidate(id)
	return s.repo.DeleteRouter(ctx, id)
}

// TestConnection checks the router API with the stored credentials.
func (s *RouterService) TestConnection(ctx context.Context, id uuid.UUID) error {
	return s.WithRouter(ctx, id, func(c *routeros.Client) error {
		return c.Ping(ctx)
	})
}

func (s *RouterService) GetStatus(ctx context.Context, id uuid.UUID) (*model.RouterStatus, error) {
	var status *model.RouterStatus
	err := s.WithRouter(ctx, id, func(c *routeros.Client) error {
		var err error
		status, err = c.Status(ctx)
		return err
	})
	return status, err
}

func (s *RouterService) ListSessions(ctx context.Context, id uuid.UUID) ([]model.RouterSession, error) {
	var sessions []model.RouterSession
	err := s.WithRouter(ctx, id, func(c *routeros.Client) error {
		var err error
		sessions, err = c.ListActiveSessions(ctx)
		return err
	})
	return sessions, err
}

// KickSession drops a live session on the router without touching the
// grant; the reconciler re-applies still-valid grants, so a kick is only
// final together with a ledger revoke.
func (s *RouterService) KickSession(ctx context.Context, id uuid.UUID, routerEntryID string) error {
	return s.WithRouter(ctx, id, func(c *routeros.Client) error {
		return c.KickSession(ctx, routerEntryID)
	})
}

func (s *RouterService) UpdateRouterHealth(ctx context.Context, id uuid.UUID, pingMs *int, status string) error {
	return s.repo.UpdateRouterHealth(ctx, id, pingMs, status)
}
