package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/iameddypro/furaha-surfing/internal/model"
)

var ErrRouterNotFound = errors.New("router not found")

func (r *Repository) GetRouter(ctx context.Context, id uuid.UUID) (*model.RouterDevice, error) {
	var router model.RouterDevice
	err := r.db.GetContext(ctx, &router, "SELECT * FROM routers WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRouterNotFound
		}
		return nil, err
	}
	return &router, nil
}

func (r *Repository) GetActiveRouters(ctx context.Context) ([]model.RouterDevice, error) {
	var routers []model.RouterDevice
	err := r.db.SelectContext(ctx, &routers, `
		SELECT * FROM routers
		WHERE is_active = true
		ORDER BY name`)
	return routers, err
}

func (r *Repository) GetAllRouters(ctx context.Context) ([]model.RouterDevice, error) {
	var routers []model.RouterDevice
	err := r.db.SelectContext(ctx, &routers, `
		SELECT * FROM routers
		ORDER BY name`)
	return routers, err
}

// GetDefaultRouter is used when a purchase does not name a router (single
// site deployments).
func (r *Repository) GetDefaultRouter(ctx context.Context) (*model.RouterDevice, error) {
	var router model.RouterDevice
	err := r.db.GetContext(ctx, &router, `
		SELECT * FROM routers
		WHERE is_active = true
		ORDER BY created_at
		LIMIT 1`)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRouterNotFound
		}
		return nil, err
	}
	return &router, nil
}

func (r *Repository) CreateRouter(ctx context.Context, router *model.RouterDevice) error {
	router.ID = uuid.New()
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO routers (id, name, address, location, api_port, api_username, api_password, is_active, status)
		VALUES (:id, :name, :address, :location, :api_port, :api_username, :api_password, :is_active, :status)
	`, router)
	return err
}

func (r *Repository) UpdateRouter(ctx context.Context, router *model.RouterDevice) error {
	result, err := r.db.NamedExecContext(ctx, `
		UPDATE routers SET
			name = :name,
			address = :address,
			location = :location,
			api_port = :api_port,
			api_username = :api_username,
			api_password = :api_password,
			is_active = :is_active,
			updated_at = NOW()
		WHERE id = :id
	`, router)
	if err != nil {
		return err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrRouterNotFound
	}
	return nil
}

func (r *Repository) DeleteRouter(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM routers WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrRouterNotFound
	}
	return nil
}

// UpdateRouterHealth records the outcome of one heartbeat probe. Liveness
// is only ever derived from these probes.
func (r *Repository) UpdateRouterHealth(ctx context.Context, id uuid.UUID, pingMs *int, status string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE routers
		SET ping_ms = $2, status = $3,
			last_seen_at = CASE WHEN $3 = 'online' THEN NOW() ELSE last_seen_at END
		WHERE id = $1
	`, id, pingMs, status)
	return err
}
