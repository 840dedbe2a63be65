package model

import (
	"time"

	"github.com/google/uuid"
)

type RouterDevice struct {
	ID       uuid.UUID `json:"id" db:"id"`
	Name     string    `json:"name" db:"name"`
	Address  string    `json:"address" db:"address"`
	Location string    `json:"location" db:"location"`

	// RouterOS REST API connection (hidden from portal responses)
	APIPort     int    `json:"-" db:"api_port"`
	APIUsername string `json:"-" db:"api_username"`
	APIPassword string `json:"-" db:"api_password"`

	IsActive bool `json:"is_active" db:"is_active"`

	// Liveness is derived from heartbeat recency, never asserted
	Status     string     `json:"status" db:"status"` // online, offline, unknown
	PingMs     *int       `json:"ping_ms,omitempty" db:"ping_ms"`
	LastSeenAt *time.Time `json:"last_seen_at,omitempty" db:"last_seen_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

func (r *RouterDevice) IsOnline() bool {
	return r.IsActive && r.Status == "online"
}

// RouterAdmin is the admin view of a router, credentials included.
type RouterAdmin struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Address     string     `json:"address"`
	Location    string     `json:"location"`
	APIPort     int        `json:"api_port"`
	APIUsername string     `json:"api_username"`
	APIPassword string     `json:"api_password"`
	IsActive    bool       `json:"is_active"`
	Status      string     `json:"status"`
	PingMs      *int       `json:"ping_ms,omitempty"`
	LastSeenAt  *time.Time `json:"last_seen_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (r *RouterDevice) ToAdmin() RouterAdmin {
	return RouterAdmin{
		ID:          r.ID,
		Name:        r.Name,
		Address:     r.Address,
		Location:    r.Location,
		APIPort:     r.APIPort,
		APIUsername: r.APIUsername,
		APIPassword: r.APIPassword,
		IsActive:    r.IsActive,
		Status:      r.Status,
		PingMs:      r.PingMs,
		LastSeenAt:  r.LastSeenAt,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}
