package model

import (
	"time"

	"github.com/google/uuid"
)

type Package struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	// SpeedLimit is a MikroTik rate-limit string, e.g. "10M/10M"
	SpeedLimit      string    `json:"speed_limit" db:"speed_limit"`
	ValiditySeconds int64     `json:"validity_seconds" db:"validity_seconds"`
	Price           int64     `json:"price" db:"price"`
	Currency        string    `json:"currency" db:"currency"`
	IsActive        bool      `json:"is_active" db:"is_active"`
	SortOrder       int       `json:"sort_order" db:"sort_order"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// Validity returns the package validity as a duration.
func (p *Package) Validity() time.Duration {
	return time.Duration(p.ValiditySeconds) * time.Second
}
