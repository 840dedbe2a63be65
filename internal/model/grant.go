package model

import (
	"time"

	"github.com/google/uuid"
)

type GrantStatus string

const (
	GrantStatusActive  GrantStatus = "active"
	GrantStatusExpired GrantStatus = "expired"
	GrantStatusRevoked GrantStatus = "revoked"
)

// AccessGrant is a time-bounded authorization for a device to use the
// hotspot. It is created from a confirmed payment attempt or a redeemed
// voucher, never both. The ledger row is written before the router push,
// so a crash between the two leaves a reconcilable record.
type AccessGrant struct {
	ID               uuid.UUID   `json:"id" db:"id"`
	PaymentAttemptID *uuid.UUID  `json:"payment_attempt_id,omitempty" db:"payment_attempt_id"`
	VoucherID        *uuid.UUID  `json:"voucher_id,omitempty" db:"voucher_id"`
	RouterID         uuid.UUID   `json:"router_id" db:"router_id"`
	SessionToken     string      `json:"session_token" db:"session_token"`
	DeviceMAC        *string     `json:"device_mac,omitempty" db:"device_mac"`
	GrantedSeconds   int64       `json:"granted_seconds" db:"granted_seconds"`
	StartsAt         time.Time   `json:"starts_at" db:"starts_at"`
	ExpiresAt        time.Time   `json:"expires_at" db:"expires_at"`
	AppliedToRouter  bool        `json:"applied_to_router" db:"applied_to_router"`
	// ProvisioningFailed is set when the push retry budget is exhausted.
	// The grant stays valid in the ledger and is surfaced to operators.
	ProvisioningFailed bool        `json:"provisioning_failed" db:"provisioning_failed"`
	Status             GrantStatus `json:"status" db:"status"`
	CreatedAt          time.Time   `json:"created_at" db:"created_at"`
}

// GrantedDuration returns the granted validity as a duration.
func (g *AccessGrant) GrantedDuration() time.Duration {
	return time.Duration(g.GrantedSeconds) * time.Second
}

// PastExpiry reports whether the grant's window has elapsed at t.
func (g *AccessGrant) PastExpiry(t time.Time) bool {
	return !t.Before(g.ExpiresAt)
}
