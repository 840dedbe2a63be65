package model

import (
	"time"

	"github.com/google/uuid"
)

type VoucherStatus string

const (
	VoucherStatusUnused VoucherStatus = "unused"
	VoucherStatusUsed   VoucherStatus = "used"
)

// Voucher is a pre-issued grant with no bound payment attempt. It is
// consumed on first redemption, at which point a normal access grant is
// created for the redeeming device.
type Voucher struct {
	ID          uuid.UUID     `json:"id" db:"id"`
	Code        string        `json:"code" db:"code"`
	PackageID   uuid.UUID     `json:"package_id" db:"package_id"`
	Status      VoucherStatus `json:"status" db:"status"`
	BoundMAC    *string       `json:"bound_mac,omitempty" db:"bound_mac"`
	GeneratedAt time.Time     `json:"generated_at" db:"generated_at"`
	UsedAt      *time.Time    `json:"used_at,omitempty" db:"used_at"`
}

func (v *Voucher) Redeemable() bool {
	return v.Status == VoucherStatusUnused
}

type RedeemVoucherRequest struct {
	Code      string     `json:"code"`
	DeviceMAC string     `json:"device_mac"`
	RouterID  *uuid.UUID `json:"router_id,omitempty"`
}
