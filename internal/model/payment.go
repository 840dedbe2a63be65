package model

import (
	"time"

	"github.com/google/uuid"
)

type PaymentProvider string

const (
	PaymentProviderVodacom     PaymentProvider = "vodacom"
	PaymentProviderPawaPay     PaymentProvider = "pawapay"
	PaymentProviderPesapal     PaymentProvider = "pesapal"
	PaymentProviderPayPal      PaymentProvider = "paypal"
	PaymentProviderPaystack    PaymentProvider = "paystack"
	PaymentProviderFlutterwave PaymentProvider = "flutterwave"
)

// ConfirmationMode describes how a provider reports the outcome of a charge.
type ConfirmationMode string

const (
	ConfirmPoll    ConfirmationMode = "poll"
	ConfirmWebhook ConfirmationMode = "webhook"
)

// ContactKind describes which contact field a provider charges against.
type ContactKind string

const (
	ContactPhone ContactKind = "phone"
	ContactEmail ContactKind = "email"
)

type providerCaps struct {
	confirm ConfirmationMode
	contact ContactKind
}

// The provider set is closed. Mobile-money providers are confirmed by
// polling the gateway, card/wallet gateways call back on our webhook.
var providerTable = map[PaymentProvider]providerCaps{
	PaymentProviderVodacom:     {ConfirmPoll, ContactPhone},
	PaymentProviderPawaPay:     {ConfirmPoll, ContactPhone},
	PaymentProviderPesapal:     {ConfirmWebhook, ContactPhone},
	PaymentProviderPayPal:      {ConfirmWebhook, ContactEmail},
	PaymentProviderPaystack:    {ConfirmWebhook, ContactEmail},
	PaymentProviderFlutterwave: {ConfirmWebhook, ContactEmail},
}

func (p PaymentProvider) Known() bool {
	_, ok := providerTable[p]
	return ok
}

func (p PaymentProvider) ConfirmationMode() ConfirmationMode {
	return providerTable[p].confirm
}

func (p PaymentProvider) ContactKind() ContactKind {
	return providerTable[p].contact
}

type PaymentState string

const (
	PaymentStateCreated         PaymentState = "created"
	PaymentStateProviderPending PaymentState = "provider_pending"
	PaymentStateConfirmed       PaymentState = "confirmed"
	PaymentStateFailed          PaymentState = "failed"
	PaymentStateExpired         PaymentState = "expired"
)

// Terminal reports whether no further transition is allowed out of s.
func (s PaymentState) Terminal() bool {
	switch s {
	case PaymentStateConfirmed, PaymentStateFailed, PaymentStateExpired:
		return true
	}
	return false
}

// FailureCode classifies how a payment attempt ended up failed.
type FailureCode string

const (
	FailureProviderRejected    FailureCode = "provider_rejected"
	FailureProviderUnreachable FailureCode = "provider_unreachable"
	FailureInvalidContact      FailureCode = "invalid_contact"
	FailureConfirmationTimeout FailureCode = "confirmation_timeout"
)

type PaymentAttempt struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	Provider    PaymentProvider `json:"provider" db:"provider"`
	PackageID   uuid.UUID       `json:"package_id" db:"package_id"`
	RouterID    uuid.UUID       `json:"router_id" db:"router_id"`
	Amount      int64           `json:"amount" db:"amount"`
	Currency    string          `json:"currency" db:"currency"`
	Contact     string          `json:"contact" db:"contact"`
	DeviceMAC   *string         `json:"device_mac,omitempty" db:"device_mac"`
	State       PaymentState    `json:"state" db:"state"`
	ProviderRef *string         `json:"provider_ref,omitempty" db:"provider_ref"`
	FailureCode *FailureCode    `json:"failure_code,omitempty" db:"failure_code"`
	// PollAttempts counts status checks spent on this attempt
	PollAttempts int        `json:"poll_attempts" db:"poll_attempts"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	ConfirmedAt  *time.Time `json:"confirmed_at,omitempty" db:"confirmed_at"`
}

type PurchaseRequest struct {
	Provider  PaymentProvider `json:"provider"`
	PackageID uuid.UUID       `json:"package_id"`
	Contact   string          `json:"contact"`
	RouterID  *uuid.UUID      `json:"router_id,omitempty"`
	DeviceMAC *string         `json:"device_mac,omitempty"`
}

// UserMessage returns the user-presentable description of the attempt's state.
func (a *PaymentAttempt) UserMessage() string {
	switch a.State {
	case PaymentStateConfirmed:
		return "Payment confirmed. Internet access granted."
	case PaymentStateExpired:
		return "Payment was not confirmed in time. If you were charged, contact support."
	case PaymentStateFailed:
		if a.FailureCode != nil && *a.FailureCode == FailureInvalidContact {
			return "The contact you entered is invalid. Please correct it and try again."
		}
		return "Payment failed. You have not been charged."
	}
	return "Payment is being processed."
}
