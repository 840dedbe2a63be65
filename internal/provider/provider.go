package provider

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/iameddypro/furaha-surfing/internal/model"
)

var (
	// ErrUnreachable is transient: the gateway could not be reached, the
	// charge may be retried with backoff.
	ErrUnreachable = errors.New("payment provider unreachable")
	// ErrRejected is terminal: the provider declined the charge.
	ErrRejected = errors.New("payment rejected by provider")
	// ErrInvalidContact is terminal but user-correctable. No charge is
	// attempted against an invalid contact.
	ErrInvalidContact  = errors.New("invalid contact for provider")
	ErrUnknownProvider = errors.New("unknown payment provider")
)

// Status is the normalized confirmation state across all six providers.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
)

// InitiateResult is the normalized response to a charge request.
type InitiateResult struct {
	// ProviderRef keys all further status checks and webhook callbacks.
	ProviderRef string `json:"provider_ref"`
	// NextAction tells the user what the provider expects of them.
	NextAction string `json:"next_action"`
}

// Adapter normalizes the six payment providers into a single
// initiate/check contract. The orchestrator depends on nothing else.
type Adapter interface {
	Initiate(ctx context.Context, p model.PaymentProvider, amount int64, currency, contact string) (*InitiateResult, error)
	CheckStatus(ctx context.Context, p model.PaymentProvider, providerRef string) (Status, error)
}

var phonePattern = regexp.MustCompile(`^255[67]\d{8}$`)

// ValidateContact checks the contact against the provider's declared
// contact kind before any network call is made.
func ValidateContact(p model.PaymentProvider, contact string) error {
	contact = strings.TrimSpace(contact)
	if contact == "" {
		return ErrInvalidContact
	}

	switch p.ContactKind() {
	case model.ContactPhone:
		if !phonePattern.MatchString(NormalizePhone(contact)) {
			return ErrInvalidContact
		}
	case model.ContactEmail:
		at := strings.Index(contact, "@")
		if at < 1 || at == len(contact)-1 || !strings.Contains(contact[at:], ".") {
			return ErrInvalidContact
		}
	default:
		return ErrUnknownProvider
	}
	return nil
}

// NormalizePhone converts local Tanzanian formats (07.., +255..) to the
// canonical 255XXXXXXXXX form providers expect.
func NormalizePhone(phone string) string {
	phone = strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return -1
		}
		return r
	}, strings.TrimSpace(phone))

	switch {
	case strings.HasPrefix(phone, "+255"):
		return phone[1:]
	case strings.HasPrefix(phone, "0") && len(phone) == 10:
		return "255" + phone[1:]
	}
	return phone
}
