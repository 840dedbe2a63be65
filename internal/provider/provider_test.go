package provider

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iameddypro/furaha-surfing/internal/model"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"255712345678", "255712345678"},
		{"+255712345678", "255712345678"},
		{"0712345678", "255712345678"},
		{"0612 345 678", "255612345678"},
		{"0712-345-678", "255712345678"},
		{" 255712345678 ", "255712345678"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, NormalizePhone(tt.in), "input %q", tt.in)
	}
}

func TestValidateContact_Phone(t *testing.T) {
	require.NoError(t, ValidateContact(model.PaymentProviderVodacom, "255712345678"))
	require.NoError(t, ValidateContact(model.PaymentProviderVodacom, "0712345678"))
	require.NoError(t, ValidateContact(model.PaymentProviderPawaPay, "+255612345678"))

	// Landline prefix, wrong length, and empty are all rejected up front.
	require.ErrorIs(t, ValidateContact(model.PaymentProviderVodacom, "255221234567"), ErrInvalidContact)
	require.ErrorIs(t, ValidateContact(model.PaymentProviderVodacom, "25571234567"), ErrInvalidContact)
	require.ErrorIs(t, ValidateContact(model.PaymentProviderVodacom, ""), ErrInvalidContact)
	require.ErrorIs(t, ValidateContact(model.PaymentProviderVodacom, "someone@example.com"), ErrInvalidContact)
}

func TestValidateContact_Email(t *testing.T) {
	require.NoError(t, ValidateContact(model.PaymentProviderPayPal, "someone@example.com"))
	require.NoError(t, ValidateContact(model.PaymentProviderPaystack, "a@b.co"))

	require.ErrorIs(t, ValidateContact(model.PaymentProviderPayPal, "255712345678"), ErrInvalidContact)
	require.ErrorIs(t, ValidateContact(model.PaymentProviderPayPal, "@example.com"), ErrInvalidContact)
	require.ErrorIs(t, ValidateContact(model.PaymentProviderPayPal, "someone@"), ErrInvalidContact)
	require.ErrorIs(t, ValidateContact(model.PaymentProviderFlutterwave, ""), ErrInvalidContact)
}

func TestValidateContact_UnknownProvider(t *testing.T) {
	require.ErrorIs(t, ValidateContact(model.PaymentProvider("mpesa-classic"), "255712345678"), ErrUnknownProvider)
}
