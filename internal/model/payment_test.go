package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProviderCapabilities(t *testing.T) {
	require.True(t, PaymentProviderVodacom.Known())
	require.True(t, PaymentProviderFlutterwave.Known())
	require.False(t, PaymentProvider("western-union").Known())

	require.Equal(t, ConfirmPoll, PaymentProviderVodacom.ConfirmationMode())
	require.Equal(t, ConfirmPoll, PaymentProviderPawaPay.ConfirmationMode())
	require.Equal(t, ConfirmWebhook, PaymentProviderPesapal.ConfirmationMode())
	require.Equal(t, ConfirmWebhook, PaymentProviderPayPal.ConfirmationMode())

	require.Equal(t, ContactPhone, PaymentProviderVodacom.ContactKind())
	require.Equal(t, ContactPhone, PaymentProviderPesapal.ContactKind())
	require.Equal(t, ContactEmail, PaymentProviderPaystack.ContactKind())
}

func TestPaymentStateTerminal(t *testing.T) {
	require.False(t, PaymentStateCreated.Terminal())
	require.False(t, PaymentStateProviderPending.Terminal())
	require.True(t, PaymentStateConfirmed.Terminal())
	require.True(t, PaymentStateFailed.Terminal())
	require.True(t, PaymentStateExpired.Terminal())
}

func TestUserMessage_NeverEmpty(t *testing.T) {
	states := []PaymentState{
		PaymentStateCreated, PaymentStateProviderPending,
		PaymentStateConfirmed, PaymentStateFailed, PaymentStateExpired,
	}
	for _, state := range states {
		a := PaymentAttempt{State: state}
		require.NotEmpty(t, a.UserMessage(), "state %s", state)
	}

	code := FailureInvalidContact
	a := PaymentAttempt{State: PaymentStateFailed, FailureCode: &code}
	require.NotEmpty(t, a.UserMessage())
}
