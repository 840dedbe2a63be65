package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PurchasesStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "furaha_purchases_started_total",
		Help: "Purchase attempts accepted, by provider.",
	}, []string{"provider"})

	PaymentsTerminal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "furaha_payment_attempts_terminal_total",
		Help: "Payment attempts that reached a terminal state.",
	}, []string{"state"})

	GrantsIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "furaha_grants_issued_total",
		Help: "Access grants written to the ledger.",
	})

	ProvisioningFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "furaha_provisioning_failures_total",
		Help: "Grants whose router push exhausted its retry budget.",
	})

	VouchersRedeemed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "furaha_vouchers_redeemed_total",
		Help: "Vouchers consumed by a device.",
	})

	ReconcilerActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "furaha_reconciler_actions_total",
		Help: "Corrective commands issued by the reconciliation loop.",
	}, []string{"action"})
)
