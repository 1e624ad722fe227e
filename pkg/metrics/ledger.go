package metrics

import "github.com/prometheus/client_golang/prometheus"

// Webhook outcomes.
const (
	OutcomeProcessed = "processed"
	OutcomeDuplicate = "duplicate"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

// Withdrawal admission outcomes.
const (
	OutcomeAdmitted     = "admitted"
	OutcomeInsufficient = "insufficient_balance"
	OutcomeInvalid      = "invalid"
)

// LedgerMetrics counts ledger mutations. A nil *LedgerMetrics is a no-op.
type LedgerMetrics struct {
	webhookEvents      *prometheus.CounterVec
	invoiceAnomalies   prometheus.Counter
	commissionsDerived prometheus.Counter
	withdrawals        *prometheus.CounterVec
}

// NewLedgerMetrics registers the ledger counters on reg.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	m := &LedgerMetrics{
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "webhook",
			Name:      "events_total",
			Help:      "Provider webhook events by type and outcome.",
		}, []string{"type", "outcome"}),
		invoiceAnomalies: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "invoices",
			Name:      "gross_revenue_changed_total",
			Help:      "Redelivered invoices whose gross revenue differed from the stored amount.",
		}),
		commissionsDerived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "commissions",
			Name:      "derived_total",
			Help:      "Commission entries created from paid invoices.",
		}),
		withdrawals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "withdrawals",
			Name:      "requests_total",
			Help:      "Withdrawal admission attempts by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.webhookEvents, m.invoiceAnomalies, m.commissionsDerived, m.withdrawals)
	return m
}

func (m *LedgerMetrics) IncWebhookEvent(eventType, outcome string) {
	if m == nil || m.webhookEvents == nil {
		return
	}
	m.webhookEvents.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

func (m *LedgerMetrics) IncInvoiceAnomaly() {
	if m == nil || m.invoiceAnomalies == nil {
		return
	}
	m.invoiceAnomalies.Inc()
}

func (m *LedgerMetrics) AddCommissionsDerived(n int) {
	if m == nil || m.commissionsDerived == nil || n <= 0 {
		return
	}
	m.commissionsDerived.Add(float64(n))
}

func (m *LedgerMetrics) IncWithdrawal(outcome string) {
	if m == nil || m.withdrawals == nil {
		return
	}
	m.withdrawals.WithLabelValues(normalizeLabel(outcome)).Inc()
}
