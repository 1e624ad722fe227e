package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewLedgerMetrics(reg)

	m.IncWebhookEvent("user.activated", OutcomeProcessed)
	m.IncWebhookEvent("user.activated", OutcomeProcessed)
	m.IncWebhookEvent("user.activated", OutcomeDuplicate)
	m.IncWithdrawal(OutcomeInsufficient)
	m.IncInvoiceAnomaly()
	m.AddCommissionsDerived(3)
	m.AddCommissionsDerived(0)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	processed := findMetricFamily(mfs, "affiliate_ledger_webhook_events_total")
	require.NotNil(t, processed)
	var processedCount, duplicateCount float64
	for _, metric := range processed.GetMetric() {
		switch {
		case matchesLabel(metric.GetLabel(), "outcome", OutcomeProcessed):
			processedCount = metric.GetCounter().GetValue()
		case matchesLabel(metric.GetLabel(), "outcome", OutcomeDuplicate):
			duplicateCount = metric.GetCounter().GetValue()
		}
	}
	assert.Equal(t, 2.0, processedCount)
	assert.Equal(t, 1.0, duplicateCount)

	got, err := fetchCounterValue(mfs, "affiliate_ledger_withdrawals_requests_total", "outcome", OutcomeInsufficient)
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)

	derived := findMetricFamily(mfs, "affiliate_ledger_commissions_derived_total")
	require.NotNil(t, derived)
	assert.Equal(t, 3.0, derived.GetMetric()[0].GetCounter().GetValue())
}

func TestNilLedgerMetricsIsNoop(t *testing.T) {
	var m *LedgerMetrics
	m.IncWebhookEvent("user.signup", OutcomeFailed)
	m.IncInvoiceAnomaly()
	m.AddCommissionsDerived(1)
	m.IncWithdrawal(OutcomeAdmitted)

	NewLedgerMetrics(nil).IncWithdrawal(OutcomeAdmitted)
}
