package metrics

import "github.com/prometheus/client_golang/prometheus"

// ReconcileMetrics counts payment reconciliation outcomes and notification
// dispatch results. A nil receiver is a no-op.
type ReconcileMetrics struct {
	outcomes      *prometheus.CounterVec
	notifications *prometheus.CounterVec
}

func NewReconcileMetrics(reg prometheus.Registerer) *ReconcileMetrics {
	if reg == nil {
		return &ReconcileMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_reconcile_outcomes_total",
		Help: "Payment reconciliation attempts by outcome.",
	}, []string{"outcome"})
	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_dispatch_total",
		Help: "Notification deliveries by result.",
	}, []string{"result"})
	reg.MustRegister(outcomes, notifications)
	return &ReconcileMetrics{outcomes: outcomes, notifications: notifications}
}

// IncOutcome counts one reconciliation attempt ending in outcome.
func (m *ReconcileMetrics) IncOutcome(outcome string) {
	if m == nil || m.outcomes == nil {
		return
	}
	m.outcomes.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncNotification counts one notification delivery ending in result
// (delivered, failed, dropped).
func (m *ReconcileMetrics) IncNotification(result string) {
	if m == nil || m.notifications == nil {
		return
	}
	m.notifications.WithLabelValues(normalizeLabel(result)).Inc()
}
