package billing

import "github.com/prometheus/client_golang/prometheus"

var (
	webhookEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "revobilling",
		Subsystem: "webhook",
		Name:      "events_total",
		Help:      "Inbound Stripe webhook events by type and result.",
	}, []string{"type", "result"})

	reconcilesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "revobilling",
		Subsystem: "reconciler",
		Name:      "reconciles_total",
		Help:      "Subscription reconciliations by outcome.",
	}, []string{"outcome"})

	unmappedPricesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "revobilling",
		Subsystem: "reconciler",
		Name:      "unmapped_prices_total",
		Help:      "Reconciled events whose price ID had no catalogue entry.",
	})
)

func init() {
	prometheus.MustRegister(webhookEventsTotal, reconcilesTotal, unmappedPricesTotal)
}
