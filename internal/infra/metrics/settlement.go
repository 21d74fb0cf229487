package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		preCheckoutTotal,
		settlementTotal,
		revenueTotal,
	)
}

var (
	preCheckoutTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "precheckout_answers_total",
			Help: "Pre-checkout answers by outcome (approved or the decline reason).",
		},
		[]string{"outcome"},
	)

	settlementTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlements_total",
			Help: "Settlement callbacks by kind (paid/refund) and outcome (ok/duplicate/failed).",
		},
		[]string{"kind", "outcome"},
	)

	revenueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settled_revenue_total",
			Help: "Total settled amount by currency.",
		},
		[]string{"currency"},
	)
)

func IncPreCheckout(outcome string) {
	preCheckoutTotal.WithLabelValues(norm(outcome)).Inc()
}

func IncSettlement(kind, outcome string) {
	settlementTotal.WithLabelValues(norm(kind), norm(outcome)).Inc()
}

func AddRevenue(currency string, amount int64) {
	revenueTotal.WithLabelValues(norm(currency)).Add(float64(amount))
}
