package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(invoiceRequestsTotal) }

var invoiceRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "store_invoice_requests_total",
		Help: "Invoice requests by product type and outcome (issued/reused/rejected).",
	},
	[]string{"product_type", "outcome"},
)

func IncInvoiceRequest(productType, outcome string) {
	invoiceRequestsTotal.WithLabelValues(norm(productType), norm(outcome)).Inc()
}
