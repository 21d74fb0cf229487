package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(quotaResetsTotal) }

var quotaResetsTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "quota_resets_total",
		Help: "User quota records reset by the periodic sweep.",
	},
)

func AddQuotaResets(n int64) { quotaResetsTotal.Add(float64(n)) }
