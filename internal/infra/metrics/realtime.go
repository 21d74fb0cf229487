package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(wsSessions, broadcastsTotal)
}

var (
	wsSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "realtime_sessions",
			Help: "Currently connected realtime sessions.",
		},
	)

	broadcastsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_broadcasts_total",
			Help: "Broadcast attempts by event and result (sent/dropped).",
		},
		[]string{"event", "result"},
	)
)

func IncWSSessions() { wsSessions.Inc() }
func DecWSSessions() { wsSessions.Dec() }

func IncBroadcast(event, result string) {
	broadcastsTotal.WithLabelValues(norm(event), norm(result)).Inc()
}
