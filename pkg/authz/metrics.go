package authz

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	checkRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "authz",
		Subsystem: "policy",
		Name:      "checks_total",
		Help:      "Total number of policy checks broken down by object and result.",
	}, []string{"object", "result"})

	checkLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "authz",
		Subsystem: "policy",
		Name:      "check_latency_seconds",
		Help:      "Latency distribution for policy checks.",
		Buckets: []float64{
			0.00005, 0.0001, 0.0005, 0.001,
			0.005, 0.01, 0.05, 0.1,
		},
	}, []string{"result"})
)

func recordCheck(object string, allowed bool, latency time.Duration) {
	result := "denied"
	if allowed {
		result = "allowed"
	}
	checkRequests.WithLabelValues(object, result).Inc()
	checkLatency.WithLabelValues(result).Observe(latency.Seconds())
}
