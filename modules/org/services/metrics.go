package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	orgCacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "org",
		Subsystem: "cache",
		Name:      "requests_total",
		Help:      "Total number of ancestor cache lookups broken down by backend and hit/miss.",
	}, []string{"cache", "result"})

	orgCacheInvalidate = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "org",
		Subsystem: "cache",
		Name:      "invalidate_total",
		Help:      "Total number of ancestor cache invalidations broken down by reason.",
	}, []string{"reason"})

	orgWriteConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "org",
		Subsystem: "write",
		Name:      "conflicts_total",
		Help:      "Total number of store write conflicts broken down by kind.",
	}, []string{"kind"})

	updateRequestSubmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "org",
		Subsystem: "update_requests",
		Name:      "submissions_total",
		Help:      "Total number of update request submissions broken down by request type and outcome.",
	}, []string{"request_type", "outcome"})

	updateRequestResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "org",
		Subsystem: "update_requests",
		Name:      "resolutions_total",
		Help:      "Total number of review decisions broken down by request type and outcome.",
	}, []string{"request_type", "outcome"})

	commitRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "org",
		Subsystem: "commit",
		Name:      "retries_total",
		Help:      "Total number of automatic commit retries broken down by operation.",
	}, []string{"operation"})
)

func recordCacheRequest(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	orgCacheRequests.WithLabelValues(cache, result).Inc()
}

func recordCacheInvalidate(reason string) {
	if reason == "" {
		reason = "manual"
	}
	orgCacheInvalidate.WithLabelValues(reason).Inc()
}

func recordWriteConflict(kind string) {
	if kind == "" {
		kind = "other"
	}
	orgWriteConflicts.WithLabelValues(kind).Inc()
}

func recordSubmission(kind, outcome string) {
	updateRequestSubmissions.WithLabelValues(kind, outcome).Inc()
}

func recordResolution(kind, outcome string) {
	updateRequestResolutions.WithLabelValues(kind, outcome).Inc()
}

func recordCommitRetry(operation string) {
	commitRetries.WithLabelValues(operation).Inc()
}
