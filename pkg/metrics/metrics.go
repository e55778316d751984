package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "paperbuilder", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "paperbuilder", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	StoreMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "paperbuilder", Name: "store_mutations_total", Help: "Number of applied store mutations by operation."},
		[]string{"op"},
	)
	ValidationFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "paperbuilder", Name: "validation_failures_total", Help: "Number of rejected form submissions by form."},
		[]string{"form"},
	)
	Papers = prometheus.NewGauge(
		prometheus.GaugeOpts{Namespace: "paperbuilder", Name: "papers", Help: "Number of papers currently held in the store."},
	)
	ChangesDropped = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "paperbuilder", Name: "change_events_dropped_total", Help: "Store change events dropped because the publish buffer was full."},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(StoreMutations)
	reg.MustRegister(ValidationFailures)
	reg.MustRegister(Papers)
	reg.MustRegister(ChangesDropped)
}
