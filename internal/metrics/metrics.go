// Package metrics regroupe les collecteurs prometheus du service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pumppro"

// Registry est le registre dédié du service (pas le registre global)
var Registry = prometheus.NewRegistry()

var (
	Recomputations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "progress",
		Name:      "recomputations_total",
		Help:      "Progress recomputations by trigger.",
	}, []string{"trigger"})

	RecomputeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "progress",
		Name:      "recompute_duration_seconds",
		Help:      "Duration of a single (user, challenge) recomputation.",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
	})

	TxConflicts = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "tx_conflicts_total",
		Help:      "Transactions retried after a serialization conflict.",
	})

	ActivationUsers = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "progress",
		Name:      "activation_users_processed_total",
		Help:      "Users recomputed by challenge activation batches.",
	})

	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by method and status code.",
	}, []string{"method", "status"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		Recomputations,
		RecomputeDuration,
		TxConflicts,
		ActivationUsers,
		HTTPRequests,
	)
}

// Handler expose le registre au format prometheus
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
