// File: internal/infra/metrics/metrics.go
package metrics

import (
	"strconv"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	generationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generations_total",
			Help: "Generation jobs by modality and terminal state.",
		},
		[]string{"modality", "state"},
	)

	creditsMoved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credits_moved_total",
			Help: "Credits debited/credited by pool and direction (reserve/refund).",
		},
		[]string{"kind", "op"},
	)

	providerCallLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "provider_call_latency_ms",
			Help:    "Remote provider call latency distribution in milliseconds.",
			Buckets: []float64{10, 25, 50, 100, 200, 400, 800, 1600, 3000, 5000},
		},
		[]string{"call", "success"},
	)

	pollAttempts = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "poll_attempts_per_job",
			Help:    "Status polls issued before a job reached a terminal state.",
			Buckets: []float64{1, 2, 4, 8, 16, 32, 64, 128},
		},
		[]string{"modality"},
	)

	cacheRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_requests_total",
			Help: "Cache lookups by entity and outcome (hit/miss/bypass).",
		},
		[]string{"entity", "outcome"},
	)

	ledgerFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_persistence_failures_total",
			Help: "Balance writes that failed against the remote store.",
		},
	)
)

// MustRegister registers collectors with the default registry (idempotent).
func MustRegister() {
	once.Do(func() {
		prometheus.MustRegister(
			generationsTotal, creditsMoved,
			providerCallLatencyMs, pollAttempts,
			cacheRequests, ledgerFailures,
		)
	})
}

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// -------- Generation helpers --------

func IncGeneration(modality, state string) {
	generationsTotal.WithLabelValues(norm(modality), norm(state)).Inc()
}

func ObserveCredits(kind, op string, amount int) {
	creditsMoved.WithLabelValues(norm(kind), norm(op)).Add(float64(amount))
}

func ObservePollAttempts(modality string, attempts int) {
	pollAttempts.WithLabelValues(norm(modality)).Observe(float64(attempts))
}

func ObserveProviderCall(call string, latencyMs int, success bool) {
	providerCallLatencyMs.WithLabelValues(norm(call), strconv.FormatBool(success)).
		Observe(float64(latencyMs))
}

func IncCacheRequest(entity, outcome string) {
	cacheRequests.WithLabelValues(norm(entity), norm(outcome)).Inc()
}

func IncLedgerFailure() { ledgerFailures.Inc() }
