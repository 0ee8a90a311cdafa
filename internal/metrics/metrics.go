// Package metrics exposes Prometheus counters for the discovery pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every planner collector plus the Go runtime collectors.
var Registry = prometheus.NewRegistry()

var (
	Searches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "planner",
		Name:      "searches_total",
		Help:      "Search backend calls by backend and outcome.",
	}, []string{"backend", "outcome"})

	Fetches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "planner",
		Name:      "fetches_total",
		Help:      "Content fetches by scraper and outcome.",
	}, []string{"scraper", "outcome"})

	Extractions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "planner",
		Name:      "extractions_total",
		Help:      "LLM vendor extractions by result kind.",
	}, []string{"kind"})

	LLMRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "planner",
		Name:      "llm_retries_total",
		Help:      "LLM call retries by phase.",
	}, []string{"phase"})

	SpendUSD = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "planner",
		Name:      "spend_usd_total",
		Help:      "Estimated API spend in USD by provider and phase.",
	}, []string{"provider", "phase"})

	DiscoveryDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "planner",
		Name:      "discovery_duration_seconds",
		Help:      "Wall time of a discovery request by strategy and final state.",
		Buckets:   []float64{1, 5, 10, 20, 30, 45, 60, 90, 120},
	}, []string{"strategy", "state"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		Searches, Fetches, Extractions, LLMRetries, SpendUSD, DiscoveryDuration,
	)
}

// Outcome labels.
const (
	OK      = "ok"
	Empty   = "empty"
	Blocked = "blocked"
	Error   = "error"
)

// ObserveDiscovery records the duration of a finished discovery request.
func ObserveDiscovery(strategy, state string, started time.Time) {
	DiscoveryDuration.WithLabelValues(strategy, state).Observe(time.Since(started).Seconds())
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
