// Package metrics exposes poll cycle activity as prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "honeywatch"

// Metrics records poller activity on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	cycles            *prometheus.CounterVec
	cycleDuration     prometheus.Histogram
	skipped           prometheus.Counter
	candidateFailures *prometheus.CounterVec
	statsFailures     prometheus.Counter
	activeEndpoint    *prometheus.GaugeVec
}

// New builds Metrics registered on a fresh registry together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_cycles_total",
			Help:      "Completed poll cycles by outcome.",
		}, []string{"outcome"}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "poll_cycle_duration_seconds",
			Help:      "Wall time of completed poll cycles.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_cycles_skipped_total",
			Help:      "Poll cycles skipped because the previous cycle was still running.",
		}),
		candidateFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidate_failures_total",
			Help:      "Failed records requests by candidate endpoint and failure kind.",
		}, []string{"candidate", "kind"}),
		statsFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stats_failures_total",
			Help:      "Failed stats requests against the confirmed endpoint.",
		}),
		activeEndpoint: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_endpoint_info",
			Help:      "Set to 1 for the endpoint that served the latest records.",
		}, []string{"endpoint"}),
	}

	m.registry.MustRegister(
		m.cycles,
		m.cycleDuration,
		m.skipped,
		m.candidateFailures,
		m.statsFailures,
		m.activeEndpoint,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveCycle counts a finished cycle and its duration.
func (m *Metrics) ObserveCycle(outcome string, d time.Duration) {
	m.cycles.WithLabelValues(outcome).Inc()
	m.cycleDuration.Observe(d.Seconds())
}

func (m *Metrics) CycleSkipped() {
	m.skipped.Inc()
}

func (m *Metrics) CandidateFailed(candidate, kind string) {
	m.candidateFailures.WithLabelValues(candidate, kind).Inc()
}

func (m *Metrics) StatsFailed() {
	m.statsFailures.Inc()
}

// SetActiveEndpoint moves the info gauge to endpoint.
func (m *Metrics) SetActiveEndpoint(endpoint string) {
	m.activeEndpoint.Reset()
	m.activeEndpoint.WithLabelValues(endpoint).Set(1)
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
