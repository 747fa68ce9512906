// Package prometheus implements the metrics collector on top of the
// Prometheus client library.
package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ledgersync/pkg/metrics"
)

// Collector exports sync metrics to a Prometheus registry.
type Collector struct {
	registry *prometheus.Registry

	creates        *prometheus.CounterVec
	createLatency  prometheus.Histogram
	lookups        prometheus.Counter
	lookupFound    prometheus.Counter
	lookupMissed   prometheus.Counter
	lookupLatency  prometheus.Histogram
	verifyAttempts *prometheus.CounterVec
	runs           *prometheus.CounterVec
	runAccounts    prometheus.Gauge
	runLatency     prometheus.Histogram
	circuitState   *prometheus.GaugeVec
	cacheGets      *prometheus.CounterVec
	cacheLatency   *prometheus.HistogramVec
}

// New creates a collector with its own registry, namespaced under the
// given prefix.
func New(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		creates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "record_creates_total",
				Help:      "Record creation outcomes by status",
			},
			[]string{"status"},
		),
		createLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "record_create_duration_seconds",
				Help:      "Latency of record creation calls",
				Buckets:   prometheus.DefBuckets,
			},
		),
		lookups: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lookups_total",
				Help:      "Total lookup calls",
			},
		),
		lookupFound: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lookup_records_found_total",
				Help:      "Records found across lookup calls",
			},
		),
		lookupMissed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lookup_records_missed_total",
				Help:      "Requested ids absent from lookup results",
			},
		),
		lookupLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "lookup_duration_seconds",
				Help:      "Latency of lookup calls",
				Buckets:   prometheus.DefBuckets,
			},
		),
		verifyAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "verify_attempts_total",
				Help:      "Verification attempts by mode and outcome",
			},
			[]string{"mode", "outcome"},
		),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sync_runs_total",
				Help:      "Completed sync runs by result",
			},
			[]string{"result"},
		),
		runAccounts: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "sync_run_accounts",
				Help:      "Accounts processed by the most recent run",
			},
		),
		runLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "sync_run_duration_seconds",
				Help:      "Duration of whole sync runs",
				Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
		),
		circuitState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "gateway_circuit_state",
				Help:      "Gateway circuit breaker state (0=closed, 1=open, 2=half-open)",
			},
			[]string{"gateway"},
		),
		cacheGets: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "balance_cache_gets_total",
				Help:      "Balance cache reads by layer and result",
			},
			[]string{"layer", "hit"},
		),
		cacheLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "balance_cache_get_duration_seconds",
				Help:      "Latency of balance cache reads",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"layer"},
		),
	}

	c.registry.MustRegister(
		c.creates, c.createLatency,
		c.lookups, c.lookupFound, c.lookupMissed, c.lookupLatency,
		c.verifyAttempts,
		c.runs, c.runAccounts, c.runLatency,
		c.circuitState,
		c.cacheGets, c.cacheLatency,
	)
	return c
}

// Handler returns an HTTP handler serving the registry in Prometheus text
// format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordCreate implements metrics.Collector.
func (c *Collector) RecordCreate(status string, duration time.Duration) {
	c.creates.WithLabelValues(status).Inc()
	c.createLatency.Observe(duration.Seconds())
}

// RecordLookup implements metrics.Collector.
func (c *Collector) RecordLookup(requested, found int, duration time.Duration) {
	c.lookups.Inc()
	c.lookupFound.Add(float64(found))
	c.lookupMissed.Add(float64(requested - found))
	c.lookupLatency.Observe(duration.Seconds())
}

// RecordVerifyAttempt implements metrics.Collector.
func (c *Collector) RecordVerifyAttempt(mode string, attempt int, outcome string) {
	c.verifyAttempts.WithLabelValues(mode, outcome).Inc()
}

// RecordRun implements metrics.Collector.
func (c *Collector) RecordRun(success bool, accounts int, duration time.Duration) {
	result := "success"
	if !success {
		result = "failure"
	}
	c.runs.WithLabelValues(result).Inc()
	c.runAccounts.Set(float64(accounts))
	c.runLatency.Observe(duration.Seconds())
}

// RecordCircuitState implements metrics.Collector.
func (c *Collector) RecordCircuitState(gateway string, state metrics.CircuitState) {
	c.circuitState.WithLabelValues(gateway).Set(float64(state))
}

// RecordCacheGet implements metrics.Collector.
func (c *Collector) RecordCacheGet(layer string, hit bool, duration time.Duration) {
	c.cacheGets.WithLabelValues(layer, strconv.FormatBool(hit)).Inc()
	c.cacheLatency.WithLabelValues(layer).Observe(duration.Seconds())
}

var _ metrics.Collector = (*Collector)(nil)
