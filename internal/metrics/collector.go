// Package metrics provides Prometheus-compatible instrumentation for the
// entropy sources: a call counter and a duration histogram, labeled by
// source name and outcome. Adapted from the teacher's pkg/metrics/collector.go,
// trimmed from the bot's hit-rate/bounce-rate dashboard down to the two
// signals that matter for a library where no source may ever return an
// error: how often each source downgrades to a sentinel, and how long it
// took.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels the result of one source invocation.
type Outcome string

const (
	OutcomeOK          Outcome = "ok"
	OutcomeSentinel    Outcome = "sentinel"    // Unsupported / Unstable / not-observable
	OutcomeTransportErr Outcome = "transport_error"
)

// Collector holds the Prometheus instruments for entropy-source calls.
type Collector struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// New creates a Collector and registers its instruments on reg. Pass
// prometheus.NewRegistry() for an isolated registry (tests, multiple
// collectors in one process) or prometheus.DefaultRegisterer for the
// process-wide default.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "entropy_source_calls_total",
			Help: "Total entropy source invocations by source and outcome.",
		}, []string{"source", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "entropy_source_duration_seconds",
			Help:    "Entropy source call latency in seconds.",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"source"}),
	}
	reg.MustRegister(c.calls, c.duration)
	return c
}

// Observe records one source call's outcome and wall-clock duration.
func (c *Collector) Observe(source string, outcome Outcome, dur time.Duration) {
	c.calls.WithLabelValues(source, string(outcome)).Inc()
	c.duration.WithLabelValues(source).Observe(dur.Seconds())
}

// Timer returns a stop function that records the time since Timer was
// called together with the outcome passed to it, so callers can do:
//
//	stop := collector.Timer("canvas")
//	defer func() { stop(outcome) }()
func (c *Collector) Timer(source string) func(outcome Outcome) {
	start := time.Now()
	return func(outcome Outcome) {
		c.Observe(source, outcome, time.Since(start))
	}
}

// Handler returns an http.Handler exposing metrics in the Prometheus
// exposition format, wired to the same registry New was called with when
// reg also implements prometheus.Gatherer (true for both NewRegistry() and
// the global DefaultRegisterer/DefaultGatherer pair).
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
