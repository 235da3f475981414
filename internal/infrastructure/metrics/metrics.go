package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "modelrouter"

// Outcome labels for engine calls.
const (
	OutcomeSuccess  = "success"
	OutcomeError    = "error"
	OutcomeRejected = "rejected"
)

// Collectors holds the engine and HTTP metrics on a private registry.
type Collectors struct {
	registry *prometheus.Registry

	engineRequests *prometheus.CounterVec
	engineErrors   *prometheus.CounterVec
	engineLatency  *prometheus.HistogramVec
	breakerState   *prometheus.GaugeVec
	httpRequests   *prometheus.CounterVec
}

// New creates and registers every collector, plus the Go and process collectors.
func New() *Collectors {
	c := &Collectors{
		registry: prometheus.NewRegistry(),
		engineRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "engine",
				Name:      "requests_total",
				Help:      "Count of completion engine calls by engine, operation and outcome.",
			},
			[]string{"engine", "op", "outcome"},
		),
		engineErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "engine",
				Name:      "errors_total",
				Help:      "Count of failed completion engine calls.",
			},
			[]string{"engine", "op"},
		),
		engineLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "engine",
				Name:      "duration_seconds",
				Help:      "Completion engine call latency in seconds.",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"engine", "op"},
		),
		breakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "engine",
				Name:      "breaker_state",
				Help:      "Circuit breaker state per engine: 0 closed, 1 open, 2 half open.",
			},
			[]string{"engine"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Count of HTTP requests by route and status code.",
			},
			[]string{"route", "code"},
		),
	}

	c.registry.MustRegister(
		c.engineRequests,
		c.engineErrors,
		c.engineLatency,
		c.breakerState,
		c.httpRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// RecordEngineCall records one engine call and its latency.
func (c *Collectors) RecordEngineCall(engine, op, outcome string, d time.Duration) {
	c.engineRequests.WithLabelValues(engine, op, outcome).Inc()
	if outcome == OutcomeError {
		c.engineErrors.WithLabelValues(engine, op).Inc()
	}
	if outcome != OutcomeRejected {
		c.engineLatency.WithLabelValues(engine, op).Observe(d.Seconds())
	}
}

// SetBreakerState records the numeric breaker state for engine.
func (c *Collectors) SetBreakerState(engine string, state int) {
	c.breakerState.WithLabelValues(engine).Set(float64(state))
}

// RecordHTTPRequest counts one served HTTP request.
func (c *Collectors) RecordHTTPRequest(route string, code int) {
	c.httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

// Registry exposes the underlying registry, mainly for tests.
func (c *Collectors) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collectors) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
