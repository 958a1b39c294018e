package observability

import (
	"context"
	"net/http"
	"strconv"

	"github.com/aretw0/tooldeck/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tooldeck"

// Metrics collects phase and backend request metrics.
type Metrics struct {
	registry *prometheus.Registry

	phaseChanges *prometheus.CounterVec
	requests     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	inFlight     *prometheus.GaugeVec
}

// NewMetrics registers the tooldeck collectors, plus the Go and process
// collectors, on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		phaseChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "phase_changes_total",
				Help:      "Visit phase transitions by tool and target phase.",
			},
			[]string{"tool", "to"},
		),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "backend_requests_total",
				Help:      "Backend requests by tool, operation and outcome.",
			},
			[]string{"tool", "op", "outcome", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "backend_request_duration_seconds",
				Help:      "Duration of backend requests.",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"tool", "op"},
		),
		inFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "backend_requests_in_flight",
				Help:      "Backend requests currently waiting for a response.",
			},
			[]string{"op"},
		),
	}
	m.registry.MustRegister(
		m.phaseChanges, m.requests, m.duration, m.inFlight,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Hooks records engine events.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnPhaseChange: func(_ context.Context, ev *domain.PhaseEvent) {
			m.phaseChanges.WithLabelValues(ev.ToolID, string(ev.To)).Inc()
		},
		OnRequest: func(_ context.Context, ev *domain.RequestEvent) {
			m.inFlight.WithLabelValues(string(ev.Op)).Inc()
		},
		OnResponse: func(_ context.Context, ev *domain.RequestEvent) {
			m.inFlight.WithLabelValues(string(ev.Op)).Dec()
			outcome := "ok"
			if ev.IsError {
				outcome = "error"
			}
			status := ""
			if ev.Status != 0 {
				status = strconv.Itoa(ev.Status)
			}
			m.requests.WithLabelValues(ev.ToolID, string(ev.Op), outcome, status).Inc()
			m.duration.WithLabelValues(ev.ToolID, string(ev.Op)).Observe(ev.Duration.Seconds())
		},
	}
}
