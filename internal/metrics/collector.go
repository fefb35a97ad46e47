// Package metrics exposes Prometheus collectors for compilation and tool calls.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "openapi_mcp"

// Outcomes recorded for tool calls and elicitation rounds.
const (
	OutcomeSuccess   = "success"
	OutcomeError     = "error"
	OutcomeInvalid   = "invalid"
	OutcomeCancelled = "cancelled"
	OutcomeAccepted  = "accepted"
	OutcomeSkipped   = "skipped"
)

// Collector owns a private registry so several servers can coexist in one process.
// A nil *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	toolCalls         *prometheus.CounterVec
	toolCallDuration  *prometheus.HistogramVec
	elicitations      *prometheus.CounterVec
	compiledEndpoints *prometheus.GaugeVec
	compileErrors     *prometheus.CounterVec
}

// NewCollector creates the collectors on a fresh registry, including Go runtime metrics.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		toolCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tool_calls_total",
				Help:      "Total number of tool calls by outcome",
			},
			[]string{"tool", "outcome"},
		),
		toolCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "tool_call_duration_seconds",
				Help:      "Tool call duration in seconds, elicitation included",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 300},
			},
			[]string{"tool"},
		),
		elicitations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "elicitations_total",
				Help:      "Total number of elicitation rounds by outcome",
			},
			[]string{"outcome"},
		),
		compiledEndpoints: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "compiled_endpoints",
				Help:      "Number of endpoints compiled into tools per integration",
			},
			[]string{"integration"},
		),
		compileErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "compile_errors_total",
				Help:      "Operations skipped because they failed to resolve or convert",
			},
			[]string{"integration"},
		),
	}
}

// Registry returns the registry backing the collectors.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// RecordToolCall counts one tool call and its duration.
func (c *Collector) RecordToolCall(tool, outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.toolCalls.WithLabelValues(tool, outcome).Inc()
	c.toolCallDuration.WithLabelValues(tool).Observe(d.Seconds())
}

// RecordElicitation counts one elicitation round.
func (c *Collector) RecordElicitation(outcome string) {
	if c == nil {
		return
	}
	c.elicitations.WithLabelValues(outcome).Inc()
}

// RecordCompilation sets the endpoint gauge and adds the failures for an integration.
func (c *Collector) RecordCompilation(integration string, endpoints, failures int) {
	if c == nil {
		return
	}
	c.compiledEndpoints.WithLabelValues(integration).Set(float64(endpoints))
	if failures > 0 {
		c.compileErrors.WithLabelValues(integration).Add(float64(failures))
	}
}
