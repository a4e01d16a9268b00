// Package metrics holds the Prometheus collectors for upstream calls and tool invocations.
package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the gateway's collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	upstreamRequests *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	toolCalls        *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		upstreamRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qualer_upstream_requests_total",
				Help: "Total number of requests sent to the Qualer API.",
			},
			[]string{"method", "route", "outcome"},
		),
		upstreamDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "qualer_upstream_request_duration_seconds",
				Help:    "Latency of requests sent to the Qualer API.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		toolCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mcp_tool_calls_total",
				Help: "Total number of MCP tool invocations.",
			},
			[]string{"tool", "outcome"},
		),
	}

	for _, c := range []prometheus.Collector{m.upstreamRequests, m.upstreamDuration, m.toolCalls} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveUpstream records one upstream call. path is reduced to its route
// pattern so ids do not explode label cardinality.
func (m *Metrics) ObserveUpstream(method, path, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	route := Route(path)
	m.upstreamRequests.WithLabelValues(method, route, outcome).Inc()
	m.upstreamDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObserveTool records one tool invocation.
func (m *Metrics) ObserveTool(tool, outcome string) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(tool, outcome).Inc()
}

// Route replaces all-digit path segments with ":id",
// e.g. /api/v1/service-orders/42/documents -> /api/v1/service-orders/:id/documents.
func Route(path string) string {
	segs := strings.Split(path, "/")
	for i, s := range segs {
		if s != "" && strings.Trim(s, "0123456789") == "" {
			segs[i] = ":id"
		}
	}
	return strings.Join(segs, "/")
}
