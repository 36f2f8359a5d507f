package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the process-wide dispatch counters. Counters are atomic so
// concurrent tool calls need no locking; the same values back the Prometheus
// registry and the health snapshot.
type Metrics struct {
	registry  *prometheus.Registry
	startTime time.Time

	pluginsDiscovered atomic.Int64
	toolsRegistered   atomic.Int64
	toolCallsTotal    atomic.Int64
	toolCallsSuccess  atomic.Int64
	toolCallsError    atomic.Int64
}

// Snapshot is a point-in-time view of the counters for the health tool
type Snapshot struct {
	UptimeSeconds     int64 `json:"uptime_s"`
	PluginsDiscovered int64 `json:"plugins_discovered"`
	ToolsRegistered   int64 `json:"tools_registered"`
	ToolCallsTotal    int64 `json:"tool_calls_total"`
	ToolCallsSuccess  int64 `json:"tool_calls_success"`
	ToolCallsError    int64 `json:"tool_calls_error"`
}

// New creates and registers all metrics
func New() *Metrics {
	m := &Metrics{
		registry:  prometheus.NewRegistry(),
		startTime: time.Now(),
	}

	m.registry.MustRegister(
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "toolgate_plugins_discovered",
				Help: "Number of plugins discovered at startup",
			},
			func() float64 { return float64(m.pluginsDiscovered.Load()) },
		),
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "toolgate_tools_registered",
				Help: "Number of tools in the catalogue",
			},
			func() float64 { return float64(m.toolsRegistered.Load()) },
		),
		prometheus.NewCounterFunc(
			prometheus.CounterOpts{
				Name: "toolgate_tool_calls_total",
				Help: "Total number of dispatched tool calls",
			},
			func() float64 { return float64(m.toolCallsTotal.Load()) },
		),
		prometheus.NewCounterFunc(
			prometheus.CounterOpts{
				Name: "toolgate_tool_calls_success_total",
				Help: "Total number of successful tool calls",
			},
			func() float64 { return float64(m.toolCallsSuccess.Load()) },
		),
		prometheus.NewCounterFunc(
			prometheus.CounterOpts{
				Name: "toolgate_tool_calls_error_total",
				Help: "Total number of failed tool calls",
			},
			func() float64 { return float64(m.toolCallsError.Load()) },
		),
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "toolgate_uptime_seconds",
				Help: "Seconds since process start",
			},
			func() float64 { return time.Since(m.startTime).Seconds() },
		),
	)

	return m
}

// SetPluginsDiscovered records the final discovery count
func (m *Metrics) SetPluginsDiscovered(n int) {
	m.pluginsDiscovered.Store(int64(n))
}

// IncToolsRegistered increments the catalogue size counter
func (m *Metrics) IncToolsRegistered() {
	m.toolsRegistered.Add(1)
}

// IncToolCallsTotal increments the total call counter
func (m *Metrics) IncToolCallsTotal() {
	m.toolCallsTotal.Add(1)
}

// IncToolCallsSuccess increments the success counter
func (m *Metrics) IncToolCallsSuccess() {
	m.toolCallsSuccess.Add(1)
}

// IncToolCallsError increments the error counter
func (m *Metrics) IncToolCallsError() {
	m.toolCallsError.Add(1)
}

// Snapshot returns the current counter values
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		UptimeSeconds:     int64(time.Since(m.startTime).Seconds()),
		PluginsDiscovered: m.pluginsDiscovered.Load(),
		ToolsRegistered:   m.toolsRegistered.Load(),
		ToolCallsTotal:    m.toolCallsTotal.Load(),
		ToolCallsSuccess:  m.toolCallsSuccess.Load(),
		ToolCallsError:    m.toolCallsError.Load(),
	}
}

// Handler returns an HTTP handler for the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
