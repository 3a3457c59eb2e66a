// Package metrics exposes Prometheus counters and gauges for the runtime:
// requests handled, bytes in/out, active connections, rate-limit
// rejections, and open WebSocket connections. Uses promauto-registered
// Counter/CounterVec/Gauge types under a namespace/subsystem pair per metric
// family.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "spider"

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total requests handled, by method and response status class.",
		},
		[]string{"method", "status"},
	)

	BytesIn = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "bytes_in_total",
			Help:      "Total request bytes read from client connections.",
		},
	)

	BytesOut = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "bytes_out_total",
			Help:      "Total response bytes written to client connections.",
		},
	)

	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "conn",
			Name:      "active_connections",
			Help:      "Currently open client connections.",
		},
	)

	RateLimitRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "middleware",
			Name:      "rate_limit_rejections_total",
			Help:      "Requests rejected by the RateLimit middleware, by algorithm.",
		},
		[]string{"algorithm"},
	)

	WebSocketConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ws",
			Name:      "connections_open",
			Help:      "Currently open WebSocket connections.",
		},
	)
)

// ObserveRequest records one completed request: status is the raw HTTP
// status code, bucketed into its class (2xx, 3xx, ...) to keep the status
// label's cardinality bounded.
func ObserveRequest(method string, status int) {
	RequestsTotal.WithLabelValues(method, statusClass(status)).Inc()
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
