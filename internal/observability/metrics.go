package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/danmuck/wlcore/internal/protocol"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wlcore",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total admin HTTP requests.",
		},
		[]string{"server", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "wlcore",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Admin HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"server", "method", "path", "status"},
	)
	objectClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "wlcore",
			Subsystem: "objects",
			Name:      "clients",
			Help:      "Live protocol clients.",
		},
	)
	objectResources = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "wlcore",
			Subsystem: "objects",
			Name:      "resources",
			Help:      "Live protocol resources across all clients.",
		},
	)
	protocolErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wlcore",
			Name:      "protocol_errors_total",
			Help:      "Protocol errors posted to clients.",
		},
		[]string{"code"},
	)
	dispatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wlcore",
			Name:      "dispatch_total",
			Help:      "Requests dispatched to handlers.",
		},
		[]string{"interface", "message"},
	)
	xwaylandTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wlcore",
			Subsystem: "xwayland",
			Name:      "transitions_total",
			Help:      "Xwayland bridge state transitions.",
		},
		[]string{"state"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			objectClients,
			objectResources,
			protocolErrors,
			dispatches,
			xwaylandTransitions,
		)
	})
}

func RecordHTTPRequest(server, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(server, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(server, method, path, statusLabel).Observe(duration.Seconds())
}

// AddClients moves the live client gauge by delta.
func AddClients(delta int) {
	RegisterMetrics()
	objectClients.Add(float64(delta))
}

// AddResources moves the live resource gauge by delta.
func AddResources(delta int) {
	RegisterMetrics()
	objectResources.Add(float64(delta))
}

func RecordProtocolError(err error) {
	RegisterMetrics()
	protocolErrors.WithLabelValues(protocol.ErrorLabel(err)).Inc()
}

func RecordDispatch(iface, message string) {
	RegisterMetrics()
	dispatches.WithLabelValues(iface, message).Inc()
}

func RecordXwaylandTransition(state string) {
	RegisterMetrics()
	xwaylandTransitions.WithLabelValues(state).Inc()
}
