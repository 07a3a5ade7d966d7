package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	RequestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orchestrator_requests_total",
			Help: "Total orchestrator requests by method, endpoint and status",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "orchestrator_request_duration_seconds",
			Help:    "Orchestrator request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Infrastructure metrics
	ActiveNodes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_nodes",
			Help: "Number of healthy registered nodes",
		},
	)

	ActiveContainers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_containers",
			Help: "Number of running containers",
		},
	)

	WebSocketConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Number of active WebSocket terminal connections",
		},
	)

	// Managed service metrics
	ActiveBucketServices = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_bucket_services",
			Help: "Number of healthy bucket services",
		},
	)

	ActiveDBServices = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_db_services",
			Help: "Number of healthy database services",
		},
	)

	ActiveNoSQLServices = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_nosql_services",
			Help: "Number of healthy NoSQL services",
		},
	)

	ActiveQueueServices = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_queue_services",
			Help: "Number of healthy queue services",
		},
	)

	ActiveSecretsServices = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_secrets_services",
			Help: "Number of healthy secrets services",
		},
	)
)

func init() {
	prometheus.MustRegister(RequestCount)
	prometheus.MustRegister(RequestLatency)
	prometheus.MustRegister(ActiveNodes)
	prometheus.MustRegister(ActiveContainers)
	prometheus.MustRegister(WebSocketConnections)
	prometheus.MustRegister(ActiveBucketServices)
	prometheus.MustRegister(ActiveDBServices)
	prometheus.MustRegister(ActiveNoSQLServices)
	prometheus.MustRegister(ActiveQueueServices)
	prometheus.MustRegister(ActiveSecretsServices)
}

// ServiceGauge returns the healthy-count gauge for a managed service kind.
// Returns nil for unknown kinds.
func ServiceGauge(kind string) prometheus.Gauge {
	switch kind {
	case "bucket":
		return ActiveBucketServices
	case "db":
		return ActiveDBServices
	case "nosql":
		return ActiveNoSQLServices
	case "queue":
		return ActiveQueueServices
	case "secrets":
		return ActiveSecretsServices
	}
	return nil
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer measures elapsed time for a histogram observation. The front
// door uses one per request.
type Timer struct {
	start time.Time
}

// NewTimer starts a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer started
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration records the elapsed time in the given histogram
func (t *Timer) ObserveDuration(h prometheus.Histogram) {
	h.Observe(t.Duration().Seconds())
}
