package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "sognipet",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sognipet",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sognipet",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	generations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sognipet",
			Subsystem: "generate",
			Name:      "requests_total",
			Help:      "Total number of image generation requests.",
		},
		[]string{"status"},
	)

	generationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sognipet",
			Subsystem: "generate",
			Name:      "duration_seconds",
			Help:      "Duration of image generation round trips.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10), // 500ms to ~4m
		},
		[]string{"status"},
	)

	pins = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sognipet",
			Subsystem: "pinning",
			Name:      "uploads_total",
			Help:      "Total number of IPFS pin operations.",
		},
		[]string{"kind", "status"},
	)

	mints = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sognipet",
			Subsystem: "mint",
			Name:      "transactions_total",
			Help:      "Total number of mint transactions by final status.",
		},
		[]string{"status"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		generations,
		generationDuration,
		pins,
		mints,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

// RecordGeneration records the outcome of one generation request.
func RecordGeneration(status string, duration time.Duration) {
	if duration <= 0 {
		duration = time.Millisecond
	}
	generations.WithLabelValues(status).Inc()
	generationDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordPin records one pin operation. kind is "file" or "json".
func RecordPin(kind, status string) {
	pins.WithLabelValues(kind, status).Inc()
}

// RecordMint records the final status of one mint transaction.
func RecordMint(status string) {
	mints.WithLabelValues(status).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// canonicalPath collapses per-address paths so the label set stays small.
func canonicalPath(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	switch parts[0] {
	case "gallery":
		return "/gallery/:address"
	case "premium":
		return "/premium/:address"
	default:
		return "/" + parts[0]
	}
}
