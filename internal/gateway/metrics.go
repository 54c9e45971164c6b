package gateway

import (
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks gateway-level counters using atomic operations for
// lock-free concurrency. It is registered as the "gateway.metrics" service.
type Metrics struct {
	questions    atomic.Int64
	queries      atomic.Int64
	toolCalls    atomic.Int64
	errors       atomic.Int64
	totalTokens  atomic.Int64
	totalLatency atomic.Int64 // nanoseconds
}

// RecordQuestion records one completed model exchange.
func (m *Metrics) RecordQuestion(tokens int64, toolCalls int, latency time.Duration) {
	m.questions.Add(1)
	m.toolCalls.Add(int64(toolCalls))
	m.totalTokens.Add(tokens)
	m.totalLatency.Add(int64(latency))
}

// RecordQuery records one submitted SQL job.
func (m *Metrics) RecordQuery() {
	m.queries.Add(1)
}

// RecordError records a processing error.
func (m *Metrics) RecordError() {
	m.errors.Add(1)
}

// Snapshot returns a consistent point-in-time view of the counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	questions := m.questions.Load()
	snap := MetricsSnapshot{
		Questions:   questions,
		Queries:     m.queries.Load(),
		ToolCalls:   m.toolCalls.Load(),
		Errors:      m.errors.Load(),
		TotalTokens: m.totalTokens.Load(),
	}
	if questions > 0 {
		snap.AvgLatency = time.Duration(m.totalLatency.Load() / questions)
	}
	return snap
}

// MetricsSnapshot is a serializable point-in-time metrics view.
type MetricsSnapshot struct {
	Questions   int64         `json:"questions"`
	Queries     int64         `json:"queries"`
	ToolCalls   int64         `json:"tool_calls"`
	Errors      int64         `json:"errors"`
	TotalTokens int64         `json:"total_tokens"`
	AvgLatency  time.Duration `json:"avg_latency_ns"`
}

// collectors holds the Prometheus instrumentation. Each Gateway instance
// owns its registry so repeated module construction never double-registers.
type collectors struct {
	registry  *prometheus.Registry
	requests  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	toolCalls prometheus.Counter
	tokens    *prometheus.CounterVec
}

func newCollectors() *collectors {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &collectors{
		registry: reg,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dmc_http_requests_total",
			Help: "HTTP requests served, by route pattern and status code.",
		}, []string{"path", "code"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dmc_http_request_duration_seconds",
			Help:    "HTTP request latency, by route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"path"}),
		toolCalls: factory.NewCounter(prometheus.CounterOpts{
			Name: "dmc_tool_calls_total",
			Help: "Tool invocations issued by the model loop.",
		}),
		tokens: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dmc_model_tokens_total",
			Help: "Model tokens consumed, by direction.",
		}, []string{"direction"}),
	}
}

// instrument is chi middleware recording per-route request counts and
// latencies against the gateway's registry.
func (c *collectors) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		path := chi.RouteContext(r.Context()).RoutePattern()
		if path == "" {
			path = r.URL.Path
		}
		c.requests.WithLabelValues(path, strconv.Itoa(sw.code)).Inc()
		c.duration.WithLabelValues(path).Observe(time.Since(start).Seconds())
	})
}

// statusWriter captures the response status code for instrumentation.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
