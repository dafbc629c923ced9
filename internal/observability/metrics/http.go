package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "plateplanner"

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	pipelineResultsTotal    *prometheus.CounterVec
	pipelineDuration        *prometheus.HistogramVec
	pipelineRecommendations *prometheus.HistogramVec
	retrievalReady          prometheus.Gauge
	llmGenerationsTotal     *prometheus.CounterVec
	assistantRequestsTotal  *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()
	serviceLabel := prometheus.Labels{"service": service}

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "http",
			Name:        "in_flight_requests",
			Help:        "Number of in-flight HTTP requests.",
			ConstLabels: serviceLabel,
		},
	)
	pipelineResultsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "results_total",
			Help:      "Recommendation pipeline outcomes by status and the stage that produced them.",
		},
		[]string{"service", "status", "stage"},
	)
	pipelineDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Recommendation pipeline duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 40},
		},
		[]string{"service", "status"},
	)
	pipelineRecommendations := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "recommendations",
			Help:      "Number of recommendations returned per request.",
			Buckets:   []float64{0, 1, 2, 3, 4, 5, 10},
		},
		[]string{"service"},
	)
	retrievalReady := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "retrieval",
			Name:        "ready",
			Help:        "1 when the embedding model and vector index passed warmup.",
			ConstLabels: serviceLabel,
		},
	)
	llmGenerationsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "llm",
			Name:        "generations_total",
			Help:        "Language model generations by provider and outcome.",
			ConstLabels: serviceLabel,
		},
		[]string{"provider", "status"},
	)
	assistantRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "assistant",
			Name:      "requests_total",
			Help:      "AI assistant requests by endpoint.",
		},
		[]string{"service", "endpoint", "provider"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		pipelineResultsTotal,
		pipelineDuration,
		pipelineRecommendations,
		retrievalReady,
		llmGenerationsTotal,
		assistantRequestsTotal,
	)

	return &HTTPServerMetrics{
		registry:                registry,
		requestTotal:            requestTotal,
		requestDuration:         requestDuration,
		requestInFlight:         requestInFlight,
		pipelineResultsTotal:    pipelineResultsTotal,
		pipelineDuration:        pipelineDuration,
		pipelineRecommendations: pipelineRecommendations,
		retrievalReady:          retrievalReady,
		llmGenerationsTotal:     llmGenerationsTotal,
		assistantRequestsTotal:  assistantRequestsTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// normalizePath keeps label cardinality bounded for unknown paths.
func normalizePath(path string) string {
	if strings.HasPrefix(path, "/mcp") {
		return "/mcp"
	}
	switch path {
	case "/v1/recommend/hybrid",
		"/v1/ai/adapt-recipe",
		"/v1/ai/explain-substitution",
		"/v1/ai/meal-plan",
		"/v1/ai/cooking-tips",
		"/v1/substitutions",
		"/v1/substitutions/pantry",
		"/v1/dietary/classify",
		"/healthz", "/readyz", "/metrics":
		return path
	default:
		return "other"
	}
}

// RecordPipeline stores one pipeline outcome. stage names the stage that
// ended the run, "complete" for a successful run.
func (m *HTTPServerMetrics) RecordPipeline(service, status, stage string, recommendations int, duration time.Duration) {
	if status == "" {
		status = "unknown"
	}
	if stage == "" {
		stage = "unknown"
	}
	m.pipelineResultsTotal.WithLabelValues(service, status, stage).Inc()
	m.pipelineDuration.WithLabelValues(service, status).Observe(duration.Seconds())
	m.pipelineRecommendations.WithLabelValues(service).Observe(float64(recommendations))
}

func (m *HTTPServerMetrics) SetRetrievalReady(ready bool) {
	if ready {
		m.retrievalReady.Set(1)
		return
	}
	m.retrievalReady.Set(0)
}

func (m *HTTPServerMetrics) RecordLLMGeneration(provider, status string) {
	if provider == "" {
		provider = "unknown"
	}
	m.llmGenerationsTotal.WithLabelValues(provider, status).Inc()
}

func (m *HTTPServerMetrics) RecordAssistantRequest(service, endpoint, provider string) {
	if provider == "" {
		provider = "unknown"
	}
	m.assistantRequestsTotal.WithLabelValues(service, endpoint, provider).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}
