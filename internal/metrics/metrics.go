// Package metrics exposes Prometheus collectors for ingestion, state
// transitions, sheet exports and HTTP traffic.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"feetax/internal/store"
)

const namespace = "feetax"

type Metrics struct {
	registry *prometheus.Registry

	batches     prometheus.Counter
	rows        *prometheus.CounterVec
	records     prometheus.Gauge
	revision    prometheus.Gauge
	transitions *prometheus.CounterVec
	exports     *prometheus.CounterVec
	httpReqs    *prometheus.CounterVec
	httpLatency *prometheus.HistogramVec

	mu        sync.Mutex
	lastBatch string
}

var _ store.Observer = (*Metrics)(nil)

// New registers all collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		batches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "ingest_batches_total",
			Help: "Ingestion batches committed to the store.",
		}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "ingest_rows_total",
			Help: "Rows seen by ingestion, by outcome.",
		}, []string{"result"}),
		records: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "records",
			Help: "Records currently held by the store.",
		}),
		revision: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "state_revision",
			Help: "Current state revision.",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "state_transitions_total",
			Help: "Store transitions by action.",
		}, []string{"action"}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "sheet_exports_total",
			Help: "Record exports by status.",
		}, []string{"status"}),
		httpReqs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.batches, m.rows, m.records, m.revision, m.transitions, m.exports, m.httpReqs, m.httpLatency,
	)
	return m
}

// Registry returns the registry for tests and custom handlers.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// StateChanged records a store transition. Row counters move once per batch,
// not on reprocessing.
func (m *Metrics) StateChanged(_ context.Context, ev store.Event) {
	m.transitions.WithLabelValues(ev.Action).Inc()
	m.records.Set(float64(len(ev.State.Records)))
	m.revision.Set(float64(ev.State.Revision))

	b := ev.State.LastBatch
	if b == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if b.ID == m.lastBatch {
		return
	}
	m.lastBatch = b.ID
	m.batches.Inc()
	m.rows.WithLabelValues("accepted").Add(float64(b.Accepted))
	m.rows.WithLabelValues("rejected").Add(float64(b.Rejected))
}

// ObserveExport counts one export attempt.
func (m *Metrics) ObserveExport(status string) {
	m.exports.WithLabelValues(status).Inc()
}

// Middleware records request counts and latency. route should be the
// registered pattern, not the raw path, to keep label cardinality bounded.
func (m *Metrics) Middleware(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		m.httpReqs.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		m.httpLatency.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
