package metrics

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/devrev/swissmatch/internal/algorithm"
	apperrors "github.com/devrev/swissmatch/internal/errors"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec
	RequestsInFlight    prometheus.Gauge

	// Tournament metrics
	TournamentsActive  prometheus.Gauge
	TournamentsCreated prometheus.Counter
	Checkouts          *prometheus.CounterVec
	Commits            *prometheus.CounterVec

	// Pairing metrics
	RoundsGenerated *prometheus.CounterVec
	RoundDuration   prometheus.Histogram
	RearrangesTotal prometheus.Counter
	RepeatedMatches prometheus.Counter
	PairingFailures *prometheus.CounterVec

	// Persistence metrics
	SnapshotsSaved   *prometheus.CounterVec
	SnapshotDuration prometheus.Histogram
	IdempotencyHits  prometheus.Counter

	// Health
	HealthStatus prometheus.Gauge
}

// NewMetrics creates Prometheus metrics registered with reg. A nil reg
// uses the default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "swissd_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "swissd_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		HTTPResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "swissd_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 6),
			},
			[]string{"method", "path"},
		),

		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "swissd_http_requests_in_flight",
				Help: "Current number of HTTP requests being processed",
			},
		),

		TournamentsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "swissd_tournaments_active",
				Help: "Number of tournaments held in memory",
			},
		),

		TournamentsCreated: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "swissd_tournaments_created_total",
				Help: "Total number of tournaments created",
			},
		),

		Checkouts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "swissd_checkouts_total",
				Help: "Total number of checkout attempts by outcome",
			},
			[]string{"outcome"},
		),

		Commits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "swissd_commits_total",
				Help: "Total number of commit attempts by outcome",
			},
			[]string{"outcome"},
		),

		RoundsGenerated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "swissd_rounds_generated_total",
				Help: "Total number of rounds generated by the strategy that completed them",
			},
			[]string{"strategy"},
		),

		RoundDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "swissd_round_generation_duration_seconds",
				Help:    "Time spent pairing a round",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
			},
		),

		RearrangesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "swissd_hard_rearranges_total",
				Help: "Total number of hard rearrangements performed",
			},
		),

		RepeatedMatches: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "swissd_repeated_matches_total",
				Help: "Total number of repeated matches synthesized",
			},
		),

		PairingFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "swissd_pairing_failures_total",
				Help: "Total number of rounds that could not be paired",
			},
			[]string{"code"},
		),

		SnapshotsSaved: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "swissd_snapshots_saved_total",
				Help: "Total number of snapshot writes by status",
			},
			[]string{"status"},
		),

		SnapshotDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "swissd_snapshot_flush_duration_seconds",
				Help:    "Duration of a snapshot flush",
				Buckets: prometheus.DefBuckets,
			},
		),

		IdempotencyHits: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "swissd_idempotency_hits_total",
				Help: "Total number of commits answered from the idempotency cache",
			},
		),

		HealthStatus: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "swissd_health_status",
				Help: "Health status (1 = healthy, 0 = unhealthy)",
			},
		),
	}
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path string, statusCode int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordResponseSize records the HTTP response size
func (m *Metrics) RecordResponseSize(method, path string, size int) {
	m.HTTPResponseSize.WithLabelValues(method, path).Observe(float64(size))
}

// RecordCheckout records a checkout outcome: "ok" or the error code name
func (m *Metrics) RecordCheckout(err error) {
	m.Checkouts.WithLabelValues(outcome(err)).Inc()
}

// RecordCommit records a commit outcome
func (m *Metrics) RecordCommit(err error) {
	m.Commits.WithLabelValues(outcome(err)).Inc()
}

// RecordTournamentCreated counts a new tournament
func (m *Metrics) RecordTournamentCreated() {
	m.TournamentsCreated.Inc()
}

// SetTournamentsActive updates the in-memory tournament gauge
func (m *Metrics) SetTournamentsActive(n int) {
	m.TournamentsActive.Set(float64(n))
}

// RecordSnapshot records a snapshot write
func (m *Metrics) RecordSnapshot(err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.SnapshotsSaved.WithLabelValues(status).Inc()
}

// RecordSnapshotFlush records the duration of a flush
func (m *Metrics) RecordSnapshotFlush(duration time.Duration) {
	m.SnapshotDuration.Observe(duration.Seconds())
}

// RecordIdempotencyHit counts a replayed commit
func (m *Metrics) RecordIdempotencyHit() {
	m.IdempotencyHits.Inc()
}

// SetHealthStatus sets the health status gauge
func (m *Metrics) SetHealthStatus(healthy bool) {
	if healthy {
		m.HealthStatus.Set(1)
	} else {
		m.HealthStatus.Set(0)
	}
}

// OnRoundGenerated records how a round was paired
func (m *Metrics) OnRoundGenerated(tournamentID string, report algorithm.RoundReport) {
	m.RoundsGenerated.WithLabelValues(report.Strategy).Inc()
	m.RoundDuration.Observe(report.Duration.Seconds())
	m.RearrangesTotal.Add(float64(report.Rearranges))
	m.RepeatedMatches.Add(float64(report.Repeats))
}

// OnPairingFailed records a round that could not be paired
func (m *Metrics) OnPairingFailed(tournamentID string, round int, err error) {
	m.PairingFailures.WithLabelValues(apperrors.GetCode(err).String()).Inc()
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return apperrors.GetCode(err).String()
}

// MetricsServer provides a separate HTTP server for Prometheus metrics.
type MetricsServer struct {
	server *http.Server
	logger *zap.Logger
}

// NewMetricsServer creates a new metrics server. A nil gatherer serves the
// default registry.
func NewMetricsServer(port int, path string, gatherer prometheus.Gatherer, logger *zap.Logger) *MetricsServer {
	handler := promhttp.Handler()
	if gatherer != nil {
		handler = promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
	}

	router := http.NewServeMux()
	router.Handle(path, handler)

	return &MetricsServer{
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Start starts the metrics server.
func (ms *MetricsServer) Start() error {
	ms.logger.Info("Starting metrics server", zap.String("addr", ms.server.Addr))
	return ms.server.ListenAndServe()
}

// Shutdown gracefully shuts down the metrics server.
func (ms *MetricsServer) Shutdown(ctx context.Context) error {
	return ms.server.Shutdown(ctx)
}

// MetricsMiddleware creates middleware that records HTTP metrics. Paths are
// labelled by route template to keep cardinality bounded.
func MetricsMiddleware(m *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m.RequestsInFlight.Inc()
			defer m.RequestsInFlight.Dec()

			start := time.Now()
			rw := &metricsResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			path := routeTemplate(r)
			m.RecordHTTPRequest(r.Method, path, rw.statusCode, time.Since(start))
			m.RecordResponseSize(r.Method, path, rw.size)
		})
	}
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

// metricsResponseWriter wraps http.ResponseWriter to capture metrics.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
	size       int
}

// WriteHeader captures the status code.
func (rw *metricsResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Write captures the response size.
func (rw *metricsResponseWriter) Write(b []byte) (int, error) {
	size, err := rw.ResponseWriter.Write(b)
	rw.size += size
	return size, err
}
