// Package metrics provides Prometheus metrics for the fakemeh session engine.
package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Submission outcome label values.
const (
	OutcomeSucceeded    = "succeeded"
	OutcomeFailed       = "failed"
	OutcomeMissingGuess = "missing_guess"
	OutcomeRejected     = "rejected"
)

// Manager manages all Prometheus metrics for the session engine.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Session metrics
	submissions     *prometheus.CounterVec
	analysisLatency prometheus.Histogram
	guesses         *prometheus.CounterVec
	heatmapRenders  *prometheus.CounterVec
	sessionPhase    prometheus.Gauge
	mailboxDepth    prometheus.Gauge

	// Progression metrics
	points             prometheus.Gauge
	streak             prometheus.Gauge
	checksCompleted    prometheus.Gauge
	badgesUnlocked     *prometheus.CounterVec
	leaderboardInserts prometheus.Counter
	storeWriteLatency  prometheus.Histogram

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error metrics
	errorsByComponent *prometheus.CounterVec
}

// Global metrics manager and the registry it is registered on.
var (
	globalManager  atomic.Pointer[Manager]             //nolint:gochecknoglobals // singleton metrics manager
	customRegistry atomic.Pointer[prometheus.Registry] //nolint:gochecknoglobals // registry behind GetRegistry
)

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	Configure()
}

// Configure replaces the global manager with one built from opts on a fresh
// registry. Call it before exposing GetRegistry; handlers built earlier keep
// serving the previous registry.
func Configure(opts ...Option) {
	registry := prometheus.NewRegistry()
	m := NewManager(append(opts, WithPrometheusRegistry(registry))...)
	customRegistry.Store(registry)
	globalManager.Store(m)
}

func current() *Manager {
	return globalManager.Load()
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "fakemeh",
		subsystem:        "session",
		histogramBuckets: prometheus.DefBuckets,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric definition
	auto := promauto.With(m.registry)

	m.submissions = auto.NewCounterVec(
		m.counterOpts("submissions_total", "Analysis submissions by outcome"),
		[]string{"outcome"},
	)
	m.analysisLatency = auto.NewHistogram(m.histogramOpts(
		"analysis_latency_milliseconds",
		"Round trip to the analysis backend in milliseconds",
		[]float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
	))
	m.guesses = auto.NewCounterVec(
		m.counterOpts("guesses_total", "Scored guesses by correctness"),
		[]string{"correct"},
	)
	m.heatmapRenders = auto.NewCounterVec(
		m.counterOpts("heatmap_renders_total", "Heatmap renders by result"),
		[]string{"result"},
	)
	m.sessionPhase = auto.NewGauge(m.gaugeOpts("phase", "Current session phase ordinal"))
	m.mailboxDepth = auto.NewGauge(m.gaugeOpts("mailbox_depth", "Commands waiting for the session loop"))

	m.points = auto.NewGauge(m.gaugeOpts("points", "Accumulated points"))
	m.streak = auto.NewGauge(m.gaugeOpts("streak", "Current correct-guess streak"))
	m.checksCompleted = auto.NewGauge(m.gaugeOpts("checks_completed", "Completed analyses"))
	m.badgesUnlocked = auto.NewCounterVec(
		m.counterOpts("badges_unlocked_total", "Badges unlocked by name"),
		[]string{"badge"},
	)
	m.leaderboardInserts = auto.NewCounter(m.counterOpts("leaderboard_inserts_total", "Leaderboard insertions"))
	m.storeWriteLatency = auto.NewHistogram(m.histogramOpts(
		"store_write_latency_milliseconds",
		"Progression store write latency in milliseconds",
		m.histogramBuckets,
	))

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "HTTP requests by endpoint, method and status"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorsByComponent = auto.NewCounterVec(
		m.counterOpts("errors_total", "Errors by component and type"),
		[]string{"component", "error_type"},
	)
}

// RecordSubmission counts a submission attempt by outcome.
func RecordSubmission(outcome string) {
	current().submissions.WithLabelValues(outcome).Inc()
}

// RecordAnalysisLatency records a backend round trip in milliseconds.
func RecordAnalysisLatency(latencyMs float64) {
	current().analysisLatency.Observe(latencyMs)
}

// RecordGuess counts a scored guess.
func RecordGuess(correct bool) {
	label := "false"
	if correct {
		label = "true"
	}
	current().guesses.WithLabelValues(label).Inc()
}

// RecordHeatmapRender counts a heatmap render by result: painted, fallback or failed.
func RecordHeatmapRender(result string) {
	current().heatmapRenders.WithLabelValues(result).Inc()
}

// UpdateSessionPhase sets the current session phase.
func UpdateSessionPhase(phase int) {
	current().sessionPhase.Set(float64(phase))
}

// UpdateMailboxDepth sets the number of queued session commands.
func UpdateMailboxDepth(depth int) {
	current().mailboxDepth.Set(float64(depth))
}

// UpdateProgression sets the progression gauges.
func UpdateProgression(points, streak, checks int) {
	current().points.Set(float64(points))
	current().streak.Set(float64(streak))
	current().checksCompleted.Set(float64(checks))
}

// RecordBadgeUnlocked counts a newly unlocked badge.
func RecordBadgeUnlocked(badge string) {
	current().badgesUnlocked.WithLabelValues(badge).Inc()
}

// RecordLeaderboardInsert counts a leaderboard insertion.
func RecordLeaderboardInsert() {
	current().leaderboardInserts.Inc()
}

// RecordStoreWriteLatency records a store write in milliseconds.
func RecordStoreWriteLatency(latencyMs float64) {
	current().storeWriteLatency.Observe(latencyMs)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	current().httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	current().httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent counts an error raised by component.
func RecordErrorByComponent(component, errorType string) {
	current().errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom registry the global metrics are registered on.
func GetRegistry() *prometheus.Registry {
	return customRegistry.Load()
}
