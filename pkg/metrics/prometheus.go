// Package metrics provides Prometheus metrics for the echo feedback pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns all Prometheus collectors for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	registry         *prometheus.Registry

	// Submission lifecycle
	submissionsCreated  prometheus.Counter
	submissionOutcomes  *prometheus.CounterVec
	triageVerdicts      *prometheus.CounterVec
	estimateRejections  *prometheus.CounterVec
	deltasComputed      prometheus.Counter

	// Stage performance
	stageLatency   *prometheus.HistogramVec
	stageRetries   *prometheus.CounterVec
	coldStarts     prometheus.Counter
	staleDiscards  prometheus.Counter
	clipBytesRead  prometheus.Counter
	framesDecoded  prometheus.Counter

	// Operational health
	queueSize     prometheus.Gauge
	queueCapacity prometheus.Gauge
	workerCount   prometheus.Gauge
	activeRuns    prometheus.Gauge

	// HTTP surface
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global manager backed by a private registry so default Go collectors do not
// leak into the scrape output.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager()
}

// NewManager creates a metrics manager with the given options.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "echonet",
		subsystem:        "pipeline",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		registry:         prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initCollectors()
	return m
}

func (m *Manager) initCollectors() {
	factory := promauto.With(m.registry)

	m.submissionsCreated = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "submissions_created_total",
		Help: "Submissions accepted for processing.",
	})
	m.submissionOutcomes = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "submission_outcomes_total",
		Help: "Terminal submission outcomes by status and error kind.",
	}, []string{"status", "kind"})
	m.triageVerdicts = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "triage_verdicts_total",
		Help: "Triage verdicts by value.",
	}, []string{"verdict"})
	m.estimateRejections = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "estimate_rejections_total",
		Help: "Rejected blind estimate writes by reason.",
	}, []string{"reason"})
	m.deltasComputed = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "deltas_computed_total",
		Help: "Reveal deltas computed for blinded submissions.",
	})

	m.stageLatency = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "stage_latency_ms",
		Help:    "Per-stage processing latency in milliseconds.",
		Buckets: m.histogramBuckets,
	}, []string{"stage"})
	m.stageRetries = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "stage_retries_total",
		Help: "Transient-failure retries by stage.",
	}, []string{"stage"})
	m.coldStarts = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "quantifier_cold_starts_total",
		Help: "Quantifier calls answered with a provisioning response.",
	})
	m.staleDiscards = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "stale_results_discarded_total",
		Help: "Quantification responses discarded because a result was already committed.",
	})
	m.clipBytesRead = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "clip_bytes_read_total",
		Help: "Raw clip bytes fetched from clip sources.",
	})
	m.framesDecoded = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "frames_decoded_total",
		Help: "Frames produced by the ingestion normalizer.",
	})

	m.queueSize = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "run_queue_size",
		Help: "Submissions waiting in the run queue.",
	})
	m.queueCapacity = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "run_queue_capacity",
		Help: "Configured capacity of the run queue.",
	})
	m.workerCount = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "worker_count",
		Help: "Configured number of pipeline workers.",
	})
	m.activeRuns = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "active_runs",
		Help: "Pipeline runs currently executing.",
	})

	m.httpRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "http_requests_total",
		Help: "HTTP requests by endpoint, method and status code.",
	}, []string{"endpoint", "method", "status"})
	m.httpRequestDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "http_request_duration_ms",
		Help:    "HTTP request duration in milliseconds.",
		Buckets: m.histogramBuckets,
	}, []string{"endpoint"})
}

// Handler exposes the manager's registry for scraping.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Handler exposes the global registry for scraping.
func Handler() http.Handler { return globalManager.Handler() }

// Package-level recording helpers delegating to the global manager.

func RecordSubmissionCreated() {
	if globalManager.enabled {
		globalManager.submissionsCreated.Inc()
	}
}

func RecordOutcome(status, kind string) {
	if globalManager.enabled {
		globalManager.submissionOutcomes.WithLabelValues(status, kind).Inc()
	}
}

func RecordTriageVerdict(verdict string) {
	if globalManager.enabled {
		globalManager.triageVerdicts.WithLabelValues(verdict).Inc()
	}
}

func RecordEstimateRejected(reason string) {
	if globalManager.enabled {
		globalManager.estimateRejections.WithLabelValues(reason).Inc()
	}
}

func RecordDeltaComputed() {
	if globalManager.enabled {
		globalManager.deltasComputed.Inc()
	}
}

func RecordStageLatency(stage string, ms float64) {
	if globalManager.enabled {
		globalManager.stageLatency.WithLabelValues(stage).Observe(ms)
	}
}

func RecordStageRetry(stage string) {
	if globalManager.enabled {
		globalManager.stageRetries.WithLabelValues(stage).Inc()
	}
}

func RecordColdStart() {
	if globalManager.enabled {
		globalManager.coldStarts.Inc()
	}
}

func RecordStaleResultDiscarded() {
	if globalManager.enabled {
		globalManager.staleDiscards.Inc()
	}
}

func RecordClipBytes(n int) {
	if globalManager.enabled && n > 0 {
		globalManager.clipBytesRead.Add(float64(n))
	}
}

func RecordFramesDecoded(n int) {
	if globalManager.enabled && n > 0 {
		globalManager.framesDecoded.Add(float64(n))
	}
}

func UpdateQueueSize(n int) {
	if globalManager.enabled {
		globalManager.queueSize.Set(float64(n))
	}
}

func UpdateQueueCapacity(n int) {
	if globalManager.enabled {
		globalManager.queueCapacity.Set(float64(n))
	}
}

func UpdateWorkerCount(n int) {
	if globalManager.enabled {
		globalManager.workerCount.Set(float64(n))
	}
}

func UpdateActiveRuns(n int) {
	if globalManager.enabled {
		globalManager.activeRuns.Set(float64(n))
	}
}

func RecordHTTPRequest(endpoint, method, status string) {
	if globalManager.enabled {
		globalManager.httpRequests.WithLabelValues(endpoint, method, status).Inc()
	}
}

func RecordHTTPDuration(endpoint string, ms float64) {
	if globalManager.enabled {
		globalManager.httpRequestDuration.WithLabelValues(endpoint).Observe(ms)
	}
}
