// internal/monitoring/metrics.go
package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsManager manages Prometheus metrics for ActivityScrapexter. Each
// manager owns its registry, so several can coexist in one process.
type MetricsManager struct {
	registry *prometheus.Registry

	// Interception metrics
	payloadsReceived *prometheus.CounterVec
	recordsParsed    prometheus.Counter
	parseFailures    prometheus.Counter

	// Pool metrics
	recordsInserted prometheus.Counter
	poolSize        prometheus.Gauge

	// Scroll metrics
	scrollTicks    prometheus.Counter
	scrollSessions *prometheus.CounterVec
	scrollActive   prometheus.Gauge

	// Extraction metrics
	extractions    *prometheus.CounterVec
	extractionTime prometheus.Histogram
	recordsInRange prometheus.Gauge

	// Output metrics
	outputSuccess  *prometheus.CounterVec
	outputErrors   *prometheus.CounterVec
	recordsWritten *prometheus.CounterVec

	namespace string
	subsystem string
}

// MetricsConfig configuration for metrics
type MetricsConfig struct {
	Enabled         bool   `yaml:"enabled" json:"enabled"`
	Namespace       string `yaml:"namespace" json:"namespace"`
	Subsystem       string `yaml:"subsystem" json:"subsystem"`
	EnableGoMetrics bool   `yaml:"go_metrics" json:"go_metrics"`
}

// NewMetricsManager creates a new metrics manager
func NewMetricsManager(config MetricsConfig) *MetricsManager {
	if config.Namespace == "" {
		config.Namespace = "activityscrapexter"
	}
	if config.Subsystem == "" {
		config.Subsystem = "session"
	}

	mm := &MetricsManager{
		registry:  prometheus.NewRegistry(),
		namespace: config.Namespace,
		subsystem: config.Subsystem,
	}

	if config.EnableGoMetrics {
		mm.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	mm.initializeMetrics()

	return mm
}

// initializeMetrics initializes all Prometheus metrics
func (mm *MetricsManager) initializeMetrics() {
	factory := promauto.With(mm.registry)

	mm.payloadsReceived = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: mm.namespace,
			Subsystem: mm.subsystem,
			Name:      "payloads_received_total",
			Help:      "Total number of intercepted history payloads",
		},
		[]string{"source"},
	)

	mm.recordsParsed = factory.NewCounter(prometheus.CounterOpts{
		Namespace: mm.namespace,
		Subsystem: mm.subsystem,
		Name:      "records_parsed_total",
		Help:      "Total number of records decoded from payloads",
	})

	mm.parseFailures = factory.NewCounter(prometheus.CounterOpts{
		Namespace: mm.namespace,
		Subsystem: mm.subsystem,
		Name:      "parse_failures_total",
		Help:      "Total number of payload entries skipped as malformed",
	})

	mm.recordsInserted = factory.NewCounter(prometheus.CounterOpts{
		Namespace: mm.namespace,
		Subsystem: mm.subsystem,
		Name:      "records_inserted_total",
		Help:      "Total number of records newly added to the pool",
	})

	mm.poolSize = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: mm.namespace,
		Subsystem: mm.subsystem,
		Name:      "pool_size",
		Help:      "Number of unique records in the pool",
	})

	mm.scrollTicks = factory.NewCounter(prometheus.CounterOpts{
		Namespace: mm.namespace,
		Subsystem: mm.subsystem,
		Name:      "scroll_ticks_total",
		Help:      "Total number of scroll polling ticks",
	})

	mm.scrollSessions = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: mm.namespace,
			Subsystem: mm.subsystem,
			Name:      "scroll_sessions_total",
			Help:      "Total number of finished scroll sessions by stop reason",
		},
		[]string{"reason"},
	)

	mm.scrollActive = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: mm.namespace,
		Subsystem: mm.subsystem,
		Name:      "scroll_active",
		Help:      "1 while a scroll session is running",
	})

	mm.extractions = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: mm.namespace,
			Subsystem: mm.subsystem,
			Name:      "extractions_total",
			Help:      "Total number of extractions by method",
		},
		[]string{"method"},
	)

	mm.extractionTime = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: mm.namespace,
		Subsystem: mm.subsystem,
		Name:      "extraction_duration_seconds",
		Help:      "Extraction duration in seconds",
		Buckets:   prometheus.DefBuckets,
	})

	mm.recordsInRange = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: mm.namespace,
		Subsystem: mm.subsystem,
		Name:      "records_in_range",
		Help:      "Number of records in the last extraction result",
	})

	mm.outputSuccess = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: mm.namespace,
			Subsystem: "output",
			Name:      "success_total",
			Help:      "Total number of successful exports",
		},
		[]string{"format"},
	)

	mm.outputErrors = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: mm.namespace,
			Subsystem: "output",
			Name:      "errors_total",
			Help:      "Total number of failed exports",
		},
		[]string{"format"},
	)

	mm.recordsWritten = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: mm.namespace,
			Subsystem: "output",
			Name:      "records_written_total",
			Help:      "Total number of records written",
		},
		[]string{"format"},
	)
}

// Interception metrics
func (mm *MetricsManager) RecordPayload(source string, parsed, failures int) {
	if source == "" {
		source = "unknown"
	}
	mm.payloadsReceived.WithLabelValues(source).Inc()
	mm.recordsParsed.Add(float64(parsed))
	mm.parseFailures.Add(float64(failures))
}

// Pool metrics
func (mm *MetricsManager) RecordInserted(inserted, poolSize int) {
	mm.recordsInserted.Add(float64(inserted))
	mm.poolSize.Set(float64(poolSize))
}

// Scroll metrics
func (mm *MetricsManager) RecordScrollStart() {
	mm.scrollActive.Set(1)
}

func (mm *MetricsManager) RecordScrollFinished(reason string, ticks int) {
	mm.scrollActive.Set(0)
	mm.scrollTicks.Add(float64(ticks))
	mm.scrollSessions.WithLabelValues(reason).Inc()
}

// Extraction metrics
func (mm *MetricsManager) RecordExtraction(method string, inRange int, duration time.Duration) {
	mm.extractions.WithLabelValues(method).Inc()
	mm.extractionTime.Observe(duration.Seconds())
	mm.recordsInRange.Set(float64(inRange))
}

// Output metrics
func (mm *MetricsManager) RecordOutputSuccess(format string, records int) {
	mm.outputSuccess.WithLabelValues(format).Inc()
	mm.recordsWritten.WithLabelValues(format).Add(float64(records))
}

func (mm *MetricsManager) RecordOutputError(format string) {
	mm.outputErrors.WithLabelValues(format).Inc()
}

// Registry exposes the underlying registry for tests and custom collectors.
func (mm *MetricsManager) Registry() *prometheus.Registry {
	return mm.registry
}

// MetricsHandler returns an HTTP handler for metrics endpoint
func (mm *MetricsManager) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(mm.registry, promhttp.HandlerOpts{Registry: mm.registry})
}
