package metrics

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "console_"

	resultSuccess = "success"
	resultError   = "error"

	labelResultOverride = "override"
	labelResultHit      = "hit"
	labelResultMiss     = "miss"
)

var (
	registerOnce sync.Once

	labelLookups *prometheus.CounterVec

	ingestRequests *prometheus.CounterVec
	ingestErrors   *prometheus.CounterVec
	ingestLatency  *prometheus.HistogramVec

	streamClients   prometheus.Gauge
	streamDelivered *prometheus.CounterVec

	exportTotal   *prometheus.CounterVec
	exportLatency *prometheus.HistogramVec
)

// Init registers observability metrics and DB-backed gauges.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		labelLookups = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "label_lookups_total",
				Help: "Total label lookups by result",
			},
			[]string{"result"},
		)

		ingestRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_requests_total",
				Help: "Total snapshot ingest requests by result",
			},
			[]string{"result"},
		)
		ingestErrors = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_errors_total",
				Help: "Total snapshot ingest errors by reason",
			},
			[]string{"reason"},
		)
		ingestLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "ingest_latency_seconds",
				Help:    "Snapshot ingest latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		streamClients = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "stream_clients",
				Help: "Connected live stream clients",
			},
		)
		streamDelivered = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "stream_messages_total",
				Help: "Live stream messages by outcome",
			},
			[]string{"outcome"},
		)

		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "field_export_total",
				Help: "Total field table exports by format and result",
			},
			[]string{"format", "result"},
		)
		exportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "field_export_latency_seconds",
				Help:    "Field table export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		prometheus.MustRegister(
			labelLookups,
			ingestRequests,
			ingestErrors,
			ingestLatency,
			streamClients,
			streamDelivered,
			exportTotal,
			exportLatency,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// IncLabelLookup counts a catalog lookup.
func IncLabelLookup(result string) {
	if result == "" {
		result = "unknown"
	}
	if labelLookups != nil {
		labelLookups.WithLabelValues(result).Inc()
	}
}

// ObserveIngest records ingest request duration and result.
func ObserveIngest(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if ingestRequests != nil {
		ingestRequests.WithLabelValues(result).Inc()
	}
	if ingestLatency != nil {
		ingestLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// IncIngestError increments ingest error counter.
func IncIngestError(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	if ingestErrors != nil {
		ingestErrors.WithLabelValues(reason).Inc()
	}
}

// SetStreamClients sets the connected stream client gauge.
func SetStreamClients(count int) {
	if count < 0 {
		count = 0
	}
	if streamClients != nil {
		streamClients.Set(float64(count))
	}
}

// IncStreamMessage counts a delivered or dropped stream message.
func IncStreamMessage(outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	if streamDelivered != nil {
		streamDelivered.WithLabelValues(outcome).Inc()
	}
}

// ObserveExport records export latency and result.
func ObserveExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if exportTotal != nil {
		exportTotal.WithLabelValues(format, result).Inc()
	}
	if exportLatency != nil {
		exportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError

	LabelResultOverride = labelResultOverride
	LabelResultHit      = labelResultHit
	LabelResultMiss     = labelResultMiss

	StreamDelivered = "delivered"
	StreamDropped   = "dropped"
)
