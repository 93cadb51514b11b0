package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Ingestion Prometheus metrics.
var (
	IngestArchivesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_archives_total",
			Help:      "Archives processed by ingestion, by outcome",
		},
		[]string{"status"}, // ok, failed, cancelled
	)

	IngestRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_records_total",
			Help:      "Records processed by ingestion, by outcome",
		},
		[]string{"status"}, // stored, skipped
	)

	IngestFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_failures_total",
			Help:      "Ingestion failures by pipeline stage",
		},
		[]string{"stage"},
	)

	IngestArchiveDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_archive_duration_seconds",
			Help:      "Wall time to fetch, unpack and store one archive",
			Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600, 1200},
		},
	)

	IngestDownloadBytes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_download_bytes_total",
			Help:      "Compressed archive bytes downloaded",
		},
	)
)

var ingestMetricsRegistered bool

// RegisterIngestMetrics registers Prometheus ingestion metrics. Must be called once from main.
func RegisterIngestMetrics() {
	if ingestMetricsRegistered {
		return
	}
	prometheus.MustRegister(IngestArchivesTotal)
	prometheus.MustRegister(IngestRecordsTotal)
	prometheus.MustRegister(IngestFailuresTotal)
	prometheus.MustRegister(IngestArchiveDuration)
	prometheus.MustRegister(IngestDownloadBytes)
	ingestMetricsRegistered = true
}

// IngestRecorder feeds ingestion outcomes into the package collectors.
type IngestRecorder struct{}

// ArchiveDone counts one finished archive.
func (IngestRecorder) ArchiveDone(status string, elapsed time.Duration) {
	IngestArchivesTotal.WithLabelValues(status).Inc()
	IngestArchiveDuration.Observe(elapsed.Seconds())
}

// RecordDone counts one record outcome.
func (IngestRecorder) RecordDone(status string) {
	IngestRecordsTotal.WithLabelValues(status).Inc()
}

// Failure counts one failure at stage.
func (IngestRecorder) Failure(stage string) {
	IngestFailuresTotal.WithLabelValues(stage).Inc()
}
