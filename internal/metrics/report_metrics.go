// Package metrics exposes Prometheus instrumentation for fetches, writes,
// chart capture and report exports.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fetch outcomes.
const (
	FetchLive      = "live"
	FetchSynthetic = "synthetic"
	FetchFailed    = "failed"
	FetchStale     = "stale"
	FetchCanceled  = "canceled"
)

var (
	// Data access metrics
	FetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "energy_reports_fetches_total",
			Help: "Total number of range fetches by resource type and outcome",
		},
		[]string{"resource", "outcome"}, // live, synthetic, failed, stale, canceled
	)

	WritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "energy_reports_writes_total",
			Help: "Total number of record writes by resource type, operation and status",
		},
		[]string{"resource", "op", "status"},
	)

	// Export metrics
	ExportDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "energy_reports_export_duration_seconds",
			Help:    "Time spent producing an export artifact",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"resource", "format"},
	)

	ExportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "energy_reports_exports_total",
			Help: "Total number of exports by resource type, format and status",
		},
		[]string{"resource", "format", "status"},
	)

	ReportSectionFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "energy_reports_report_section_failures_total",
			Help: "Total number of PDF report sections that failed to render",
		},
		[]string{"section"},
	)

	CapturesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "energy_reports_chart_captures_total",
			Help: "Total number of chart capture attempts by status",
		},
		[]string{"status"}, // success, failed, timeout
	)
)

func status(success bool) string {
	if success {
		return "success"
	}
	return "failed"
}

// RecordFetch records the outcome of a range fetch.
func RecordFetch(resource, outcome string) {
	FetchesTotal.WithLabelValues(resource, outcome).Inc()
}

// RecordWrite records a create, update, remove or recover call.
func RecordWrite(resource, op string, success bool) {
	WritesTotal.WithLabelValues(resource, op, status(success)).Inc()
}

// RecordExport records a finished export and how long it took.
func RecordExport(resource, format string, success bool, elapsed time.Duration) {
	ExportsTotal.WithLabelValues(resource, format, status(success)).Inc()
	ExportDurationSeconds.WithLabelValues(resource, format).Observe(elapsed.Seconds())
}

// RecordSectionFailure records a report section that rendered as a failure.
func RecordSectionFailure(section string) {
	ReportSectionFailuresTotal.WithLabelValues(section).Inc()
}

// RecordCapture records a chart capture attempt.
func RecordCapture(outcome string) {
	CapturesTotal.WithLabelValues(outcome).Inc()
}
