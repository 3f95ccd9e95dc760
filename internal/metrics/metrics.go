// Package metrics exposes Prometheus counters for transfer jobs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mrlokans/journalport/internal/transfer"
)

const namespace = "journalport"

type Metrics struct {
	JobsTotal          *prometheus.CounterVec
	JobDurationSeconds *prometheus.HistogramVec
	JobsRunning        *prometheus.GaugeVec
	EntitiesImported   *prometheus.CounterVec
	MediaDeduplicated  prometheus.Counter
	WarningsTotal      *prometheus.CounterVec
	ExportBytes        prometheus.Counter
	ExportsCleaned     prometheus.Counter
}

// New registers the metrics with reg, or with the default registerer when
// reg is nil.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		JobsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Finished transfer jobs by kind and final status",
		}, []string{"kind", "status"}),
		JobDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Duration of transfer jobs in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 15),
		}, []string{"kind"}),
		JobsRunning: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jobs_running",
			Help:      "Transfer jobs currently running",
		}, []string{"kind"}),
		EntitiesImported: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "imported_entities_total",
			Help:      "Entities created by imports",
		}, []string{"entity"}),
		MediaDeduplicated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "media_deduplicated_total",
			Help:      "Media files linked to already stored bytes",
		}),
		WarningsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_warnings_total",
			Help:      "Import warnings by category",
		}, []string{"category"}),
		ExportBytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "export_bytes_total",
			Help:      "Bytes written to export archives",
		}),
		ExportsCleaned: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_cleaned_total",
			Help:      "Expired export archives removed",
		}),
	}
}

// ObserveImport adds the counters of a finished import.
func (m *Metrics) ObserveImport(s *transfer.ImportSummary) {
	if m == nil || s == nil {
		return
	}
	m.EntitiesImported.WithLabelValues("journal").Add(float64(s.JournalsCreated))
	m.EntitiesImported.WithLabelValues("entry").Add(float64(s.EntriesCreated))
	m.EntitiesImported.WithLabelValues("moment").Add(float64(s.MomentsCreated))
	m.EntitiesImported.WithLabelValues("media").Add(float64(s.MediaFilesImported))
	m.EntitiesImported.WithLabelValues("goal_log").Add(float64(s.GoalLogsCreated))
	m.MediaDeduplicated.Add(float64(s.MediaFilesDeduplicated))
	for category, n := range s.WarningCategories {
		m.WarningsTotal.WithLabelValues(category).Add(float64(n))
	}
}

// JobStarted marks a job of kind as running and returns the func that
// records its outcome.
func (m *Metrics) JobStarted(kind string) func(status string, seconds float64) {
	if m == nil {
		return func(string, float64) {}
	}
	m.JobsRunning.WithLabelValues(kind).Inc()
	return func(status string, seconds float64) {
		m.JobsRunning.WithLabelValues(kind).Dec()
		m.JobsTotal.WithLabelValues(kind, status).Inc()
		m.JobDurationSeconds.WithLabelValues(kind).Observe(seconds)
	}
}
