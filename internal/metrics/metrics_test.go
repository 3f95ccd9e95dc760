package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/mrlokans/journalport/internal/transfer"
)

func TestObserveImport(t *testing.T) {
	m := New(prometheus.NewRegistry())

	s := transfer.NewImportSummary()
	s.EntriesCreated = 3
	s.MediaFilesDeduplicated = 2
	s.AddWarning("Mood not found", transfer.CategoryFormat)
	s.AddWarning("Mood not found again", transfer.CategoryFormat)
	m.ObserveImport(s)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.EntitiesImported.WithLabelValues("entry")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.MediaDeduplicated))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.WarningsTotal.WithLabelValues(transfer.CategoryFormat)))
}

func TestJobStarted(t *testing.T) {
	m := New(prometheus.NewRegistry())

	done := m.JobStarted("export")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobsRunning.WithLabelValues("export")))

	done("completed", 1.5)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.JobsRunning.WithLabelValues("export")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobsTotal.WithLabelValues("export", "completed")))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.ObserveImport(transfer.NewImportSummary())
	m.JobStarted("import")("failed", 0)
}
