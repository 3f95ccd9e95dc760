package services

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mrlokans/journalport/internal/database"
	"github.com/mrlokans/journalport/internal/database/users"
	"github.com/mrlokans/journalport/internal/entities"
	"github.com/mrlokans/journalport/internal/exporter"
	"github.com/mrlokans/journalport/internal/mediastore"
	"github.com/mrlokans/journalport/internal/readers"
)

type fixture struct {
	svc     *TransferService
	db      *gorm.DB
	dir     string
	ownerID uint
}

func setup(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	db, err := database.NewDatabase(filepath.Join(dir, "test.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	user, err := users.NewRepository(db.DB).CreateUser("owner@example.com", "Owner", "UTC")
	require.NoError(t, err)

	blobs, err := mediastore.NewLocalBlobs(filepath.Join(dir, "media"))
	require.NoError(t, err)

	svc := NewTransferService(db.DB, blobs, Config{
		ExportDir:         filepath.Join(dir, "exports"),
		ImportTempDir:     filepath.Join(dir, "tmp"),
		MaxExtractBytes:   64 << 20,
		StreamThreshold:   64 << 20,
		ChecksumCacheSize: 16,
		AppVersion:        "test",
	}, zap.NewNop())

	return &fixture{svc: svc, db: db.DB, dir: dir, ownerID: user.ID}
}

// dayOneZip builds a DayOne export archive with one journal file.
func dayOneZip(t *testing.T, entries string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("Travel.json")
	require.NoError(t, err)
	_, err = w.Write([]byte(`{"metadata":{"version":"1.0"},"entries":` + entries + `}`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func (f *fixture) submitImport(t *testing.T, data []byte, source string) *entities.Job {
	t.Helper()
	path, err := f.svc.StageUpload(bytes.NewReader(data))
	require.NoError(t, err)
	job, err := f.svc.CreateImportJob(f.ownerID, source, path)
	require.NoError(t, err)
	return job
}

func (f *fixture) reload(t *testing.T, id string) *entities.Job {
	t.Helper()
	job, err := f.svc.GetJob(f.ownerID, id)
	require.NoError(t, err)
	return job
}

const twoEntries = `[
	{"uuid":"A1","creationDate":"2024-03-01T10:00:00Z","timeZone":"Europe/Berlin","text":"# Lisbon\nTrams and tiles","tags":["Travel","travel"]},
	{"uuid":"A2","creationDate":"2024-03-02T10:00:00Z","timeZone":"UTC","text":"Second day"}
]`

func TestRunImport_DayOne(t *testing.T) {
	f := setup(t)
	job := f.submitImport(t, dayOneZip(t, twoEntries), readers.FormatAuto)
	assert.Equal(t, entities.JobStatusPending, job.Status)

	require.NoError(t, f.svc.RunImport(context.Background(), job.ID))

	done := f.reload(t, job.ID)
	assert.Equal(t, entities.JobStatusCompleted, done.Status)
	assert.Equal(t, 100, done.Progress)
	assert.Equal(t, 2, done.ProcessedItems)
	assert.EqualValues(t, 2, done.ResultSummary["entries_created"])
	assert.EqualValues(t, 1, done.ResultSummary["journals_created"])
	assert.NotNil(t, done.CompletedAt)

	var journal entities.Journal
	require.NoError(t, f.db.Where("owner_id = ?", f.ownerID).First(&journal).Error)
	assert.Equal(t, "Travel", journal.Title)

	_, err := os.Stat(job.Params.FilePath)
	assert.True(t, os.IsNotExist(err), "staged upload is removed")
	_, err = os.Stat(filepath.Join(f.dir, "tmp", job.ID))
	assert.True(t, os.IsNotExist(err), "extraction dir is removed")
}

func TestRunImport_ProgressWrittenWithoutLockWaits(t *testing.T) {
	f := setup(t)
	job := f.submitImport(t, dayOneZip(t, twoEntries), readers.FormatDayOne)

	start := time.Now()
	require.NoError(t, f.svc.RunImport(context.Background(), job.ID))
	// A progress write blocked behind the unit's transaction waits out the
	// 5s busy timeout.
	assert.Less(t, time.Since(start), 3*time.Second)

	done := f.reload(t, job.ID)
	assert.Equal(t, entities.JobStatusCompleted, done.Status)
	assert.Equal(t, 2, done.ProcessedItems)
	assert.Equal(t, 2, done.TotalItems)
}

func TestRunImport_BrokenArchiveFailsJob(t *testing.T) {
	f := setup(t)
	job := f.submitImport(t, []byte("not a zip"), readers.FormatAuto)

	require.NoError(t, f.svc.RunImport(context.Background(), job.ID))

	done := f.reload(t, job.ID)
	assert.Equal(t, entities.JobStatusFailed, done.Status)
	require.Len(t, done.Errors, 1)
	assert.NotEmpty(t, done.Errors[0])
}

func TestRunImport_NativeWithoutManifestFails(t *testing.T) {
	f := setup(t)
	job := f.submitImport(t, dayOneZip(t, twoEntries), readers.FormatNative)

	require.NoError(t, f.svc.RunImport(context.Background(), job.ID))

	done := f.reload(t, job.ID)
	assert.Equal(t, entities.JobStatusFailed, done.Status)
	assert.Contains(t, done.Errors[0], "data.json")
}

func TestRunImport_CancelledBeforeStartIsSkipped(t *testing.T) {
	f := setup(t)
	job := f.submitImport(t, dayOneZip(t, twoEntries), readers.FormatAuto)

	cancelled, err := f.svc.CancelJob(f.ownerID, job.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.JobStatusCancelled, cancelled.Status)

	require.NoError(t, f.svc.RunImport(context.Background(), job.ID))

	var n int64
	require.NoError(t, f.db.Model(&entities.Entry{}).Count(&n).Error)
	assert.Zero(t, n)

	_, err = f.svc.CancelJob(f.ownerID, job.ID)
	assert.ErrorIs(t, err, ErrJobNotCancelable)
}

func TestCreateJobs_Validation(t *testing.T) {
	f := setup(t)

	_, err := f.svc.CreateImportJob(f.ownerID, "evernote", "/tmp/x.zip")
	assert.ErrorIs(t, err, ErrInvalidSource)

	_, err = f.svc.CreateExportJob(f.ownerID, exporter.ScopeJournal, nil)
	assert.ErrorIs(t, err, ErrInvalidScope)

	_, err = f.svc.CreateExportJob(f.ownerID, "everything", nil)
	assert.ErrorIs(t, err, ErrInvalidScope)

	_, err = f.svc.GetJob(f.ownerID, "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

type recordingEnqueuer struct {
	imports, exports []string
	err              error
}

func (e *recordingEnqueuer) EnqueueImport(id string) error {
	e.imports = append(e.imports, id)
	return e.err
}

func (e *recordingEnqueuer) EnqueueExport(id string) error {
	e.exports = append(e.exports, id)
	return e.err
}

func TestCreateJobs_Enqueue(t *testing.T) {
	f := setup(t)
	q := &recordingEnqueuer{}
	f.svc.SetEnqueuer(q)

	imp, err := f.svc.CreateImportJob(f.ownerID, "", "/tmp/x.zip")
	require.NoError(t, err)
	assert.Equal(t, readers.FormatAuto, imp.Params.SourceType)
	exp, err := f.svc.CreateExportJob(f.ownerID, "", nil)
	require.NoError(t, err)
	assert.Equal(t, exporter.ScopeFull, exp.Params.Scope)

	assert.Equal(t, []string{imp.ID}, q.imports)
	assert.Equal(t, []string{exp.ID}, q.exports)

	q.err = errors.New("queue down")
	_, err = f.svc.CreateExportJob(f.ownerID, "", nil)
	assert.Error(t, err)
}

func TestExportThenReimport(t *testing.T) {
	f := setup(t)
	importJob := f.submitImport(t, dayOneZip(t, twoEntries), readers.FormatDayOne)
	require.NoError(t, f.svc.RunImport(context.Background(), importJob.ID))

	exportJob, err := f.svc.CreateExportJob(f.ownerID, exporter.ScopeFull, nil)
	require.NoError(t, err)
	require.NoError(t, f.svc.RunExport(context.Background(), exportJob.ID))

	done := f.reload(t, exportJob.ID)
	require.Equal(t, entities.JobStatusCompleted, done.Status, done.Errors)
	assert.EqualValues(t, 2, done.ResultSummary["entry_count"])
	assert.Positive(t, done.FileSize)

	path, err := f.svc.ExportFile(f.ownerID, exportJob.ID)
	require.NoError(t, err)
	_, err = f.svc.ExportFile(f.ownerID, importJob.ID)
	assert.ErrorIs(t, err, ErrNotDownloadable)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	again := f.submitImport(t, data, readers.FormatAuto)
	require.NoError(t, f.svc.RunImport(context.Background(), again.ID))

	reimported := f.reload(t, again.ID)
	assert.Equal(t, entities.JobStatusCompleted, reimported.Status, reimported.Errors)
	assert.EqualValues(t, 2, reimported.ResultSummary["entries_created"])
}

func TestCleanup(t *testing.T) {
	f := setup(t)
	exportJob, err := f.svc.CreateExportJob(f.ownerID, exporter.ScopeFull, nil)
	require.NoError(t, err)
	require.NoError(t, f.svc.RunExport(context.Background(), exportJob.ID))
	path, err := f.svc.ExportFile(f.ownerID, exportJob.ID)
	require.NoError(t, err)

	stale, err := f.svc.CreateImportJob(f.ownerID, readers.FormatAuto, "")
	require.NoError(t, err)
	require.NoError(t, f.svc.jobs.Start(stale.ID))

	past := time.Now().Add(-30 * 24 * time.Hour)
	require.NoError(t, f.db.Model(&entities.Job{}).Where("id = ?", exportJob.ID).Update("completed_at", past).Error)
	require.NoError(t, f.db.Model(&entities.Job{}).Where("id = ?", stale.ID).Update("updated_at", past).Error)

	leftover := filepath.Join(f.dir, "tmp", "orphan")
	require.NoError(t, os.MkdirAll(leftover, 0o755))
	require.NoError(t, os.Chtimes(leftover, past, past))

	res, err := f.svc.Cleanup(context.Background(), 7*24*time.Hour, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, res.ExportsRemoved)
	assert.Equal(t, 1, res.TempDirsRemoved)
	assert.Equal(t, int64(1), res.StaleJobsFailed)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	_, err = f.svc.ExportFile(f.ownerID, exportJob.ID)
	assert.ErrorIs(t, err, ErrNotDownloadable)
	assert.Equal(t, entities.JobStatusFailed, f.reload(t, stale.ID).Status)
}

type fakeStore struct {
	updates   [][2]int
	cancelled bool
	checks    int
}

func (s *fakeStore) UpdateProgress(_ string, processed, total int) error {
	s.updates = append(s.updates, [2]int{processed, total})
	return nil
}

func (s *fakeStore) IsCancelled(string) (bool, error) {
	s.checks++
	return s.cancelled, nil
}

func TestJobTracker(t *testing.T) {
	store := &fakeStore{}
	tr := newJobTracker(store, "job-1", zap.NewNop())
	tr.interval = time.Hour

	tr.Report(1, 4)
	assert.Equal(t, [][2]int{{1, 4}}, store.updates)

	assert.False(t, tr.Cancelled())
	store.cancelled = true
	assert.False(t, tr.Cancelled(), "flag is re-read only after the interval")
	assert.Equal(t, 1, store.checks)

	tr.checkedAt = time.Now().Add(-2 * time.Hour)
	assert.True(t, tr.Cancelled())
	assert.True(t, tr.Cancelled())
	assert.Equal(t, 2, store.checks)
}
