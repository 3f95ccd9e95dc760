package exporter

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mrlokans/journalport/internal/archive"
	"github.com/mrlokans/journalport/internal/database"
	"github.com/mrlokans/journalport/internal/database/checksums"
	"github.com/mrlokans/journalport/internal/database/users"
	"github.com/mrlokans/journalport/internal/delta"
	"github.com/mrlokans/journalport/internal/entities"
	"github.com/mrlokans/journalport/internal/idmap"
	"github.com/mrlokans/journalport/internal/importer"
	"github.com/mrlokans/journalport/internal/mediastore"
	"github.com/mrlokans/journalport/internal/readers"
	"github.com/mrlokans/journalport/internal/readers/native"
	"github.com/mrlokans/journalport/internal/transfer"
)

type fixture struct {
	db    *gorm.DB
	blobs *mediastore.LocalBlobs
	dir   string
}

func setup(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	db, err := database.NewDatabase(filepath.Join(dir, "test.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	blobs, err := mediastore.NewLocalBlobs(filepath.Join(dir, "blobs"))
	require.NoError(t, err)
	return &fixture{db: db.DB, blobs: blobs, dir: dir}
}

func (f *fixture) owner(t *testing.T, email string) uint {
	t.Helper()
	user, err := users.NewRepository(f.db).CreateUser(email, "Owner", "UTC")
	require.NoError(t, err)
	return user.ID
}

func (f *fixture) load(t *testing.T, ownerID uint, archive *readers.Archive) *transfer.ImportSummary {
	t.Helper()
	storer, err := mediastore.NewStorer(f.blobs, checksums.NewRepository(f.db), 16, nil)
	require.NoError(t, err)
	summary, err := importer.New(f.db, storer, nil).Import(context.Background(), ownerID, archive, nil)
	require.NoError(t, err)
	return summary
}

func (f *fixture) builder() *Builder {
	b := NewBuilder(f.db, f.blobs, "test", zap.NewNop())
	b.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }
	return b
}

func strp(s string) *string { return &s }

// seed imports a small data set with media, a moment and a goal log.
func seed(t *testing.T, f *fixture, ownerID uint) *transfer.ImportSummary {
	t.Helper()
	mediaRoot := filepath.Join(f.dir, "seed")
	require.NoError(t, os.MkdirAll(filepath.Join(mediaRoot, "in"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(mediaRoot, "in", "a.jpg"), []byte("image bytes"), 0o644))

	late := time.Date(2024, 6, 2, 9, 0, 0, 0, time.UTC)
	early := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	moment := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)

	withImage := transfer.Entry{
		ExternalID:       "e-late",
		EntryDatetimeUTC: late,
		EntryTimezone:    "UTC",
		Tags:             []string{"beach"},
		ContentDelta: &delta.Document{Ops: []delta.Op{
			delta.Text("Sea\n", nil),
			delta.NewEmbed(delta.EmbedImage, "m-1"),
			delta.Text("\n", nil),
		}},
		Media: []transfer.Media{{
			ExternalID: "m-1", Filename: "a?.jpg", FilePath: strp("in/a.jpg"),
			MediaType: "image", MimeType: "image/jpeg",
		}},
		Moment: &transfer.Moment{PrimaryMoodName: strp("happy")},
	}

	export := &transfer.Export{
		Journals: []transfer.Journal{
			{Title: "Second", CreatedAt: early.Add(time.Hour), Entries: []transfer.Entry{
				{ExternalID: "e-x", EntryDatetimeUTC: early, EntryTimezone: "UTC", ContentPlainText: strp("other")},
			}},
			{Title: "First", CreatedAt: early, Entries: []transfer.Entry{
				withImage,
				{ExternalID: "e-early", EntryDatetimeUTC: early, EntryTimezone: "UTC", ContentPlainText: strp("first words")},
			}},
		},
		Reference: transfer.Reference{
			Activities: []transfer.Activity{{Name: "Swim", ExternalID: "a-1"}},
			Goals:      []transfer.Goal{{Title: "Swim weekly", TargetCount: 1, ActivityExternalID: strp("a-1"), ExternalID: "g-1"}},
			GoalLogs: []transfer.GoalLog{{
				GoalExternalID: "g-1", LoggedDate: transfer.NewDate(2024, 6, 3),
				Status: "completed", Count: 1, MomentExternalID: strp("mo-1"),
			}},
		},
		Moments: []transfer.Moment{{ExternalID: "mo-1", LoggedAt: &moment, LoggedTimezone: "UTC"}},
	}
	return f.load(t, ownerID, readers.FromExport(readers.FormatNative, export, mediaRoot))
}

func TestBuild_OrderingAndMediaPaths(t *testing.T) {
	f := setup(t)
	ownerID := f.owner(t, "a@example.com")
	seeded := seed(t, f, ownerID)

	result, err := f.builder().Build(context.Background(), ownerID, Scope{Kind: ScopeFull}, nil)
	require.NoError(t, err)
	m := result.Manifest

	assert.Equal(t, transfer.ExportVersion, m.ExportVersion)
	assert.Equal(t, "a@example.com", m.UserEmail)

	require.Len(t, m.Journals, 2)
	assert.Equal(t, "First", m.Journals[0].Title)
	assert.Equal(t, "Second", m.Journals[1].Title)

	entries := m.Journals[0].Entries
	require.Len(t, entries, 2)
	assert.Equal(t, seeded.IDMappings[idmap.Entry]["e-early"], entries[0].ExternalID)
	assert.Equal(t, "2024-06-01", entries[0].EntryDate.String())

	withImage := entries[1]
	require.Len(t, withImage.Media, 1)
	mediaID := seeded.IDMappings[idmap.Media]["m-1"]
	wantPath := withImage.ExternalID + "/" + mediaID + "_a.jpg"
	require.NotNil(t, withImage.Media[0].FilePath)
	assert.Equal(t, wantPath, *withImage.Media[0].FilePath)
	assert.Equal(t, []delta.Embed{{Kind: delta.EmbedImage, Ref: wantPath}}, withImage.ContentDelta.Embeds())
	assert.Equal(t, []string{"beach"}, withImage.Tags)
	require.NotNil(t, withImage.Moment)
	require.NotNil(t, withImage.Moment.PrimaryMoodName)
	assert.Equal(t, "happy", *withImage.Moment.PrimaryMoodName)

	require.Len(t, result.Media, 1)
	assert.Equal(t, wantPath, result.Media[0].ArchivePath)

	require.Len(t, m.Moments, 1)
	require.Len(t, m.GoalLogs, 1)
	require.NotNil(t, m.GoalLogs[0].MomentExternalID)
	assert.Equal(t, m.Moments[0].ExternalID, *m.GoalLogs[0].MomentExternalID)

	assert.Equal(t, 3, m.Stats["entry_count"])
	assert.Equal(t, 1, m.Stats["media_count"])
	assert.Empty(t, result.Warnings)
}

func TestBuild_IsDeterministic(t *testing.T) {
	f := setup(t)
	ownerID := f.owner(t, "a@example.com")
	seed(t, f, ownerID)

	first, err := f.builder().Build(context.Background(), ownerID, Scope{}, nil)
	require.NoError(t, err)
	second, err := f.builder().Build(context.Background(), ownerID, Scope{}, nil)
	require.NoError(t, err)
	assert.Equal(t, first.Manifest, second.Manifest)
}

func TestBuild_JournalScope(t *testing.T) {
	f := setup(t)
	ownerID := f.owner(t, "a@example.com")
	seed(t, f, ownerID)

	var second entities.Journal
	require.NoError(t, f.db.Where("title = ?", "Second").First(&second).Error)

	result, err := f.builder().Build(context.Background(), ownerID, Scope{Kind: ScopeJournal, JournalIDs: []string{second.ID}}, nil)
	require.NoError(t, err)

	require.Len(t, result.Manifest.Journals, 1)
	assert.Equal(t, "Second", result.Manifest.Journals[0].Title)
	assert.Empty(t, result.Manifest.Moments)
	assert.Empty(t, result.Manifest.GoalLogs)
	assert.Empty(t, result.Media)
	assert.NotEmpty(t, result.Manifest.Goals)

	_, err = f.builder().Build(context.Background(), ownerID, Scope{Kind: ScopeJournal}, nil)
	assert.Error(t, err)
}

func TestBuild_MissingBlobOmitted(t *testing.T) {
	f := setup(t)
	ownerID := f.owner(t, "a@example.com")
	seed(t, f, ownerID)

	var media entities.Media
	require.NoError(t, f.db.First(&media).Error)
	require.NoError(t, f.blobs.Delete(context.Background(), *media.FilePath))

	result, err := f.builder().Build(context.Background(), ownerID, Scope{}, nil)
	require.NoError(t, err)

	assert.Empty(t, result.Media)
	assert.Len(t, result.Warnings, 1)
	for _, e := range result.Manifest.Journals[0].Entries {
		assert.Empty(t, e.Media)
	}
}

type cancelAfter struct{ n, seen int }

func (c *cancelAfter) Report(int, int) { c.seen++ }
func (c *cancelAfter) Cancelled() bool { return c.seen >= c.n }

func TestBuild_Cancelled(t *testing.T) {
	f := setup(t)
	ownerID := f.owner(t, "a@example.com")
	seed(t, f, ownerID)

	_, err := f.builder().Build(context.Background(), ownerID, Scope{}, &cancelAfter{n: 1})
	assert.ErrorIs(t, err, ErrCancelled)
}

func TestRoundTrip(t *testing.T) {
	f := setup(t)
	source := f.owner(t, "source@example.com")
	target := f.owner(t, "target@example.com")
	seed(t, f, source)

	b := f.builder()
	result, err := b.Build(context.Background(), source, Scope{}, nil)
	require.NoError(t, err)

	path, size, err := b.Write(context.Background(), result, filepath.Join(f.dir, "exports"), source)
	require.NoError(t, err)
	assert.Positive(t, size)
	assert.True(t, strings.HasSuffix(path, "journal_export_1_20250102_030405.zip"))

	extracted, err := archive.Extract(context.Background(), path, filepath.Join(f.dir, "extract"), 0)
	require.NoError(t, err)
	read, err := native.NewReader(0, nil).Read(context.Background(), extracted.ManifestPath, extracted.MediaDir)
	require.NoError(t, err)

	summary := f.load(t, target, read)
	assert.Equal(t, 2, summary.JournalsCreated)
	assert.Equal(t, 3, summary.EntriesCreated)
	assert.Equal(t, 1, summary.MomentsCreated)
	assert.Equal(t, 1, summary.GoalLogsCreated)
	assert.Equal(t, 1, summary.MediaFilesImported)
	assert.Empty(t, summary.WarningCategories[transfer.CategoryUnresolvedRef])

	var entry entities.Entry
	require.NoError(t, f.db.Where("owner_id = ? AND entry_datetime_utc = ?", target,
		time.Date(2024, 6, 2, 9, 0, 0, 0, time.UTC)).First(&entry).Error)
	var media entities.Media
	require.NoError(t, f.db.Where("entry_id = ?", entry.ID).First(&media).Error)
	assert.Equal(t, []delta.Embed{{Kind: delta.EmbedImage, Ref: media.ID}}, entry.ContentDelta.Embeds())
}
