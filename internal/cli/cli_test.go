package cli

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/journalport/internal/database"
	"github.com/mrlokans/journalport/internal/delta"
	"github.com/mrlokans/journalport/internal/entities"
	"github.com/mrlokans/journalport/internal/services"
)

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("ENV_FILE", filepath.Join(dir, "missing.env"))
	t.Setenv("DATABASE_PATH", filepath.Join(dir, "cli.db"))
	t.Setenv("MEDIA_ROOT", filepath.Join(dir, "media"))
	t.Setenv("EXPORT_DIR", filepath.Join(dir, "exports"))
	t.Setenv("IMPORT_TEMP_DIR", filepath.Join(dir, "tmp"))
	t.Setenv("LOG_LEVEL", "error")
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand("test")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeDayOne(t *testing.T, path string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("Notes.json")
	require.NoError(t, err)
	_, err = w.Write([]byte(`{"entries":[
		{"uuid":"N1","creationDate":"2024-02-01T07:00:00Z","timeZone":"UTC","text":"One"},
		{"uuid":"N2","creationDate":"2024-02-02T07:00:00Z","timeZone":"UTC","text":"Two"}
	]}`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func TestImportExportCommands(t *testing.T) {
	dir := setupEnv(t)

	out, err := run(t, "owners", "create", "writer@example.com", "--name", "Writer")
	require.NoError(t, err)
	assert.Contains(t, out, "created owner 1")

	archivePath := filepath.Join(dir, "dayone.zip")
	writeDayOne(t, archivePath)

	out, err = run(t, "import", "--owner", "1", archivePath)
	require.NoError(t, err)
	var imported jobView
	require.NoError(t, json.Unmarshal([]byte(out), &imported))
	assert.Equal(t, "completed", imported.Status)
	assert.EqualValues(t, 2, imported.Summary["entries_created"])
	assert.NotContains(t, imported.Summary, "id_mappings")

	_, err = os.Stat(archivePath)
	assert.NoError(t, err, "source archive is kept")

	out, err = run(t, "jobs", "list")
	require.NoError(t, err)
	assert.Contains(t, out, imported.ID)
	assert.Contains(t, out, "completed")

	copyPath := filepath.Join(dir, "backup", "copy.zip")
	out, err = run(t, "export", "--out", copyPath)
	require.NoError(t, err)
	var exported jobView
	require.NoError(t, json.Unmarshal([]byte(out), &exported))
	assert.Equal(t, "export", exported.Kind)
	assert.EqualValues(t, 2, exported.Summary["entry_count"])

	info, err := os.Stat(copyPath)
	require.NoError(t, err)
	assert.Equal(t, exported.FileSize, info.Size())

	out, err = run(t, "jobs", "show", exported.ID)
	require.NoError(t, err)
	assert.Contains(t, out, exported.ID)

	out, err = run(t, "jobs", "history", "--since", "1h")
	require.NoError(t, err)
	assert.Contains(t, out, "dayone_import")
	assert.Contains(t, out, imported.ID)

	out, err = run(t, "owners", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "writer@example.com")
}

func TestCommandErrors(t *testing.T) {
	dir := setupEnv(t)
	_, err := run(t, "owners", "create", "writer@example.com")
	require.NoError(t, err)

	archivePath := filepath.Join(dir, "dayone.zip")
	writeDayOne(t, archivePath)

	_, err = run(t, "import", "--source", "evernote", archivePath)
	assert.ErrorIs(t, err, services.ErrInvalidSource)

	staged, _ := os.ReadDir(filepath.Join(dir, "tmp", "uploads"))
	assert.Empty(t, staged)

	_, err = run(t, "import", filepath.Join(dir, "missing.zip"))
	assert.Error(t, err)

	_, err = run(t, "jobs", "show", "missing")
	assert.ErrorIs(t, err, services.ErrJobNotFound)

	_, err = run(t, "import")
	assert.Error(t, err)
}

func TestCleanupCommand(t *testing.T) {
	setupEnv(t)
	out, err := run(t, "cleanup")
	require.NoError(t, err)
	assert.Contains(t, out, "cleanup completed")
}

// seedDayOnePlaceholder stores an imported DayOne entry whose photo
// placeholder was never turned into an embed.
func seedDayOnePlaceholder(t *testing.T, dbPath string) (entryID, mediaID string) {
	t.Helper()
	db, err := database.NewDatabase(dbPath, nil)
	require.NoError(t, err)
	defer db.Close()

	journal := &entities.Journal{OwnerID: 1, Title: "Notes"}
	require.NoError(t, db.DB.Create(journal).Error)

	doc := delta.WrapPlainText("Morning DAYONE_PHOTO:PHOTO-1")
	plain := delta.PlainText(doc)
	entry := &entities.Entry{
		JournalID:        journal.ID,
		OwnerID:          1,
		EntryDate:        "2024-02-01",
		EntryDatetimeUTC: time.Date(2024, 2, 1, 7, 0, 0, 0, time.UTC),
		EntryTimezone:    "UTC",
		ContentDelta:     doc,
		ContentPlainText: &plain,
		ImportMetadata:   map[string]any{"source": "dayone"},
	}
	require.NoError(t, db.DB.Omit("Tags", "Media").Create(entry).Error)

	assetID := "PHOTO-1"
	media := &entities.Media{
		OwnerID:         1,
		EntryID:         &entry.ID,
		Filename:        "photo.jpeg",
		MediaType:       entities.MediaTypeImage,
		UploadStatus:    "completed",
		ExternalAssetID: &assetID,
	}
	require.NoError(t, db.DB.Create(media).Error)
	return entry.ID, media.ID
}

func storedEmbeds(t *testing.T, dbPath, entryID string) []delta.Embed {
	t.Helper()
	db, err := database.NewDatabase(dbPath, nil)
	require.NoError(t, err)
	defer db.Close()

	var entry entities.Entry
	require.NoError(t, db.DB.First(&entry, "id = ?", entryID).Error)
	return entry.ContentDelta.Embeds()
}

func TestUpgradeDayOneInlineMediaCommand(t *testing.T) {
	dir := setupEnv(t)
	_, err := run(t, "owners", "create", "writer@example.com")
	require.NoError(t, err)

	dbPath := filepath.Join(dir, "cli.db")
	entryID, mediaID := seedDayOnePlaceholder(t, dbPath)

	tests := []struct {
		name   string
		args   []string
		output []string
		embeds []delta.Embed
	}{
		{
			name:   "dry run leaves the entry alone",
			args:   []string{"upgrade", "dayone-inline-media", "--dry-run"},
			output: []string{"Entries updated", "dry run: no entries were changed"},
		},
		{
			name:   "apply",
			args:   []string{"upgrade", "dayone-inline-media", "--owner", "1"},
			output: []string{"Placeholders resolved"},
			embeds: []delta.Embed{{Kind: delta.EmbedImage, Ref: mediaID}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, tt.args...)
			require.NoError(t, err)
			for _, want := range tt.output {
				assert.Contains(t, out, want)
			}
			assert.Equal(t, tt.embeds, storedEmbeds(t, dbPath, entryID))
		})
	}

	_, err = run(t, "upgrade", "dayone-inline-media", "--batch-size", "0")
	assert.Error(t, err)
}
