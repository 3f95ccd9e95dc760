package dayone

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/journalport/internal/delta"
	"github.com/mrlokans/journalport/internal/readers"
	"github.com/mrlokans/journalport/internal/transfer"
)

var jpegBytes = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00, 0x01, 0x01, 0x00, 0x00, 0x01}

func writeJSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func setupDayOneExport(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	require.NoError(t, os.MkdirAll(filepath.Join(root, "photos"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "photos", "abc123.jpeg"), jpegBytes, 0o644))

	richText := `{"contents": [
		{"text": "My Trip\n", "attributes": {"line": {"header": 1}}},
		{"text": "Went hiking\n"},
		{"embeddedObjects": [{"type": "photo", "identifier": "P1"}]}
	]}`

	writeJSON(t, filepath.Join(root, "Travel.json"), map[string]any{
		"metadata": map[string]any{"version": "1.0"},
		"entries": []any{
			map[string]any{
				"uuid":         "E1",
				"creationDate": "2024-01-01T23:30:00Z",
				"modifiedDate": "2024-01-03T08:00:00Z",
				"timeZone":     "Europe/Berlin",
				"richText":     richText,
				"text":         "# My Trip\nWent hiking",
				"tags":         []string{"Hiking", " hiking ", "Alps", ""},
				"starred":      true,
				"location": map[string]any{
					"placeName": "Hut",
					"country":   "Austria",
					"latitude":  47.1,
					"longitude": 11.2,
				},
				"weather": map[string]any{
					"temperatureCelsius":    21.5,
					"conditionsDescription": "Sunny",
				},
				"photos": []any{
					map[string]any{"identifier": "P1", "md5": "abc123", "type": "jpeg", "width": 0, "height": 600, "orderInEntry": 0, "cameraMake": "Fuji"},
					map[string]any{"identifier": "P2", "md5": "nothere", "type": "jpeg"},
				},
			},
			map[string]any{"uuid": "E2", "text": "no creation date"},
			map[string]any{
				"uuid":         "E3",
				"creationDate": "2024-01-02T10:00:00Z",
				"timeZone":     "Not/AZone",
				"text":         "Look dayone-moment://P9 here",
			},
		},
	})
	require.NoError(t, os.WriteFile(filepath.Join(root, "Broken.json"), []byte("{nope"), 0o644))
	return root
}

func readAll(t *testing.T, a *readers.Archive) []readers.Item[transfer.Journal] {
	t.Helper()
	var items []readers.Item[transfer.Journal]
	require.NoError(t, a.EachJournal(context.Background(), func(it readers.Item[transfer.Journal]) error {
		items = append(items, it)
		return nil
	}))
	return items
}

func TestReader_Read(t *testing.T) {
	root := setupDayOneExport(t)
	reader := NewReader(nil)
	fixed := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	reader.now = func() time.Time { return fixed }

	archive, err := reader.Read(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, readers.FormatDayOne, archive.Format)
	assert.Equal(t, root, archive.MediaRoot)
	assert.Equal(t, transfer.ExportVersion, archive.Header.ExportVersion)
	assert.Equal(t, 2, archive.JournalCount)
	assert.Equal(t, 2, archive.EntryCount)
	assert.Equal(t, 1, archive.EntriesSkipped)

	categories := map[string]int{}
	var messages []string
	for _, w := range archive.Warnings {
		categories[w.Category]++
		messages = append(messages, w.Message)
	}
	assert.Equal(t, 1, categories[transfer.CategoryMissingMedia])
	assert.Equal(t, 1, categories[transfer.CategoryEntryError])
	assert.Contains(t, messages, "Media file not found for photo P2")

	items := readAll(t, archive)
	require.Len(t, items, 2)

	broken := items[0]
	assert.Error(t, broken.Err)
	assert.Equal(t, "Broken", broken.Value.Title)

	require.NoError(t, items[1].Err)
	journal := items[1].Value
	assert.Equal(t, "Travel", journal.Title)
	require.NotNil(t, journal.Description)
	assert.Equal(t, "Imported from Day One journal 'Travel'", *journal.Description)
	assert.Equal(t, time.Date(2024, 1, 1, 23, 30, 0, 0, time.UTC), journal.CreatedAt)
	require.NotNil(t, journal.LastEntryAt)
	assert.Equal(t, time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC), *journal.LastEntryAt)
	assert.Equal(t, "dayone", journal.ImportMetadata["source"])
	assert.Equal(t, "1.0", journal.ImportMetadata["source_version"])
	assert.Equal(t, "Travel.json", journal.ImportMetadata["export_file"])
	require.Len(t, journal.Entries, 2)

	t.Run("rich text entry", func(t *testing.T) {
		e := journal.Entries[0]
		assert.Equal(t, "E1", e.ExternalID)
		require.NotNil(t, e.Title)
		assert.Equal(t, "My Trip", *e.Title)
		assert.Equal(t, "2024-01-02", e.EntryDate.String())
		assert.Equal(t, "Europe/Berlin", e.EntryTimezone)
		assert.Equal(t, time.Date(2024, 1, 3, 8, 0, 0, 0, time.UTC), e.UpdatedAt)
		assert.True(t, e.IsPinned)
		assert.Equal(t, []string{"hiking", "alps"}, e.Tags)

		require.NotNil(t, e.ContentDelta)
		assert.Equal(t, []delta.Embed{{Kind: delta.EmbedImage, Ref: "abc123"}}, e.ContentDelta.Embeds())
		require.NotNil(t, e.ContentPlainText)
		assert.Equal(t, "Went hiking", *e.ContentPlainText)
		assert.Equal(t, 2, e.WordCount)

		assert.Equal(t, "Hut", e.LocationJSON["name"])
		assert.Equal(t, "Austria", e.LocationJSON["country"])
		assert.NotContains(t, e.LocationJSON, "street")
		require.NotNil(t, e.Latitude)
		assert.InDelta(t, 47.1, *e.Latitude, 0.0001)
		require.NotNil(t, e.WeatherSummary)
		assert.Equal(t, "21.5°C, Sunny", *e.WeatherSummary)
		assert.Equal(t, 21.5, e.WeatherJSON["temp_c"])

		raw, ok := e.ImportMetadata["raw_dayone"].(map[string]any)
		require.True(t, ok)
		assert.NotContains(t, raw, "text")
		assert.Equal(t, []map[string]any{
			{"identifier": "P1", "md5": "abc123"},
			{"identifier": "P2", "md5": "nothere"},
		}, raw["photos"])
		assert.Equal(t, "Europe/Berlin", e.ImportMetadata["normalized_timezone"])

		require.Len(t, e.Media, 1)
		m := e.Media[0]
		assert.Equal(t, "abc123.jpeg", m.Filename)
		require.NotNil(t, m.FilePath)
		assert.Equal(t, "photos/abc123.jpeg", *m.FilePath)
		assert.Equal(t, "image", m.MediaType)
		assert.Equal(t, "image/jpeg", m.MimeType)
		assert.Equal(t, int64(len(jpegBytes)), m.FileSize)
		assert.Nil(t, m.Width)
		require.NotNil(t, m.Height)
		assert.Equal(t, 600, *m.Height)
		assert.Equal(t, "P1", m.ExternalID)
		assert.Equal(t, "P1", m.SourceIdentifier())
		assert.Equal(t, "abc123", m.SourceHash())
		assert.False(t, m.IsExternal())
		require.NotNil(t, m.FileMetadata)
		assert.JSONEq(t, `{"camera_make": "Fuji", "order_in_entry": 0}`, *m.FileMetadata)
		assert.NoError(t, transfer.ValidateMedia(&m))
	})

	t.Run("markdown fallback entry", func(t *testing.T) {
		e := journal.Entries[1]
		assert.Equal(t, "E3", e.ExternalID)
		assert.Nil(t, e.Title)
		assert.Equal(t, "UTC", e.EntryTimezone)
		assert.Equal(t, []delta.Embed{{Kind: delta.EmbedImage, Ref: "P9"}}, e.ContentDelta.Embeds())
		assert.Equal(t, "Look \n\nhere", *e.ContentPlainText)
		assert.Empty(t, e.Media)
		assert.NoError(t, transfer.ValidateEntry(&e))
	})
}

func TestReader_TitleOnlyEntryHasEmptyBody(t *testing.T) {
	root := t.TempDir()
	writeJSON(t, filepath.Join(root, "Journal.json"), map[string]any{
		"entries": []any{map[string]any{
			"uuid":         "E1",
			"creationDate": "2024-01-01T10:00:00Z",
			"richText":     `{"contents": [{"text": "Only a title\n", "attributes": {"line": {"header": 1}}}]}`,
		}},
	})

	archive, err := NewReader(nil).Read(context.Background(), root)
	require.NoError(t, err)
	items := readAll(t, archive)
	require.Len(t, items, 1)
	require.Len(t, items[0].Value.Entries, 1)

	e := items[0].Value.Entries[0]
	assert.Equal(t, "Only a title", *e.Title)
	assert.Equal(t, delta.Empty(), e.ContentDelta)
	assert.Nil(t, e.ContentPlainText)
	assert.Equal(t, 0, e.WordCount)
}

func TestReader_NoJournalFiles(t *testing.T) {
	_, err := NewReader(nil).Read(context.Background(), t.TempDir())
	assert.True(t, transfer.IsFatal(err))
}
