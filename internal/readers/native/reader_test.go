package native

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/journalport/internal/readers"
	"github.com/mrlokans/journalport/internal/transfer"
)

const sampleManifest = `{
  "export_version": "1.3",
  "export_date": "2025-01-02T10:00:00Z",
  "app_version": "1.0.0",
  "user_email": "someone@example.com",
  "journals": [
    {
      "title": "Travel",
      "created_at": "2024-01-01T00:00:00Z",
      "updated_at": "2024-01-01T00:00:00Z",
      "external_id": "j-1",
      "entries": [
        {"entry_datetime_utc": "2024-01-02T08:00:00Z", "entry_timezone": "UTC", "content": "Day one", "external_id": "e-1"},
        {"entry_datetime_utc": "2024-01-03T08:00:00Z", "entry_timezone": "UTC", "content": "Day two", "external_id": "e-2"}
      ]
    },
    {"title": 42, "entries": [{}]},
    {
      "title": "Work",
      "created_at": "2024-02-01T00:00:00Z",
      "updated_at": "2024-02-01T00:00:00Z",
      "entries": []
    }
  ],
  "mood_definitions": [
    {"name": "Calm", "category": "positive", "external_id": "m-1", "position": 1}
  ],
  "moments": [
    {"logged_at": "2024-03-01T09:00:00Z", "logged_timezone": "UTC", "external_id": "mo-1"}
  ],
  "stats": {"journal_count": 3}
}`

func writeManifest(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func collect(t *testing.T, a *readers.Archive) ([]readers.Item[transfer.Journal], []readers.Item[transfer.Moment]) {
	t.Helper()
	var journals []readers.Item[transfer.Journal]
	var moments []readers.Item[transfer.Moment]
	require.NoError(t, a.EachJournal(context.Background(), func(it readers.Item[transfer.Journal]) error {
		journals = append(journals, it)
		return nil
	}))
	require.NoError(t, a.EachMoment(context.Background(), func(it readers.Item[transfer.Moment]) error {
		moments = append(moments, it)
		return nil
	}))
	return journals, moments
}

func TestReader_Modes(t *testing.T) {
	tests := []struct {
		name      string
		threshold int64
	}{
		{"in memory", 0},
		{"streaming", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeManifest(t, sampleManifest)
			archive, err := NewReader(tt.threshold, nil).Read(context.Background(), path, "/media")
			require.NoError(t, err)

			assert.Equal(t, readers.FormatNative, archive.Format)
			assert.Equal(t, "/media", archive.MediaRoot)
			assert.Equal(t, 3, archive.JournalCount)
			assert.Equal(t, 3, archive.EntryCount)
			assert.Equal(t, 1, archive.MomentCount)

			assert.Equal(t, "1.3", archive.Header.ExportVersion)
			assert.Equal(t, "someone@example.com", archive.Header.UserEmail)
			require.Len(t, archive.Header.MoodDefinitions, 1)
			assert.Equal(t, "Calm", archive.Header.MoodDefinitions[0].Name)
			assert.Empty(t, archive.Header.Journals)
			assert.Empty(t, archive.Header.Moments)
			assert.EqualValues(t, 3, archive.Header.Stats["journal_count"])

			journals, moments := collect(t, archive)
			require.Len(t, journals, 3)

			assert.NoError(t, journals[0].Err)
			assert.Equal(t, "Travel", journals[0].Value.Title)
			require.Len(t, journals[0].Value.Entries, 2)
			require.NotNil(t, journals[0].Value.Entries[0].ContentPlainText)
			assert.Equal(t, "Day one", *journals[0].Value.Entries[0].ContentPlainText)

			assert.Error(t, journals[1].Err)
			assert.Equal(t, 1, journals[1].Index)

			assert.NoError(t, journals[2].Err)
			assert.Equal(t, "Work", journals[2].Value.Title)

			require.Len(t, moments, 1)
			assert.Equal(t, "mo-1", moments[0].Value.ExternalID)
		})
	}
}

func TestReader_HeaderErrors(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantVersion bool
	}{
		{"missing version", `{"journals": []}`, false},
		{"newer minor", `{"export_version": "1.9", "journals": []}`, true},
		{"other major", `{"export_version": "2.0", "journals": []}`, true},
		{"not an object", `[1, 2, 3]`, false},
		{"broken json", `{"export_version": "1.3", "journals": [`, false},
		{"journals not an array", `{"export_version": "1.3", "journals": 5}`, false},
	}

	for _, tt := range tests {
		for _, threshold := range []int64{0, 1} {
			t.Run(tt.name, func(t *testing.T) {
				path := writeManifest(t, tt.body)
				_, err := NewReader(threshold, nil).Read(context.Background(), path, "")
				require.Error(t, err)
				assert.True(t, transfer.IsFatal(err))

				var ve *transfer.VersionError
				assert.Equal(t, tt.wantVersion, errors.As(err, &ve))
			})
		}
	}
}

func TestReader_MissingManifest(t *testing.T) {
	_, err := NewReader(0, nil).Read(context.Background(), filepath.Join(t.TempDir(), "data.json"), "")

	var fe *transfer.FormatError
	assert.ErrorAs(t, err, &fe)
}

func TestReader_StreamingStopsOnYieldError(t *testing.T) {
	path := writeManifest(t, sampleManifest)
	archive, err := NewReader(1, nil).Read(context.Background(), path, "")
	require.NoError(t, err)

	stop := errors.New("stop here")
	seen := 0
	err = archive.EachJournal(context.Background(), func(readers.Item[transfer.Journal]) error {
		seen++
		return stop
	})

	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, seen)
}

func TestReader_StreamingHonoursCancellation(t *testing.T) {
	path := writeManifest(t, sampleManifest)
	archive, err := NewReader(1, nil).Read(context.Background(), path, "")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = archive.EachJournal(ctx, func(readers.Item[transfer.Journal]) error { return nil })

	assert.ErrorIs(t, err, context.Canceled)
}

func TestDetect(t *testing.T) {
	native := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(native, "data.json"), []byte("{}"), 0o644))
	format, err := readers.Detect(native)
	require.NoError(t, err)
	assert.Equal(t, readers.FormatNative, format)

	dayone := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dayone, "Journal.json"), []byte("{}"), 0o644))
	format, err = readers.Detect(dayone)
	require.NoError(t, err)
	assert.Equal(t, readers.FormatDayOne, format)

	_, err = readers.Detect(t.TempDir())
	assert.True(t, transfer.IsFatal(err))
}
