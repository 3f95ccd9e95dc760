package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mrlokans/journalport/internal/audit"
	auditrepo "github.com/mrlokans/journalport/internal/database/audit"
	"github.com/mrlokans/journalport/internal/delta"
	"github.com/mrlokans/journalport/internal/entities"
)

const rawMD5 = "0cc175b9c0f1b6a831c399e269772661"

func intp(v int) *int { return &v }

func strp(s string) *string { return &s }

// seedPlaceholderEntry stores an entry whose text still carries DayOne
// placeholders, with media that each placeholder can be matched against.
func (f *fixture) seedPlaceholderEntry(t *testing.T, source, text string) (*entities.Entry, []entities.Media) {
	t.Helper()
	journal := &entities.Journal{OwnerID: f.ownerID, Title: "Travel"}
	require.NoError(t, f.db.Create(journal).Error)

	doc := delta.WrapPlainText(text)
	plain := delta.PlainText(doc)
	entry := &entities.Entry{
		JournalID:        journal.ID,
		OwnerID:          f.ownerID,
		EntryDate:        "2024-03-01",
		EntryDatetimeUTC: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
		EntryTimezone:    "UTC",
		ContentDelta:     doc,
		ContentPlainText: &plain,
		WordCount:        delta.WordCount(doc),
		ImportMetadata: map[string]any{
			"source": source,
			"raw_dayone": map[string]any{
				"photos": []any{map[string]any{"identifier": "P-RAW", "md5": rawMD5}},
			},
		},
	}
	require.NoError(t, f.db.Omit("Tags", "Media").Create(entry).Error)

	media := []entities.Media{
		{Filename: "asset.jpeg", MediaType: entities.MediaTypeImage, ExternalAssetID: strp("P-ASSET")},
		{Filename: rawMD5 + ".jpeg", MediaType: entities.MediaTypeImage},
		{Filename: "clip.mov", MediaType: entities.MediaTypeVideo, OrderInEntry: intp(2)},
	}
	for i := range media {
		media[i].OwnerID = f.ownerID
		media[i].EntryID = &entry.ID
		media[i].UploadStatus = "completed"
		require.NoError(t, f.db.Create(&media[i]).Error)
	}
	return entry, media
}

const placeholderText = "Look DAYONE_PHOTO:P-ASSET here\nDAYONE_PHOTO:P-RAW\nDAYONE_VIDEO:V-ORD\nDAYONE_PHOTO:GHOST"

func TestUpgradeInlineMedia(t *testing.T) {
	tests := []struct {
		name   string
		dryRun bool
	}{
		{"apply", false},
		{"dry run", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			f.svc.SetAudit(audit.NewService(auditrepo.NewRepository(f.db), zap.NewNop()))
			entry, media := f.seedPlaceholderEntry(t, "dayone", placeholderText)

			res, err := f.svc.UpgradeInlineMedia(context.Background(), InlineMediaOptions{OwnerID: f.ownerID, BatchSize: 1, DryRun: tt.dryRun})
			require.NoError(t, err)
			assert.Equal(t, 1, res.Scanned)
			assert.Equal(t, 1, res.Updated)
			assert.Equal(t, 3, res.Resolved)
			assert.Equal(t, 1, res.Unresolved)
			assert.Equal(t, tt.dryRun, res.DryRun)

			var stored entities.Entry
			require.NoError(t, f.db.First(&stored, "id = ?", entry.ID).Error)

			var events int64
			require.NoError(t, f.db.Model(&entities.AuditEvent{}).Where("event_type = ?", entities.AuditEventUpgrade).Count(&events).Error)

			if tt.dryRun {
				assert.Empty(t, stored.ContentDelta.Embeds())
				assert.Equal(t, placeholderText, *stored.ContentPlainText)
				assert.Zero(t, events)
				return
			}

			embeds := stored.ContentDelta.Embeds()
			require.Len(t, embeds, 3)
			assert.Equal(t, delta.Embed{Kind: delta.EmbedImage, Ref: media[0].ID}, embeds[0])
			assert.Equal(t, delta.Embed{Kind: delta.EmbedImage, Ref: media[1].ID}, embeds[1])
			assert.Equal(t, delta.Embed{Kind: delta.EmbedVideo, Ref: media[2].ID}, embeds[2])
			assert.Contains(t, *stored.ContentPlainText, "DAYONE_PHOTO:GHOST")
			assert.NotContains(t, *stored.ContentPlainText, "P-ASSET")
			assert.Equal(t, int64(1), events)

			again, err := f.svc.UpgradeInlineMedia(context.Background(), InlineMediaOptions{OwnerID: f.ownerID})
			require.NoError(t, err)
			assert.Equal(t, 0, again.Updated)
			assert.Equal(t, 0, again.Resolved)
			assert.Equal(t, 1, again.Unresolved)
		})
	}
}

func TestUpgradeInlineMedia_SkipsOtherSources(t *testing.T) {
	f := setup(t)
	entry, _ := f.seedPlaceholderEntry(t, "native", placeholderText)

	res, err := f.svc.UpgradeInlineMedia(context.Background(), InlineMediaOptions{})
	require.NoError(t, err)
	assert.Zero(t, res.Scanned)
	assert.Zero(t, res.Updated)

	var stored entities.Entry
	require.NoError(t, f.db.First(&stored, "id = ?", entry.ID).Error)
	assert.Empty(t, stored.ContentDelta.Embeds())
}

func TestMD5Candidate(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{rawMD5 + ".jpeg", rawMD5},
		{"0CC175B9C0F1B6A831C399E269772661.HEIC", rawMD5},
		{"photos/" + rawMD5 + ".jpeg", rawMD5},
		{"IMG_0001.jpg", ""},
		{rawMD5 + rawMD5 + ".jpg", ""},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.want, md5Candidate(tt.filename))
		})
	}
}
