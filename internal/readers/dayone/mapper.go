package dayone

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mrlokans/journalport/internal/delta"
	"github.com/mrlokans/journalport/internal/entities"
	"github.com/mrlokans/journalport/internal/mediastore"
	"github.com/mrlokans/journalport/internal/readers"
	"github.com/mrlokans/journalport/internal/transfer"
)

const defaultJournalTitle = "Imported from Day One"

// mapper converts DayOne entries into transfer DTOs.
type mapper struct {
	root   string
	index  *mediaIndex
	logger *zap.Logger
	now    time.Time
	warn   func(msg, category string)
}

func (m *mapper) mapJournal(name, file string, meta map[string]any, entries []transfer.Entry) transfer.Journal {
	title := strings.TrimSpace(name)
	if title == "" {
		title = defaultJournalTitle
	}
	description := fmt.Sprintf("Imported from Day One journal '%s'", name)

	journal := transfer.Journal{
		Title:       title,
		Description: &description,
		EntryCount:  len(entries),
		Entries:     entries,
		CreatedAt:   m.now,
		UpdatedAt:   m.now,
	}

	var first, last time.Time
	for _, e := range entries {
		if first.IsZero() || e.EntryDatetimeUTC.Before(first) {
			first = e.EntryDatetimeUTC
		}
		if last.IsZero() || e.EntryDatetimeUTC.After(last) {
			last = e.EntryDatetimeUTC
		}
	}
	if !first.IsZero() {
		journal.CreatedAt = first
		journal.LastEntryAt = &last
	}

	var version any
	if meta != nil {
		version = meta["version"]
	}
	journal.ImportMetadata = map[string]any{
		"source":              readers.FormatDayOne,
		"source_version":      version,
		"imported_at":         m.now.UTC().Format(time.RFC3339),
		"export_file":         file,
		"raw_export_metadata": meta,
	}
	return journal
}

func (m *mapper) mapEntry(e *Entry) (*transfer.Entry, error) {
	if e.CreationDate.IsZero() {
		return nil, errors.New("creationDate is missing")
	}

	refs := map[string]string{}
	kinds := map[string]string{}
	for _, group := range e.attachments() {
		for _, media := range group.items {
			if media.Identifier == "" {
				continue
			}
			refs[media.Identifier] = media.placeholderRef()
			kinds[media.Identifier] = delta.TokenForEmbedKind(group.kind.embed)
		}
	}

	log := m.logger.With(zap.String("entry_uuid", e.UUID))

	rt, err := parseRichText(e.RichText)
	if err != nil {
		log.Warn("failed to parse richText, falling back to text", zap.Error(err))
		rt = nil
	}
	title := extractTitle(rt)

	var doc *delta.Document
	if rt != nil && len(rt.Contents) > 0 {
		var missing []string
		doc, missing = rt.toDelta(refs)
		for _, id := range missing {
			log.Warn("embedded media not found in entry media list", zap.String("media_id", id))
		}
		hasText, hasEmbeds := rt.hasBody()
		switch {
		case title == "":
		case !hasText && !hasEmbeds:
			doc = delta.Empty()
		default:
			doc = delta.StripTitleLine(doc, title)
		}
	}

	if doc == nil {
		content := strings.TrimSpace(e.Text)
		if content == "" || (title != "" && content == title) {
			doc = delta.Empty()
		} else {
			content = replaceMomentLinks(content, kinds, func(id string) {
				log.Warn("unresolved moment identifier, defaulting to photo", zap.String("media_id", id))
			})
			doc = markdownToDelta(content)
		}
	}

	created := e.CreationDate.UTC()
	updated := created
	if e.ModifiedDate != nil && !e.ModifiedDate.IsZero() {
		updated = e.ModifiedDate.UTC()
	}
	zone := transfer.NormalizeTimezone(e.TimeZone)

	entry := &transfer.Entry{
		ContentDelta:     doc,
		EntryDate:        transfer.LocalDate(created, zone),
		EntryDatetimeUTC: created,
		EntryTimezone:    zone,
		WordCount:        delta.WordCount(doc),
		IsPinned:         e.Starred || e.Pinned || e.IsPinned,
		Tags:             normalizeTags(e.Tags),
		Media:            []transfer.Media{},
		CreatedAt:        created,
		UpdatedAt:        updated,
		ExternalID:       e.UUID,
		ImportMetadata:   importMetadata(e, zone),
	}
	if title != "" {
		entry.Title = &title
	}
	if plain := delta.PlainText(doc); plain != "" {
		entry.ContentPlainText = &plain
	}
	if e.Location != nil {
		entry.LocationJSON, entry.Latitude, entry.Longitude = mapLocation(e.Location)
	}
	if e.Weather != nil {
		entry.WeatherJSON, entry.WeatherSummary = mapWeather(e.Weather)
	}

	for _, group := range e.attachments() {
		for _, media := range group.items {
			dto, ok := m.mapMedia(group.kind, media)
			if !ok {
				log.Warn("media file not found", zap.String("kind", group.kind.label), zap.String("media_id", media.Identifier))
				m.warn(fmt.Sprintf("Media file not found for %s %s", group.kind.label, media.Identifier), transfer.CategoryMissingMedia)
				continue
			}
			entry.Media = append(entry.Media, *dto)
		}
	}
	return entry, nil
}

func normalizeTags(tags []string) []string {
	out := []string{}
	seen := map[string]bool{}
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func firstNonNil(values ...*string) *string {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

func putString(m map[string]any, key string, v *string) {
	if v != nil {
		m[key] = *v
	}
}

func putFloat(m map[string]any, key string, v *float64) {
	if v != nil {
		m[key] = *v
	}
}

func mapLocation(l *Location) (map[string]any, *float64, *float64) {
	out := map[string]any{}
	putString(out, "name", firstNonNil(l.PlaceName, l.LocalityName, l.AdministrativeArea, l.Country))
	putString(out, "street", l.Street)
	putString(out, "locality", l.LocalityName)
	putString(out, "admin_area", l.AdministrativeArea)
	putString(out, "country", l.Country)
	putFloat(out, "latitude", l.Latitude)
	putFloat(out, "longitude", l.Longitude)
	putString(out, "timezone", l.TimeZoneName)
	return out, l.Latitude, l.Longitude
}

func mapWeather(w *Weather) (map[string]any, *string) {
	out := map[string]any{}
	putFloat(out, "temp_c", w.TemperatureCelsius)
	putString(out, "condition", w.ConditionsDescription)
	putString(out, "code", w.WeatherCode)
	putString(out, "service", w.WeatherServiceName)
	putFloat(out, "humidity", w.RelativeHumidity)
	putFloat(out, "visibility_km", w.VisibilityKM)
	putFloat(out, "pressure_mb", w.PressureMB)
	putFloat(out, "wind_speed_kph", w.WindSpeedKPH)
	putFloat(out, "wind_bearing", w.WindBearing)

	var parts []string
	if w.TemperatureCelsius != nil {
		parts = append(parts, fmt.Sprintf("%.1f°C", *w.TemperatureCelsius))
	}
	if w.ConditionsDescription != nil && *w.ConditionsDescription != "" {
		parts = append(parts, *w.ConditionsDescription)
	}
	if len(parts) == 0 {
		return out, nil
	}
	summary := strings.Join(parts, ", ")
	return out, &summary
}

// importMetadata keeps the raw DayOne entry minus its text, with media lists
// reduced to their identifiers and hashes.
func importMetadata(e *Entry, zone string) map[string]any {
	raw := make(map[string]any, len(e.Raw))
	for k, v := range e.Raw {
		if v != nil {
			raw[k] = v
		}
	}
	delete(raw, "text")
	for _, key := range []string{"photos", "videos", "audios"} {
		pruned := pruneMediaList(raw[key])
		if len(pruned) == 0 {
			delete(raw, key)
			continue
		}
		raw[key] = pruned
	}
	return map[string]any{
		"source":              readers.FormatDayOne,
		"raw_dayone":          raw,
		"normalized_timezone": zone,
	}
}

func pruneMediaList(v any) []map[string]any {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []map[string]any
	for _, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		kept := map[string]any{}
		for _, key := range []string{"identifier", "md5"} {
			if val, ok := obj[key]; ok && val != nil {
				kept[key] = val
			}
		}
		if len(kept) > 0 {
			out = append(out, kept)
		}
	}
	return out
}

// mapMedia builds the media DTO of an attachment. ok is false when its file
// is not part of the archive.
func (m *mapper) mapMedia(kind mediaKind, media Media) (*transfer.Media, bool) {
	rel, ok := m.index.find(kind, media.MD5, media.Identifier)
	if !ok {
		return nil, false
	}
	abs := filepath.Join(m.root, filepath.FromSlash(rel))
	info, err := os.Stat(abs)
	if err != nil {
		return nil, false
	}

	mime := mediastore.DetectMime(abs)
	mediaType := kind.mediaType
	if kind.label == kindPhoto.label && mediastore.MediaTypeForMime(mime) != entities.MediaTypeImage {
		mediaType = string(entities.MediaTypeUnknown)
	}

	meta := map[string]any{}
	if kind.label == kindPhoto.label {
		putString(meta, "camera_make", media.CameraMake)
		putString(meta, "camera_model", media.CameraModel)
		putString(meta, "lens_model", media.LensModel)
		for key, v := range map[string]any{
			"focal_length":  media.FocalLength,
			"exposure_time": media.ExposureTime,
			"fnumber":       media.FNumber,
			"iso":           media.ISO,
		} {
			if v != nil {
				meta[key] = v
			}
		}
	}
	if media.OrderInEntry != nil {
		meta["order_in_entry"] = *media.OrderInEntry
	}

	created := m.now
	if media.Date != nil && !media.Date.IsZero() {
		created = media.Date.UTC()
	}
	assetID := media.placeholderRef()
	external := map[string]any{"identifier": media.Identifier}
	if media.MD5 != "" {
		external["md5"] = media.MD5
	}

	dto := &transfer.Media{
		Filename:          path.Base(rel),
		FilePath:          &rel,
		MediaType:         mediaType,
		FileSize:          info.Size(),
		MimeType:          mime,
		Width:             positive(media.Width),
		Height:            positive(media.Height),
		Duration:          media.Duration,
		UploadStatus:      "completed",
		OrderInEntry:      media.OrderInEntry,
		CreatedAt:         created,
		UpdatedAt:         created,
		ExternalAssetID:   &assetID,
		ExternalCreatedAt: media.Date,
		ExternalMetadata:  external,
		ExternalID:        media.Identifier,
	}
	if len(meta) > 0 {
		encoded, err := json.Marshal(meta)
		if err == nil {
			s := string(encoded)
			dto.FileMetadata = &s
		}
	}
	return dto, true
}

func positive(v *int) *int {
	if v == nil || *v <= 0 {
		return nil
	}
	return v
}

// mediaIndex locates DayOne media files by name stem, which is either the
// md5 or the identifier of the attachment.
type mediaIndex struct {
	files map[string]map[string]string
}

func buildMediaIndex(root string) (*mediaIndex, error) {
	ix := &mediaIndex{files: map[string]map[string]string{}}
	for _, kind := range []mediaKind{kindPhoto, kindVideo, kindAudio} {
		for _, dir := range kind.dirs {
			entries, err := os.ReadDir(filepath.Join(root, dir))
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			if err != nil {
				return nil, err
			}
			stems := map[string]string{}
			for _, e := range entries {
				if !e.Type().IsRegular() {
					continue
				}
				name := e.Name()
				stem := strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name)))
				if _, taken := stems[stem]; !taken {
					stems[stem] = dir + "/" + name
				}
			}
			ix.files[dir] = stems
		}
	}
	return ix, nil
}

func (ix *mediaIndex) find(kind mediaKind, keys ...string) (string, bool) {
	for _, key := range keys {
		if key == "" {
			continue
		}
		for _, dir := range kind.dirs {
			if rel, ok := ix.files[dir][strings.ToLower(key)]; ok {
				return rel, true
			}
		}
	}
	return "", false
}
