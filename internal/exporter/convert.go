package exporter

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mrlokans/journalport/internal/archive"
	"github.com/mrlokans/journalport/internal/delta"
	"github.com/mrlokans/journalport/internal/entities"
	"github.com/mrlokans/journalport/internal/transfer"
	"github.com/mrlokans/journalport/internal/utils"
)

func (r *build) collectReference() error {
	ref := &r.manifest.Reference

	moodRows, err := r.moods.ListMoods(r.ownerID)
	if err != nil {
		return err
	}
	ref.MoodDefinitions = make([]transfer.MoodDefinition, 0, len(moodRows))
	for _, m := range moodRows {
		ref.MoodDefinitions = append(ref.MoodDefinitions, transfer.MoodDefinition{
			Name:       m.Name,
			Category:   m.Category,
			Icon:       m.Icon,
			Key:        m.Key,
			ColorValue: m.ColorValue,
			Score:      m.Score,
			Position:   m.Position,
			IsActive:   m.IsActive,
			IsCustom:   m.IsCustom,
			CreatedAt:  timePtr(m.CreatedAt),
			UpdatedAt:  timePtr(m.UpdatedAt),
			ExternalID: m.ID,
		})
	}

	groupRows, err := r.moods.ListMoodGroups(r.ownerID)
	if err != nil {
		return err
	}
	groupIDs := make([]string, 0, len(groupRows))
	ref.MoodGroups = make([]transfer.MoodGroup, 0, len(groupRows))
	for _, g := range groupRows {
		groupIDs = append(groupIDs, g.ID)
		ref.MoodGroups = append(ref.MoodGroups, transfer.MoodGroup{
			Name:       g.Name,
			Icon:       g.Icon,
			ColorValue: g.ColorValue,
			Position:   g.Position,
			IsCustom:   g.IsCustom,
			CreatedAt:  g.CreatedAt,
			UpdatedAt:  g.UpdatedAt,
			ExternalID: g.ID,
		})
	}

	links, err := r.moods.ListMoodGroupLinks(groupIDs)
	if err != nil {
		return err
	}
	ref.MoodGroupLinks = make([]transfer.MoodGroupLink, 0, len(links))
	for _, l := range links {
		ref.MoodGroupLinks = append(ref.MoodGroupLinks, transfer.MoodGroupLink{
			MoodGroupExternalID: l.MoodGroupID,
			MoodExternalID:      l.MoodID,
			Position:            l.Position,
			CreatedAt:           l.CreatedAt,
			UpdatedAt:           l.UpdatedAt,
		})
	}

	prefs, err := r.moods.ListMoodPreferences(r.ownerID)
	if err != nil {
		return err
	}
	ref.MoodPreferences = make([]transfer.MoodPreference, 0, len(prefs))
	for _, p := range prefs {
		ref.MoodPreferences = append(ref.MoodPreferences, transfer.MoodPreference{
			MoodExternalID: p.MoodID,
			SortOrder:      p.SortOrder,
			IsHidden:       p.IsHidden,
			CreatedAt:      p.CreatedAt,
			UpdatedAt:      p.UpdatedAt,
		})
	}

	groupPrefs, err := r.moods.ListMoodGroupPreferences(r.ownerID)
	if err != nil {
		return err
	}
	ref.MoodGroupPreferences = make([]transfer.MoodGroupPreference, 0, len(groupPrefs))
	for _, p := range groupPrefs {
		ref.MoodGroupPreferences = append(ref.MoodGroupPreferences, transfer.MoodGroupPreference{
			MoodGroupExternalID: p.MoodGroupID,
			SortOrder:           p.SortOrder,
			IsHidden:            p.IsHidden,
			CreatedAt:           p.CreatedAt,
			UpdatedAt:           p.UpdatedAt,
		})
	}

	activityGroups, err := r.moods.ListActivityGroups(r.ownerID)
	if err != nil {
		return err
	}
	ref.ActivityGroups = make([]transfer.ActivityGroup, 0, len(activityGroups))
	for _, g := range activityGroups {
		ref.ActivityGroups = append(ref.ActivityGroups, transfer.ActivityGroup{
			Name:       g.Name,
			ColorValue: g.ColorValue,
			Icon:       g.Icon,
			Position:   g.Position,
			CreatedAt:  g.CreatedAt,
			UpdatedAt:  g.UpdatedAt,
			ExternalID: g.ID,
		})
	}

	activities, err := r.moods.ListActivities(r.ownerID)
	if err != nil {
		return err
	}
	ref.Activities = make([]transfer.Activity, 0, len(activities))
	for _, a := range activities {
		ref.Activities = append(ref.Activities, transfer.Activity{
			Name:            a.Name,
			Icon:            a.Icon,
			Color:           a.Color,
			Position:        a.Position,
			GroupExternalID: a.GroupID,
			CreatedAt:       a.CreatedAt,
			UpdatedAt:       a.UpdatedAt,
			ExternalID:      a.ID,
		})
	}

	categories, err := r.goals.ListCategories(r.ownerID)
	if err != nil {
		return err
	}
	ref.GoalCategories = make([]transfer.GoalCategory, 0, len(categories))
	for _, c := range categories {
		ref.GoalCategories = append(ref.GoalCategories, transfer.GoalCategory{
			Name:       c.Name,
			ColorValue: c.ColorValue,
			Icon:       c.Icon,
			Position:   c.Position,
			CreatedAt:  c.CreatedAt,
			UpdatedAt:  c.UpdatedAt,
			ExternalID: c.ID,
		})
	}

	goalRows, err := r.goals.ListGoals(r.ownerID)
	if err != nil {
		return err
	}
	ref.Goals = make([]transfer.Goal, 0, len(goalRows))
	for _, g := range goalRows {
		ref.Goals = append(ref.Goals, transfer.Goal{
			Title:              g.Title,
			GoalType:           g.GoalType,
			FrequencyType:      g.FrequencyType,
			TargetCount:        g.TargetCount,
			ReminderTime:       g.ReminderTime,
			IsPaused:           g.IsPaused,
			Icon:               g.Icon,
			ColorValue:         g.ColorValue,
			Position:           g.Position,
			ArchivedAt:         g.ArchivedAt,
			ActivityExternalID: g.ActivityID,
			CategoryExternalID: g.CategoryID,
			CreatedAt:          g.CreatedAt,
			UpdatedAt:          g.UpdatedAt,
			ExternalID:         g.ID,
		})
	}

	ref.GoalLogs = []transfer.GoalLog{}
	ref.GoalManualLogs = []transfer.GoalManualLog{}
	return nil
}

// collectGoalLogs runs after moments so log → moment links only point at
// moments present in the manifest.
func (r *build) collectGoalLogs() error {
	ref := &r.manifest.Reference

	logs, err := r.goals.ListGoalLogs(r.ownerID)
	if err != nil {
		return err
	}
	for _, l := range logs {
		logged, err := transfer.ParseDate(l.LoggedDate)
		if err != nil {
			r.warn(fmt.Sprintf("Goal log %s skipped: %v", l.ID, err))
			continue
		}
		dto := transfer.GoalLog{
			GoalExternalID: l.GoalID,
			LoggedDate:     logged,
			PeriodStart:    optionalDate(l.PeriodStart),
			PeriodEnd:      optionalDate(l.PeriodEnd),
			Status:         l.Status,
			Count:          l.Count,
			Source:         l.Source,
			LastUpdatedAt:  l.LastUpdatedAt,
			CreatedAt:      l.CreatedAt,
			UpdatedAt:      l.UpdatedAt,
			ExternalID:     l.ID,
		}
		if l.MomentID != nil && r.exported[*l.MomentID] {
			dto.MomentExternalID = l.MomentID
		}
		ref.GoalLogs = append(ref.GoalLogs, dto)
	}

	manual, err := r.goals.ListManualLogs(r.ownerID)
	if err != nil {
		return err
	}
	for _, l := range manual {
		ref.GoalManualLogs = append(ref.GoalManualLogs, transfer.GoalManualLog{
			GoalExternalID: l.GoalID,
			LoggedDate:     optionalDate(l.LoggedDate),
			Status:         l.Status,
			CreatedAt:      l.CreatedAt,
			UpdatedAt:      l.UpdatedAt,
			ExternalID:     l.ID,
		})
	}
	return nil
}

func (r *build) exportJournal(j *entities.Journal) (*transfer.Journal, error) {
	entries, err := r.journals.ListEntries(j.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load entries of journal %s: %w", j.ID, err)
	}

	dto := &transfer.Journal{
		Title:          j.Title,
		Description:    j.Description,
		Color:          j.Color,
		Icon:           j.Icon,
		IsFavorite:     j.IsFavorite,
		IsArchived:     j.IsArchived,
		EntryCount:     len(entries),
		LastEntryAt:    j.LastEntryAt,
		ImportMetadata: j.ImportMetadata,
		Entries:        make([]transfer.Entry, 0, len(entries)),
		CreatedAt:      j.CreatedAt,
		UpdatedAt:      j.UpdatedAt,
		ExternalID:     j.ID,
	}

	for i := range entries {
		entry, err := r.exportEntry(&entries[i])
		if err != nil {
			return nil, err
		}
		dto.Entries = append(dto.Entries, *entry)
		r.advance(1)
	}
	return dto, nil
}

func (r *build) exportEntry(e *entities.Entry) (*transfer.Entry, error) {
	media, paths := r.exportMedia(e.ID, e.Media)

	dto := &transfer.Entry{
		Title:            e.Title,
		ContentDelta:     embedsToPaths(e.ContentDelta, paths),
		ContentPlainText: e.ContentPlainText,
		EntryDatetimeUTC: e.EntryDatetimeUTC.UTC(),
		EntryTimezone:    e.EntryTimezone,
		WordCount:        e.WordCount,
		IsPinned:         e.IsPinned,
		IsDraft:          e.IsDraft,
		LocationJSON:     e.LocationJSON,
		Latitude:         e.Latitude,
		Longitude:        e.Longitude,
		WeatherJSON:      e.WeatherJSON,
		WeatherSummary:   e.WeatherSummary,
		ImportMetadata:   e.ImportMetadata,
		Tags:             make([]string, 0, len(e.Tags)),
		Media:            media,
		PromptText:       e.PromptText,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
		ExternalID:       e.ID,
	}
	dto.EntryDate = transfer.LocalDate(dto.EntryDatetimeUTC, e.EntryTimezone)
	for _, t := range e.Tags {
		dto.Tags = append(dto.Tags, t.Name)
	}

	moment, err := r.journals.GetMomentForEntry(e.ID)
	if err != nil {
		return nil, err
	}
	if moment != nil {
		dto.Moment, err = r.exportMoment(moment)
		if err != nil {
			return nil, err
		}
	}
	return dto, nil
}

// exportMoment returns nil when the moment has no usable date.
func (r *build) exportMoment(m *entities.Moment) (*transfer.Moment, error) {
	if m.LoggedAt.IsZero() && m.LoggedDate == "" {
		r.warn(fmt.Sprintf("Moment date missing, skipping moment '%s'", m.ID))
		return nil, nil
	}

	media, _ := r.exportMedia(m.ID, m.Media)
	dto := &transfer.Moment{
		LoggedTimezone: m.LoggedTimezone,
		Note:           m.Note,
		LocationData:   m.LocationData,
		WeatherData:    m.WeatherData,
		MoodActivity:   make([]transfer.MomentMoodActivity, 0, len(m.MoodActivity)),
		Media:          media,
		CreatedAt:      timePtr(m.CreatedAt),
		UpdatedAt:      timePtr(m.UpdatedAt),
		ExternalID:     m.ID,
	}
	if !m.LoggedAt.IsZero() {
		loggedAt := m.LoggedAt.UTC()
		dto.LoggedAt = &loggedAt
	}
	if m.LoggedDate != "" {
		d := optionalDate(m.LoggedDate)
		if !d.IsZero() {
			dto.LoggedDate = &d
		}
	}
	if m.PrimaryMoodID != nil {
		dto.PrimaryMoodExternalID = m.PrimaryMoodID
		if mood, err := r.moods.GetMood(*m.PrimaryMoodID); err == nil && mood != nil {
			dto.PrimaryMoodName = &mood.Name
		}
	}

	for _, link := range m.MoodActivity {
		item := transfer.MomentMoodActivity{
			MoodExternalID:     link.MoodID,
			ActivityExternalID: link.ActivityID,
		}
		if link.Mood != nil {
			item.MoodName = &link.Mood.Name
		}
		if link.Activity != nil {
			item.ActivityName = &link.Activity.Name
		}
		dto.MoodActivity = append(dto.MoodActivity, item)
	}

	r.exported[m.ID] = true
	return dto, nil
}

// exportMedia converts the media rows of one parent and queues their blobs.
// Rows whose blob is gone are logged and left out. It returns the media
// id → archive path map used to rewrite content embeds.
func (r *build) exportMedia(parentID string, rows []entities.Media) ([]transfer.Media, map[string]string) {
	out := make([]transfer.Media, 0, len(rows))
	paths := map[string]string{}

	for _, m := range rows {
		dto := transfer.Media{
			Filename:          m.Filename,
			MediaType:         string(m.MediaType),
			FileSize:          m.FileSize,
			MimeType:          m.MimeType,
			Checksum:          m.Checksum,
			Width:             m.Width,
			Height:            m.Height,
			Duration:          m.Duration,
			AltText:           m.AltText,
			FileMetadata:      m.FileMetadata,
			UploadStatus:      m.UploadStatus,
			OrderInEntry:      m.OrderInEntry,
			CreatedAt:         m.CreatedAt,
			UpdatedAt:         m.UpdatedAt,
			ExternalProvider:  m.ExternalProvider,
			ExternalAssetID:   m.ExternalAssetID,
			ExternalURL:       m.ExternalURL,
			ExternalCreatedAt: m.ExternalCreatedAt,
			ExternalMetadata:  m.ExternalMetadata,
			ExternalID:        m.ID,
		}
		if dto.MediaType == "" {
			dto.MediaType = string(entities.MediaTypeUnknown)
		}

		if m.FilePath == nil || *m.FilePath == "" {
			if m.ExternalProvider == nil {
				r.warn(fmt.Sprintf("Media %s has no stored file, omitted", m.ID))
				continue
			}
			out = append(out, dto)
			continue
		}

		ok, err := r.blobs.Exists(r.ctx, *m.FilePath)
		if err != nil || !ok {
			r.log.Warn("media blob missing", zap.String("media_id", m.ID), zap.String("key", *m.FilePath), zap.Error(err))
			r.warn(fmt.Sprintf("Media file missing from storage, omitted: %s", m.Filename))
			continue
		}

		archivePath := utils.MediaArchivePath(parentID, m.ID, m.Filename)
		dto.FilePath = &archivePath
		r.media = append(r.media, archive.MediaFile{ArchivePath: archivePath, Key: *m.FilePath})
		r.mediaSize += m.FileSize
		paths[m.ID] = archivePath
		out = append(out, dto)
	}
	return out, paths
}

// embedsToPaths replaces embed refs that name exported media with their
// archive path. Other ops are copied unchanged.
func embedsToPaths(doc *delta.Document, paths map[string]string) *delta.Document {
	if doc == nil {
		return nil
	}
	out := doc.Clone()
	for i, op := range out.Ops {
		if !op.IsEmbed() {
			continue
		}
		if p, ok := paths[op.Embed.Ref]; ok {
			out.Ops[i].Embed = &delta.Embed{Kind: op.Embed.Kind, Ref: p}
		}
	}
	return out
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func optionalDate(s string) transfer.Date {
	d, err := transfer.ParseDate(s)
	if err != nil {
		return transfer.Date{}
	}
	return d
}
