package transfer

import (
	"errors"
	"fmt"
	"strings"
)

var validMediaTypes = map[string]bool{
	"image":   true,
	"video":   true,
	"audio":   true,
	"unknown": true,
}

// Validate checks the structural schema of a whole manifest. The exporter
// runs it before writing an archive.
func Validate(e *Export) error {
	if e == nil {
		return NewFormatError("manifest is empty", nil)
	}
	var errs []error
	if err := CheckVersion(e.ExportVersion); err != nil {
		errs = append(errs, err)
	}
	if e.ExportDate.IsZero() {
		errs = append(errs, errors.New("export_date is required"))
	}
	for i := range e.Journals {
		if err := ValidateJournal(&e.Journals[i]); err != nil {
			errs = append(errs, fmt.Errorf("journals[%d]: %w", i, err))
		}
	}
	for i := range e.Moments {
		if err := ValidateMoment(&e.Moments[i]); err != nil {
			errs = append(errs, fmt.Errorf("moments[%d]: %w", i, err))
		}
	}
	if err := ValidateReference(&e.Reference); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return NewFormatError("manifest failed validation", err)
	}
	return nil
}

func ValidateJournal(j *Journal) error {
	var errs []error
	if strings.TrimSpace(j.Title) == "" {
		errs = append(errs, errors.New("title is required"))
	}
	for i := range j.Entries {
		if err := ValidateEntry(&j.Entries[i]); err != nil {
			errs = append(errs, fmt.Errorf("entries[%d]: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

func ValidateEntry(e *Entry) error {
	var errs []error
	if e.EntryDatetimeUTC.IsZero() {
		errs = append(errs, errors.New("entry_datetime_utc is required"))
	}
	if !e.IsDraft && e.ContentDelta == nil && (e.ContentPlainText == nil || *e.ContentPlainText == "") {
		// An empty body is allowed only for drafts or media-only entries.
		if len(e.Media) == 0 {
			errs = append(errs, errors.New("content_delta or content_plain_text is required"))
		}
	}
	if e.WordCount < 0 {
		errs = append(errs, errors.New("word_count must not be negative"))
	}
	for i := range e.Media {
		if err := ValidateMedia(&e.Media[i]); err != nil {
			errs = append(errs, fmt.Errorf("media[%d]: %w", i, err))
		}
	}
	if e.Moment != nil {
		if err := ValidateMoment(e.Moment); err != nil {
			errs = append(errs, fmt.Errorf("moment: %w", err))
		}
	}
	return errors.Join(errs...)
}

func ValidateMoment(m *Moment) error {
	var errs []error
	for i := range m.Media {
		if err := ValidateMedia(&m.Media[i]); err != nil {
			errs = append(errs, fmt.Errorf("media[%d]: %w", i, err))
		}
	}
	for i, ma := range m.MoodActivity {
		if ma.MoodName == nil && ma.MoodExternalID == nil && ma.ActivityName == nil && ma.ActivityExternalID == nil {
			errs = append(errs, fmt.Errorf("mood_activity[%d]: mood or activity reference is required", i))
		}
	}
	return errors.Join(errs...)
}

func ValidateMedia(m *Media) error {
	var errs []error
	if strings.TrimSpace(m.Filename) == "" {
		errs = append(errs, errors.New("filename is required"))
	}
	if !validMediaTypes[m.MediaType] {
		errs = append(errs, fmt.Errorf("unknown media_type %q", m.MediaType))
	}
	if m.FileSize < 0 {
		errs = append(errs, errors.New("file_size must not be negative"))
	}
	if m.IsExternal() {
		return errors.Join(errs...)
	}
	if m.FilePath == nil || *m.FilePath == "" {
		errs = append(errs, errors.New("file_path is required for local media"))
	}
	return errors.Join(errs...)
}

// ValidateReference checks the reference arrays and that every
// *_external_id points at something declared in the same manifest.
func ValidateReference(r *Reference) error {
	var errs []error

	moods := map[string]bool{}
	for i, m := range r.MoodDefinitions {
		if strings.TrimSpace(m.Name) == "" {
			errs = append(errs, fmt.Errorf("mood_definitions[%d]: name is required", i))
		}
		if m.Score != nil && (*m.Score < 1 || *m.Score > 5) {
			errs = append(errs, fmt.Errorf("mood_definitions[%d]: score must be between 1 and 5", i))
		}
		if m.ExternalID != "" {
			moods[m.ExternalID] = true
		}
	}

	groups := map[string]bool{}
	for i, g := range r.MoodGroups {
		if strings.TrimSpace(g.Name) == "" {
			errs = append(errs, fmt.Errorf("mood_groups[%d]: name is required", i))
		}
		if g.ExternalID != "" {
			groups[g.ExternalID] = true
		}
	}
	for i, l := range r.MoodGroupLinks {
		if !groups[l.MoodGroupExternalID] {
			errs = append(errs, fmt.Errorf("mood_group_links[%d]: unknown mood group %q", i, l.MoodGroupExternalID))
		}
		if !moods[l.MoodExternalID] {
			errs = append(errs, fmt.Errorf("mood_group_links[%d]: unknown mood %q", i, l.MoodExternalID))
		}
	}
	for i, p := range r.MoodPreferences {
		if !moods[p.MoodExternalID] {
			errs = append(errs, fmt.Errorf("mood_preferences[%d]: unknown mood %q", i, p.MoodExternalID))
		}
	}
	for i, p := range r.MoodGroupPreferences {
		if !groups[p.MoodGroupExternalID] {
			errs = append(errs, fmt.Errorf("mood_group_preferences[%d]: unknown mood group %q", i, p.MoodGroupExternalID))
		}
	}

	activityGroups := map[string]bool{}
	for i, g := range r.ActivityGroups {
		if strings.TrimSpace(g.Name) == "" {
			errs = append(errs, fmt.Errorf("activity_groups[%d]: name is required", i))
		}
		if g.ExternalID != "" {
			activityGroups[g.ExternalID] = true
		}
	}
	activities := map[string]bool{}
	for i, a := range r.Activities {
		if strings.TrimSpace(a.Name) == "" {
			errs = append(errs, fmt.Errorf("activities[%d]: name is required", i))
		}
		if a.GroupExternalID != nil && !activityGroups[*a.GroupExternalID] {
			errs = append(errs, fmt.Errorf("activities[%d]: unknown activity group %q", i, *a.GroupExternalID))
		}
		if a.ExternalID != "" {
			activities[a.ExternalID] = true
		}
	}

	categories := map[string]bool{}
	for i, c := range r.GoalCategories {
		if strings.TrimSpace(c.Name) == "" {
			errs = append(errs, fmt.Errorf("goal_categories[%d]: name is required", i))
		}
		if c.ExternalID != "" {
			categories[c.ExternalID] = true
		}
	}
	goals := map[string]bool{}
	for i, g := range r.Goals {
		if strings.TrimSpace(g.Title) == "" {
			errs = append(errs, fmt.Errorf("goals[%d]: title is required", i))
		}
		if g.TargetCount < 1 {
			errs = append(errs, fmt.Errorf("goals[%d]: target_count must be at least 1", i))
		}
		if g.ActivityExternalID != nil && !activities[*g.ActivityExternalID] {
			errs = append(errs, fmt.Errorf("goals[%d]: unknown activity %q", i, *g.ActivityExternalID))
		}
		if g.CategoryExternalID != nil && !categories[*g.CategoryExternalID] {
			errs = append(errs, fmt.Errorf("goals[%d]: unknown goal category %q", i, *g.CategoryExternalID))
		}
		if g.ExternalID != "" {
			goals[g.ExternalID] = true
		}
	}
	for i, l := range r.GoalLogs {
		if !goals[l.GoalExternalID] {
			errs = append(errs, fmt.Errorf("goal_logs[%d]: unknown goal %q", i, l.GoalExternalID))
		}
		if l.LoggedDate.IsZero() {
			errs = append(errs, fmt.Errorf("goal_logs[%d]: logged_date is required", i))
		}
	}
	for i, l := range r.GoalManualLogs {
		if !goals[l.GoalExternalID] {
			errs = append(errs, fmt.Errorf("goal_manual_logs[%d]: unknown goal %q", i, l.GoalExternalID))
		}
	}

	return errors.Join(errs...)
}
