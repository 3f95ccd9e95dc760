package transfer

// Warning categories reported in ImportSummary.WarningCategories.
const (
	CategoryJournalError  = "Skipped (journal error)"
	CategoryEntryError    = "Skipped (entry error)"
	CategoryMomentError   = "Skipped (moment error)"
	CategoryMissingMedia  = "Skipped (missing media)"
	CategorySecurity      = "Security warning"
	CategoryFormat        = "Format warning"
	CategoryUnresolvedRef = "Unresolved media reference"
)

// ImportSummary is the result of one import job.
type ImportSummary struct {
	JournalsCreated              int `json:"journals_created"`
	EntriesCreated               int `json:"entries_created"`
	EntriesSkipped               int `json:"entries_skipped"`
	MomentsCreated               int `json:"moments_created"`
	MediaFilesImported           int `json:"media_files_imported"`
	MediaFilesDeduplicated       int `json:"media_files_deduplicated"`
	MediaFilesSkipped            int `json:"media_files_skipped"`
	TagsCreated                  int `json:"tags_created"`
	TagsReused                   int `json:"tags_reused"`
	MoodsCreated                 int `json:"moods_created"`
	MoodsReused                  int `json:"moods_reused"`
	MoodGroupsCreated            int `json:"mood_groups_created"`
	MoodGroupLinksCreated        int `json:"mood_group_links_created"`
	MoodPreferencesImported      int `json:"mood_preferences_imported"`
	MoodGroupPreferencesImported int `json:"mood_group_preferences_imported"`
	ActivityGroupsCreated        int `json:"activity_groups_created"`
	ActivitiesCreated            int `json:"activities_created"`
	GoalCategoriesCreated        int `json:"goal_categories_created"`
	GoalsCreated                 int `json:"goals_created"`
	GoalLogsCreated              int `json:"goal_logs_created"`
	GoalManualLogsCreated        int `json:"goal_manual_logs_created"`

	Warnings          []string                     `json:"warnings"`
	WarningCategories map[string]int               `json:"warning_categories"`
	IDMappings        map[string]map[string]string `json:"id_mappings,omitempty"`
}

func NewImportSummary() *ImportSummary {
	return &ImportSummary{
		Warnings:          []string{},
		WarningCategories: map[string]int{},
	}
}

// AddWarning records a human readable warning under category.
func (s *ImportSummary) AddWarning(msg, category string) {
	s.Warnings = append(s.Warnings, msg)
	if category != "" {
		if s.WarningCategories == nil {
			s.WarningCategories = map[string]int{}
		}
		s.WarningCategories[category]++
	}
}

// Absorb adds the counters of a committed unit into s.
func (s *ImportSummary) Absorb(o *ImportSummary) {
	s.JournalsCreated += o.JournalsCreated
	s.EntriesCreated += o.EntriesCreated
	s.EntriesSkipped += o.EntriesSkipped
	s.MomentsCreated += o.MomentsCreated
	s.MediaFilesImported += o.MediaFilesImported
	s.MediaFilesDeduplicated += o.MediaFilesDeduplicated
	s.MediaFilesSkipped += o.MediaFilesSkipped
	s.TagsCreated += o.TagsCreated
	s.TagsReused += o.TagsReused
	s.MoodsCreated += o.MoodsCreated
	s.MoodsReused += o.MoodsReused
	s.MoodGroupsCreated += o.MoodGroupsCreated
	s.MoodGroupLinksCreated += o.MoodGroupLinksCreated
	s.MoodPreferencesImported += o.MoodPreferencesImported
	s.MoodGroupPreferencesImported += o.MoodGroupPreferencesImported
	s.ActivityGroupsCreated += o.ActivityGroupsCreated
	s.ActivitiesCreated += o.ActivitiesCreated
	s.GoalCategoriesCreated += o.GoalCategoriesCreated
	s.GoalsCreated += o.GoalsCreated
	s.GoalLogsCreated += o.GoalLogsCreated
	s.GoalManualLogsCreated += o.GoalManualLogsCreated
	s.Warnings = append(s.Warnings, o.Warnings...)
	for k, v := range o.WarningCategories {
		if s.WarningCategories == nil {
			s.WarningCategories = map[string]int{}
		}
		s.WarningCategories[k] += v
	}
}
