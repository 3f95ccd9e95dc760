// Package transfer defines the canonical, format-agnostic representation of a
// journal export (the manifest DTOs), the import summary, and the error
// taxonomy shared by readers, the importer and the exporter.
//
// DTOs mirror the on-disk manifest (data.json). Cross references between
// entities are expressed with *_external_id fields, never with live keys.
package transfer

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/mrlokans/journalport/internal/delta"
)

// Export is the top-level manifest document.
type Export struct {
	ExportVersion string        `json:"export_version"`
	ExportDate    time.Time     `json:"export_date"`
	AppVersion    string        `json:"app_version"`
	UserEmail     string        `json:"user_email"`
	UserName      string        `json:"user_name,omitempty"`
	UserSettings  *UserSettings `json:"user_settings,omitempty"`

	Journals []Journal `json:"journals"`
	Reference
	Moments []Moment `json:"moments"`

	Stats map[string]any `json:"stats,omitempty"`
}

// Reference groups the small, non-journal arrays of a manifest. They are
// always materialized in memory, even when journals are streamed.
type Reference struct {
	MoodDefinitions      []MoodDefinition      `json:"mood_definitions"`
	MoodPreferences      []MoodPreference      `json:"mood_preferences"`
	MoodGroups           []MoodGroup           `json:"mood_groups"`
	MoodGroupLinks       []MoodGroupLink       `json:"mood_group_links"`
	MoodGroupPreferences []MoodGroupPreference `json:"mood_group_preferences"`
	Activities           []Activity            `json:"activities"`
	ActivityGroups       []ActivityGroup       `json:"activity_groups"`
	GoalCategories       []GoalCategory        `json:"goal_categories"`
	Goals                []Goal                `json:"goals"`
	GoalLogs             []GoalLog             `json:"goal_logs"`
	GoalManualLogs       []GoalManualLog       `json:"goal_manual_logs"`
}

type UserSettings struct {
	Theme              string  `json:"theme"`
	TimeZone           string  `json:"time_zone"`
	DailyPromptEnabled bool    `json:"daily_prompt_enabled"`
	PushNotifications  bool    `json:"push_notifications"`
	ReminderTime       *string `json:"reminder_time,omitempty"`
	WritingGoalDaily   int     `json:"writing_goal_daily"`
	StartOfWeekDay     int     `json:"start_of_week_day"`
}

type Journal struct {
	Title          string         `json:"title"`
	Description    *string        `json:"description,omitempty"`
	Color          *string        `json:"color,omitempty"`
	Icon           *string        `json:"icon,omitempty"`
	IsFavorite     bool           `json:"is_favorite"`
	IsArchived     bool           `json:"is_archived"`
	EntryCount     int            `json:"entry_count"`
	LastEntryAt    *time.Time     `json:"last_entry_at,omitempty"`
	ImportMetadata map[string]any `json:"import_metadata,omitempty"`
	Entries        []Entry        `json:"entries"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	ExternalID     string         `json:"external_id,omitempty"`
}

// Label identifies the journal in warnings.
func (j Journal) Label() string {
	if j.Title != "" {
		return j.Title
	}
	if j.ExternalID != "" {
		return j.ExternalID
	}
	return "untitled journal"
}

type Entry struct {
	Title            *string         `json:"title,omitempty"`
	ContentDelta     *delta.Document `json:"content_delta,omitempty"`
	ContentPlainText *string         `json:"content_plain_text,omitempty"`
	EntryDate        Date            `json:"entry_date"`
	EntryDatetimeUTC time.Time       `json:"entry_datetime_utc"`
	EntryTimezone    string          `json:"entry_timezone"`
	WordCount        int             `json:"word_count"`
	IsPinned         bool            `json:"is_pinned"`
	IsDraft          bool            `json:"is_draft"`
	LocationJSON     map[string]any  `json:"location_json,omitempty"`
	Latitude         *float64        `json:"latitude,omitempty"`
	Longitude        *float64        `json:"longitude,omitempty"`
	WeatherJSON      map[string]any  `json:"weather_json,omitempty"`
	WeatherSummary   *string         `json:"weather_summary,omitempty"`
	ImportMetadata   map[string]any  `json:"import_metadata,omitempty"`
	Tags             []string        `json:"tags"`
	Moment           *Moment         `json:"moment,omitempty"`
	Media            []Media         `json:"media"`
	PromptText       *string         `json:"prompt_text,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	ExternalID       string          `json:"external_id,omitempty"`
}

// UnmarshalJSON accepts the legacy "content" field as plain text.
func (e *Entry) UnmarshalJSON(data []byte) error {
	type plain Entry
	aux := struct {
		*plain
		Content *string `json:"content,omitempty"`
	}{plain: (*plain)(e)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if e.ContentPlainText == nil && aux.Content != nil {
		e.ContentPlainText = aux.Content
	}
	return nil
}

// Label identifies the entry in warnings.
func (e Entry) Label() string {
	if e.Title != nil && strings.TrimSpace(*e.Title) != "" {
		return *e.Title
	}
	if e.ExternalID != "" {
		return e.ExternalID
	}
	return e.EntryDatetimeUTC.Format(time.RFC3339)
}

type MomentMoodActivity struct {
	MoodName           *string `json:"mood_name,omitempty"`
	ActivityName       *string `json:"activity_name,omitempty"`
	MoodExternalID     *string `json:"mood_external_id,omitempty"`
	ActivityExternalID *string `json:"activity_external_id,omitempty"`
}

type Moment struct {
	LoggedAt              *time.Time           `json:"logged_at,omitempty"`
	LoggedDate            *Date                `json:"logged_date,omitempty"`
	LoggedTimezone        string               `json:"logged_timezone"`
	Note                  *string              `json:"note,omitempty"`
	LocationData          map[string]any       `json:"location_data,omitempty"`
	WeatherData           map[string]any       `json:"weather_data,omitempty"`
	PrimaryMoodName       *string              `json:"primary_mood_name,omitempty"`
	PrimaryMoodExternalID *string              `json:"primary_mood_external_id,omitempty"`
	MoodActivity          []MomentMoodActivity `json:"mood_activity"`
	Media                 []Media              `json:"media"`
	CreatedAt             *time.Time           `json:"created_at,omitempty"`
	UpdatedAt             *time.Time           `json:"updated_at,omitempty"`
	ExternalID            string               `json:"external_id,omitempty"`
}

// Label identifies the moment in warnings.
func (m Moment) Label() string {
	if m.ExternalID != "" {
		return m.ExternalID
	}
	if m.LoggedAt != nil {
		return m.LoggedAt.Format(time.RFC3339)
	}
	return "moment"
}

type Media struct {
	Filename          string         `json:"filename"`
	FilePath          *string        `json:"file_path,omitempty"`
	MediaType         string         `json:"media_type"`
	FileSize          int64          `json:"file_size"`
	MimeType          string         `json:"mime_type"`
	Checksum          *string        `json:"checksum,omitempty"`
	Width             *int           `json:"width,omitempty"`
	Height            *int           `json:"height,omitempty"`
	Duration          *float64       `json:"duration,omitempty"`
	AltText           *string        `json:"alt_text,omitempty"`
	FileMetadata      *string        `json:"file_metadata,omitempty"`
	ThumbnailPath     *string        `json:"thumbnail_path,omitempty"`
	UploadStatus      string         `json:"upload_status"`
	OrderInEntry      *int           `json:"order_in_entry,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	ExternalProvider  *string        `json:"external_provider,omitempty"`
	ExternalAssetID   *string        `json:"external_asset_id,omitempty"`
	ExternalURL       *string        `json:"external_url,omitempty"`
	ExternalCreatedAt *time.Time     `json:"external_created_at,omitempty"`
	ExternalMetadata  map[string]any `json:"external_metadata,omitempty"`
	ExternalID        string         `json:"external_id,omitempty"`
}

// IsExternal reports whether the media only references a remote provider.
func (m Media) IsExternal() bool {
	return m.ExternalProvider != nil && *m.ExternalProvider != "" && (m.FilePath == nil || *m.FilePath == "")
}

// SourceIdentifier returns the opaque identifier the source format used for
// this media, if any.
func (m Media) SourceIdentifier() string {
	if v, ok := m.ExternalMetadata["identifier"].(string); ok {
		return v
	}
	return ""
}

// SourceHash returns the content hash the source format declared (for DayOne,
// an md5), if any.
func (m Media) SourceHash() string {
	if v, ok := m.ExternalMetadata["md5"].(string); ok {
		return v
	}
	return ""
}

type MoodDefinition struct {
	Name       string     `json:"name"`
	Category   string     `json:"category"`
	Icon       *string    `json:"icon,omitempty"`
	Key        *string    `json:"key,omitempty"`
	ColorValue *int       `json:"color_value,omitempty"`
	Score      *int       `json:"score,omitempty"`
	Position   int        `json:"position"`
	IsActive   bool       `json:"is_active"`
	IsCustom   bool       `json:"is_custom"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
	ExternalID string     `json:"external_id,omitempty"`
}

type MoodPreference struct {
	MoodExternalID string    `json:"mood_external_id"`
	SortOrder      int       `json:"sort_order"`
	IsHidden       bool      `json:"is_hidden"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type MoodGroup struct {
	Name       string    `json:"name"`
	Icon       *string   `json:"icon,omitempty"`
	ColorValue *int      `json:"color_value,omitempty"`
	Position   int       `json:"position"`
	IsCustom   bool      `json:"is_custom"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	ExternalID string    `json:"external_id,omitempty"`
}

type MoodGroupLink struct {
	MoodGroupExternalID string    `json:"mood_group_external_id"`
	MoodExternalID      string    `json:"mood_external_id"`
	Position            int       `json:"position"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

type MoodGroupPreference struct {
	MoodGroupExternalID string    `json:"mood_group_external_id"`
	SortOrder           int       `json:"sort_order"`
	IsHidden            bool      `json:"is_hidden"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

type ActivityGroup struct {
	Name       string    `json:"name"`
	ColorValue *int      `json:"color_value,omitempty"`
	Icon       *string   `json:"icon,omitempty"`
	Position   int       `json:"position"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	ExternalID string    `json:"external_id,omitempty"`
}

type Activity struct {
	Name            string    `json:"name"`
	Icon            *string   `json:"icon,omitempty"`
	Color           *string   `json:"color,omitempty"`
	Position        int       `json:"position"`
	GroupExternalID *string   `json:"group_external_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	ExternalID      string    `json:"external_id,omitempty"`
}

type GoalCategory struct {
	Name       string    `json:"name"`
	ColorValue *int      `json:"color_value,omitempty"`
	Icon       *string   `json:"icon,omitempty"`
	Position   int       `json:"position"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	ExternalID string    `json:"external_id,omitempty"`
}

type Goal struct {
	Title              string     `json:"title"`
	GoalType           string     `json:"goal_type"`
	FrequencyType      string     `json:"frequency_type"`
	TargetCount        int        `json:"target_count"`
	ReminderTime       *string    `json:"reminder_time,omitempty"`
	IsPaused           bool       `json:"is_paused"`
	Icon               *string    `json:"icon,omitempty"`
	ColorValue         *int       `json:"color_value,omitempty"`
	Position           int        `json:"position"`
	ArchivedAt         *time.Time `json:"archived_at,omitempty"`
	ActivityExternalID *string    `json:"activity_external_id,omitempty"`
	CategoryExternalID *string    `json:"category_external_id,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	ExternalID         string     `json:"external_id,omitempty"`
}

type GoalLog struct {
	GoalExternalID   string    `json:"goal_external_id"`
	LoggedDate       Date      `json:"logged_date"`
	PeriodStart      Date      `json:"period_start"`
	PeriodEnd        Date      `json:"period_end"`
	Status           string    `json:"status"`
	Count            int       `json:"count"`
	Source           string    `json:"source"`
	LastUpdatedAt    time.Time `json:"last_updated_at"`
	MomentExternalID *string   `json:"moment_external_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	ExternalID       string    `json:"external_id,omitempty"`
}

type GoalManualLog struct {
	GoalExternalID string    `json:"goal_external_id"`
	LoggedDate     Date      `json:"logged_date"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	ExternalID     string    `json:"external_id,omitempty"`
}
