package entities

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/journalport/internal/delta"
)

type MediaType string

const (
	MediaTypeImage   MediaType = "image"
	MediaTypeVideo   MediaType = "video"
	MediaTypeAudio   MediaType = "audio"
	MediaTypeUnknown MediaType = "unknown"
)

// ErrMediaParent is returned when a media row is not attached to exactly one
// of an entry or a moment.
var ErrMediaParent = errors.New("media must belong to exactly one of entry or moment")

type Journal struct {
	Base
	OwnerID        uint           `gorm:"index;not null" json:"owner_id"`
	Title          string         `gorm:"size:255;not null" json:"title"`
	Description    *string        `gorm:"type:text" json:"description,omitempty"`
	Color          *string        `gorm:"size:20" json:"color,omitempty"`
	Icon           *string        `gorm:"size:50" json:"icon,omitempty"`
	IsFavorite     bool           `json:"is_favorite"`
	IsArchived     bool           `json:"is_archived"`
	EntryCount     int            `json:"entry_count"`
	LastEntryAt    *time.Time     `json:"last_entry_at,omitempty"`
	ImportMetadata map[string]any `gorm:"serializer:json" json:"import_metadata,omitempty"`
	Entries        []Entry        `gorm:"foreignKey:JournalID;constraint:OnDelete:CASCADE" json:"entries,omitempty"`
}

type Entry struct {
	Base
	JournalID        string          `gorm:"size:36;index;not null" json:"journal_id"`
	OwnerID          uint            `gorm:"index;not null" json:"owner_id"`
	Title            *string         `gorm:"size:255" json:"title,omitempty"`
	ContentDelta     *delta.Document `gorm:"serializer:json" json:"content_delta,omitempty"`
	ContentPlainText *string         `gorm:"type:text" json:"content_plain_text,omitempty"`
	EntryDate        string          `gorm:"size:10;index" json:"entry_date"`
	EntryDatetimeUTC time.Time       `gorm:"index" json:"entry_datetime_utc"`
	EntryTimezone    string          `gorm:"size:64" json:"entry_timezone"`
	WordCount        int             `json:"word_count"`
	IsPinned         bool            `json:"is_pinned"`
	IsDraft          bool            `json:"is_draft"`
	LocationJSON     map[string]any  `gorm:"serializer:json" json:"location_json,omitempty"`
	Latitude         *float64        `json:"latitude,omitempty"`
	Longitude        *float64        `json:"longitude,omitempty"`
	WeatherJSON      map[string]any  `gorm:"serializer:json" json:"weather_json,omitempty"`
	WeatherSummary   *string         `gorm:"size:255" json:"weather_summary,omitempty"`
	ImportMetadata   map[string]any  `gorm:"serializer:json" json:"import_metadata,omitempty"`
	PromptText       *string         `gorm:"type:text" json:"prompt_text,omitempty"`
	Tags             []Tag           `gorm:"many2many:entry_tags;" json:"tags,omitempty"`
	Media            []Media         `gorm:"foreignKey:EntryID" json:"media,omitempty"`
}

// Tag names are stored lowercased and are unique per owner.
type Tag struct {
	Base
	OwnerID    uint   `gorm:"uniqueIndex:idx_tag_owner_name;not null" json:"owner_id"`
	Name       string `gorm:"uniqueIndex:idx_tag_owner_name;size:100;not null" json:"name"`
	UsageCount int    `json:"usage_count"`
}

type Media struct {
	Base
	OwnerID           uint           `gorm:"index;not null" json:"owner_id"`
	EntryID           *string        `gorm:"size:36;uniqueIndex:idx_media_entry_checksum" json:"entry_id,omitempty"`
	MomentID          *string        `gorm:"size:36;uniqueIndex:idx_media_moment_checksum" json:"moment_id,omitempty"`
	Checksum          *string        `gorm:"size:64;uniqueIndex:idx_media_entry_checksum;uniqueIndex:idx_media_moment_checksum" json:"checksum,omitempty"`
	Filename          string         `gorm:"size:255" json:"filename"`
	FilePath          *string        `gorm:"size:1024" json:"file_path,omitempty"`
	MediaType         MediaType      `gorm:"size:20" json:"media_type"`
	FileSize          int64          `json:"file_size"`
	MimeType          string         `gorm:"size:100" json:"mime_type"`
	Width             *int           `json:"width,omitempty"`
	Height            *int           `json:"height,omitempty"`
	Duration          *float64       `json:"duration,omitempty"`
	AltText           *string        `gorm:"size:512" json:"alt_text,omitempty"`
	FileMetadata      *string        `gorm:"type:text" json:"file_metadata,omitempty"`
	ThumbnailPath     *string        `gorm:"size:1024" json:"thumbnail_path,omitempty"`
	UploadStatus      string         `gorm:"size:20" json:"upload_status"`
	OrderInEntry      *int           `json:"order_in_entry,omitempty"`
	Caption           *string        `gorm:"type:text" json:"caption,omitempty"`
	ExternalProvider  *string        `gorm:"size:50" json:"external_provider,omitempty"`
	ExternalAssetID   *string        `gorm:"size:255" json:"external_asset_id,omitempty"`
	ExternalURL       *string        `gorm:"size:2048" json:"external_url,omitempty"`
	ExternalCreatedAt *time.Time     `json:"external_created_at,omitempty"`
	ExternalMetadata  map[string]any `gorm:"serializer:json" json:"external_metadata,omitempty"`
}

func (m *Media) BeforeCreate(tx *gorm.DB) error {
	if (m.EntryID == nil) == (m.MomentID == nil) {
		return ErrMediaParent
	}
	return m.Base.BeforeCreate(tx)
}

// ParentID returns the id of the entry or moment owning the media.
func (m *Media) ParentID() string {
	if m.EntryID != nil {
		return *m.EntryID
	}
	if m.MomentID != nil {
		return *m.MomentID
	}
	return ""
}
