package entities

import (
	"time"
)

type JobKind string

const (
	JobKindImport JobKind = "import"
	JobKindExport JobKind = "export"
)

type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// IsTerminal reports whether no further transitions are allowed.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// JobParams are the inputs captured when the job is created.
type JobParams struct {
	SourceType string   `json:"source_type,omitempty"`
	FilePath   string   `json:"file_path,omitempty"`
	Scope      string   `json:"scope,omitempty"`
	JournalIDs []string `json:"journal_ids,omitempty"`
}

// Job tracks one import or export run.
type Job struct {
	Base
	OwnerID         uint           `gorm:"index;not null" json:"owner_id"`
	Kind            JobKind        `gorm:"size:10;index" json:"kind"`
	Status          JobStatus      `gorm:"size:20;index" json:"status"`
	Progress        int            `json:"progress"`
	CancelRequested bool           `json:"cancel_requested"`
	TotalItems      int            `json:"total_items"`
	ProcessedItems  int            `json:"processed_items"`
	Params          JobParams      `gorm:"serializer:json" json:"params"`
	ResultSummary   map[string]any `gorm:"serializer:json" json:"result_summary,omitempty"`
	Warnings        []string       `gorm:"serializer:json" json:"warnings"`
	Errors          []string       `gorm:"serializer:json" json:"errors"`
	FilePath        string         `gorm:"size:1024" json:"file_path,omitempty"`
	FileSize        int64          `json:"file_size,omitempty"`
	StartedAt       *time.Time     `json:"started_at,omitempty"`
	CompletedAt     *time.Time     `json:"completed_at,omitempty"`
}

// MediaChecksum indexes stored media bytes by content hash, per owner.
type MediaChecksum struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	OwnerID      uint      `gorm:"uniqueIndex:idx_checksum_owner;not null" json:"owner_id"`
	Checksum     string    `gorm:"uniqueIndex:idx_checksum_owner;size:64;not null" json:"checksum"`
	RelativePath string    `gorm:"size:1024;not null" json:"relative_path"`
	MimeType     string    `gorm:"size:100" json:"mime_type"`
	FileSize     int64     `json:"file_size"`
	Width        *int      `json:"width,omitempty"`
	Height       *int      `json:"height,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
