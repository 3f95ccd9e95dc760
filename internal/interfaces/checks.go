package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/mrlokans/journalport/internal/archive"
	"github.com/mrlokans/journalport/internal/audit"
	"github.com/mrlokans/journalport/internal/database/checksums"
	"github.com/mrlokans/journalport/internal/database/jobs"
	"github.com/mrlokans/journalport/internal/http"
	"github.com/mrlokans/journalport/internal/mediastore"
	"github.com/mrlokans/journalport/internal/services"
	"github.com/mrlokans/journalport/internal/tasks"
)

// =============================================================================
// Data Access Layer
// =============================================================================

// Job state and progress
var _ services.JobStore = (*jobs.Repository)(nil)

// Media deduplication index
var _ mediastore.ChecksumIndex = (*checksums.Repository)(nil)

// =============================================================================
// Media Storage
// =============================================================================

var _ mediastore.Blobs = (*mediastore.LocalBlobs)(nil)
var _ mediastore.Blobs = (*mediastore.S3Blobs)(nil)
var _ archive.BlobSource = (mediastore.Blobs)(nil)

// =============================================================================
// Job Execution
// =============================================================================

var _ services.Enqueuer = (*tasks.Client)(nil)
var _ tasks.TransferRunner = (*services.TransferService)(nil)
var _ tasks.ExportCleaner = (*services.TransferService)(nil)
var _ tasks.AuditEventCleaner = (*audit.Service)(nil)

// =============================================================================
// HTTP API
// =============================================================================

var _ http.JobService = (*services.TransferService)(nil)
var _ http.JobEventLister = (*audit.Service)(nil)
