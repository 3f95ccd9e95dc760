// Package interfaces documents the core abstractions used throughout the application.
//
// # Interface Categories
//
// ## Data Access Interfaces
//
//   - JobStore: Job progress and cancel flags (internal/services/interfaces.go)
//   - ChecksumIndex: Per-owner media checksums (internal/mediastore/storer.go)
//
// ## Storage Interfaces
//
//   - Blobs: Local or S3 media bytes (internal/mediastore/blobs.go)
//   - BlobSource: Read side used when writing archives (internal/archive/create.go)
//
// ## Job Interfaces
//
//   - Enqueuer: Hands new jobs to the task queue (internal/services/interfaces.go)
//   - ImportRunner, ExportRunner, ExportCleaner: Task processors (internal/tasks/)
//   - Tracker: Progress and cancellation per job (internal/importer, internal/exporter)
//   - JobService, JobEventLister: HTTP jobs API (internal/http/jobs.go)
//
// # Adding a New Import Source
//
// To support another journal application's export format:
//
//  1. Create a reader in internal/readers/<name>/ that turns the extracted
//     archive into a *readers.Archive:
//
//     type Reader struct { logger *zap.Logger }
//
//     func (r *Reader) Read(ctx context.Context, root string) (*readers.Archive, error)
//
//  2. Add a format constant and detection rule to readers.Detect in internal/readers/readers.go
//
//  3. Dispatch to the reader in services.TransferService.read
//
// The importer only sees transfer DTOs, so it needs no changes.
//
// # Adding a New Storage Backend
//
//  1. Implement mediastore.Blobs
//
//     var _ mediastore.Blobs = (*GCSBlobs)(nil)
//
//  2. Add the backend name to mediastore.NewBlobs and its settings to config.Storage
//
// # Compile-Time Interface Checks
//
// All implementations should include compile-time checks to ensure they satisfy
// their interfaces. This catches missing methods at compile time rather than runtime:
//
//	var _ SomeInterface = (*MyImplementation)(nil)
//
// This pattern is used throughout the codebase. See checks.go for examples.
package interfaces
