package transfer

import (
	"errors"
	"fmt"
)

// FormatError reports a malformed manifest or archive. It is fatal to a job.
type FormatError struct {
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid archive format: %s: %v", e.Reason, e.Err)
	}
	return "invalid archive format: " + e.Reason
}

func (e *FormatError) Unwrap() error { return e.Err }

func NewFormatError(reason string, err error) *FormatError {
	return &FormatError{Reason: reason, Err: err}
}

// VersionError reports an export version this build cannot read. It is fatal
// to a job.
type VersionError struct {
	Found     string
	Supported string
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("unsupported export version %q (supported: %s)", e.Found, e.Supported)
}

// SecurityWarning reports a path that would escape the extraction root. The
// offending item is skipped.
type SecurityWarning struct {
	Path   string
	Reason string
}

func (e *SecurityWarning) Error() string {
	return fmt.Sprintf("rejected path %q: %s", e.Path, e.Reason)
}

// UnitError reports that one top-level unit (a journal, a standalone moment,
// the reference data block) failed and was rolled back.
type UnitError struct {
	Kind     string
	Label    string
	Category string
	// Skipped is the number of entries lost with the unit.
	Skipped int
	Err     error
}

func (e *UnitError) Error() string {
	return fmt.Sprintf("%s %q failed: %v", e.Kind, e.Label, e.Err)
}

func (e *UnitError) Unwrap() error { return e.Err }

// MediaMissingWarning reports a referenced media file that is not present in
// the archive.
type MediaMissingWarning struct {
	Path string
}

func (e *MediaMissingWarning) Error() string {
	return fmt.Sprintf("media file not found: %s", e.Path)
}

// DedupRaceError marks a uniqueness violation lost to a concurrent import.
// It is resolved by re-querying and is never surfaced to a job.
type DedupRaceError struct {
	Checksum string
	Err      error
}

func (e *DedupRaceError) Error() string {
	return fmt.Sprintf("lost dedup race for checksum %s: %v", e.Checksum, e.Err)
}

func (e *DedupRaceError) Unwrap() error { return e.Err }

// IsFatal reports whether err must fail the whole job.
func IsFatal(err error) bool {
	var fe *FormatError
	var ve *VersionError
	return errors.As(err, &fe) || errors.As(err, &ve)
}
