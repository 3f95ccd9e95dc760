package importer

import (
	"encoding/hex"
	"errors"
	"fmt"
	"path"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mrlokans/journalport/internal/archive"
	"github.com/mrlokans/journalport/internal/database/journals"
	"github.com/mrlokans/journalport/internal/entities"
	"github.com/mrlokans/journalport/internal/idmap"
	"github.com/mrlokans/journalport/internal/mediastore"
	"github.com/mrlokans/journalport/internal/rewrite"
	"github.com/mrlokans/journalport/internal/transfer"
)

// mediaParent names the entry or the moment a media row is attached to.
type mediaParent struct {
	entryID  *string
	momentID *string
}

type mediaOutcome struct {
	id       string
	checksum string
}

// tokenRef describes the imported media for content rewriting.
func (o *mediaOutcome) tokenRef(dto *transfer.Media) rewrite.MediaRef {
	ref := rewrite.MediaRef{
		NewID:   o.id,
		Ordinal: dto.OrderInEntry,
	}
	ref.Identifiers = append(ref.Identifiers, dto.SourceIdentifier(), dto.ExternalID)
	if dto.ExternalAssetID != nil {
		ref.Identifiers = append(ref.Identifiers, *dto.ExternalAssetID)
	}
	if dto.FilePath != nil {
		ref.Identifiers = append(ref.Identifiers, *dto.FilePath)
	}
	ref.Hashes = append(ref.Hashes, dto.SourceHash(), o.checksum)
	if dto.Checksum != nil {
		ref.Hashes = append(ref.Hashes, *dto.Checksum)
	}
	return ref
}

// importMedia imports one media item for parent. It returns nil without an
// error when the item was skipped with a warning.
//
// The order of checks:
//  1. external-only media is recorded without bytes and checksum
//  2. no media root in the archive: skip
//  3. no file_path: skip
//  4. the path must resolve inside the media root: skip with a security warning
//  5. the file must exist: skip as missing
//  6. a declared checksum already attached to parent is reused with no I/O
//  7. the bytes are stored, deduplicated against the owner's index
//  8. a computed checksum already attached to parent is reused
//  9. the row is inserted in a savepoint; losing a race reuses the winner
//  10. the external id is mapped to the row
//  11. the imported or deduplicated counter is bumped
func (u *unit) importMedia(parent mediaParent, dto *transfer.Media) (*mediaOutcome, error) {
	if dto.IsExternal() {
		return u.importExternalMedia(parent, dto)
	}

	if u.archive.MediaRoot == "" {
		u.skipMedia(fmt.Sprintf("No media directory, skipping media: %s", dto.Filename), transfer.CategoryMissingMedia)
		return nil, nil
	}
	if dto.FilePath == nil || strings.TrimSpace(*dto.FilePath) == "" {
		u.skipMedia(fmt.Sprintf("Missing file_path for media: %s", dto.Filename), transfer.CategoryMissingMedia)
		return nil, nil
	}

	source, err := archive.ResolveInside(u.archive.MediaRoot, *dto.FilePath)
	if err != nil {
		var security *transfer.SecurityWarning
		var missing *transfer.MediaMissingWarning
		switch {
		case errors.As(err, &security):
			u.skipMedia(fmt.Sprintf("Media file outside expected directory: %s", *dto.FilePath), transfer.CategorySecurity)
			return nil, nil
		case errors.As(err, &missing):
			u.skipMedia(fmt.Sprintf("Media file not found: %s", *dto.FilePath), transfer.CategoryMissingMedia)
			return nil, nil
		default:
			return nil, fmt.Errorf("failed to resolve media %s: %w", *dto.FilePath, err)
		}
	}

	declared := ""
	if dto.Checksum != nil && isSHA256(*dto.Checksum) {
		declared = strings.ToLower(*dto.Checksum)
		existing, err := u.journals.FindMediaByParentChecksum(parent.entryID, parent.momentID, declared)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return u.reuseMedia(dto, existing)
		}
	}

	kind := entities.MediaType(dto.MediaType)
	if kind == entities.MediaTypeUnknown || !validMediaType(kind) {
		kind = mediastore.MediaTypeForMime(dto.MimeType)
	}

	stored, err := u.storer.Store(u.ctx, mediastore.StoreRequest{
		OwnerID:          u.ownerID,
		SourcePath:       source,
		DeclaredChecksum: declared,
		Kind:             kind,
		Ext:              path.Ext(*dto.FilePath),
		MimeType:         dto.MimeType,
		Width:            positive(dto.Width),
		Height:           positive(dto.Height),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store media %s: %w", dto.Filename, err)
	}

	if declared == "" || stored.Checksum != declared {
		existing, err := u.journals.FindMediaByParentChecksum(parent.entryID, parent.momentID, stored.Checksum)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return u.reuseMedia(dto, existing)
		}
	}

	row := newMediaRow(u.ownerID, parent, dto)
	row.Checksum = &stored.Checksum
	row.FilePath = &stored.RelativePath
	if stored.MimeType != "" {
		row.MimeType = stored.MimeType
	}
	if stored.Size > 0 {
		row.FileSize = stored.Size
	}
	if !validMediaType(row.MediaType) || row.MediaType == entities.MediaTypeUnknown {
		row.MediaType = mediastore.MediaTypeForMime(row.MimeType)
	}

	err = u.tx.Transaction(func(tx *gorm.DB) error {
		return journals.NewRepository(tx).CreateMedia(row)
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		winner, lookupErr := u.journals.FindMediaByParentChecksum(parent.entryID, parent.momentID, stored.Checksum)
		if lookupErr != nil {
			return nil, lookupErr
		}
		if winner == nil {
			return nil, &transfer.DedupRaceError{Checksum: stored.Checksum, Err: err}
		}
		u.log.Debug("media row race resolved", zap.String("checksum", stored.Checksum), zap.String("media_id", winner.ID))
		return u.reuseMedia(dto, winner)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create media %s: %w", dto.Filename, err)
	}

	if err := u.ids.Set(idmap.Media, dto.ExternalID, row.ID); err != nil {
		return nil, err
	}
	if stored.Deduplicated {
		u.summary.MediaFilesDeduplicated++
	} else {
		u.summary.MediaFilesImported++
	}
	return &mediaOutcome{id: row.ID, checksum: stored.Checksum}, nil
}

func (u *unit) importExternalMedia(parent mediaParent, dto *transfer.Media) (*mediaOutcome, error) {
	row := newMediaRow(u.ownerID, parent, dto)
	if err := u.journals.CreateMedia(row); err != nil {
		return nil, fmt.Errorf("failed to create external media %s: %w", dto.Filename, err)
	}
	if err := u.ids.Set(idmap.Media, dto.ExternalID, row.ID); err != nil {
		return nil, err
	}
	u.summary.MediaFilesImported++
	return &mediaOutcome{id: row.ID}, nil
}

// reuseMedia links dto to a media row already attached to the same parent.
func (u *unit) reuseMedia(dto *transfer.Media, existing *entities.Media) (*mediaOutcome, error) {
	if err := u.ids.Set(idmap.Media, dto.ExternalID, existing.ID); err != nil {
		return nil, err
	}
	u.summary.MediaFilesDeduplicated++
	checksum := ""
	if existing.Checksum != nil {
		checksum = *existing.Checksum
	}
	return &mediaOutcome{id: existing.ID, checksum: checksum}, nil
}

func (u *unit) skipMedia(msg, category string) {
	u.summary.MediaFilesSkipped++
	u.warn(msg, category)
}

func newMediaRow(ownerID uint, parent mediaParent, dto *transfer.Media) *entities.Media {
	status := dto.UploadStatus
	if status == "" {
		status = "completed"
	}
	var size int64
	if dto.FileSize > 0 {
		size = dto.FileSize
	}
	return &entities.Media{
		Base:              timestamps(dto.CreatedAt, dto.UpdatedAt),
		OwnerID:           ownerID,
		EntryID:           parent.entryID,
		MomentID:          parent.momentID,
		Filename:          dto.Filename,
		MediaType:         entities.MediaType(dto.MediaType),
		FileSize:          size,
		MimeType:          dto.MimeType,
		Width:             positive(dto.Width),
		Height:            positive(dto.Height),
		Duration:          dto.Duration,
		AltText:           dto.AltText,
		FileMetadata:      dto.FileMetadata,
		UploadStatus:      status,
		OrderInEntry:      dto.OrderInEntry,
		ExternalProvider:  dto.ExternalProvider,
		ExternalAssetID:   dto.ExternalAssetID,
		ExternalURL:       dto.ExternalURL,
		ExternalCreatedAt: dto.ExternalCreatedAt,
		ExternalMetadata:  dto.ExternalMetadata,
	}
}

func validMediaType(t entities.MediaType) bool {
	switch t {
	case entities.MediaTypeImage, entities.MediaTypeVideo, entities.MediaTypeAudio, entities.MediaTypeUnknown:
		return true
	}
	return false
}

func positive(v *int) *int {
	if v == nil || *v <= 0 {
		return nil
	}
	return v
}

func isSHA256(s string) bool {
	if len(s) != 64 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
