// Package checksums stores the per-owner content hash index of stored media
// bytes. Rows are only ever inserted.
//
// # Interface Implementation
//
//	var _ mediastore.ChecksumIndex = (*Repository)(nil)
package checksums

import (
	"errors"

	"gorm.io/gorm"

	"github.com/mrlokans/journalport/internal/entities"
)

// Repository handles checksum index database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new checksums repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Lookup returns the index row for (ownerID, checksum), or nil.
func (r *Repository) Lookup(ownerID uint, checksum string) (*entities.MediaChecksum, error) {
	var row entities.MediaChecksum
	err := r.db.Where("owner_id = ? AND checksum = ?", ownerID, checksum).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Insert adds an index row. A concurrent insert of the same key surfaces as
// gorm.ErrDuplicatedKey.
func (r *Repository) Insert(row *entities.MediaChecksum) error {
	return r.db.Create(row).Error
}

// Count returns the number of index rows of an owner.
func (r *Repository) Count(ownerID uint) (int64, error) {
	var n int64
	err := r.db.Model(&entities.MediaChecksum{}).Where("owner_id = ?", ownerID).Count(&n).Error
	return n, err
}
