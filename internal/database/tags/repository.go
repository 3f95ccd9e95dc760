// Package tags provides database operations for entry tags.
//
// Tag names are normalized to lowercase and are unique per owner, which makes
// them a natural key reused across imports.
//
// # Usage
//
//	repo := tags.NewRepository(db)
//	tag, created, err := repo.GetOrCreateTag("travel", ownerID)
package tags

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/mrlokans/journalport/internal/entities"
)

// Repository handles all tag database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new tags repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// NormalizeName lowercases and trims a tag name.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// CreateTag creates a new tag.
func (r *Repository) CreateTag(name string, ownerID uint) (*entities.Tag, error) {
	tag := &entities.Tag{
		Name:    NormalizeName(name),
		OwnerID: ownerID,
	}
	if err := r.db.Create(tag).Error; err != nil {
		return nil, err
	}
	return tag, nil
}

// GetOrCreateTag retrieves or creates a tag (case-insensitive). created
// reports whether a new row was inserted.
func (r *Repository) GetOrCreateTag(name string, ownerID uint) (*entities.Tag, bool, error) {
	var tag entities.Tag
	err := r.db.Where("name = ? AND owner_id = ?", NormalizeName(name), ownerID).First(&tag).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		created, err := r.CreateTag(name, ownerID)
		return created, err == nil, err
	}
	if err != nil {
		return nil, false, err
	}
	return &tag, false, nil
}

// GetTagsForOwner retrieves all tags of an owner ordered by name.
func (r *Repository) GetTagsForOwner(ownerID uint) ([]entities.Tag, error) {
	var tags []entities.Tag
	err := r.db.Where("owner_id = ?", ownerID).Order("name").Find(&tags).Error
	return tags, err
}

// AttachToEntry links tags to an entry and bumps their usage counters.
func (r *Repository) AttachToEntry(entryID string, tags []*entities.Tag) error {
	if len(tags) == 0 {
		return nil
	}
	entry := &entities.Entry{Base: entities.Base{ID: entryID}}
	values := make([]entities.Tag, 0, len(tags))
	for _, t := range tags {
		values = append(values, *t)
	}
	if err := r.db.Model(entry).Association("Tags").Append(values); err != nil {
		return err
	}
	ids := make([]string, 0, len(tags))
	for _, t := range tags {
		ids = append(ids, t.ID)
	}
	return r.db.Model(&entities.Tag{}).
		Where("id IN ?", ids).
		UpdateColumn("usage_count", gorm.Expr("usage_count + 1")).Error
}

// DeleteOrphanTags removes tags no entry refers to.
func (r *Repository) DeleteOrphanTags(ownerID uint) (int64, error) {
	result := r.db.Exec(`
		DELETE FROM tags
		WHERE owner_id = ?
		AND id NOT IN (SELECT tag_id FROM entry_tags)
	`, ownerID)
	return result.RowsAffected, result.Error
}
