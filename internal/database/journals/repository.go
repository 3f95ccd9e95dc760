// Package journals provides database operations for journals, entries,
// moments and their media.
//
// Every write method runs against the *gorm.DB the repository was built with,
// so an importer unit binds the repository to its transaction with WithTx.
//
// # Usage
//
//	repo := journals.NewRepository(db).WithTx(tx)
//	if err := repo.CreateJournal(journal); err != nil { ... }
package journals

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/journalport/internal/delta"
	"github.com/mrlokans/journalport/internal/entities"
)

// Repository handles journal, entry, moment and media database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new journals repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// DB exposes the underlying handle, used to open nested savepoints.
func (r *Repository) DB() *gorm.DB {
	return r.db
}

func (r *Repository) CreateJournal(journal *entities.Journal) error {
	return r.db.Omit("Entries").Create(journal).Error
}

func (r *Repository) CreateEntry(entry *entities.Entry) error {
	return r.db.Omit("Tags", "Media").Create(entry).Error
}

func (r *Repository) CreateMoment(moment *entities.Moment) error {
	return r.db.Omit("MoodActivity", "Media").Create(moment).Error
}

func (r *Repository) CreateMoodActivity(link *entities.MomentMoodActivity) error {
	return r.db.Omit("Mood", "Activity").Create(link).Error
}

// CreateMedia inserts a media row. A unique violation on the parent/checksum
// pair is returned as gorm.ErrDuplicatedKey.
func (r *Repository) CreateMedia(media *entities.Media) error {
	return r.db.Create(media).Error
}

// FindMediaByParentChecksum returns the media row with the given checksum
// attached to the same entry or moment, or nil when none exists.
func (r *Repository) FindMediaByParentChecksum(entryID, momentID *string, checksum string) (*entities.Media, error) {
	query := r.db.Where("checksum = ?", checksum)
	switch {
	case entryID != nil:
		query = query.Where("entry_id = ?", *entryID)
	case momentID != nil:
		query = query.Where("moment_id = ?", *momentID)
	default:
		return nil, entities.ErrMediaParent
	}
	var media entities.Media
	err := query.First(&media).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &media, nil
}

// UpdateEntryContent replaces the content document and its derived fields.
func (r *Repository) UpdateEntryContent(entryID string, doc *delta.Document, plainText string, wordCount int) error {
	return r.db.Model(&entities.Entry{}).
		Where("id = ?", entryID).
		Select("content_delta", "content_plain_text", "word_count", "updated_at").
		Updates(&entities.Entry{
			Base:             entities.Base{UpdatedAt: time.Now()},
			ContentDelta:     doc,
			ContentPlainText: &plainText,
			WordCount:        wordCount,
		}).Error
}

// RecomputeJournalStats refreshes entry_count and last_entry_at from the
// journal's entries.
func (r *Repository) RecomputeJournalStats(journalID string) error {
	var count int64
	err := r.db.Model(&entities.Entry{}).Where("journal_id = ?", journalID).Count(&count).Error
	if err != nil {
		return err
	}

	var last *time.Time
	if count > 0 {
		var entry entities.Entry
		err := r.db.Select("entry_datetime_utc").
			Where("journal_id = ?", journalID).
			Order("entry_datetime_utc DESC").
			First(&entry).Error
		if err != nil {
			return err
		}
		last = &entry.EntryDatetimeUTC
	}

	return r.db.Model(&entities.Journal{}).
		Where("id = ?", journalID).
		Select("entry_count", "last_entry_at", "updated_at").
		Updates(&entities.Journal{
			Base:        entities.Base{UpdatedAt: time.Now()},
			EntryCount:  int(count),
			LastEntryAt: last,
		}).Error
}

// ListJournals returns an owner's journals ordered by (created_at, id).
// A non-empty ids restricts the result to those journals.
func (r *Repository) ListJournals(ownerID uint, ids []string) ([]entities.Journal, error) {
	var journals []entities.Journal
	query := r.db.Where("owner_id = ?", ownerID)
	if len(ids) > 0 {
		query = query.Where("id IN ?", ids)
	}
	err := query.Order("created_at, id").Find(&journals).Error
	return journals, err
}

func (r *Repository) GetJournal(id string) (*entities.Journal, error) {
	var journal entities.Journal
	if err := r.db.Where("id = ?", id).First(&journal).Error; err != nil {
		return nil, err
	}
	return &journal, nil
}

// ListEntries returns the entries of a journal with tags and media, ordered
// by (entry_datetime_utc, id).
func (r *Repository) ListEntries(journalID string) ([]entities.Entry, error) {
	var entries []entities.Entry
	err := r.db.
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("name") }).
		Preload("Media", func(db *gorm.DB) *gorm.DB { return db.Order("order_in_entry, created_at, id") }).
		Where("journal_id = ?", journalID).
		Order("entry_datetime_utc, id").
		Find(&entries).Error
	return entries, err
}

// CountEntries counts the entries of the given journals.
func (r *Repository) CountEntries(ownerID uint, journalIDs []string) (int64, error) {
	var count int64
	query := r.db.Model(&entities.Entry{}).Where("owner_id = ?", ownerID)
	if len(journalIDs) > 0 {
		query = query.Where("journal_id IN ?", journalIDs)
	}
	err := query.Count(&count).Error
	return count, err
}

// ListEntriesWithPlaceholders returns up to limit entries after afterID, in
// id order, whose plain text still contains a DAYONE_ placeholder. An ownerID
// of 0 matches every owner.
func (r *Repository) ListEntriesWithPlaceholders(ownerID uint, afterID string, limit int) ([]entities.Entry, error) {
	query := r.db.
		Preload("Media", func(db *gorm.DB) *gorm.DB { return db.Order("order_in_entry, created_at, id") }).
		Where("id > ? AND content_plain_text LIKE ?", afterID, "%DAYONE%")
	if ownerID > 0 {
		query = query.Where("owner_id = ?", ownerID)
	}
	var entries []entities.Entry
	err := query.Order("id").Limit(limit).Find(&entries).Error
	return entries, err
}

func preloadMoment(db *gorm.DB) *gorm.DB {
	return db.
		Preload("MoodActivity", func(db *gorm.DB) *gorm.DB { return db.Order("created_at, id") }).
		Preload("MoodActivity.Mood").
		Preload("MoodActivity.Activity").
		Preload("Media", func(db *gorm.DB) *gorm.DB { return db.Order("order_in_entry, created_at, id") })
}

// GetMomentForEntry returns the moment attached to an entry, or nil.
func (r *Repository) GetMomentForEntry(entryID string) (*entities.Moment, error) {
	var moment entities.Moment
	err := preloadMoment(r.db).Where("entry_id = ?", entryID).First(&moment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &moment, nil
}

// ListStandaloneMoments returns moments with no entry ordered by
// (logged_at, id).
func (r *Repository) ListStandaloneMoments(ownerID uint) ([]entities.Moment, error) {
	var moments []entities.Moment
	err := preloadMoment(r.db).
		Where("owner_id = ? AND entry_id IS NULL", ownerID).
		Order("logged_at, id").
		Find(&moments).Error
	return moments, err
}

// MediaForOwner returns every media row of an owner, used to size exports.
func (r *Repository) MediaForOwner(ownerID uint) ([]entities.Media, error) {
	var media []entities.Media
	err := r.db.Where("owner_id = ?", ownerID).Order("created_at, id").Find(&media).Error
	return media, err
}
