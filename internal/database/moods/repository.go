// Package moods provides database operations for mood definitions, mood
// groups and their preferences, activities and activity groups.
//
// Lookups by name are case-insensitive. Mood and mood group lookups also
// consider system rows, which have no owner.
package moods

import (
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/journalport/internal/entities"
)

// Repository handles all mood and activity database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new moods repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func firstOrNil[T any](query *gorm.DB) (*T, error) {
	var row T
	err := query.First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func byName(db *gorm.DB, name string) *gorm.DB {
	return db.Where("name_key = ?", entities.NameKey(name))
}

// ownerOrSystem matches rows of ownerID or system rows, preferring the
// owner's own.
func ownerOrSystem(db *gorm.DB, ownerID uint) *gorm.DB {
	return db.Where("owner_id = ? OR owner_id IS NULL", ownerID).
		Order("owner_id IS NULL, position, id")
}

// FindMoodByName returns the owner's or a system mood with the given name.
func (r *Repository) FindMoodByName(ownerID uint, name string) (*entities.Mood, error) {
	return firstOrNil[entities.Mood](ownerOrSystem(byName(r.db, name), ownerID))
}

// FindMoodByKey returns a system or owner mood by its stable key.
func (r *Repository) FindMoodByKey(ownerID uint, key string) (*entities.Mood, error) {
	return firstOrNil[entities.Mood](ownerOrSystem(r.db.Where("key = ?", key), ownerID))
}

func (r *Repository) GetMood(id string) (*entities.Mood, error) {
	return firstOrNil[entities.Mood](r.db.Where("id = ?", id))
}

func (r *Repository) CreateMood(mood *entities.Mood) error {
	return r.db.Create(mood).Error
}

func (r *Repository) FindMoodGroupByName(ownerID uint, name string) (*entities.MoodGroup, error) {
	return firstOrNil[entities.MoodGroup](ownerOrSystem(byName(r.db, name), ownerID))
}

func (r *Repository) CreateMoodGroup(group *entities.MoodGroup) error {
	return r.db.Create(group).Error
}

// EnsureMoodGroupLink links a mood into a group unless the pair already
// exists. created reports whether a row was inserted.
func (r *Repository) EnsureMoodGroupLink(groupID, moodID string, position int) (bool, error) {
	existing, err := firstOrNil[entities.MoodGroupLink](
		r.db.Where("mood_group_id = ? AND mood_id = ?", groupID, moodID))
	if err != nil || existing != nil {
		return false, err
	}
	link := &entities.MoodGroupLink{MoodGroupID: groupID, MoodID: moodID, Position: position}
	if err := r.db.Create(link).Error; err != nil {
		return false, err
	}
	return true, nil
}

// UpsertMoodPreference creates or updates the owner's preference for a mood.
func (r *Repository) UpsertMoodPreference(pref *entities.UserMoodPreference) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner_id"}, {Name: "mood_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"sort_order", "is_hidden", "updated_at"}),
	}).Create(pref).Error
}

// UpsertMoodGroupPreference creates or updates the owner's preference for a
// mood group.
func (r *Repository) UpsertMoodGroupPreference(pref *entities.UserMoodGroupPreference) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner_id"}, {Name: "mood_group_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"sort_order", "is_hidden", "updated_at"}),
	}).Create(pref).Error
}

func (r *Repository) FindActivityGroupByName(ownerID uint, name string) (*entities.ActivityGroup, error) {
	return firstOrNil[entities.ActivityGroup](byName(r.db, name).Where("owner_id = ?", ownerID))
}

func (r *Repository) CreateActivityGroup(group *entities.ActivityGroup) error {
	return r.db.Create(group).Error
}

func (r *Repository) FindActivityByName(ownerID uint, name string) (*entities.Activity, error) {
	return firstOrNil[entities.Activity](byName(r.db, name).Where("owner_id = ?", ownerID))
}

func (r *Repository) CreateActivity(activity *entities.Activity) error {
	return r.db.Create(activity).Error
}

// GetOrCreateActivity returns the owner's activity with the given name,
// creating it when missing.
func (r *Repository) GetOrCreateActivity(ownerID uint, name string) (*entities.Activity, bool, error) {
	activity, err := r.FindActivityByName(ownerID, name)
	if err != nil {
		return nil, false, err
	}
	if activity != nil {
		return activity, false, nil
	}
	activity = &entities.Activity{OwnerID: ownerID, Name: strings.TrimSpace(name)}
	if err := r.CreateActivity(activity); err != nil {
		return nil, false, err
	}
	return activity, true, nil
}

func order(db *gorm.DB) *gorm.DB {
	return db.Order("position, created_at, id")
}

// ListMoods returns the owner's custom moods and the system moods.
func (r *Repository) ListMoods(ownerID uint) ([]entities.Mood, error) {
	var moods []entities.Mood
	err := order(r.db.Where("owner_id = ? OR owner_id IS NULL", ownerID)).Find(&moods).Error
	return moods, err
}

func (r *Repository) ListMoodGroups(ownerID uint) ([]entities.MoodGroup, error) {
	var groups []entities.MoodGroup
	err := order(r.db.Where("owner_id = ? OR owner_id IS NULL", ownerID)).Find(&groups).Error
	return groups, err
}

func (r *Repository) ListMoodGroupLinks(groupIDs []string) ([]entities.MoodGroupLink, error) {
	var links []entities.MoodGroupLink
	if len(groupIDs) == 0 {
		return links, nil
	}
	err := order(r.db.Where("mood_group_id IN ?", groupIDs)).Find(&links).Error
	return links, err
}

func (r *Repository) ListMoodPreferences(ownerID uint) ([]entities.UserMoodPreference, error) {
	var prefs []entities.UserMoodPreference
	err := r.db.Where("owner_id = ?", ownerID).Order("sort_order, created_at, id").Find(&prefs).Error
	return prefs, err
}

func (r *Repository) ListMoodGroupPreferences(ownerID uint) ([]entities.UserMoodGroupPreference, error) {
	var prefs []entities.UserMoodGroupPreference
	err := r.db.Where("owner_id = ?", ownerID).Order("sort_order, created_at, id").Find(&prefs).Error
	return prefs, err
}

func (r *Repository) ListActivityGroups(ownerID uint) ([]entities.ActivityGroup, error) {
	var groups []entities.ActivityGroup
	err := order(r.db.Where("owner_id = ?", ownerID)).Find(&groups).Error
	return groups, err
}

func (r *Repository) ListActivities(ownerID uint) ([]entities.Activity, error) {
	var activities []entities.Activity
	err := order(r.db.Where("owner_id = ?", ownerID)).Find(&activities).Error
	return activities, err
}
