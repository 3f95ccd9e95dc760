// Package goals provides database operations for goal categories, goals and
// their logs.
package goals

import (
	"errors"

	"gorm.io/gorm"

	"github.com/mrlokans/journalport/internal/entities"
)

// Repository handles all goal database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new goals repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// FindCategoryByName returns the owner's goal category with the given name
// (case-insensitive), or nil.
func (r *Repository) FindCategoryByName(ownerID uint, name string) (*entities.GoalCategory, error) {
	var category entities.GoalCategory
	err := r.db.Where("owner_id = ? AND name_key = ?", ownerID, entities.NameKey(name)).
		First(&category).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *Repository) CreateCategory(category *entities.GoalCategory) error {
	return r.db.Create(category).Error
}

func (r *Repository) CreateGoal(goal *entities.Goal) error {
	return r.db.Create(goal).Error
}

func (r *Repository) CreateGoalLog(log *entities.GoalLog) error {
	return r.db.Create(log).Error
}

func (r *Repository) CreateManualLog(log *entities.GoalManualLog) error {
	return r.db.Create(log).Error
}

func (r *Repository) ListCategories(ownerID uint) ([]entities.GoalCategory, error) {
	var categories []entities.GoalCategory
	err := r.db.Where("owner_id = ?", ownerID).Order("position, created_at, id").Find(&categories).Error
	return categories, err
}

func (r *Repository) ListGoals(ownerID uint) ([]entities.Goal, error) {
	var goals []entities.Goal
	err := r.db.Where("owner_id = ?", ownerID).Order("position, created_at, id").Find(&goals).Error
	return goals, err
}

// ListGoalLogs returns an owner's goal logs ordered by
// (logged_date, created_at, id).
func (r *Repository) ListGoalLogs(ownerID uint) ([]entities.GoalLog, error) {
	var logs []entities.GoalLog
	err := r.db.Where("owner_id = ?", ownerID).Order("logged_date, created_at, id").Find(&logs).Error
	return logs, err
}

func (r *Repository) ListManualLogs(ownerID uint) ([]entities.GoalManualLog, error) {
	var logs []entities.GoalManualLog
	err := r.db.Where("owner_id = ?", ownerID).Order("logged_date, created_at, id").Find(&logs).Error
	return logs, err
}
