// Package users provides database operations for journal owners and their
// settings.
//
// # Usage
//
//	repo := users.NewRepository(db)
//	user, err := repo.CreateUser("me@example.com", "Me", "Europe/Berlin")
package users

import (
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/journalport/internal/entities"
)

// Repository handles all user database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new users repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// CreateUser creates a new owner.
func (r *Repository) CreateUser(email, name, timeZone string) (*entities.User, error) {
	if timeZone == "" {
		timeZone = "UTC"
	}
	user := &entities.User{
		Email:    strings.ToLower(strings.TrimSpace(email)),
		Name:     name,
		TimeZone: timeZone,
	}
	if err := r.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserByID retrieves a user by ID.
func (r *Repository) GetUserByID(id uint) (*entities.User, error) {
	var user entities.User
	err := r.db.First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByEmail retrieves a user by email (case-insensitive).
func (r *Repository) GetUserByEmail(email string) (*entities.User, error) {
	var user entities.User
	err := r.db.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ListUsers returns all users ordered by id.
func (r *Repository) ListUsers() ([]entities.User, error) {
	var users []entities.User
	err := r.db.Order("id").Find(&users).Error
	return users, err
}

// GetSettings returns the settings of a user, or nil when none are stored.
func (r *Repository) GetSettings(userID uint) (*entities.UserSettings, error) {
	var settings entities.UserSettings
	err := r.db.Where("user_id = ?", userID).First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

// UpsertSettings creates or replaces the settings of settings.UserID.
func (r *Repository) UpsertSettings(settings *entities.UserSettings) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"theme", "time_zone", "daily_prompt_enabled", "push_notifications",
			"reminder_time", "writing_goal_daily", "start_of_week_day", "updated_at",
		}),
	}).Create(settings).Error
}
