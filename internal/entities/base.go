package entities

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base carries the UUID primary key and timestamps shared by journal data.
type Base struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// NameKey is the form names are matched on: trimmed and Unicode lowercased.
// SQLite's LOWER() folds ASCII only, so matching happens on a stored key
// instead.
func NameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Email     string         `gorm:"uniqueIndex;size:255" json:"email"`
	Name      string         `gorm:"size:255" json:"name"`
	TimeZone  string         `gorm:"size:64" json:"time_zone"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (User) TableName() string {
	return "users"
}

type UserSettings struct {
	UserID             uint      `gorm:"primaryKey" json:"user_id"`
	Theme              string    `gorm:"size:20" json:"theme"`
	TimeZone           string    `gorm:"size:64" json:"time_zone"`
	DailyPromptEnabled bool      `json:"daily_prompt_enabled"`
	PushNotifications  bool      `json:"push_notifications"`
	ReminderTime       *string   `gorm:"size:8" json:"reminder_time,omitempty"`
	WritingGoalDaily   int       `json:"writing_goal_daily"`
	StartOfWeekDay     int       `json:"start_of_week_day"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func (UserSettings) TableName() string {
	return "user_settings"
}
