package entities

import (
	"time"

	"gorm.io/gorm"
)

type GoalCategory struct {
	Base
	OwnerID    uint    `gorm:"index;not null" json:"owner_id"`
	Name       string  `gorm:"size:100;not null" json:"name"`
	NameKey    string  `gorm:"size:100;index" json:"-"`
	ColorValue *int    `json:"color_value,omitempty"`
	Icon       *string `gorm:"size:50" json:"icon,omitempty"`
	Position   int     `json:"position"`
}

type Goal struct {
	Base
	OwnerID       uint       `gorm:"index;not null" json:"owner_id"`
	Title         string     `gorm:"size:255;not null" json:"title"`
	GoalType      string     `gorm:"size:20" json:"goal_type"`
	FrequencyType string     `gorm:"size:20" json:"frequency_type"`
	TargetCount   int        `json:"target_count"`
	ReminderTime  *string    `gorm:"size:8" json:"reminder_time,omitempty"`
	IsPaused      bool       `json:"is_paused"`
	Icon          *string    `gorm:"size:50" json:"icon,omitempty"`
	ColorValue    *int       `json:"color_value,omitempty"`
	Position      int        `json:"position"`
	ArchivedAt    *time.Time `json:"archived_at,omitempty"`
	ActivityID    *string    `gorm:"size:36" json:"activity_id,omitempty"`
	CategoryID    *string    `gorm:"size:36" json:"category_id,omitempty"`
}

type GoalLog struct {
	Base
	OwnerID       uint      `gorm:"index;not null" json:"owner_id"`
	GoalID        string    `gorm:"size:36;index;not null" json:"goal_id"`
	LoggedDate    string    `gorm:"size:10;index" json:"logged_date"`
	PeriodStart   string    `gorm:"size:10" json:"period_start"`
	PeriodEnd     string    `gorm:"size:10" json:"period_end"`
	Status        string    `gorm:"size:20" json:"status"`
	Count         int       `json:"count"`
	Source        string    `gorm:"size:20" json:"source"`
	LastUpdatedAt time.Time `json:"last_updated_at"`
	MomentID      *string   `gorm:"size:36" json:"moment_id,omitempty"`
}

type GoalManualLog struct {
	Base
	OwnerID    uint   `gorm:"index;not null" json:"owner_id"`
	GoalID     string `gorm:"size:36;index;not null" json:"goal_id"`
	LoggedDate string `gorm:"size:10" json:"logged_date"`
	Status     string `gorm:"size:20" json:"status"`
}

func (c *GoalCategory) BeforeSave(tx *gorm.DB) error {
	c.NameKey = NameKey(c.Name)
	return nil
}
