package entities

import "time"

// Moment is a timestamped check-in. An entry owns at most one moment;
// standalone moments have no entry.
type Moment struct {
	Base
	OwnerID        uint                 `gorm:"index;not null" json:"owner_id"`
	EntryID        *string              `gorm:"size:36;uniqueIndex" json:"entry_id,omitempty"`
	PrimaryMoodID  *string              `gorm:"size:36" json:"primary_mood_id,omitempty"`
	LoggedAt       time.Time            `gorm:"index" json:"logged_at"`
	LoggedDate     string               `gorm:"size:10;index" json:"logged_date"`
	LoggedTimezone string               `gorm:"size:64" json:"logged_timezone"`
	Note           *string              `gorm:"type:text" json:"note,omitempty"`
	LocationData   map[string]any       `gorm:"serializer:json" json:"location_data,omitempty"`
	WeatherData    map[string]any       `gorm:"serializer:json" json:"weather_data,omitempty"`
	MoodActivity   []MomentMoodActivity `gorm:"foreignKey:MomentID;constraint:OnDelete:CASCADE" json:"mood_activity,omitempty"`
	Media          []Media              `gorm:"foreignKey:MomentID" json:"media,omitempty"`
}

type MomentMoodActivity struct {
	Base
	MomentID   string    `gorm:"size:36;index;not null" json:"moment_id"`
	MoodID     *string   `gorm:"size:36" json:"mood_id,omitempty"`
	ActivityID *string   `gorm:"size:36" json:"activity_id,omitempty"`
	Mood       *Mood     `gorm:"foreignKey:MoodID" json:"mood,omitempty"`
	Activity   *Activity `gorm:"foreignKey:ActivityID" json:"activity,omitempty"`
}
