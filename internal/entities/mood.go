package entities

import "gorm.io/gorm"

// Mood definitions with a nil OwnerID are system moods shared by all users.
type Mood struct {
	Base
	OwnerID    *uint   `gorm:"index" json:"owner_id,omitempty"`
	Name       string  `gorm:"size:100;not null" json:"name"`
	NameKey    string  `gorm:"size:100;index" json:"-"`
	Key        *string `gorm:"size:100" json:"key,omitempty"`
	Category   string  `gorm:"size:20" json:"category"`
	Icon       *string `gorm:"size:50" json:"icon,omitempty"`
	ColorValue *int    `json:"color_value,omitempty"`
	Score      *int    `json:"score,omitempty"`
	Position   int     `json:"position"`
	IsActive   bool    `json:"is_active"`
	IsCustom   bool    `json:"is_custom"`
}

type MoodGroup struct {
	Base
	OwnerID    *uint   `gorm:"index" json:"owner_id,omitempty"`
	Name       string  `gorm:"size:100;not null" json:"name"`
	NameKey    string  `gorm:"size:100;index" json:"-"`
	Icon       *string `gorm:"size:50" json:"icon,omitempty"`
	ColorValue *int    `json:"color_value,omitempty"`
	Position   int     `json:"position"`
	IsCustom   bool    `json:"is_custom"`
}

type MoodGroupLink struct {
	Base
	MoodGroupID string `gorm:"size:36;uniqueIndex:idx_mood_group_link;not null" json:"mood_group_id"`
	MoodID      string `gorm:"size:36;uniqueIndex:idx_mood_group_link;not null" json:"mood_id"`
	Position    int    `json:"position"`
}

type UserMoodPreference struct {
	Base
	OwnerID   uint   `gorm:"uniqueIndex:idx_mood_pref;not null" json:"owner_id"`
	MoodID    string `gorm:"size:36;uniqueIndex:idx_mood_pref;not null" json:"mood_id"`
	SortOrder int    `json:"sort_order"`
	IsHidden  bool   `json:"is_hidden"`
}

type UserMoodGroupPreference struct {
	Base
	OwnerID     uint   `gorm:"uniqueIndex:idx_mood_group_pref;not null" json:"owner_id"`
	MoodGroupID string `gorm:"size:36;uniqueIndex:idx_mood_group_pref;not null" json:"mood_group_id"`
	SortOrder   int    `json:"sort_order"`
	IsHidden    bool   `json:"is_hidden"`
}

type ActivityGroup struct {
	Base
	OwnerID    uint    `gorm:"index;not null" json:"owner_id"`
	Name       string  `gorm:"size:100;not null" json:"name"`
	NameKey    string  `gorm:"size:100;index" json:"-"`
	ColorValue *int    `json:"color_value,omitempty"`
	Icon       *string `gorm:"size:50" json:"icon,omitempty"`
	Position   int     `json:"position"`
}

type Activity struct {
	Base
	OwnerID  uint    `gorm:"index;not null" json:"owner_id"`
	Name     string  `gorm:"size:100;not null" json:"name"`
	NameKey  string  `gorm:"size:100;index" json:"-"`
	Icon     *string `gorm:"size:50" json:"icon,omitempty"`
	Color    *string `gorm:"size:20" json:"color,omitempty"`
	Position int     `json:"position"`
	GroupID  *string `gorm:"size:36;index" json:"group_id,omitempty"`
}

// BeforeSave keeps NameKey in step with Name for case-insensitive lookups.
func (m *Mood) BeforeSave(tx *gorm.DB) error {
	m.NameKey = NameKey(m.Name)
	return nil
}

func (g *MoodGroup) BeforeSave(tx *gorm.DB) error {
	g.NameKey = NameKey(g.Name)
	return nil
}

func (g *ActivityGroup) BeforeSave(tx *gorm.DB) error {
	g.NameKey = NameKey(g.Name)
	return nil
}

func (a *Activity) BeforeSave(tx *gorm.DB) error {
	a.NameKey = NameKey(a.Name)
	return nil
}
