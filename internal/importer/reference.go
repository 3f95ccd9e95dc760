package importer

import (
	"fmt"
	"strings"
	"time"

	"github.com/mrlokans/journalport/internal/entities"
	"github.com/mrlokans/journalport/internal/idmap"
	"github.com/mrlokans/journalport/internal/transfer"
)

func timestamps(created, updated time.Time) entities.Base {
	return entities.Base{CreatedAt: created, UpdatedAt: updated}
}

func optionalTimestamps(created, updated *time.Time) entities.Base {
	var b entities.Base
	if created != nil {
		b.CreatedAt = *created
	}
	if updated != nil {
		b.UpdatedAt = *updated
	}
	return b
}

// importReference imports the reference arrays of the manifest header.
// Moods, mood groups, activities, activity groups and goal categories are
// matched by name and reused; goals are always created.
func (u *unit) importReference() error {
	ref := &u.archive.Header.Reference

	if s := u.archive.Header.UserSettings; s != nil {
		if err := u.importSettings(s); err != nil {
			return err
		}
	}
	steps := []func(*transfer.Reference) error{
		u.importMoods,
		u.importMoodGroups,
		u.importMoodGroupLinks,
		u.importMoodPreferences,
		u.importActivityGroups,
		u.importActivities,
		u.importGoalCategories,
		u.importGoals,
	}
	for _, step := range steps {
		if err := step(ref); err != nil {
			return err
		}
	}
	return nil
}

func (u *unit) importSettings(s *transfer.UserSettings) error {
	settings := &entities.UserSettings{
		UserID:             u.ownerID,
		Theme:              s.Theme,
		TimeZone:           transfer.NormalizeTimezone(s.TimeZone),
		DailyPromptEnabled: s.DailyPromptEnabled,
		PushNotifications:  s.PushNotifications,
		ReminderTime:       s.ReminderTime,
		WritingGoalDaily:   s.WritingGoalDaily,
		StartOfWeekDay:     s.StartOfWeekDay,
	}
	if err := u.users.UpsertSettings(settings); err != nil {
		return fmt.Errorf("failed to import user settings: %w", err)
	}
	return nil
}

func (u *unit) importMoods(ref *transfer.Reference) error {
	for _, dto := range ref.MoodDefinitions {
		name := strings.TrimSpace(dto.Name)
		existing, err := u.moods.FindMoodByName(u.ownerID, name)
		if err != nil {
			return err
		}
		if existing != nil {
			u.summary.MoodsReused++
			if err := u.ids.Set(idmap.Mood, dto.ExternalID, existing.ID); err != nil {
				return err
			}
			continue
		}

		owner := u.ownerID
		mood := &entities.Mood{
			Base:       optionalTimestamps(dto.CreatedAt, dto.UpdatedAt),
			OwnerID:    &owner,
			Name:       strings.ToLower(name),
			Key:        dto.Key,
			Category:   dto.Category,
			Icon:       dto.Icon,
			ColorValue: dto.ColorValue,
			Score:      dto.Score,
			Position:   dto.Position,
			IsActive:   dto.IsActive,
			IsCustom:   true,
		}
		if err := u.moods.CreateMood(mood); err != nil {
			return fmt.Errorf("failed to create mood %q: %w", name, err)
		}
		u.summary.MoodsCreated++
		if err := u.ids.Set(idmap.Mood, dto.ExternalID, mood.ID); err != nil {
			return err
		}
	}
	return nil
}

func (u *unit) importMoodGroups(ref *transfer.Reference) error {
	for _, dto := range ref.MoodGroups {
		existing, err := u.moods.FindMoodGroupByName(u.ownerID, dto.Name)
		if err != nil {
			return err
		}
		id := ""
		if existing != nil {
			id = existing.ID
		} else {
			owner := u.ownerID
			group := &entities.MoodGroup{
				Base:       timestamps(dto.CreatedAt, dto.UpdatedAt),
				OwnerID:    &owner,
				Name:       strings.TrimSpace(dto.Name),
				Icon:       dto.Icon,
				ColorValue: dto.ColorValue,
				Position:   dto.Position,
				IsCustom:   true,
			}
			if err := u.moods.CreateMoodGroup(group); err != nil {
				return fmt.Errorf("failed to create mood group %q: %w", dto.Name, err)
			}
			u.summary.MoodGroupsCreated++
			id = group.ID
		}
		if err := u.ids.Set(idmap.MoodGroup, dto.ExternalID, id); err != nil {
			return err
		}
	}
	return nil
}

func (u *unit) importMoodGroupLinks(ref *transfer.Reference) error {
	for _, dto := range ref.MoodGroupLinks {
		groupID, okGroup := u.ids.Get(idmap.MoodGroup, dto.MoodGroupExternalID)
		moodID, okMood := u.ids.Get(idmap.Mood, dto.MoodExternalID)
		if !okGroup || !okMood {
			u.warn(fmt.Sprintf("Mood group link skipped: unknown mood group '%s' or mood '%s'",
				dto.MoodGroupExternalID, dto.MoodExternalID), transfer.CategoryFormat)
			continue
		}
		created, err := u.moods.EnsureMoodGroupLink(groupID, moodID, dto.Position)
		if err != nil {
			return err
		}
		if created {
			u.summary.MoodGroupLinksCreated++
		}
	}
	return nil
}

func (u *unit) importMoodPreferences(ref *transfer.Reference) error {
	for _, dto := range ref.MoodPreferences {
		moodID, ok := u.ids.Get(idmap.Mood, dto.MoodExternalID)
		if !ok {
			u.warn(fmt.Sprintf("Mood preference skipped: unknown mood '%s'", dto.MoodExternalID), transfer.CategoryFormat)
			continue
		}
		pref := &entities.UserMoodPreference{
			Base:      timestamps(dto.CreatedAt, dto.UpdatedAt),
			OwnerID:   u.ownerID,
			MoodID:    moodID,
			SortOrder: dto.SortOrder,
			IsHidden:  dto.IsHidden,
		}
		if err := u.moods.UpsertMoodPreference(pref); err != nil {
			return err
		}
		u.summary.MoodPreferencesImported++
	}

	for _, dto := range ref.MoodGroupPreferences {
		groupID, ok := u.ids.Get(idmap.MoodGroup, dto.MoodGroupExternalID)
		if !ok {
			u.warn(fmt.Sprintf("Mood group preference skipped: unknown mood group '%s'", dto.MoodGroupExternalID), transfer.CategoryFormat)
			continue
		}
		pref := &entities.UserMoodGroupPreference{
			Base:        timestamps(dto.CreatedAt, dto.UpdatedAt),
			OwnerID:     u.ownerID,
			MoodGroupID: groupID,
			SortOrder:   dto.SortOrder,
			IsHidden:    dto.IsHidden,
		}
		if err := u.moods.UpsertMoodGroupPreference(pref); err != nil {
			return err
		}
		u.summary.MoodGroupPreferencesImported++
	}
	return nil
}

func (u *unit) importActivityGroups(ref *transfer.Reference) error {
	for _, dto := range ref.ActivityGroups {
		existing, err := u.moods.FindActivityGroupByName(u.ownerID, dto.Name)
		if err != nil {
			return err
		}
		id := ""
		if existing != nil {
			id = existing.ID
		} else {
			group := &entities.ActivityGroup{
				Base:       timestamps(dto.CreatedAt, dto.UpdatedAt),
				OwnerID:    u.ownerID,
				Name:       strings.TrimSpace(dto.Name),
				ColorValue: dto.ColorValue,
				Icon:       dto.Icon,
				Position:   dto.Position,
			}
			if err := u.moods.CreateActivityGroup(group); err != nil {
				return fmt.Errorf("failed to create activity group %q: %w", dto.Name, err)
			}
			u.summary.ActivityGroupsCreated++
			id = group.ID
		}
		if err := u.ids.Set(idmap.ActivityGroup, dto.ExternalID, id); err != nil {
			return err
		}
	}
	return nil
}

func (u *unit) importActivities(ref *transfer.Reference) error {
	for _, dto := range ref.Activities {
		existing, err := u.moods.FindActivityByName(u.ownerID, dto.Name)
		if err != nil {
			return err
		}
		id := ""
		if existing != nil {
			id = existing.ID
		} else {
			activity := &entities.Activity{
				Base:     timestamps(dto.CreatedAt, dto.UpdatedAt),
				OwnerID:  u.ownerID,
				Name:     strings.TrimSpace(dto.Name),
				Icon:     dto.Icon,
				Color:    dto.Color,
				Position: dto.Position,
				GroupID:  u.ids.Lookup(idmap.ActivityGroup, dto.GroupExternalID),
			}
			if err := u.moods.CreateActivity(activity); err != nil {
				return fmt.Errorf("failed to create activity %q: %w", dto.Name, err)
			}
			u.summary.ActivitiesCreated++
			id = activity.ID
		}
		if err := u.ids.Set(idmap.Activity, dto.ExternalID, id); err != nil {
			return err
		}
	}
	return nil
}

func (u *unit) importGoalCategories(ref *transfer.Reference) error {
	for _, dto := range ref.GoalCategories {
		existing, err := u.goals.FindCategoryByName(u.ownerID, dto.Name)
		if err != nil {
			return err
		}
		id := ""
		if existing != nil {
			id = existing.ID
		} else {
			category := &entities.GoalCategory{
				Base:       timestamps(dto.CreatedAt, dto.UpdatedAt),
				OwnerID:    u.ownerID,
				Name:       strings.TrimSpace(dto.Name),
				ColorValue: dto.ColorValue,
				Icon:       dto.Icon,
				Position:   dto.Position,
			}
			if err := u.goals.CreateCategory(category); err != nil {
				return fmt.Errorf("failed to create goal category %q: %w", dto.Name, err)
			}
			u.summary.GoalCategoriesCreated++
			id = category.ID
		}
		if err := u.ids.Set(idmap.GoalCategory, dto.ExternalID, id); err != nil {
			return err
		}
	}
	return nil
}

func (u *unit) importGoals(ref *transfer.Reference) error {
	for _, dto := range ref.Goals {
		goal := &entities.Goal{
			Base:          timestamps(dto.CreatedAt, dto.UpdatedAt),
			OwnerID:       u.ownerID,
			Title:         dto.Title,
			GoalType:      dto.GoalType,
			FrequencyType: dto.FrequencyType,
			TargetCount:   dto.TargetCount,
			ReminderTime:  dto.ReminderTime,
			IsPaused:      dto.IsPaused,
			Icon:          dto.Icon,
			ColorValue:    dto.ColorValue,
			Position:      dto.Position,
			ArchivedAt:    dto.ArchivedAt,
			ActivityID:    u.ids.Lookup(idmap.Activity, dto.ActivityExternalID),
			CategoryID:    u.ids.Lookup(idmap.GoalCategory, dto.CategoryExternalID),
		}
		if err := u.goals.CreateGoal(goal); err != nil {
			return fmt.Errorf("failed to create goal %q: %w", dto.Title, err)
		}
		u.summary.GoalsCreated++
		if err := u.ids.Set(idmap.Goal, dto.ExternalID, goal.ID); err != nil {
			return err
		}
	}
	return nil
}

// importGoalLogs runs last so logs can point at moments imported earlier.
func (u *unit) importGoalLogs() error {
	ref := &u.archive.Header.Reference

	for _, dto := range ref.GoalLogs {
		goalID, ok := u.ids.Get(idmap.Goal, dto.GoalExternalID)
		if !ok {
			u.warn(fmt.Sprintf("Goal log skipped: unknown goal '%s'", dto.GoalExternalID), transfer.CategoryFormat)
			continue
		}
		log := &entities.GoalLog{
			Base:          timestamps(dto.CreatedAt, dto.UpdatedAt),
			OwnerID:       u.ownerID,
			GoalID:        goalID,
			LoggedDate:    dto.LoggedDate.String(),
			PeriodStart:   dto.PeriodStart.String(),
			PeriodEnd:     dto.PeriodEnd.String(),
			Status:        dto.Status,
			Count:         dto.Count,
			Source:        dto.Source,
			LastUpdatedAt: dto.LastUpdatedAt,
			MomentID:      u.ids.Lookup(idmap.Moment, dto.MomentExternalID),
		}
		if err := u.goals.CreateGoalLog(log); err != nil {
			return err
		}
		u.summary.GoalLogsCreated++
		if err := u.ids.Set(idmap.GoalLog, dto.ExternalID, log.ID); err != nil {
			return err
		}
	}

	for _, dto := range ref.GoalManualLogs {
		goalID, ok := u.ids.Get(idmap.Goal, dto.GoalExternalID)
		if !ok {
			u.warn(fmt.Sprintf("Goal manual log skipped: unknown goal '%s'", dto.GoalExternalID), transfer.CategoryFormat)
			continue
		}
		log := &entities.GoalManualLog{
			Base:       timestamps(dto.CreatedAt, dto.UpdatedAt),
			OwnerID:    u.ownerID,
			GoalID:     goalID,
			LoggedDate: dto.LoggedDate.String(),
			Status:     dto.Status,
		}
		if err := u.goals.CreateManualLog(log); err != nil {
			return err
		}
		u.summary.GoalManualLogsCreated++
	}
	return nil
}
