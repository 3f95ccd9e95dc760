package importer

import (
	"fmt"
	"strings"
	"time"

	"github.com/mrlokans/journalport/internal/entities"
	"github.com/mrlokans/journalport/internal/idmap"
	"github.com/mrlokans/journalport/internal/readers"
	"github.com/mrlokans/journalport/internal/transfer"
)

func (r *run) importMomentItem(item readers.Item[transfer.Moment]) {
	label := fmt.Sprintf("moment #%d", item.Index+1)
	if item.Value != nil {
		label = item.Value.Label()
	}

	if item.Err != nil {
		r.unitFailed(&transfer.UnitError{
			Kind:     "moment",
			Label:    label,
			Category: transfer.CategoryMomentError,
			Err:      item.Err,
		})
		r.advance(1)
		return
	}

	r.runUnit("moment", label, transfer.CategoryMomentError, 0, func(u *unit) error {
		if err := transfer.ValidateMoment(item.Value); err != nil {
			return err
		}
		moment, err := u.importMoment(item.Value, nil)
		if err != nil {
			return err
		}
		if moment != nil {
			u.summary.MomentsCreated++
		}
		return nil
	})
	r.advance(1)
}

// importMoment creates a moment with its mood and activity links and media.
// entry is nil for standalone moments. A moment without any usable date is
// skipped with a warning and a nil result.
func (u *unit) importMoment(dto *transfer.Moment, entry *entities.Entry) (*entities.Moment, error) {
	zone := transfer.NormalizeTimezone(dto.LoggedTimezone)
	loggedAt, ok := momentTime(dto, entry, zone)
	if !ok {
		u.warn(fmt.Sprintf("Moment date missing, skipping moment '%s'", dto.Label()), transfer.CategoryMomentError)
		return nil, nil
	}

	moment := &entities.Moment{
		Base:           optionalTimestamps(dto.CreatedAt, dto.UpdatedAt),
		OwnerID:        u.ownerID,
		LoggedAt:       loggedAt,
		LoggedDate:     transfer.LocalDate(loggedAt, zone).String(),
		LoggedTimezone: zone,
		Note:           dto.Note,
		LocationData:   dto.LocationData,
		WeatherData:    dto.WeatherData,
	}
	if entry != nil {
		moment.EntryID = &entry.ID
	}

	primary, err := u.resolveMood(dto.PrimaryMoodExternalID, dto.PrimaryMoodName)
	if err != nil {
		return nil, err
	}
	if primary == nil && (dto.PrimaryMoodExternalID != nil || dto.PrimaryMoodName != nil) {
		u.warn(fmt.Sprintf("Mood not found: '%s', skipping moment primary mood",
			moodLabel(dto.PrimaryMoodExternalID, dto.PrimaryMoodName)), transfer.CategoryFormat)
	}
	moment.PrimaryMoodID = primary

	if err := u.journals.CreateMoment(moment); err != nil {
		return nil, fmt.Errorf("failed to create moment: %w", err)
	}

	linked, err := u.linkMoodActivity(moment.ID, dto.MoodActivity)
	if err != nil {
		return nil, err
	}
	if linked == 0 && primary != nil {
		if err := u.journals.CreateMoodActivity(&entities.MomentMoodActivity{MomentID: moment.ID, MoodID: primary}); err != nil {
			return nil, fmt.Errorf("failed to link primary mood: %w", err)
		}
	}

	parent := mediaParent{momentID: &moment.ID}
	for i := range dto.Media {
		if _, err := u.importMedia(parent, &dto.Media[i]); err != nil {
			return nil, err
		}
	}

	if err := u.ids.Set(idmap.Moment, dto.ExternalID, moment.ID); err != nil {
		return nil, err
	}
	return moment, nil
}

// momentTime picks logged_at. Entry moments fall back to the entry time;
// standalone moments fall back to created_at, then to midnight of
// logged_date in the moment's zone.
func momentTime(dto *transfer.Moment, entry *entities.Entry, zone string) (time.Time, bool) {
	if dto.LoggedAt != nil && !dto.LoggedAt.IsZero() {
		return dto.LoggedAt.UTC(), true
	}
	if entry != nil {
		return entry.EntryDatetimeUTC.UTC(), true
	}
	if dto.CreatedAt != nil && !dto.CreatedAt.IsZero() {
		return dto.CreatedAt.UTC(), true
	}
	if dto.LoggedDate != nil && !dto.LoggedDate.IsZero() {
		loc, err := time.LoadLocation(zone)
		if err != nil {
			loc = time.UTC
		}
		y, m, d := dto.LoggedDate.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, loc).UTC(), true
	}
	return time.Time{}, false
}

// linkMoodActivity creates the moment's mood and activity links and returns
// how many were created.
func (u *unit) linkMoodActivity(momentID string, items []transfer.MomentMoodActivity) (int, error) {
	linked := 0
	for _, item := range items {
		link := &entities.MomentMoodActivity{MomentID: momentID}

		if item.MoodExternalID != nil || item.MoodName != nil {
			moodID, err := u.resolveMood(item.MoodExternalID, item.MoodName)
			if err != nil {
				return linked, err
			}
			if moodID == nil {
				u.warn(fmt.Sprintf("Mood not found: '%s', skipping moment mood link",
					moodLabel(item.MoodExternalID, item.MoodName)), transfer.CategoryFormat)
			}
			link.MoodID = moodID
		}

		if item.ActivityExternalID != nil || item.ActivityName != nil {
			activityID, err := u.resolveActivity(item.ActivityExternalID, item.ActivityName)
			if err != nil {
				return linked, err
			}
			link.ActivityID = activityID
		}

		if link.MoodID == nil && link.ActivityID == nil {
			continue
		}
		if err := u.journals.CreateMoodActivity(link); err != nil {
			return linked, fmt.Errorf("failed to link mood activity: %w", err)
		}
		linked++
	}
	return linked, nil
}

// resolveMood finds a mood by the archive's external id, then by name among
// the owner's and the system moods.
func (u *unit) resolveMood(externalID, name *string) (*string, error) {
	if id := u.ids.Lookup(idmap.Mood, externalID); id != nil {
		return id, nil
	}
	if name == nil || strings.TrimSpace(*name) == "" {
		return nil, nil
	}
	mood, err := u.moods.FindMoodByName(u.ownerID, *name)
	if err != nil {
		return nil, err
	}
	if mood == nil {
		return nil, nil
	}
	return &mood.ID, nil
}

// resolveActivity finds an activity by external id or gets or creates it by
// name.
func (u *unit) resolveActivity(externalID, name *string) (*string, error) {
	if id := u.ids.Lookup(idmap.Activity, externalID); id != nil {
		return id, nil
	}
	if name == nil || strings.TrimSpace(*name) == "" {
		return nil, nil
	}
	activity, created, err := u.moods.GetOrCreateActivity(u.ownerID, strings.TrimSpace(*name))
	if err != nil {
		return nil, fmt.Errorf("failed to import activity %q: %w", *name, err)
	}
	if created {
		u.summary.ActivitiesCreated++
	}
	return &activity.ID, nil
}

func moodLabel(externalID, name *string) string {
	if name != nil && *name != "" {
		return *name
	}
	if externalID != nil {
		return *externalID
	}
	return ""
}
