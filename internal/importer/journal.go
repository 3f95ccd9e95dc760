package importer

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/mrlokans/journalport/internal/delta"
	"github.com/mrlokans/journalport/internal/entities"
	"github.com/mrlokans/journalport/internal/idmap"
	"github.com/mrlokans/journalport/internal/readers"
	"github.com/mrlokans/journalport/internal/rewrite"
	"github.com/mrlokans/journalport/internal/transfer"
)

func (r *run) importJournalItem(item readers.Item[transfer.Journal]) {
	label := fmt.Sprintf("journal #%d", item.Index+1)
	entries := 0
	if item.Value != nil {
		label = item.Value.Label()
		entries = len(item.Value.Entries)
	}

	if item.Err != nil {
		r.unitFailed(&transfer.UnitError{
			Kind:     "journal",
			Label:    label,
			Category: transfer.CategoryJournalError,
			Skipped:  entries,
			Err:      item.Err,
		})
		r.advance(entries)
		return
	}

	start := r.processed
	ok := r.runUnit("journal", label, transfer.CategoryJournalError, entries, func(u *unit) error {
		return u.importJournal(item.Value)
	})
	if !ok {
		// Entries of a rolled back journal still count as processed.
		r.advance(start + entries - r.processed)
	}
}

func (u *unit) importJournal(dto *transfer.Journal) error {
	if strings.TrimSpace(dto.Title) == "" {
		return errors.New("title is required")
	}

	journal := &entities.Journal{
		Base:           timestamps(dto.CreatedAt, dto.UpdatedAt),
		OwnerID:        u.ownerID,
		Title:          dto.Title,
		Description:    dto.Description,
		Color:          dto.Color,
		Icon:           dto.Icon,
		IsFavorite:     dto.IsFavorite,
		IsArchived:     dto.IsArchived,
		ImportMetadata: dto.ImportMetadata,
	}
	if err := u.journals.CreateJournal(journal); err != nil {
		return fmt.Errorf("failed to create journal: %w", err)
	}
	if err := u.ids.Set(idmap.Journal, dto.ExternalID, journal.ID); err != nil {
		return err
	}

	for i := range dto.Entries {
		u.importEntryIsolated(journal.ID, &dto.Entries[i])
		u.advance(1)
	}

	if err := u.journals.RecomputeJournalStats(journal.ID); err != nil {
		return fmt.Errorf("failed to update journal stats: %w", err)
	}
	u.summary.JournalsCreated++
	return nil
}

// importEntryIsolated imports one entry inside a savepoint. A failing entry
// is rolled back alone and counted as skipped.
func (u *unit) importEntryIsolated(journalID string, dto *transfer.Entry) {
	ids := u.ids.Fork()
	summary := transfer.NewImportSummary()

	err := u.tx.Transaction(func(tx *gorm.DB) error {
		return u.bind(tx, ids, summary).importEntry(journalID, dto)
	})
	if err != nil {
		u.storer.PurgeCache()
		u.summary.EntriesSkipped++
		u.warn(fmt.Sprintf("Skipped entry due to error: %v", err), transfer.CategoryEntryError)
		return
	}
	u.ids.Merge(ids)
	u.summary.Absorb(summary)
}

func (u *unit) importEntry(journalID string, dto *transfer.Entry) error {
	if err := transfer.ValidateEntry(dto); err != nil {
		return fmt.Errorf("entry %q is invalid: %w", dto.Label(), err)
	}

	doc := dto.ContentDelta.Clone()
	if doc == nil {
		plain := ""
		if dto.ContentPlainText != nil {
			plain = *dto.ContentPlainText
		}
		doc = delta.WrapPlainText(plain)
	}

	zone := transfer.NormalizeTimezone(dto.EntryTimezone)
	utc := dto.EntryDatetimeUTC.UTC()
	plain := delta.PlainText(doc)

	entry := &entities.Entry{
		Base:             timestamps(dto.CreatedAt, dto.UpdatedAt),
		JournalID:        journalID,
		OwnerID:          u.ownerID,
		Title:            dto.Title,
		ContentDelta:     doc,
		ContentPlainText: nonEmpty(plain),
		EntryDate:        transfer.LocalDate(utc, zone).String(),
		EntryDatetimeUTC: utc,
		EntryTimezone:    zone,
		WordCount:        delta.WordCount(doc),
		IsPinned:         dto.IsPinned,
		IsDraft:          dto.IsDraft,
		LocationJSON:     dto.LocationJSON,
		Latitude:         dto.Latitude,
		Longitude:        dto.Longitude,
		WeatherJSON:      dto.WeatherJSON,
		WeatherSummary:   dto.WeatherSummary,
		ImportMetadata:   dto.ImportMetadata,
		PromptText:       dto.PromptText,
	}
	if err := u.journals.CreateEntry(entry); err != nil {
		return fmt.Errorf("failed to create entry: %w", err)
	}
	if err := u.ids.Set(idmap.Entry, dto.ExternalID, entry.ID); err != nil {
		return err
	}

	if dto.Moment != nil {
		if _, err := u.importMoment(dto.Moment, entry); err != nil {
			return err
		}
	}

	refs := rewrite.NewTokenMap()
	parent := mediaParent{entryID: &entry.ID}
	for i := range dto.Media {
		outcome, err := u.importMedia(parent, &dto.Media[i])
		if err != nil {
			return err
		}
		if outcome != nil {
			refs.Add(outcome.tokenRef(&dto.Media[i]))
		}
	}

	if err := u.rewriteContent(entry, dto, refs); err != nil {
		return err
	}

	if err := u.attachTags(entry.ID, dto.Tags); err != nil {
		return err
	}

	u.summary.EntriesCreated++
	return nil
}

// rewriteContent swaps media references in the entry's document for the ids
// of the media imported with it.
func (u *unit) rewriteContent(entry *entities.Entry, dto *transfer.Entry, refs *rewrite.TokenMap) error {
	if !hasReferences(entry.ContentDelta) {
		return nil
	}
	refs.DeclareOrdinals(entry.ContentDelta)

	notation := rewrite.NativeNotation
	if u.archive.Format == readers.FormatDayOne {
		notation = rewrite.DayOneNotation
	}
	doc, unresolved := rewrite.Rewrite(entry.ContentDelta, refs, notation)
	for _, ref := range unresolved {
		u.warn(fmt.Sprintf("Unresolved media reference '%s' in entry '%s'", ref.Literal, dto.Label()),
			transfer.CategoryUnresolvedRef)
	}

	entry.ContentDelta = doc
	plain := delta.PlainText(doc)
	entry.WordCount = delta.WordCount(doc)
	entry.ContentPlainText = nonEmpty(plain)
	if err := u.journals.UpdateEntryContent(entry.ID, doc, plain, entry.WordCount); err != nil {
		return fmt.Errorf("failed to update entry content: %w", err)
	}
	return nil
}

func (u *unit) attachTags(entryID string, names []string) error {
	seen := map[string]bool{}
	var attached []*entities.Tag
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		tag, created, err := u.tags.GetOrCreateTag(name, u.ownerID)
		if err != nil {
			return fmt.Errorf("failed to import tag %q: %w", name, err)
		}
		if created {
			u.summary.TagsCreated++
		} else {
			u.summary.TagsReused++
		}
		attached = append(attached, tag)
	}
	return u.tags.AttachToEntry(entryID, attached)
}

// hasReferences reports whether doc holds embeds or inline placeholders.
func hasReferences(doc *delta.Document) bool {
	if doc == nil {
		return false
	}
	for _, op := range doc.Ops {
		if op.IsEmbed() || delta.HasPlaceholder(op.Insert) {
			return true
		}
	}
	return false
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
