// Package dayone reads DayOne JSON exports.
//
// An extracted DayOne archive holds one JSON file per journal next to the
// photos/, videos/ and audio/ directories:
//
//	Journal.json
//	Travel.json
//	photos/<md5>.jpeg
//	videos/<md5>.mov
//
// Each journal file becomes one journal. Entry rich text is converted into a
// content document whose embeds reference the DayOne md5 (or identifier) of
// the attachment; the importer swaps those for the new media ids.
package dayone

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mrlokans/journalport/internal/readers"
	"github.com/mrlokans/journalport/internal/transfer"
)

// Reader parses extracted DayOne archives.
type Reader struct {
	logger *zap.Logger
	now    func() time.Time
}

func NewReader(logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{logger: logger, now: time.Now}
}

// Read maps every journal file found at the top of root.
func (r *Reader) Read(ctx context.Context, root string) (*readers.Archive, error) {
	files, err := journalFiles(root)
	if err != nil {
		return nil, err
	}
	index, err := buildMediaIndex(root)
	if err != nil {
		return nil, transfer.NewFormatError("cannot read DayOne media directories", err)
	}

	now := r.now().UTC()
	var warnings []readers.Warning
	m := &mapper{
		root:   root,
		index:  index,
		logger: r.logger,
		now:    now,
		warn: func(msg, category string) {
			warnings = append(warnings, readers.Warning{Message: msg, Category: category})
		},
	}

	var (
		items   []readers.Item[transfer.Journal]
		entries int
		skipped int
	)
	for i, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := strings.TrimSuffix(file, filepath.Ext(file))
		log := r.logger.With(zap.String("journal_file", file))

		export, err := readExportFile(filepath.Join(root, file))
		if err != nil {
			log.Warn("cannot parse DayOne journal file", zap.Error(err))
			items = append(items, readers.Item[transfer.Journal]{
				Index: i,
				Value: &transfer.Journal{Title: name},
				Err:   err,
			})
			continue
		}

		mapped := make([]transfer.Entry, 0, len(export.Entries))
		for _, raw := range export.Entries {
			entry, err := decodeEntry(raw)
			if err == nil {
				var dto *transfer.Entry
				dto, err = m.mapEntry(entry)
				if err == nil {
					mapped = append(mapped, *dto)
					continue
				}
			}
			skipped++
			m.warn(fmt.Sprintf("Skipped Day One entry during mapping: %v", err), transfer.CategoryEntryError)
			log.Warn("skipped DayOne entry", zap.Error(err))
		}

		journal := m.mapJournal(name, file, export.Metadata, mapped)
		entries += len(mapped)
		items = append(items, readers.Item[transfer.Journal]{Index: i, Value: &journal})
	}

	header := &transfer.Export{
		ExportVersion: transfer.ExportVersion,
		ExportDate:    now,
	}
	archive := readers.NewArchive(readers.FormatDayOne, header, root, readers.ItemIter(items), nil)
	archive.JournalCount = len(items)
	archive.EntryCount = entries
	archive.EntriesSkipped = skipped
	archive.Warnings = warnings

	r.logger.Info("parsed DayOne export",
		zap.Int("journals", len(items)),
		zap.Int("entries", entries),
		zap.Int("entries_skipped", skipped),
		zap.Int("warnings", len(warnings)),
	)
	return archive, nil
}

func journalFiles(root string) ([]string, error) {
	dirEntries, err := os.ReadDir(root)
	if err != nil {
		return nil, transfer.NewFormatError("cannot read DayOne archive", err)
	}
	var files []string
	for _, e := range dirEntries {
		if e.Type().IsRegular() && strings.EqualFold(filepath.Ext(e.Name()), ".json") {
			files = append(files, e.Name())
		}
	}
	if len(files) == 0 {
		return nil, transfer.NewFormatError("no DayOne journal JSON files found", nil)
	}
	return files, nil
}

func readExportFile(path string) (*exportFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var export exportFile
	if err := json.Unmarshal(data, &export); err != nil {
		return nil, fmt.Errorf("invalid DayOne journal file: %w", err)
	}
	return &export, nil
}
