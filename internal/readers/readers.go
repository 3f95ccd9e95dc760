// Package readers turns an extracted archive into the canonical transfer
// model. Each source format lives in its own sub-package:
//
//	readers/
//	├── native/   # data.json manifests written by this application
//	└── dayone/   # DayOne JSON exports with photos/, videos/ and audio/
//
// A reader returns an *Archive. Journals and standalone moments are consumed
// through EachJournal and EachMoment so large manifests never need to be held
// in memory at once. A malformed element is delivered as an Item carrying
// Err, which the importer turns into a skipped unit.
package readers

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/mrlokans/journalport/internal/transfer"
)

// Source formats.
const (
	FormatAuto   = "auto"
	FormatNative = "native"
	FormatDayOne = "dayone"
)

// Item is one element yielded by an archive iterator.
type Item[T any] struct {
	Index int
	Value *T
	// Err is set when the element could not be decoded or mapped. Value may
	// still carry enough to label the failure.
	Err error
}

// IterFunc walks a sequence of elements, stopping at the first error
// returned by yield.
type IterFunc[T any] func(ctx context.Context, yield func(Item[T]) error) error

// Warning is a non-fatal problem found while reading.
type Warning struct {
	Message  string
	Category string
}

// Archive is a readable source of journals, moments and reference data.
type Archive struct {
	Format string
	// Header carries the manifest metadata and the reference arrays. Its
	// Journals and Moments are always empty.
	Header    *transfer.Export
	MediaRoot string

	JournalCount int
	EntryCount   int
	MomentCount  int
	// EntriesSkipped counts entries the reader itself had to drop.
	EntriesSkipped int
	Warnings       []Warning

	journals IterFunc[transfer.Journal]
	moments  IterFunc[transfer.Moment]
}

// NewArchive builds an archive from iterators. Either may be nil.
func NewArchive(format string, header *transfer.Export, mediaRoot string, journals IterFunc[transfer.Journal], moments IterFunc[transfer.Moment]) *Archive {
	if header == nil {
		header = &transfer.Export{}
	}
	return &Archive{
		Format:    format,
		Header:    header,
		MediaRoot: mediaRoot,
		journals:  journals,
		moments:   moments,
	}
}

// FromExport wraps a fully decoded manifest.
func FromExport(format string, export *transfer.Export, mediaRoot string) *Archive {
	journals := export.Journals
	moments := export.Moments

	header := *export
	header.Journals = nil
	header.Moments = nil

	a := NewArchive(format, &header, mediaRoot, SliceIter(journals), SliceIter(moments))
	a.JournalCount = len(journals)
	a.MomentCount = len(moments)
	for i := range journals {
		a.EntryCount += len(journals[i].Entries)
	}
	return a
}

// SliceIter yields the elements of s in order.
func SliceIter[T any](s []T) IterFunc[T] {
	return func(ctx context.Context, yield func(Item[T]) error) error {
		for i := range s {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := yield(Item[T]{Index: i, Value: &s[i]}); err != nil {
				return err
			}
		}
		return nil
	}
}

// AddWarning records a reader warning.
func (a *Archive) AddWarning(msg, category string) {
	a.Warnings = append(a.Warnings, Warning{Message: msg, Category: category})
}

func (a *Archive) EachJournal(ctx context.Context, fn func(Item[transfer.Journal]) error) error {
	if a.journals == nil {
		return nil
	}
	return a.journals(ctx, fn)
}

func (a *Archive) EachMoment(ctx context.Context, fn func(Item[transfer.Moment]) error) error {
	if a.moments == nil {
		return nil
	}
	return a.moments(ctx, fn)
}

// Detect picks the source format of an extracted archive: a data.json at the
// root means native, any other top-level *.json means DayOne.
func Detect(root string) (string, error) {
	if _, err := os.Stat(filepath.Join(root, "data.json")); err == nil {
		return FormatNative, nil
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return "", transfer.NewFormatError("cannot read archive contents", err)
	}
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".json") {
			return FormatDayOne, nil
		}
	}
	return "", transfer.NewFormatError("no data.json or DayOne journal file found", nil)
}

// ItemIter yields pre-built items in order.
func ItemIter[T any](items []Item[T]) IterFunc[T] {
	return func(ctx context.Context, yield func(Item[T]) error) error {
		for _, it := range items {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := yield(it); err != nil {
				return err
			}
		}
		return nil
	}
}
