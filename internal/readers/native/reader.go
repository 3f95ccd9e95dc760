// Package native reads data.json manifests written by this application.
//
// Small manifests are decoded in one go. Manifests above the stream
// threshold are read twice with a token decoder: the first pass keeps the
// header and reference arrays and counts journals, entries and moments, the
// second pass yields one journal or moment at a time.
package native

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/mrlokans/journalport/internal/readers"
	"github.com/mrlokans/journalport/internal/transfer"
)

// DefaultStreamThreshold is the manifest size above which streaming is used.
const DefaultStreamThreshold int64 = 64 << 20

// Reader decodes native manifests.
type Reader struct {
	streamThreshold int64
	logger          *zap.Logger
}

// NewReader creates a reader. A non-positive threshold uses the default.
func NewReader(streamThreshold int64, logger *zap.Logger) *Reader {
	if streamThreshold <= 0 {
		streamThreshold = DefaultStreamThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{streamThreshold: streamThreshold, logger: logger}
}

// manifest shadows the element arrays of transfer.Export so each element
// can be decoded, and fail, on its own.
type manifest struct {
	transfer.Export
	Journals []json.RawMessage `json:"journals"`
	Moments  []json.RawMessage `json:"moments"`
}

type entryCounter struct {
	Entries []struct{} `json:"entries"`
}

// Read opens the manifest at manifestPath. mediaRoot is the directory every
// media file_path is relative to.
func (r *Reader) Read(ctx context.Context, manifestPath, mediaRoot string) (*readers.Archive, error) {
	info, err := os.Stat(manifestPath)
	if err != nil {
		return nil, transfer.NewFormatError("data.json is missing", err)
	}

	if info.Size() > r.streamThreshold {
		r.logger.Info("streaming large manifest",
			zap.String("path", manifestPath),
			zap.Int64("size", info.Size()),
			zap.Int64("threshold", r.streamThreshold),
		)
		return r.readStreaming(ctx, manifestPath, mediaRoot)
	}
	return r.readInMemory(manifestPath, mediaRoot)
}

func (r *Reader) readInMemory(manifestPath, mediaRoot string) (*readers.Archive, error) {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, transfer.NewFormatError("cannot read data.json", err)
	}

	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, transfer.NewFormatError("data.json is not a valid manifest", err)
	}
	if err := checkHeader(&m.Export); err != nil {
		return nil, err
	}

	header := m.Export
	header.Journals = nil
	header.Moments = nil

	archive := readers.NewArchive(readers.FormatNative, &header, mediaRoot,
		rawIter[transfer.Journal](m.Journals),
		rawIter[transfer.Moment](m.Moments),
	)
	archive.JournalCount = len(m.Journals)
	archive.MomentCount = len(m.Moments)
	for _, raw := range m.Journals {
		var c entryCounter
		if json.Unmarshal(raw, &c) == nil {
			archive.EntryCount += len(c.Entries)
		}
	}
	return archive, nil
}

func checkHeader(e *transfer.Export) error {
	if e.ExportVersion == "" {
		return transfer.NewFormatError("export_version is missing", nil)
	}
	return transfer.CheckVersion(e.ExportVersion)
}

func rawIter[T any](raws []json.RawMessage) readers.IterFunc[T] {
	return func(ctx context.Context, yield func(readers.Item[T]) error) error {
		for i, raw := range raws {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := yield(decodeItem[T](i, raw)); err != nil {
				return err
			}
		}
		return nil
	}
}

func decodeItem[T any](index int, raw json.RawMessage) readers.Item[T] {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return readers.Item[T]{Index: index, Value: &v, Err: fmt.Errorf("cannot decode element %d: %w", index, err)}
	}
	return readers.Item[T]{Index: index, Value: &v}
}
