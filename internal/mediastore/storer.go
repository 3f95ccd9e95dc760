package mediastore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mrlokans/journalport/internal/entities"
	"github.com/mrlokans/journalport/internal/transfer"
)

const DefaultCacheSize = 4096

// ChecksumIndex is the persistent (owner, checksum) → stored path index.
type ChecksumIndex interface {
	Lookup(ownerID uint, checksum string) (*entities.MediaChecksum, error)
	Insert(row *entities.MediaChecksum) error
}

// StoreRequest describes one media file to store.
type StoreRequest struct {
	OwnerID    uint
	SourcePath string
	// DeclaredChecksum is a SHA-256 hex digest announced by the archive.
	// When it is already indexed no file I/O happens.
	DeclaredChecksum string
	Kind             entities.MediaType
	Ext              string
	MimeType         string
	Width            *int
	Height           *int
}

type StoreResult struct {
	RelativePath string
	Checksum     string
	MimeType     string
	Size         int64
	Deduplicated bool
}

// Storer writes media into Blobs under content-addressed keys. A Storer
// holds a per-job LRU cache in front of the index and must not be shared
// between jobs.
type Storer struct {
	blobs  Blobs
	index  ChecksumIndex
	cache  *lru.Cache[string, string]
	logger *zap.Logger
}

func NewStorer(blobs Blobs, index ChecksumIndex, cacheSize int, logger *zap.Logger) (*Storer, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, string](cacheSize)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Storer{blobs: blobs, index: index, cache: cache, logger: logger}, nil
}

// WithIndex returns a Storer sharing blobs and cache that records index rows
// through index, typically bound to a unit's transaction.
func (s *Storer) WithIndex(index ChecksumIndex) *Storer {
	cp := *s
	cp.index = index
	return &cp
}

// PurgeCache drops every cached path. Called after a unit rolls back, since
// the index rows the cache mirrored are gone.
func (s *Storer) PurgeCache() {
	s.cache.Purge()
}

// Blobs returns the underlying blob store.
func (s *Storer) Blobs() Blobs {
	return s.blobs
}

// KindDir maps a media type to its storage directory.
func KindDir(kind entities.MediaType) string {
	switch kind {
	case entities.MediaTypeImage:
		return "images"
	case entities.MediaTypeVideo:
		return "videos"
	case entities.MediaTypeAudio:
		return "audio"
	default:
		return "files"
	}
}

// Key builds the content-addressed key <owner>/<kind dir>/<cc>/<checksum><ext>.
func Key(ownerID uint, kind entities.MediaType, checksum, ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	shard := checksum
	if len(shard) > 2 {
		shard = shard[:2]
	}
	return path.Join(fmt.Sprintf("%d", ownerID), KindDir(kind), shard, checksum+ext)
}

func cacheKey(ownerID uint, checksum string) string {
	return fmt.Sprintf("%d:%s", ownerID, checksum)
}

// Known returns the stored path for a checksum from the cache or the index.
func (s *Storer) Known(ownerID uint, checksum string) (string, bool, error) {
	if checksum == "" {
		return "", false, nil
	}
	if p, ok := s.cache.Get(cacheKey(ownerID, checksum)); ok {
		return p, true, nil
	}
	row, err := s.index.Lookup(ownerID, checksum)
	if err != nil {
		return "", false, err
	}
	if row == nil {
		return "", false, nil
	}
	s.cache.Add(cacheKey(ownerID, checksum), row.RelativePath)
	return row.RelativePath, true, nil
}

// Store stores the bytes of req.SourcePath unless the owner already has them.
func (s *Storer) Store(ctx context.Context, req StoreRequest) (*StoreResult, error) {
	if req.DeclaredChecksum != "" {
		p, ok, err := s.Known(req.OwnerID, req.DeclaredChecksum)
		if err != nil {
			return nil, err
		}
		if ok {
			return &StoreResult{RelativePath: p, Checksum: req.DeclaredChecksum, MimeType: req.MimeType, Deduplicated: true}, nil
		}
	}

	f, err := os.Open(req.SourcePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	checksum, size, err := HashReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to hash %s: %w", req.SourcePath, err)
	}

	mimeType := req.MimeType
	if mimeType == "" || mimeType == "application/octet-stream" {
		if detected, err := mimetype.DetectFile(req.SourcePath); err == nil {
			mimeType = detected.String()
		}
	}

	if p, ok, err := s.Known(req.OwnerID, checksum); err != nil {
		return nil, err
	} else if ok {
		return &StoreResult{RelativePath: p, Checksum: checksum, MimeType: mimeType, Size: size, Deduplicated: true}, nil
	}

	key := Key(req.OwnerID, req.Kind, checksum, req.Ext)
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	if err := s.blobs.Put(ctx, key, f, size); err != nil {
		return nil, fmt.Errorf("failed to store %s: %w", key, err)
	}

	row := &entities.MediaChecksum{
		OwnerID:      req.OwnerID,
		Checksum:     checksum,
		RelativePath: key,
		MimeType:     mimeType,
		FileSize:     size,
		Width:        req.Width,
		Height:       req.Height,
	}
	if err := s.index.Insert(row); err != nil {
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, err
		}
		winner, err := s.resolveRace(req.OwnerID, checksum, err)
		if err != nil {
			return nil, err
		}
		return &StoreResult{RelativePath: winner, Checksum: checksum, MimeType: mimeType, Size: size, Deduplicated: true}, nil
	}

	s.cache.Add(cacheKey(req.OwnerID, checksum), key)
	return &StoreResult{RelativePath: key, Checksum: checksum, MimeType: mimeType, Size: size}, nil
}

// resolveRace re-reads the index row inserted by a concurrent job.
func (s *Storer) resolveRace(ownerID uint, checksum string, cause error) (string, error) {
	race := &transfer.DedupRaceError{Checksum: checksum, Err: cause}
	s.logger.Debug("checksum index race", zap.Error(race))

	row, err := s.index.Lookup(ownerID, checksum)
	if err != nil {
		return "", err
	}
	if row == nil {
		return "", race
	}
	s.cache.Add(cacheKey(ownerID, checksum), row.RelativePath)
	return row.RelativePath, nil
}

// HashReader returns the SHA-256 hex digest and length of r.
func HashReader(r io.Reader) (string, int64, error) {
	h := sha256.New()
	n, err := io.Copy(h, r)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// DetectMime returns the MIME type of a file, falling back to
// application/octet-stream.
func DetectMime(p string) string {
	detected, err := mimetype.DetectFile(p)
	if err != nil {
		return "application/octet-stream"
	}
	return detected.String()
}

// MediaTypeForMime classifies a MIME type.
func MediaTypeForMime(mimeType string) entities.MediaType {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return entities.MediaTypeImage
	case strings.HasPrefix(mimeType, "video/"):
		return entities.MediaTypeVideo
	case strings.HasPrefix(mimeType, "audio/"):
		return entities.MediaTypeAudio
	default:
		return entities.MediaTypeUnknown
	}
}
