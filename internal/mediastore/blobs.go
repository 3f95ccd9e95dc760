// Package mediastore stores media bytes in a content-addressed blob store
// and deduplicates them per owner through a checksum index.
package mediastore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// ErrNotFound is returned by Blobs.Open for a missing key.
var ErrNotFound = errors.New("blob not found")

// Blobs is a key/value store for media bytes. Keys are slash separated and
// relative.
type Blobs interface {
	Type() string
	// Put stores r under key. Readers never observe a partially written key.
	Put(ctx context.Context, key string, r io.ReadSeeker, size int64) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}

// BlobConfig selects and configures a Blobs backend.
type BlobConfig struct {
	Backend string // "local" or "s3"

	LocalRoot string

	S3Bucket          string
	S3Region          string
	S3Endpoint        string
	S3Prefix          string
	S3AccessKeyID     string
	S3SecretAccessKey string
}

// NewBlobs builds the backend named by cfg.Backend.
func NewBlobs(ctx context.Context, cfg BlobConfig) (Blobs, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "local":
		if cfg.LocalRoot == "" {
			return nil, fmt.Errorf("media root is required for local storage")
		}
		return NewLocalBlobs(cfg.LocalRoot)
	case "s3":
		return NewS3Blobs(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// cleanKey rejects keys that are absolute or climb out of the store.
func cleanKey(key string) (string, error) {
	key = strings.ReplaceAll(key, `\`, "/")
	if key == "" || strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return cleaned, nil
}
