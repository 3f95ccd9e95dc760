package archive

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/mrlokans/journalport/internal/transfer"
)

// BlobSource opens stored media bytes by key.
type BlobSource interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MediaFile maps a stored blob onto its path under media/ in the archive.
type MediaFile struct {
	ArchivePath string
	Key         string
}

// Create writes manifest and media into a ZIP at destPath. The archive is
// built in a temp file next to destPath and renamed into place, so a failed
// run leaves nothing at destPath. It returns the archive size.
func Create(ctx context.Context, manifest *transfer.Export, media []MediaFile, blobs BlobSource, destPath string) (int64, error) {
	dir := filepath.Dir(destPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create export directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".export_tmp_")
	if err != nil {
		return 0, err
	}
	tmpPath := tmpFile.Name()
	defer func() {
		tmpFile.Close()
		os.Remove(tmpPath) // no-op after a successful rename
	}()

	zw := zip.NewWriter(tmpFile)

	w, err := zw.Create(ManifestName)
	if err != nil {
		return 0, err
	}
	if err := json.NewEncoder(w).Encode(manifest); err != nil {
		return 0, fmt.Errorf("failed to encode manifest: %w", err)
	}

	for _, mf := range media {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if err := copyBlob(ctx, zw, blobs, mf); err != nil {
			return 0, err
		}
	}

	if err := zw.Close(); err != nil {
		return 0, err
	}
	if err := tmpFile.Sync(); err != nil {
		return 0, err
	}
	info, err := tmpFile.Stat()
	if err != nil {
		return 0, err
	}
	if err := tmpFile.Close(); err != nil {
		return 0, err
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func copyBlob(ctx context.Context, zw *zip.Writer, blobs BlobSource, mf MediaFile) error {
	rc, err := blobs.Open(ctx, mf.Key)
	if err != nil {
		return fmt.Errorf("failed to open media %s: %w", mf.Key, err)
	}
	defer rc.Close()

	w, err := zw.Create(path.Join(MediaDirName, mf.ArchivePath))
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, rc); err != nil {
		return fmt.Errorf("failed to copy media %s: %w", mf.Key, err)
	}
	return nil
}
