// Package archive reads and writes transfer archives: a ZIP with data.json at
// the root and an optional media/ tree.
package archive

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/mrlokans/journalport/internal/transfer"
)

const (
	ManifestName = "data.json"
	MediaDirName = "media"
)

// Extracted describes the result of Extract.
type Extracted struct {
	// Root is the extraction directory.
	Root string
	// ManifestPath is the absolute path of data.json, empty when absent.
	ManifestPath string
	// MediaDir is the absolute path of media/, empty when absent.
	MediaDir string
	// Files is the number of regular files written.
	Files    int
	Bytes    int64
	Warnings []*transfer.SecurityWarning
}

// Extract unpacks archivePath into dest. The declared and the actual total
// uncompressed size are both bounded by maxBytes (0 disables the limit).
// Absolute entries, entries escaping dest and symlinks are skipped with a
// SecurityWarning.
func Extract(ctx context.Context, archivePath, dest string, maxBytes int64) (*Extracted, error) {
	zipReader, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, transfer.NewFormatError("not a zip archive", err)
	}
	defer zipReader.Close()

	if maxBytes > 0 {
		var declared uint64
		for _, file := range zipReader.File {
			declared += file.UncompressedSize64
		}
		if declared > uint64(maxBytes) {
			return nil, transfer.NewFormatError(
				fmt.Sprintf("archive declares %d uncompressed bytes, limit is %d", declared, maxBytes), nil)
		}
	}

	root, err := filepath.Abs(dest)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create extract directory: %w", err)
	}

	result := &Extracted{Root: root}
	remaining := maxBytes

	for _, file := range zipReader.File {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		destPath, warning := safeJoin(root, file.Name)
		if warning != nil {
			result.Warnings = append(result.Warnings, warning)
			continue
		}
		if file.Mode()&os.ModeSymlink != 0 {
			result.Warnings = append(result.Warnings, &transfer.SecurityWarning{Path: file.Name, Reason: "symlink entries are not allowed"})
			continue
		}

		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(destPath, 0755); err != nil {
				return nil, fmt.Errorf("failed to create directory: %w", err)
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}

		written, err := extractZipFile(file, destPath, remaining, maxBytes > 0)
		if err != nil {
			return nil, err
		}
		result.Files++
		result.Bytes += written
		if maxBytes > 0 {
			remaining -= written
		}
	}

	if info, err := os.Stat(filepath.Join(root, ManifestName)); err == nil && info.Mode().IsRegular() {
		result.ManifestPath = filepath.Join(root, ManifestName)
	}
	if info, err := os.Stat(filepath.Join(root, MediaDirName)); err == nil && info.IsDir() {
		result.MediaDir = filepath.Join(root, MediaDirName)
	}

	return result, nil
}

var errTooLarge = errors.New("uncompressed size limit exceeded")

// extractZipFile writes one entry, reading at most budget bytes when limited.
func extractZipFile(file *zip.File, destPath string, budget int64, limited bool) (int64, error) {
	rc, err := file.Open()
	if err != nil {
		return 0, transfer.NewFormatError("corrupt entry "+file.Name, err)
	}
	defer rc.Close()

	outFile, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return 0, err
	}
	defer outFile.Close()

	var src io.Reader = rc
	if limited {
		src = io.LimitReader(rc, budget+1)
	}
	n, err := io.Copy(outFile, src)
	if err != nil {
		return n, transfer.NewFormatError("corrupt entry "+file.Name, err)
	}
	if limited && n > budget {
		return n, transfer.NewFormatError(file.Name, errTooLarge)
	}
	return n, nil
}

// safeJoin joins an archive entry name onto root, rejecting absolute names
// and names that normalize outside root.
func safeJoin(root, name string) (string, *transfer.SecurityWarning) {
	slashed := strings.ReplaceAll(name, `\`, "/")
	if slashed == "" || path.IsAbs(slashed) || filepath.IsAbs(name) || filepath.VolumeName(name) != "" {
		return "", &transfer.SecurityWarning{Path: name, Reason: "absolute path"}
	}
	cleaned := path.Clean(slashed)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", &transfer.SecurityWarning{Path: name, Reason: "path escapes extraction root"}
	}
	joined := filepath.Join(root, filepath.FromSlash(cleaned))
	if !within(root, joined) {
		return "", &transfer.SecurityWarning{Path: name, Reason: "path escapes extraction root"}
	}
	return joined, nil
}

func within(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// ResolveInside resolves rel against root, following symlinks, and fails with
// a SecurityWarning when the real path leaves root. A missing file yields a
// MediaMissingWarning.
func ResolveInside(root, rel string) (string, error) {
	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return "", err
	}
	if filepath.IsAbs(rel) {
		return "", &transfer.SecurityWarning{Path: rel, Reason: "absolute path"}
	}
	candidate := filepath.Join(realRoot, filepath.FromSlash(rel))
	if !within(realRoot, candidate) {
		return "", &transfer.SecurityWarning{Path: rel, Reason: "path escapes media root"}
	}
	resolved, err := filepath.EvalSymlinks(candidate)
	if errors.Is(err, os.ErrNotExist) {
		return "", &transfer.MediaMissingWarning{Path: rel}
	}
	if err != nil {
		return "", err
	}
	if !within(realRoot, resolved) {
		return "", &transfer.SecurityWarning{Path: rel, Reason: "symlink escapes media root"}
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", err
	}
	if !info.Mode().IsRegular() {
		return "", &transfer.MediaMissingWarning{Path: rel}
	}
	return resolved, nil
}
