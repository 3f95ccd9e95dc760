package utils

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

var (
	// Characters invalid in filenames on most filesystems
	invalidFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	// Whitespace characters to normalize
	whitespaceChars = regexp.MustCompile(`[\r\n\t]`)
	// Multiple spaces to collapse
	multipleSpaces = regexp.MustCompile(`\s+`)
)

const maxFilenameLength = 200

// SanitizeFilename makes a media filename safe to use as a single archive
// path segment. Long names are cut to maxFilenameLength bytes on a rune
// boundary and keep their extension.
func SanitizeFilename(filename string) string {
	filename = invalidFilenameChars.ReplaceAllString(filename, "")
	filename = whitespaceChars.ReplaceAllString(filename, " ")
	filename = multipleSpaces.ReplaceAllString(filename, " ")
	filename = strings.TrimSpace(filename)
	filename = strings.Trim(filename, ".")

	if len(filename) > maxFilenameLength {
		ext := path.Ext(filename)
		if len(ext) > 16 {
			ext = ""
		}
		cut := maxFilenameLength - len(ext)
		for cut > 0 && !utf8.RuneStart(filename[cut]) {
			cut--
		}
		filename = strings.TrimSpace(filename[:cut]) + ext
	}

	if filename == "" {
		filename = "file"
	}
	return filename
}

// MediaArchivePath is the path of a media file under media/ in an export:
// <parent id>/<media id>_<sanitized filename>.
func MediaArchivePath(parentID, mediaID, filename string) string {
	return path.Join(parentID, mediaID+"_"+SanitizeFilename(filename))
}

// ExportArchiveName is the file name of an export archive created at t.
func ExportArchiveName(ownerID uint, t time.Time) string {
	return fmt.Sprintf("journal_export_%d_%s.zip", ownerID, t.UTC().Format("20060102_150405"))
}
