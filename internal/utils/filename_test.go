package utils

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "removes invalid characters",
			input:    `pho<>:"/\|?*to.jpg`,
			expected: "photo.jpg",
		},
		{
			name:     "replaces newlines and tabs with spaces",
			input:    "my\nholiday\tphoto.jpg",
			expected: "my holiday photo.jpg",
		},
		{
			name:     "collapses multiple spaces",
			input:    "voice   memo  1.m4a",
			expected: "voice memo 1.m4a",
		},
		{
			name:     "strips leading dots",
			input:    "../../etc/passwd",
			expected: "etcpasswd",
		},
		{
			name:     "falls back for empty",
			input:    "",
			expected: "file",
		},
		{
			name:     "falls back for only special chars",
			input:    "<>:?*",
			expected: "file",
		},
		{
			name:     "truncates long names keeping the extension",
			input:    strings.Repeat("a", 250) + ".jpeg",
			expected: strings.Repeat("a", 195) + ".jpeg",
		},
		{
			name:     "truncates three-byte runes on a rune boundary",
			input:    strings.Repeat("日", 100) + ".jpg",
			expected: strings.Repeat("日", 65) + ".jpg",
		},
		{
			name:     "truncates four-byte runes on a rune boundary",
			input:    "a" + strings.Repeat("😀", 60) + ".png",
			expected: "a" + strings.Repeat("😀", 48) + ".png",
		},
		{
			name:     "handles unicode",
			input:    "Zdjęcie z wakacji.png",
			expected: "Zdjęcie z wakacji.png",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeFilename(tt.input)
			assert.Equal(t, tt.expected, got)
			assert.True(t, utf8.ValidString(got))
			assert.LessOrEqual(t, len(got), maxFilenameLength)
		})
	}
}

func TestMediaArchivePath(t *testing.T) {
	got := MediaArchivePath("entry-1", "media-1", "beach day?.jpg")
	assert.Equal(t, "entry-1/media-1_beach day.jpg", got)
}

func TestExportArchiveName(t *testing.T) {
	at := time.Date(2024, 3, 9, 7, 5, 1, 0, time.FixedZone("CET", 3600))
	assert.Equal(t, "journal_export_7_20240309_060501.zip", ExportArchiveName(7, at))
}
