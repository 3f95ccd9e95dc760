package transfer

import (
	"strconv"
	"strings"
)

// ExportVersion is the manifest format version written by this build.
const ExportVersion = "1.3"

func parseVersion(v string) (major, minor int, ok bool) {
	parts := strings.Split(strings.TrimSpace(v), ".")
	if len(parts) != 2 {
		return 0, 0, false
	}
	major, err := strconv.Atoi(parts[0])
	if err != nil || major < 0 {
		return 0, 0, false
	}
	minor, err = strconv.Atoi(parts[1])
	if err != nil || minor < 0 {
		return 0, 0, false
	}
	return major, minor, true
}

// IsSupportedVersion accepts the same major line with a minor that is not
// newer than ours.
func IsSupportedVersion(v string) bool {
	major, minor, ok := parseVersion(v)
	if !ok {
		return false
	}
	curMajor, curMinor, _ := parseVersion(ExportVersion)
	return major == curMajor && minor <= curMinor
}

// CheckVersion returns a *VersionError for unsupported versions.
func CheckVersion(v string) error {
	if !IsSupportedVersion(v) {
		return &VersionError{Found: v, Supported: ExportVersion}
	}
	return nil
}
