package util

import (
	"errors"
	"path"
	"regexp"
	"strings"
)

const maxFileNameLen = 120

var (
	nonAlnum     = regexp.MustCompile(`[^A-Za-z0-9]`)
	unsafeInName = regexp.MustCompile(`[^A-Za-z0-9._-]`)
	dotRun       = regexp.MustCompile(`\.{2,}`)
)

// SanitizeFileName turns an arbitrary display name into a single safe path
// segment. Separators and dot runs become underscores, so the result can
// never climb out of its directory. The extension is kept when truncating.
func SanitizeFileName(name string) (string, error) {
	s := unsafeInName.ReplaceAllString(strings.TrimSpace(name), "_")
	s = dotRun.ReplaceAllString(s, "_")
	s = strings.TrimLeft(s, ".")
	if strings.Trim(s, "_") == "" {
		return "", errors.New("invalid file name")
	}
	if len(s) > maxFileNameLen {
		ext := path.Ext(s)
		if len(ext) > 10 {
			ext = ""
		}
		s = s[:maxFileNameLen-len(ext)] + ext
	}
	return s, nil
}

// SlugComponent replaces every character outside [A-Za-z0-9] with an underscore.
// Applying it twice yields the same result as applying it once.
func SlugComponent(s string) string {
	return nonAlnum.ReplaceAllString(s, "_")
}
