package download

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/spf13/afero"
)

const (
	// DefaultName is used when neither a desired name nor a title is known
	DefaultName = "video"

	maxNameRunes = 200
)

// SanitizeName makes s safe to use as a file base name on all platforms.
// Spaces are kept; separators and reserved characters become underscores.
func SanitizeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	s = strings.Map(func(r rune) rune {
		switch {
		case r < 0x20:
			return -1
		case strings.ContainsRune(`/\:*?"<>|`, r):
			return '_'
		default:
			return r
		}
	}, s)
	s = strings.Trim(s, " .")

	if utf8.RuneCountInString(s) > maxNameRunes {
		s = string([]rune(s)[:maxNameRunes])
	}
	return s
}

// UniqueName returns a base name such that "{dir}/{name}.{ext}" does not exist:
// desired itself, or the first free "{desired} (#N)" for N = 1, 2, ...
func UniqueName(fs afero.Fs, dir, desired, ext string) (string, error) {
	name := desired
	for n := 1; ; n++ {
		exists, err := afero.Exists(fs, filepath.Join(dir, name+"."+ext))
		if err != nil {
			return "", fmt.Errorf("check %s: %w", name, err)
		}
		if !exists {
			return name, nil
		}
		name = fmt.Sprintf("%s (#%d)", desired, n)
	}
}
