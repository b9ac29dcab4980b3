package util

import (
	"errors"
	"strings"
	"unicode"
)

const maxFileNameRunes = 128

var errInvalidFileName = errors.New("invalid file name")

// SanitizeFileName flattens path separators, drops control characters and
// caps the length. Traversal patterns are rejected outright.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", errInvalidFileName
	}
	s := strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\':
			return '_'
		case unicode.IsControl(r):
			return -1
		default:
			return r
		}
	}, strings.TrimSpace(name))
	if s == "" {
		return "", errInvalidFileName
	}
	if runes := []rune(s); len(runes) > maxFileNameRunes {
		s = string(runes[len(runes)-maxFileNameRunes:])
	}
	return s, nil
}
