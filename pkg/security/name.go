package security

import (
	"errors"
	"strings"
	"unicode"
)

const (
	// MaxUserNameLength defines the maximum allowed length for a display name
	MaxUserNameLength = 50
)

// ValidateUserName validates and normalizes a user display name.
// It trims surrounding whitespace and rejects empty names, names that are
// too long, and names containing characters outside the allowed set.
func ValidateUserName(name string) (string, error) {
	name = strings.TrimSpace(name)

	if name == "" {
		return "", errors.New("name must not be empty")
	}
	if len(name) > MaxUserNameLength {
		return "", errors.New("name too long")
	}

	for _, char := range name {
		if !isValidNameChar(char) {
			return "", errors.New("name contains invalid characters")
		}
	}

	// Collapse internal runs of whitespace to a single space so that
	// "Jane  Doe" and "Jane Doe" are the same user.
	name = strings.Join(strings.Fields(name), " ")

	return name, nil
}

// isValidNameChar checks if a character is safe for display names
func isValidNameChar(char rune) bool {
	return unicode.IsLetter(char) ||
		unicode.IsDigit(char) ||
		char == ' ' ||
		char == '-' ||
		char == '\'' ||
		char == '.'
}
