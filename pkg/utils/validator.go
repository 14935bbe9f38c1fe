package utils

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxUsernameLength is the longest username accepted, in runes
const MaxUsernameLength = 100

var controlChars = regexp.MustCompile(`[\x00-\x1f\x7f]`)

// SanitizeString removes control characters and surrounding whitespace
func SanitizeString(s string) string {
	return strings.TrimSpace(controlChars.ReplaceAllString(s, ""))
}

// ValidateUsername sanitizes an operator name and checks it is usable
func ValidateUsername(name string) (string, error) {
	clean := SanitizeString(name)
	if clean == "" {
		return "", fmt.Errorf("username must not be empty")
	}
	if n := utf8.RuneCountInString(clean); n > MaxUsernameLength {
		return "", fmt.Errorf("username exceeds %d characters: %d", MaxUsernameLength, n)
	}
	return clean, nil
}
