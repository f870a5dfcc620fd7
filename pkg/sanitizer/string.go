package sanitizer

import (
	"strings"
	"unicode"
)

// TrimAndNormalize trims the string and collapses internal whitespace
// runs to a single space.
func TrimAndNormalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	var result strings.Builder
	var lastWasSpace bool
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				result.WriteRune(' ')
				lastWasSpace = true
			}
		} else {
			result.WriteRune(r)
			lastWasSpace = false
		}
	}
	return result.String()
}

// NormalizeName cleans a passenger or contact name as typed.
func NormalizeName(name string) string {
	return TrimAndNormalize(name)
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeRegistration uppercases a vehicle registration and strips all
// whitespace, so "ab 123 c" and "AB123C" compare equal.
func NormalizeRegistration(reg string) string {
	var result strings.Builder
	for _, r := range reg {
		if unicode.IsSpace(r) {
			continue
		}
		result.WriteRune(unicode.ToUpper(r))
	}
	return result.String()
}
