package auth

import (
	"html"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cloudboost/cloudboost-api/pkg/domain"
)

// SanitizeInput escapes HTML and removes control characters.
func SanitizeInput(input string) string {
	return html.EscapeString(removeControlChars(input))
}

// SanitizeName trims, strips control characters and escapes HTML in a display name.
func SanitizeName(name string) string {
	return html.EscapeString(removeControlChars(strings.TrimSpace(name)))
}

// CleanText trims and strips control characters but keeps the text verbatim
// otherwise. Used for marketing copy that must round-trip unchanged.
func CleanText(s string) string {
	return strings.TrimSpace(removeControlChars(s))
}

// ValidateStringLength checks that value has between min and max characters.
// A zero bound is not enforced.
func ValidateStringLength(field, value string, min, max int) error {
	length := utf8.RuneCountInString(value)

	if min > 0 && length < min {
		return domain.NewValidationError(field, "%s must be at least %d characters long", field, min)
	}

	if max > 0 && length > max {
		return domain.NewValidationError(field, "%s must be at most %d characters long", field, max)
	}

	return nil
}

// removeControlChars removes control characters except newline and tab.
func removeControlChars(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}
