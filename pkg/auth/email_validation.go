package auth

import (
	"net/mail"
	"regexp"
	"strings"

	"github.com/cloudboost/cloudboost-api/pkg/domain"
)

// Common disposable email domains to block
var disposableDomains = map[string]bool{
	"tempmail.com":      true,
	"10minutemail.com":  true,
	"guerrillamail.com": true,
	"mailinator.com":    true,
	"throwaway.email":   true,
	"yopmail.com":       true,
}

// Email validation regex: local@domain.tld with a two letter minimum TLD
var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

const maxEmailLength = 254 // RFC 5321

// ValidateEmail validates an email address for format and length.
func ValidateEmail(email string, blockDisposable bool) error {
	if strings.TrimSpace(email) == "" {
		return domain.Required("email")
	}

	if len(email) > maxEmailLength {
		return domain.NewValidationError("email", "email address is too long (max %d characters)", maxEmailLength)
	}

	normalized := NormalizeEmail(email)
	addr, err := mail.ParseAddress(normalized)
	if err != nil || addr.Address != normalized || !emailRegex.MatchString(normalized) {
		return domain.NewValidationError("email", "Invalid email format")
	}

	if blockDisposable && disposableDomains[getDomain(normalized)] {
		return domain.NewValidationError("email", "disposable email addresses are not allowed")
	}

	return nil
}

// IsEmail reports whether s is a syntactically valid email address.
func IsEmail(s string) bool {
	return ValidateEmail(s, false) == nil
}

// NormalizeEmail normalizes an email address by lowercasing and trimming.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// getDomain extracts the domain from an email address.
func getDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return ""
	}
	return email[at+1:]
}
