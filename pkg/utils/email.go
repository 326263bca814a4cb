package utils

import (
	"net/mail"
	"strings"
)

// NormalizeEmail lower-cases and trims an address so lookups are
// case-insensitive. Every write and every lookup goes through it.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail reports whether email is a bare RFC 5322 address
// ("ada@x.com", not "Ada <ada@x.com>").
func ValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return false
	}
	return addr.Address == email
}
