package utils

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	// PasswordHashCost matches the cost the original accounts were hashed with.
	PasswordHashCost = 10

	minPasswordLength = 7
	passwordSpecials  = `!@#$%^&*()_+-=[]{};':"\|,.<>/?`
)

// Password policy violations, reported in this order.
const (
	ErrPasswordTooShort  = "Password must be at least 7 characters long"
	ErrPasswordNoUpper   = "Password must contain at least one uppercase letter"
	ErrPasswordNoLower   = "Password must contain at least one lowercase letter"
	ErrPasswordNoNumber  = "Password must contain at least one number"
	ErrPasswordNoSpecial = "Password must contain at least one special character"
)

// PasswordCheck is the outcome of ValidatePassword.
type PasswordCheck struct {
	IsValid bool
	Errors  []string
}

// ValidatePassword checks password against the strength policy and returns
// every violated rule, not just the first one.
func ValidatePassword(password string) PasswordCheck {
	var hasUpper, hasLower, hasNumber, hasSpecial bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasNumber = true
		case strings.ContainsRune(passwordSpecials, r):
			hasSpecial = true
		}
	}

	errs := []string{}
	// Length is counted in UTF-16 code units, like the browser client does.
	if utf16Len(password) < minPasswordLength {
		errs = append(errs, ErrPasswordTooShort)
	}
	if !hasUpper {
		errs = append(errs, ErrPasswordNoUpper)
	}
	if !hasLower {
		errs = append(errs, ErrPasswordNoLower)
	}
	if !hasNumber {
		errs = append(errs, ErrPasswordNoNumber)
	}
	if !hasSpecial {
		errs = append(errs, ErrPasswordNoSpecial)
	}

	return PasswordCheck{IsValid: len(errs) == 0, Errors: errs}
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		if r >= 0x10000 {
			n += 2
		} else {
			n++
		}
	}
	return n
}

// Hasher hashes and verifies passwords.
type Hasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) (bool, error)
}

// BcryptHasher is the production Hasher.
type BcryptHasher struct {
	Cost int
}

func NewBcryptHasher() BcryptHasher {
	return BcryptHasher{Cost: PasswordHashCost}
}

// Hash returns a salted bcrypt hash of password.
func (h BcryptHasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Compare reports whether password matches hash. A mismatch is not an error.
func (h BcryptHasher) Compare(hash, password string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, err
}
