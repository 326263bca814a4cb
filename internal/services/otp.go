package services

import (
	"crypto/rand"
	"crypto/subtle"
	"math/big"
	"strconv"
	"time"
)

const (
	// OTPTTL is how long an issued code stays valid.
	OTPTTL = 5 * time.Minute

	otpMin   = 100000
	otpRange = 900000
)

// OTPGenerator produces one-time codes.
type OTPGenerator interface {
	Generate() (string, error)
}

// RandomOTP draws uniformly from 100000..999999 using crypto/rand.
type RandomOTP struct{}

func (RandomOTP) Generate() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpRange))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+otpMin, 10), nil
}

// otpMatches compares codes in constant time.
func otpMatches(stored *string, given string) bool {
	if stored == nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(*stored), []byte(given)) == 1
}
