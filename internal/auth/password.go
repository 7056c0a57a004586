package auth

import (
	"errors"
	"unicode"
)

var ErrWeakPassword = errors.New("password does not meet the minimum strength policy")

// ValidatePassword enforces the minimum-strength policy: at least 8
// characters and not entirely numeric.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return ErrWeakPassword
	}
	allDigits := true
	for _, r := range password {
		if !unicode.IsDigit(r) {
			allDigits = false
			break
		}
	}
	if allDigits {
		return ErrWeakPassword
	}
	return nil
}
