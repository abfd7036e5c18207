package validation

import (
	"errors"
	"unicode"
	"unicode/utf8"
)

const (
	minPasswordLength = 12
	maxPasswordLength = 128
)

// ValidatePassword enforces length and character class rules for local accounts.
func ValidatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n < minPasswordLength {
		return errors.New("password must be at least 12 characters")
	}
	if n > maxPasswordLength {
		return errors.New("password must be at most 128 characters")
	}

	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}

	if !upper || !lower || !digit || !special {
		return errors.New("password must include upper and lower case letters, a digit and a special character")
	}
	return nil
}
