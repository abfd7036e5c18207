package validation

import (
	"errors"
	"regexp"
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,30}$`)
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

// ValidateUsername allows 3 to 30 letters, digits, underscores and hyphens,
// not starting or ending with a separator.
func ValidateUsername(username string) error {
	if len(username) < 3 || len(username) > 30 {
		return errors.New("username must be between 3 and 30 characters")
	}
	if !usernamePattern.MatchString(username) {
		return errors.New("username can only contain letters, numbers, underscores and hyphens")
	}
	first, last := username[0], username[len(username)-1]
	if first == '_' || first == '-' || last == '_' || last == '-' {
		return errors.New("username cannot start or end with an underscore or hyphen")
	}
	return nil
}

// ValidateEmail checks the address shape and the 254 character limit.
func ValidateEmail(email string) error {
	if len(email) > 254 {
		return errors.New("email must not exceed 254 characters")
	}
	if !emailPattern.MatchString(email) {
		return errors.New("invalid email format")
	}
	return nil
}
