package entity

import (
	"fmt"
	"regexp"
)

var (
	hasUpper = regexp.MustCompile(`[A-Z]`)
	hasLower = regexp.MustCompile(`[a-z]`)
	hasDigit = regexp.MustCompile(`[0-9]`)
)

// Password is a transient value object for a plaintext password that passed
// the strength rules. It exists only between validation and hashing and is
// never persisted.
type Password struct {
	value string
}

// NewPassword validates password strength. Rules are checked in order
// (length, uppercase, lowercase, digit) and the first failure wins, each
// wrapping ErrInvalidPasswordFormat with the violated rule.
func NewPassword(value string) (Password, error) {
	if len(value) < 8 {
		return Password{}, fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidPasswordFormat)
	}
	if !hasUpper.MatchString(value) {
		return Password{}, fmt.Errorf("%w: password must contain an uppercase letter", ErrInvalidPasswordFormat)
	}
	if !hasLower.MatchString(value) {
		return Password{}, fmt.Errorf("%w: password must contain a lowercase letter", ErrInvalidPasswordFormat)
	}
	if !hasDigit.MatchString(value) {
		return Password{}, fmt.Errorf("%w: password must contain a digit", ErrInvalidPasswordFormat)
	}
	return Password{value: value}, nil
}

func (p Password) String() string { return p.value }
