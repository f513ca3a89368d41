package entity

import "errors"

// Domain error taxonomy. The application layer raises these at the point of
// detection and never suppresses them; handlers map each kind to an HTTP
// status. Anything not in this list is an unexpected infrastructure failure.
var (
	ErrInvalidUsernameFormat  = errors.New("username must be between 4 and 10 characters")
	ErrInvalidEmailFormat     = errors.New("invalid email address format")
	ErrInvalidPasswordFormat  = errors.New("password is too weak or too short")
	ErrUsernameAlreadyExists  = errors.New("an account with this username already exists")
	ErrEmailAlreadyExists     = errors.New("an account with this email already exists")
	ErrAccountNotFound        = errors.New("account not found")
	ErrAccountDisabled        = errors.New("account is disabled")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrEmailNotVerified       = errors.New("email address is not verified")
	ErrInvalidCurrentPassword = errors.New("current password is incorrect")
)

// IsDomainError reports whether err is (or wraps) one of the domain kinds.
func IsDomainError(err error) bool {
	for _, kind := range []error{
		ErrInvalidUsernameFormat,
		ErrInvalidEmailFormat,
		ErrInvalidPasswordFormat,
		ErrUsernameAlreadyExists,
		ErrEmailAlreadyExists,
		ErrAccountNotFound,
		ErrAccountDisabled,
		ErrInvalidCredentials,
		ErrEmailNotVerified,
		ErrInvalidCurrentPassword,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
