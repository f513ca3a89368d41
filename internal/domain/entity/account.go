package entity

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Identity is the immutable (username, email) pair of an account.
// It can only be constructed through NewIdentity, so a live Identity is
// always valid. Two identities are equal iff both fields are equal.
type Identity struct {
	username string
	email    string
}

// NewIdentity validates and builds an Identity. The username must be 4-10
// characters; the email check here is structural only, stricter validation
// belongs to the request schema at the HTTP boundary.
func NewIdentity(username, email string) (Identity, error) {
	if n := utf8.RuneCountInString(username); n < 4 || n > 10 {
		return Identity{}, ErrInvalidUsernameFormat
	}
	if !strings.Contains(email, "@") {
		return Identity{}, ErrInvalidEmailFormat
	}
	return Identity{username: username, email: email}, nil
}

func (i Identity) Username() string { return i.username }
func (i Identity) Email() string    { return i.email }

// Security is the immutable security state of an account. The hashed
// password is empty only transiently, before SetPassword is called on a
// freshly created account.
type Security struct {
	hashedPassword string
	disabled       bool
	emailVerified  bool
}

func (s Security) HashedPassword() string { return s.hashedPassword }
func (s Security) Disabled() bool         { return s.disabled }
func (s Security) EmailVerified() bool    { return s.emailVerified }

// Account is the aggregate root for one registered user. It exclusively
// owns its Identity and Security values; state transitions replace them
// wholesale rather than mutating fields in place, and every transition
// bumps UpdatedAt.
type Account struct {
	id        uuid.UUID
	identity  Identity
	security  Security
	createdAt time.Time
	updatedAt time.Time
}

// NewAccount is the factory for a fresh account: validated identity, no
// password yet, enabled, email unverified. Callers must SetPassword before
// persisting or the stored hash will be empty.
func NewAccount(username, email string) (*Account, error) {
	identity, err := NewIdentity(username, email)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &Account{
		id:        uuid.New(),
		identity:  identity,
		security:  Security{},
		createdAt: now,
		updatedAt: now,
	}, nil
}

// Restore rebuilds an account from persisted state. Identity rules are
// re-checked so a corrupted record cannot re-enter the domain.
func Restore(id uuid.UUID, username, email, hashedPassword string, disabled, emailVerified bool, createdAt, updatedAt time.Time) (*Account, error) {
	identity, err := NewIdentity(username, email)
	if err != nil {
		return nil, err
	}
	return &Account{
		id:       id,
		identity: identity,
		security: Security{
			hashedPassword: hashedPassword,
			disabled:       disabled,
			emailVerified:  emailVerified,
		},
		createdAt: createdAt,
		updatedAt: updatedAt,
	}, nil
}

func (a *Account) ID() uuid.UUID          { return a.id }
func (a *Account) Identity() Identity     { return a.identity }
func (a *Account) Security() Security     { return a.security }
func (a *Account) Username() string       { return a.identity.username }
func (a *Account) Email() string          { return a.identity.email }
func (a *Account) HashedPassword() string { return a.security.hashedPassword }
func (a *Account) Disabled() bool         { return a.security.disabled }
func (a *Account) IsEnabled() bool        { return !a.security.disabled }
func (a *Account) IsEmailVerified() bool  { return a.security.emailVerified }
func (a *Account) CreatedAt() time.Time   { return a.createdAt }
func (a *Account) UpdatedAt() time.Time   { return a.updatedAt }

func (a *Account) touch() {
	a.updatedAt = time.Now().UTC()
}

// SetPassword attaches a new password hash. The hash is produced outside
// the entity; an empty hash is a programming error, not a domain error.
func (a *Account) SetPassword(hash string) error {
	if hash == "" {
		return errors.New("password hash cannot be empty")
	}
	a.security = Security{
		hashedPassword: hash,
		disabled:       a.security.disabled,
		emailVerified:  a.security.emailVerified,
	}
	a.touch()
	return nil
}

// ChangeUsername rebuilds the identity with the new username, re-validating
// both fields.
func (a *Account) ChangeUsername(newUsername string) error {
	identity, err := NewIdentity(newUsername, a.identity.email)
	if err != nil {
		return err
	}
	a.identity = identity
	a.touch()
	return nil
}

// ChangeEmail rebuilds the identity and resets email verification:
// verification is bound to a specific email value.
func (a *Account) ChangeEmail(newEmail string) error {
	identity, err := NewIdentity(a.identity.username, newEmail)
	if err != nil {
		return err
	}
	a.identity = identity
	a.security = Security{
		hashedPassword: a.security.hashedPassword,
		disabled:       a.security.disabled,
		emailVerified:  false,
	}
	a.touch()
	return nil
}

// Enable re-activates the account. Idempotent beyond the timestamp bump.
func (a *Account) Enable() {
	a.security = Security{
		hashedPassword: a.security.hashedPassword,
		disabled:       false,
		emailVerified:  a.security.emailVerified,
	}
	a.touch()
}

// Disable deactivates the account. Idempotent beyond the timestamp bump.
func (a *Account) Disable() {
	a.security = Security{
		hashedPassword: a.security.hashedPassword,
		disabled:       true,
		emailVerified:  a.security.emailVerified,
	}
	a.touch()
}

// MarkEmailVerified flags the current email as verified.
func (a *Account) MarkEmailVerified() {
	a.security = Security{
		hashedPassword: a.security.hashedPassword,
		disabled:       a.security.disabled,
		emailVerified:  true,
	}
	a.touch()
}
