package application

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/accentry/account-service/internal/domain/entity"
	"github.com/accentry/account-service/internal/infrastructure/inmem"
	"github.com/accentry/account-service/pkg/helpers"
)

func newTestService() *Service {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	tokens := helpers.NewTokenManager("testsecret", "HS256", 30)
	return NewService(inmem.NewStore(), tokens, nil, logger, nil, "", nil, "")
}

func register(t *testing.T, s *Service, username, email string) *entity.Account {
	t.Helper()
	account, err := s.Register(context.Background(), RegisterInput{
		Username: username,
		Email:    email,
		Password: "Sup3rSecret",
	})
	require.NoError(t, err)
	return account
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	s := newTestService()

	account := register(t, s, "alice", "alice@example.com")
	assert.Equal(t, "alice", account.Username())
	assert.Equal(t, "alice@example.com", account.Email())
	assert.True(t, account.IsEnabled())
	assert.False(t, account.IsEmailVerified())
	assert.True(t, helpers.VerifyPassword("Sup3rSecret", account.HashedPassword()))

	got, err := s.GetAccount(ctx, account.ID())
	require.NoError(t, err)
	assert.Equal(t, account.ID(), got.ID())
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	s := newTestService()

	_, err := s.Register(ctx, RegisterInput{Username: "ab", Email: "ab@example.com", Password: "Sup3rSecret"})
	assert.ErrorIs(t, err, entity.ErrInvalidUsernameFormat)

	_, err = s.Register(ctx, RegisterInput{Username: "alice", Email: "no-at-sign", Password: "Sup3rSecret"})
	assert.ErrorIs(t, err, entity.ErrInvalidEmailFormat)

	_, err = s.Register(ctx, RegisterInput{Username: "alice", Email: "a@example.com", Password: "weak"})
	assert.ErrorIs(t, err, entity.ErrInvalidPasswordFormat)

	// Nothing persisted on any failure.
	got, err := s.Authenticate(ctx, "alice", "Sup3rSecret")
	assert.ErrorIs(t, err, entity.ErrInvalidCredentials)
	assert.Empty(t, got.AccessToken)
}

func TestRegisterConflicts(t *testing.T) {
	ctx := context.Background()
	s := newTestService()
	register(t, s, "alice", "alice@example.com")

	_, err := s.Register(ctx, RegisterInput{Username: "alice", Email: "other@example.com", Password: "Sup3rSecret"})
	assert.ErrorIs(t, err, entity.ErrUsernameAlreadyExists)

	_, err = s.Register(ctx, RegisterInput{Username: "bob42", Email: "alice@example.com", Password: "Sup3rSecret"})
	assert.ErrorIs(t, err, entity.ErrEmailAlreadyExists)
}

func TestRegisterConcurrentSingleWinner(t *testing.T) {
	ctx := context.Background()
	s := newTestService()

	const n = 8
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.Register(ctx, RegisterInput{
				Username: "alice",
				Email:    "alice@example.com",
				Password: "Sup3rSecret",
			})
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		assert.ErrorIs(t, err, entity.ErrUsernameAlreadyExists)
	}
	assert.Equal(t, 1, winners)
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	s := newTestService()
	account := register(t, s, "alice", "alice@example.com")

	token, err := s.Authenticate(ctx, "alice", "Sup3rSecret")
	require.NoError(t, err)
	assert.Equal(t, "bearer", token.TokenType)
	assert.True(t, token.ExpiresAt.After(time.Now()))

	id, ok := s.Tokens.DecodeSubject(token.AccessToken)
	require.True(t, ok)
	assert.Equal(t, account.ID(), id)
}

func TestAuthenticateFailures(t *testing.T) {
	ctx := context.Background()
	s := newTestService()
	register(t, s, "alice", "alice@example.com")

	// Unknown username and wrong password are indistinguishable.
	_, err := s.Authenticate(ctx, "nobody", "Sup3rSecret")
	assert.ErrorIs(t, err, entity.ErrInvalidCredentials)

	_, err = s.Authenticate(ctx, "alice", "WrongPass1")
	assert.ErrorIs(t, err, entity.ErrInvalidCredentials)
}

func TestAuthenticateDisabledAccount(t *testing.T) {
	ctx := context.Background()
	s := newTestService()
	account := register(t, s, "alice", "alice@example.com")

	_, err := s.Disable(ctx, account.ID())
	require.NoError(t, err)

	_, err = s.Authenticate(ctx, "alice", "Sup3rSecret")
	assert.ErrorIs(t, err, entity.ErrAccountDisabled)
}

func TestGetAccount(t *testing.T) {
	ctx := context.Background()
	s := newTestService()
	account := register(t, s, "alice", "alice@example.com")

	_, err := s.GetAccount(ctx, uuid.New())
	assert.ErrorIs(t, err, entity.ErrAccountNotFound)

	_, err = s.Disable(ctx, account.ID())
	require.NoError(t, err)
	_, err = s.GetAccount(ctx, account.ID())
	assert.ErrorIs(t, err, entity.ErrAccountDisabled)
}

func TestCurrentAccount(t *testing.T) {
	ctx := context.Background()
	s := newTestService()
	account := register(t, s, "alice", "alice@example.com")

	token, err := s.Authenticate(ctx, "alice", "Sup3rSecret")
	require.NoError(t, err)

	got, err := s.CurrentAccount(ctx, token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, account.ID(), got.ID())

	_, err = s.CurrentAccount(ctx, "garbage")
	assert.ErrorIs(t, err, entity.ErrInvalidCredentials)
}

func strptr(s string) *string { return &s }

func TestUpdateProfileRequiresCurrentPassword(t *testing.T) {
	ctx := context.Background()
	s := newTestService()
	account := register(t, s, "alice", "alice@example.com")

	_, err := s.UpdateProfile(ctx, account.ID(), UpdateProfileInput{
		CurrentPassword: "WrongPass1",
		Username:        strptr("renamed"),
	})
	assert.ErrorIs(t, err, entity.ErrInvalidCurrentPassword)

	// Unchanged.
	got, err := s.GetAccount(ctx, account.ID())
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username())
}

func TestUpdateProfileChangesIdentity(t *testing.T) {
	ctx := context.Background()
	s := newTestService()
	account := register(t, s, "alice", "alice@example.com")

	updated, err := s.UpdateProfile(ctx, account.ID(), UpdateProfileInput{
		CurrentPassword: "Sup3rSecret",
		Username:        strptr("renamed"),
		Email:           strptr("new@example.com"),
	})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Username())
	assert.Equal(t, "new@example.com", updated.Email())

	got, err := s.GetAccount(ctx, account.ID())
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Username())
	assert.Equal(t, "new@example.com", got.Email())
	assert.False(t, got.IsEmailVerified())
}

func TestUpdateProfileConflicts(t *testing.T) {
	ctx := context.Background()
	s := newTestService()
	register(t, s, "alice", "alice@example.com")
	account := register(t, s, "bob42", "bob@example.com")

	_, err := s.UpdateProfile(ctx, account.ID(), UpdateProfileInput{
		CurrentPassword: "Sup3rSecret",
		Username:        strptr("alice"),
	})
	assert.ErrorIs(t, err, entity.ErrUsernameAlreadyExists)

	_, err = s.UpdateProfile(ctx, account.ID(), UpdateProfileInput{
		CurrentPassword: "Sup3rSecret",
		Email:           strptr("alice@example.com"),
	})
	assert.ErrorIs(t, err, entity.ErrEmailAlreadyExists)
}

func TestUpdateProfileSameValuesAreNoops(t *testing.T) {
	ctx := context.Background()
	s := newTestService()
	account := register(t, s, "alice", "alice@example.com")
	before := account.UpdatedAt()

	updated, err := s.UpdateProfile(ctx, account.ID(), UpdateProfileInput{
		CurrentPassword: "Sup3rSecret",
		Username:        strptr("alice"),
		Email:           strptr("alice@example.com"),
	})
	require.NoError(t, err)
	assert.Equal(t, before, updated.UpdatedAt())
}

func TestUpdateProfilePasswordChange(t *testing.T) {
	ctx := context.Background()
	s := newTestService()
	account := register(t, s, "alice", "alice@example.com")

	_, err := s.UpdateProfile(ctx, account.ID(), UpdateProfileInput{
		CurrentPassword: "Sup3rSecret",
		NewPassword:     strptr("An0therSecret"),
	})
	require.NoError(t, err)

	_, err = s.Authenticate(ctx, "alice", "Sup3rSecret")
	assert.ErrorIs(t, err, entity.ErrInvalidCredentials)

	_, err = s.Authenticate(ctx, "alice", "An0therSecret")
	assert.NoError(t, err)
}

func TestUpdateProfileRejectsWeakNewPassword(t *testing.T) {
	ctx := context.Background()
	s := newTestService()
	account := register(t, s, "alice", "alice@example.com")

	_, err := s.UpdateProfile(ctx, account.ID(), UpdateProfileInput{
		CurrentPassword: "Sup3rSecret",
		NewPassword:     strptr("weak"),
	})
	assert.ErrorIs(t, err, entity.ErrInvalidPasswordFormat)
}

func TestUpdateProfileUnknownOrDisabledAccount(t *testing.T) {
	ctx := context.Background()
	s := newTestService()
	account := register(t, s, "alice", "alice@example.com")

	_, err := s.UpdateProfile(ctx, uuid.New(), UpdateProfileInput{
		CurrentPassword: "Sup3rSecret",
		Email:           strptr("new@example.com"),
	})
	assert.ErrorIs(t, err, entity.ErrAccountNotFound)

	_, err = s.Disable(ctx, account.ID())
	require.NoError(t, err)

	_, err = s.UpdateProfile(ctx, account.ID(), UpdateProfileInput{
		CurrentPassword: "Sup3rSecret",
		Email:           strptr("new@example.com"),
	})
	assert.ErrorIs(t, err, entity.ErrAccountDisabled)
}

func TestUpdateProfileReadsCurrentState(t *testing.T) {
	ctx := context.Background()
	s := newTestService()
	account := register(t, s, "alice", "alice@example.com")

	// Rotate the password, then update with the new one: the current-password
	// check must run against the state loaded inside the update itself, not a
	// snapshot from an earlier lookup.
	_, err := s.UpdateProfile(ctx, account.ID(), UpdateProfileInput{
		CurrentPassword: "Sup3rSecret",
		NewPassword:     strptr("An0therSecret"),
	})
	require.NoError(t, err)

	updated, err := s.UpdateProfile(ctx, account.ID(), UpdateProfileInput{
		CurrentPassword: "An0therSecret",
		Username:        strptr("renamed"),
	})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Username())

	_, err = s.UpdateProfile(ctx, account.ID(), UpdateProfileInput{
		CurrentPassword: "Sup3rSecret",
		Email:           strptr("new@example.com"),
	})
	assert.ErrorIs(t, err, entity.ErrInvalidCurrentPassword)
}

func TestConfirmEmailVerificationRedisOutage(t *testing.T) {
	ctx := context.Background()
	s := newTestService()

	// Client pointed at a closed port: every command fails with a dial error.
	s.Redis = redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = s.Redis.Close() })

	_, err := s.ConfirmEmailVerification(ctx, "some-token")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrVerificationToken, "an unreachable token store is not a bad token")
	assert.False(t, entity.IsDomainError(err))
}

func TestEnableDisableLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestService()
	account := register(t, s, "alice", "alice@example.com")

	disabled, err := s.Disable(ctx, account.ID())
	require.NoError(t, err)
	assert.True(t, disabled.Disabled())

	enabled, err := s.Enable(ctx, account.ID())
	require.NoError(t, err)
	assert.True(t, enabled.IsEnabled())

	_, err = s.Authenticate(ctx, "alice", "Sup3rSecret")
	assert.NoError(t, err)

	_, err = s.Enable(ctx, uuid.New())
	assert.ErrorIs(t, err, entity.ErrAccountNotFound)
}
