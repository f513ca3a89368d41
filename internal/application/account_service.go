package application

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/accentry/account-service/internal/domain/entity"
	"github.com/accentry/account-service/internal/domain/repository"
	"github.com/accentry/account-service/pkg/helpers"
	"github.com/accentry/account-service/pkg/mailer"
)

// ErrVerificationToken is returned when an email-verification token is
// unknown or expired. It is not part of the account taxonomy: the token
// lives in Redis, not on the account.
var ErrVerificationToken = errors.New("invalid or expired verification token")

const verifyTokenTTL = 24 * time.Hour

// Service orchestrates the account use cases. Every operation runs inside
// one unit of work; Redis, Elasticsearch, and the email publisher are
// optional collaborators and all post-commit work on them is best-effort.
type Service struct {
	UoW            repository.UnitOfWorkFactory
	Tokens         *helpers.TokenManager
	Redis          *redis.Client
	Logger         *logrus.Logger
	ES             *elasticsearch.Client
	ESIndex        string
	Pub            *helpers.RabbitPublisher
	VerifyEmailURL string
}

func NewService(uow repository.UnitOfWorkFactory, tokens *helpers.TokenManager, rdb *redis.Client, logger *logrus.Logger, es *elasticsearch.Client, esIndex string, pub *helpers.RabbitPublisher, verifyEmailURL string) *Service {
	return &Service{
		UoW:            uow,
		Tokens:         tokens,
		Redis:          rdb,
		Logger:         logger,
		ES:             es,
		ESIndex:        esIndex,
		Pub:            pub,
		VerifyEmailURL: verifyEmailURL,
	}
}

func sessionKey(accountID string) string { return "account:session:" + accountID }
func verifyTokenKey(token string) string { return "email:verify:token:" + token }

// withUnitOfWork runs fn inside one transaction scope: commit on nil error,
// rollback on error or panic. Domain errors pass through untouched and are
// logged at warn; anything else is an unexpected failure.
func (s *Service) withUnitOfWork(ctx context.Context, op string, fn func(uow repository.UnitOfWork) error) error {
	uow, err := s.UoW.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = uow.Rollback(ctx)
			panic(p)
		}
	}()
	if err := fn(uow); err != nil {
		if rbErr := uow.Rollback(ctx); rbErr != nil && s.Logger != nil {
			s.Logger.WithError(rbErr).WithField("op", op).Error("rollback failed")
		}
		s.logFailure(op, err)
		return err
	}
	if err := uow.Commit(ctx); err != nil {
		s.logFailure(op, err)
		return err
	}
	return nil
}

func (s *Service) logFailure(op string, err error) {
	if s.Logger == nil {
		return
	}
	if entity.IsDomainError(err) {
		s.Logger.WithError(err).WithField("op", op).Warn("domain error")
	} else {
		s.Logger.WithError(err).WithField("op", op).Error("unexpected failure")
	}
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// Register creates a new account. The lookups are a fast advisory tier for
// instant feedback; the storage unique constraint remains the authority
// when two registrations race, surfacing through Create or Commit as a
// translated conflict error.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*entity.Account, error) {
	var account *entity.Account
	err := s.withUnitOfWork(ctx, "register", func(uow repository.UnitOfWork) error {
		accounts := uow.Accounts()

		if existing, err := accounts.GetByUsername(ctx, in.Username); err != nil {
			return err
		} else if existing != nil {
			return entity.ErrUsernameAlreadyExists
		}
		if existing, err := accounts.GetByEmail(ctx, in.Email); err != nil {
			return err
		} else if existing != nil {
			return entity.ErrEmailAlreadyExists
		}

		acc, err := entity.NewAccount(in.Username, in.Email)
		if err != nil {
			return err
		}
		password, err := entity.NewPassword(in.Password)
		if err != nil {
			return err
		}
		hash, err := helpers.HashPassword(password.String())
		if err != nil {
			return err
		}
		if err := acc.SetPassword(hash); err != nil {
			return err
		}
		if err := accounts.Create(ctx, acc); err != nil {
			return err
		}
		account = acc
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.Logger != nil {
		s.Logger.WithFields(logrus.Fields{"account_id": account.ID(), "username": account.Username()}).Info("account registered")
	}
	s.indexAccount(ctx, account)
	if s.Redis != nil {
		if _, err := s.RequestEmailVerification(ctx, account.ID()); err != nil && s.Logger != nil {
			s.Logger.WithError(err).WithField("account_id", account.ID()).Warn("initial verification email failed")
		}
	}
	return account, nil
}

// TokenResult is the outcome of a successful authentication.
type TokenResult struct {
	AccessToken string
	TokenType   string
	ExpiresAt   time.Time
}

// Authenticate verifies credentials and exchanges them for a bearer token.
// A missing account and a wrong password are deliberately indistinguishable
// to the caller.
func (s *Service) Authenticate(ctx context.Context, username, password string) (TokenResult, error) {
	var account *entity.Account
	err := s.withUnitOfWork(ctx, "authenticate", func(uow repository.UnitOfWork) error {
		acc, err := uow.Accounts().GetByUsername(ctx, username)
		if err != nil {
			return err
		}
		if acc == nil || !helpers.VerifyPassword(password, acc.HashedPassword()) {
			return entity.ErrInvalidCredentials
		}
		if !acc.IsEnabled() {
			return entity.ErrAccountDisabled
		}
		account = acc
		return nil
	})
	if err != nil {
		return TokenResult{}, err
	}

	token, exp, err := s.Tokens.Issue(account.ID(), account.Username(), account.Email())
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("account_id", account.ID()).Error("issue token failed")
		}
		return TokenResult{}, err
	}

	s.recordSession(ctx, account)
	if s.Logger != nil {
		s.Logger.WithFields(logrus.Fields{"account_id": account.ID(), "username": account.Username()}).Info("authenticated")
	}
	return TokenResult{AccessToken: token, TokenType: "bearer", ExpiresAt: exp}, nil
}

// GetAccount loads an account by id. Disabled accounts are not fetchable;
// re-enabling goes through Enable, which does not require the disabled
// account's own token.
func (s *Service) GetAccount(ctx context.Context, id uuid.UUID) (*entity.Account, error) {
	var account *entity.Account
	err := s.withUnitOfWork(ctx, "get_account", func(uow repository.UnitOfWork) error {
		acc, err := uow.Accounts().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if acc == nil {
			return entity.ErrAccountNotFound
		}
		if acc.Disabled() {
			return entity.ErrAccountDisabled
		}
		account = acc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// CurrentAccount resolves a bearer token to its account. Any decode failure
// means unauthenticated, never a crash.
func (s *Service) CurrentAccount(ctx context.Context, token string) (*entity.Account, error) {
	id, ok := s.Tokens.DecodeSubject(token)
	if !ok {
		return nil, entity.ErrInvalidCredentials
	}
	return s.GetAccount(ctx, id)
}

type UpdateProfileInput struct {
	CurrentPassword string
	Username        *string
	Email           *string
	NewPassword     *string
}

// UpdateProfile applies the requested profile changes after re-verifying
// the current password. The account is loaded, checked, and written inside
// one unit of work; nothing is written when no field actually changes.
func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, in UpdateProfileInput) (*entity.Account, error) {
	var account *entity.Account
	err := s.withUnitOfWork(ctx, "update_profile", func(uow repository.UnitOfWork) error {
		accounts := uow.Accounts()

		acc, err := accounts.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if acc == nil {
			return entity.ErrAccountNotFound
		}
		if acc.Disabled() {
			return entity.ErrAccountDisabled
		}
		if !helpers.VerifyPassword(in.CurrentPassword, acc.HashedPassword()) {
			return entity.ErrInvalidCurrentPassword
		}

		changed := false

		if in.Username != nil && *in.Username != acc.Username() {
			if existing, err := accounts.GetByUsername(ctx, *in.Username); err != nil {
				return err
			} else if existing != nil {
				return entity.ErrUsernameAlreadyExists
			}
			if err := acc.ChangeUsername(*in.Username); err != nil {
				return err
			}
			changed = true
		}

		if in.Email != nil && *in.Email != acc.Email() {
			if existing, err := accounts.GetByEmail(ctx, *in.Email); err != nil {
				return err
			} else if existing != nil {
				return entity.ErrEmailAlreadyExists
			}
			if err := acc.ChangeEmail(*in.Email); err != nil {
				return err
			}
			changed = true
		}

		if in.NewPassword != nil {
			password, err := entity.NewPassword(*in.NewPassword)
			if err != nil {
				return err
			}
			hash, err := helpers.HashPassword(password.String())
			if err != nil {
				return err
			}
			if err := acc.SetPassword(hash); err != nil {
				return err
			}
			changed = true
		}

		if changed {
			if err := accounts.Update(ctx, acc); err != nil {
				return err
			}
		}
		account = acc
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.refreshSession(ctx, account)
	s.indexAccount(ctx, account)
	return account, nil
}

// Enable re-activates the account with the given id.
func (s *Service) Enable(ctx context.Context, id uuid.UUID) (*entity.Account, error) {
	return s.setEnabled(ctx, id, true)
}

// Disable deactivates the account with the given id.
func (s *Service) Disable(ctx context.Context, id uuid.UUID) (*entity.Account, error) {
	return s.setEnabled(ctx, id, false)
}

func (s *Service) setEnabled(ctx context.Context, id uuid.UUID, enabled bool) (*entity.Account, error) {
	var account *entity.Account
	op := "disable_account"
	if enabled {
		op = "enable_account"
	}
	err := s.withUnitOfWork(ctx, op, func(uow repository.UnitOfWork) error {
		acc, err := uow.Accounts().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if acc == nil {
			return entity.ErrAccountNotFound
		}
		if enabled {
			acc.Enable()
		} else {
			acc.Disable()
		}
		if err := uow.Accounts().Update(ctx, acc); err != nil {
			return err
		}
		account = acc
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.Logger != nil {
		s.Logger.WithFields(logrus.Fields{"account_id": account.ID(), "enabled": enabled}).Info("account state changed")
	}
	s.indexAccount(ctx, account)
	return account, nil
}

// RequestEmailVerification issues a short-lived verification token and
// enqueues the verification email. Already-verified accounts get an empty
// link back (idempotent no-op).
func (s *Service) RequestEmailVerification(ctx context.Context, id uuid.UUID) (string, error) {
	account, err := s.GetAccount(ctx, id)
	if err != nil {
		return "", err
	}
	if account.IsEmailVerified() {
		return "", nil
	}
	if s.Redis == nil {
		return "", errors.New("email verification unavailable: no token store")
	}

	token, err := randomToken(32)
	if err != nil {
		return "", err
	}
	if err := s.Redis.Set(ctx, verifyTokenKey(token), account.ID().String(), verifyTokenTTL).Err(); err != nil {
		return "", err
	}

	link := s.VerifyEmailURL + "?token=" + token
	if s.Pub != nil {
		job := mailer.EmailJob{
			To:       account.Email(),
			Template: mailer.TemplateVerifyEmail,
			Data: map[string]any{
				"Username": account.Username(),
				"Link":     link,
			},
		}
		if err := s.Pub.PublishJSON(ctx, job); err != nil && s.Logger != nil {
			s.Logger.WithError(err).WithField("account_id", account.ID()).Warn("publish verification email failed")
		}
	}
	return link, nil
}

// ConfirmEmailVerification resolves the token and marks the account's
// current email as verified.
func (s *Service) ConfirmEmailVerification(ctx context.Context, token string) (*entity.Account, error) {
	if s.Redis == nil {
		return nil, errors.New("email verification unavailable: no token store")
	}
	idStr, err := s.Redis.Get(ctx, verifyTokenKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrVerificationToken
	}
	if err != nil {
		// Redis being down is an infrastructure failure, not a bad token.
		return nil, err
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, ErrVerificationToken
	}

	var account *entity.Account
	err = s.withUnitOfWork(ctx, "confirm_email_verification", func(uow repository.UnitOfWork) error {
		acc, err := uow.Accounts().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if acc == nil {
			return entity.ErrAccountNotFound
		}
		acc.MarkEmailVerified()
		if err := uow.Accounts().Update(ctx, acc); err != nil {
			return err
		}
		account = acc
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Redis.Del(ctx, verifyTokenKey(token))
	s.indexAccount(ctx, account)
	return account, nil
}

// SearchAccounts performs a multi_match query over username and email in
// the account index. Returns raw documents; the index is eventually
// consistent with the store.
func (s *Service) SearchAccounts(ctx context.Context, query string, size int) ([]map[string]any, error) {
	if s.ES == nil || s.ESIndex == "" {
		return []map[string]any{}, nil
	}
	if size <= 0 || size > 50 {
		size = 10
	}
	body := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  query,
				"fields": []string{"username^2", "email"},
			},
		},
		"size": size,
	}
	b, _ := json.Marshal(body)

	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := s.ES.Search(
		s.ES.Search.WithContext(c),
		s.ES.Search.WithIndex(s.ESIndex),
		s.ES.Search.WithBody(strings.NewReader(string(b))),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}

func (s *Service) recordSession(ctx context.Context, account *entity.Account) {
	if s.Redis == nil {
		return
	}
	key := sessionKey(account.ID().String())
	pipe := s.Redis.Pipeline()
	pipe.HSet(ctx, key, map[string]any{
		"account_id": account.ID().String(),
		"username":   account.Username(),
		"email":      account.Email(),
		"created_at": time.Now().UTC().Format(time.RFC3339Nano),
	})
	pipe.Expire(ctx, key, 24*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("key", key).Warn("redis pipeline failed")
	}
}

func (s *Service) refreshSession(ctx context.Context, account *entity.Account) {
	if s.Redis == nil {
		return
	}
	key := sessionKey(account.ID().String())
	pipe := s.Redis.Pipeline()
	pipe.HSet(ctx, key, map[string]any{
		"username":   account.Username(),
		"email":      account.Email(),
		"updated_at": time.Now().UTC().Format(time.RFC3339Nano),
	})
	if ttl, err := s.Redis.TTL(ctx, key).Result(); err == nil && ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("key", key).Warn("redis pipeline failed")
	}
}

func (s *Service) indexAccount(ctx context.Context, account *entity.Account) {
	if s.ES == nil || s.ESIndex == "" {
		return
	}
	doc := map[string]any{
		"id":                account.ID().String(),
		"username":          account.Username(),
		"email":             account.Email(),
		"disabled":          account.Disabled(),
		"is_email_verified": account.IsEmailVerified(),
		"created_at":        account.CreatedAt().Format(time.RFC3339Nano),
		"updated_at":        account.UpdatedAt().Format(time.RFC3339Nano),
	}
	b, _ := json.Marshal(doc)
	req := esapi.IndexRequest{
		Index:      s.ESIndex,
		DocumentID: account.ID().String(),
		Body:       strings.NewReader(string(b)),
		Refresh:    "false",
	}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("account_id", account.ID()).Warn("es index failed")
		}
		return
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && s.Logger != nil {
		s.Logger.WithFields(logrus.Fields{"status": res.Status(), "account_id": account.ID()}).Warn("es index response error")
	}
}

func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
