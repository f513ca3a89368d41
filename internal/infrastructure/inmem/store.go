package inmem

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/accentry/account-service/internal/domain/entity"
	"github.com/accentry/account-service/internal/domain/repository"
)

// Store is the in-memory account storage used by tests. It mirrors the
// transactional contract of the postgres adapter: writes stage inside a
// unit of work, lookups in the same unit of work observe them, and they
// become durable only on Commit, where uniqueness is enforced
// authoritatively under the store lock. Two units of work racing to commit
// the same username produce exactly one winner.
type Store struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]accountRecord
}

func NewStore() *Store {
	return &Store{accounts: map[uuid.UUID]accountRecord{}}
}

// accountRecord is a detached snapshot; the store never aliases entities
// held by callers.
type accountRecord struct {
	username       string
	email          string
	hashedPassword string
	disabled       bool
	emailVerified  bool
	createdAt      time.Time
	updatedAt      time.Time
}

func snapshot(a *entity.Account) accountRecord {
	return accountRecord{
		username:       a.Username(),
		email:          a.Email(),
		hashedPassword: a.HashedPassword(),
		disabled:       a.Disabled(),
		emailVerified:  a.IsEmailVerified(),
		createdAt:      a.CreatedAt(),
		updatedAt:      a.UpdatedAt(),
	}
}

func (r accountRecord) restore(id uuid.UUID) (*entity.Account, error) {
	return entity.Restore(id, r.username, r.email, r.hashedPassword,
		r.disabled, r.emailVerified, r.createdAt, r.updatedAt)
}

// Begin implements repository.UnitOfWorkFactory.
func (s *Store) Begin(ctx context.Context) (repository.UnitOfWork, error) {
	return &unitOfWork{
		store:  s,
		staged: map[uuid.UUID]accountRecord{},
	}, nil
}

type unitOfWork struct {
	store  *Store
	staged map[uuid.UUID]accountRecord
	order  []uuid.UUID
}

func (u *unitOfWork) Accounts() repository.AccountRepository {
	return &accountRepository{uow: u}
}

// Commit applies staged records under the store lock after re-checking
// uniqueness against committed state. This commit-time check is the
// in-memory stand-in for the database unique constraint.
func (u *unitOfWork) Commit(ctx context.Context) error {
	u.store.mu.Lock()
	defer u.store.mu.Unlock()

	for id, rec := range u.staged {
		for otherID, other := range u.store.accounts {
			if otherID == id {
				continue
			}
			if other.username == rec.username {
				return entity.ErrUsernameAlreadyExists
			}
			if other.email == rec.email {
				return entity.ErrEmailAlreadyExists
			}
		}
	}
	for _, id := range u.order {
		u.store.accounts[id] = u.staged[id]
	}
	u.staged = map[uuid.UUID]accountRecord{}
	u.order = nil
	return nil
}

func (u *unitOfWork) Rollback(ctx context.Context) error {
	u.staged = map[uuid.UUID]accountRecord{}
	u.order = nil
	return nil
}

type accountRepository struct {
	uow *unitOfWork
}

func (r *accountRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Account, error) {
	if rec, ok := r.uow.staged[id]; ok {
		return rec.restore(id)
	}
	r.uow.store.mu.Lock()
	rec, ok := r.uow.store.accounts[id]
	r.uow.store.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return rec.restore(id)
}

func (r *accountRepository) GetByUsername(ctx context.Context, username string) (*entity.Account, error) {
	return r.find(func(rec accountRecord) bool { return rec.username == username })
}

func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*entity.Account, error) {
	return r.find(func(rec accountRecord) bool { return rec.email == email })
}

func (r *accountRepository) find(match func(accountRecord) bool) (*entity.Account, error) {
	for id, rec := range r.uow.staged {
		if match(rec) {
			return rec.restore(id)
		}
	}
	r.uow.store.mu.Lock()
	defer r.uow.store.mu.Unlock()
	for id, rec := range r.uow.store.accounts {
		if _, ok := r.uow.staged[id]; ok {
			// staged version already inspected above
			continue
		}
		if match(rec) {
			return rec.restore(id)
		}
	}
	return nil, nil
}

// Create stages the account. The check here is the advisory tier only; the
// race-proof check runs again at Commit.
func (r *accountRepository) Create(ctx context.Context, account *entity.Account) error {
	if existing, err := r.GetByUsername(ctx, account.Username()); err != nil {
		return err
	} else if existing != nil {
		return entity.ErrUsernameAlreadyExists
	}
	if existing, err := r.GetByEmail(ctx, account.Email()); err != nil {
		return err
	} else if existing != nil {
		return entity.ErrEmailAlreadyExists
	}
	r.stage(account)
	return nil
}

func (r *accountRepository) Update(ctx context.Context, account *entity.Account) error {
	if _, staged := r.uow.staged[account.ID()]; !staged {
		r.uow.store.mu.Lock()
		_, ok := r.uow.store.accounts[account.ID()]
		r.uow.store.mu.Unlock()
		if !ok {
			return entity.ErrAccountNotFound
		}
	}
	r.stage(account)
	return nil
}

func (r *accountRepository) stage(account *entity.Account) {
	id := account.ID()
	if _, ok := r.uow.staged[id]; !ok {
		r.uow.order = append(r.uow.order, id)
	}
	r.uow.staged[id] = snapshot(account)
}

var (
	_ repository.UnitOfWorkFactory = (*Store)(nil)
	_ repository.AccountRepository = (*accountRepository)(nil)
)
