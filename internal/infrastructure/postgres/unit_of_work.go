package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/accentry/account-service/internal/domain/repository"
)

// UnitOfWorkFactory opens one pgx transaction per unit of work. The
// connection backing the transaction is exclusively owned by that unit of
// work until Commit or Rollback releases it.
type UnitOfWorkFactory struct {
	pool *pgxpool.Pool
}

func NewUnitOfWorkFactory(pool *pgxpool.Pool) *UnitOfWorkFactory {
	return &UnitOfWorkFactory{pool: pool}
}

func (f *UnitOfWorkFactory) Begin(ctx context.Context) (repository.UnitOfWork, error) {
	tx, err := f.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &unitOfWork{tx: tx}, nil
}

type unitOfWork struct {
	tx       pgx.Tx
	accounts *AccountRepository
}

// Accounts lazily binds the account repository to this transaction, so
// every repository obtained from one unit of work shares the same session.
func (u *unitOfWork) Accounts() repository.AccountRepository {
	if u.accounts == nil {
		u.accounts = NewAccountRepository(u.tx)
	}
	return u.accounts
}

// Commit resolves the transaction even when the caller's context was
// cancelled mid-operation: a unit of work is never left open.
func (u *unitOfWork) Commit(ctx context.Context) error {
	return u.tx.Commit(context.WithoutCancel(ctx))
}

func (u *unitOfWork) Rollback(ctx context.Context) error {
	err := u.tx.Rollback(context.WithoutCancel(ctx))
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}

var _ repository.UnitOfWorkFactory = (*UnitOfWorkFactory)(nil)
