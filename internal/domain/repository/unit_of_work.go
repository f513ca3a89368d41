package repository

import "context"

// UnitOfWork scopes repository operations to a single atomic transaction.
// Accounts() is lazily bound to the underlying connection, so every
// repository obtained from the same unit of work shares one session.
// Exactly one of Commit or Rollback must be called; nesting is not
// supported.
type UnitOfWork interface {
	Accounts() AccountRepository
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UnitOfWorkFactory opens a new unit of work per inbound operation.
type UnitOfWorkFactory interface {
	Begin(ctx context.Context) (UnitOfWork, error)
}
