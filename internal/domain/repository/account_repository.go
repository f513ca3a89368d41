package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/accentry/account-service/internal/domain/entity"
)

// AccountRepository defines the persistence contract for accounts.
//
// Contract:
//   - Get* methods return (nil, nil) when no account matches.
//   - Create and Update stage work inside the owning unit of work; the
//     durable commit happens when the unit of work closes.
//   - Lookups observe writes staged earlier in the same unit of work.
//   - Create surfaces storage uniqueness violations translated to
//     entity.ErrUsernameAlreadyExists / entity.ErrEmailAlreadyExists; any
//     other storage error propagates unchanged.
type AccountRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Account, error)
	GetByUsername(ctx context.Context, username string) (*entity.Account, error)
	GetByEmail(ctx context.Context, email string) (*entity.Account, error)
	Create(ctx context.Context, account *entity.Account) error
	Update(ctx context.Context, account *entity.Account) error
}
