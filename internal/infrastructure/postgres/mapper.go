package postgres

import (
	"time"

	"github.com/google/uuid"

	"github.com/accentry/account-service/internal/domain/entity"
)

// accountRecord is the persisted shape of an account. The domain entity and
// the stored record are kept in sync by an explicit translation step, never
// shared by reference.
type accountRecord struct {
	ID              uuid.UUID
	Username        string
	Email           string
	HashedPassword  string
	Disabled        bool
	IsEmailVerified bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func newAccountRecord(a *entity.Account) accountRecord {
	return accountRecord{
		ID:              a.ID(),
		Username:        a.Username(),
		Email:           a.Email(),
		HashedPassword:  a.HashedPassword(),
		Disabled:        a.Disabled(),
		IsEmailVerified: a.IsEmailVerified(),
		CreatedAt:       a.CreatedAt(),
		UpdatedAt:       a.UpdatedAt(),
	}
}

// toDomain rebuilds the entity, re-running identity validation so a
// corrupted row surfaces as an error instead of an invalid aggregate.
func (r accountRecord) toDomain() (*entity.Account, error) {
	return entity.Restore(
		r.ID,
		r.Username,
		r.Email,
		r.HashedPassword,
		r.Disabled,
		r.IsEmailVerified,
		r.CreatedAt.UTC(),
		r.UpdatedAt.UTC(),
	)
}
