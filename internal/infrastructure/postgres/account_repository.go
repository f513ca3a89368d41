package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/accentry/account-service/internal/domain/entity"
	"github.com/accentry/account-service/internal/domain/repository"
)

const pgUniqueViolation = "23505"

// querier is satisfied by pgx.Tx; the repository always runs inside the
// transaction owned by its unit of work.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// AccountRepository implements repository.AccountRepository backed by
// PostgreSQL. Uniqueness races are resolved by the unique constraints on
// username and email, translated here into domain conflict errors.
type AccountRepository struct {
	q querier
}

func NewAccountRepository(q querier) *AccountRepository {
	return &AccountRepository{q: q}
}

const accountColumns = `id, username, email, hashed_password, disabled, is_email_verified, created_at, updated_at`

func (r *AccountRepository) getBy(ctx context.Context, where string, arg any) (*entity.Account, error) {
	var rec accountRecord
	row := r.q.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE `+where, arg)
	if err := row.Scan(&rec.ID, &rec.Username, &rec.Email, &rec.HashedPassword,
		&rec.Disabled, &rec.IsEmailVerified, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return rec.toDomain()
}

func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Account, error) {
	return r.getBy(ctx, `id = $1`, id)
}

func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*entity.Account, error) {
	return r.getBy(ctx, `username = $1`, username)
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*entity.Account, error) {
	return r.getBy(ctx, `email = $1`, email)
}

// Create inserts the account within the current transaction. A unique
// violation is translated by constraint name into the matching domain
// conflict; any other integrity error propagates unchanged.
func (r *AccountRepository) Create(ctx context.Context, account *entity.Account) error {
	rec := newAccountRecord(account)
	_, err := r.q.Exec(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, rec.ID, rec.Username, rec.Email, rec.HashedPassword,
		rec.Disabled, rec.IsEmailVerified, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			switch {
			case strings.Contains(pgErr.ConstraintName, "username"):
				return entity.ErrUsernameAlreadyExists
			case strings.Contains(pgErr.ConstraintName, "email"):
				return entity.ErrEmailAlreadyExists
			}
		}
		return err
	}
	return nil
}

// Update synchronizes the stored record with the entity state.
func (r *AccountRepository) Update(ctx context.Context, account *entity.Account) error {
	rec := newAccountRecord(account)
	res, err := r.q.Exec(ctx, `
		UPDATE accounts
		SET username = $1, email = $2, hashed_password = $3,
		    disabled = $4, is_email_verified = $5, updated_at = $6
		WHERE id = $7
	`, rec.Username, rec.Email, rec.HashedPassword,
		rec.Disabled, rec.IsEmailVerified, rec.UpdatedAt, rec.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			switch {
			case strings.Contains(pgErr.ConstraintName, "username"):
				return entity.ErrUsernameAlreadyExists
			case strings.Contains(pgErr.ConstraintName, "email"):
				return entity.ErrEmailAlreadyExists
			}
		}
		return err
	}
	if res.RowsAffected() == 0 {
		return entity.ErrAccountNotFound
	}
	return nil
}

var _ repository.AccountRepository = (*AccountRepository)(nil)
