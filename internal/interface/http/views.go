package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/accentry/account-service/internal/application"
	"github.com/accentry/account-service/internal/domain/entity"
)

type accountView struct {
	ID              string    `json:"id"`
	Username        string    `json:"username"`
	Email           string    `json:"email"`
	IsEnabled       bool      `json:"is_enabled"`
	IsEmailVerified bool      `json:"is_email_verified"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func newAccountView(a *entity.Account) accountView {
	return accountView{
		ID:              a.ID().String(),
		Username:        a.Username(),
		Email:           a.Email(),
		IsEnabled:       a.IsEnabled(),
		IsEmailVerified: a.IsEmailVerified(),
		CreatedAt:       a.CreatedAt(),
		UpdatedAt:       a.UpdatedAt(),
	}
}

// statusForError maps a use-case error to an HTTP status and client
// message. Non-domain errors get a generic 500; their detail stays in the
// logs only.
func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, entity.ErrInvalidUsernameFormat),
		errors.Is(err, entity.ErrInvalidEmailFormat),
		errors.Is(err, entity.ErrInvalidPasswordFormat),
		errors.Is(err, application.ErrVerificationToken):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, entity.ErrUsernameAlreadyExists),
		errors.Is(err, entity.ErrEmailAlreadyExists):
		return http.StatusConflict, err.Error()
	case errors.Is(err, entity.ErrInvalidCredentials):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, entity.ErrAccountNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, entity.ErrAccountDisabled),
		errors.Is(err, entity.ErrEmailNotVerified),
		errors.Is(err, entity.ErrInvalidCurrentPassword):
		return http.StatusForbidden, err.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}
