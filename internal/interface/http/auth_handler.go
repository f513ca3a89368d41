package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/accentry/account-service/internal/application"
	"github.com/accentry/account-service/internal/interface/middleware"
	"github.com/accentry/account-service/pkg/response"
	"github.com/accentry/account-service/pkg/validation"
)

type AuthHandler struct {
	Service *application.Service
	Logger  *logrus.Logger
}

func NewAuthHandler(service *application.Service, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{Service: service, Logger: logger}
}

// Register POST /api/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required,min=4,max=10"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,pwd"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		resp := response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		c.JSON(resp.Status, resp)
		return
	}

	account, err := h.Service.Register(c.Request.Context(), application.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		status, msg := statusForError(err)
		resp := response.Error[any](c, status, msg, nil)
		c.JSON(resp.Status, resp)
		return
	}

	resp := response.Success(c, http.StatusCreated, newAccountView(account), "account created", nil)
	c.JSON(resp.Status, resp)
}

// Login POST /api/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		resp := response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		c.JSON(resp.Status, resp)
		return
	}

	token, err := h.Service.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		status, msg := statusForError(err)
		resp := response.Error[any](c, status, msg, nil)
		c.JSON(resp.Status, resp)
		return
	}

	resp := response.Success(c, http.StatusOK, gin.H{
		"access_token": token.AccessToken,
		"token_type":   token.TokenType,
		"expires_at":   token.ExpiresAt,
	}, "authenticated", nil)
	c.JSON(resp.Status, resp)
}

// VerifyInit POST /api/auth/verify/init (auth required)
func (h *AuthHandler) VerifyInit(c *gin.Context) {
	id, err := uuid.Parse(c.GetString(middleware.CtxAccountIDKey))
	if err != nil {
		resp := response.Error[any](c, http.StatusUnauthorized, "unauthorized", nil)
		c.JSON(resp.Status, resp)
		return
	}

	link, err := h.Service.RequestEmailVerification(c.Request.Context(), id)
	if err != nil {
		status, msg := statusForError(err)
		resp := response.Error[any](c, status, msg, nil)
		c.JSON(resp.Status, resp)
		return
	}
	if link == "" {
		resp := response.Success(c, http.StatusOK, gin.H{"already_verified": true}, "already verified", nil)
		c.JSON(resp.Status, resp)
		return
	}

	resp := response.Success(c, http.StatusOK, gin.H{"verify_link": link}, "verification link", nil)
	c.JSON(resp.Status, resp)
}

// VerifyConfirm POST /api/auth/verify/confirm {token}
func (h *AuthHandler) VerifyConfirm(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		resp := response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		c.JSON(resp.Status, resp)
		return
	}

	account, err := h.Service.ConfirmEmailVerification(c.Request.Context(), req.Token)
	if err != nil {
		status, msg := statusForError(err)
		resp := response.Error[any](c, status, msg, nil)
		c.JSON(resp.Status, resp)
		return
	}

	resp := response.Success(c, http.StatusOK, newAccountView(account), "email verified", nil)
	c.JSON(resp.Status, resp)
}
