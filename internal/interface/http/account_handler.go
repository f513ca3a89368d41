package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/accentry/account-service/internal/application"
	"github.com/accentry/account-service/internal/interface/middleware"
	"github.com/accentry/account-service/pkg/response"
	"github.com/accentry/account-service/pkg/validation"
)

type AccountHandler struct {
	Service *application.Service
	Logger  *logrus.Logger
}

func NewAccountHandler(service *application.Service, logger *logrus.Logger) *AccountHandler {
	return &AccountHandler{Service: service, Logger: logger}
}

func (h *AccountHandler) accountID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.GetString(middleware.CtxAccountIDKey))
	if err != nil {
		resp := response.Error[any](c, http.StatusUnauthorized, "unauthorized", nil)
		c.JSON(resp.Status, resp)
		return uuid.Nil, false
	}
	return id, true
}

// GetProfile GET /api/profile
func (h *AccountHandler) GetProfile(c *gin.Context) {
	id, ok := h.accountID(c)
	if !ok {
		return
	}

	account, err := h.Service.GetAccount(c.Request.Context(), id)
	if err != nil {
		status, msg := statusForError(err)
		resp := response.Error[any](c, status, msg, nil)
		c.JSON(resp.Status, resp)
		return
	}

	resp := response.Success(c, http.StatusOK, newAccountView(account), "profile", nil)
	c.JSON(resp.Status, resp)
}

// UpdateProfile PUT /api/profile
func (h *AccountHandler) UpdateProfile(c *gin.Context) {
	id, ok := h.accountID(c)
	if !ok {
		return
	}

	var req struct {
		CurrentPassword string  `json:"current_password" binding:"required"`
		Username        *string `json:"username" binding:"omitempty,min=4,max=10"`
		Email           *string `json:"email" binding:"omitempty,email"`
		NewPassword     *string `json:"new_password" binding:"omitempty,pwd"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		resp := response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		c.JSON(resp.Status, resp)
		return
	}

	updated, err := h.Service.UpdateProfile(c.Request.Context(), id, application.UpdateProfileInput{
		CurrentPassword: req.CurrentPassword,
		Username:        req.Username,
		Email:           req.Email,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		status, msg := statusForError(err)
		resp := response.Error[any](c, status, msg, nil)
		c.JSON(resp.Status, resp)
		return
	}

	resp := response.Success(c, http.StatusOK, newAccountView(updated), "profile updated", nil)
	c.JSON(resp.Status, resp)
}

// Enable POST /api/accounts/:id/enable
func (h *AccountHandler) Enable(c *gin.Context) {
	h.setEnabled(c, true)
}

// Disable POST /api/accounts/:id/disable
func (h *AccountHandler) Disable(c *gin.Context) {
	h.setEnabled(c, false)
}

func (h *AccountHandler) setEnabled(c *gin.Context, enabled bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		resp := response.Error[any](c, http.StatusBadRequest, "invalid account id", nil)
		c.JSON(resp.Status, resp)
		return
	}

	op, msg := h.Service.Disable, "account disabled"
	if enabled {
		op, msg = h.Service.Enable, "account enabled"
	}

	account, err := op(c.Request.Context(), id)
	if err != nil {
		status, errMsg := statusForError(err)
		resp := response.Error[any](c, status, errMsg, nil)
		c.JSON(resp.Status, resp)
		return
	}

	resp := response.Success(c, http.StatusOK, newAccountView(account), msg, nil)
	c.JSON(resp.Status, resp)
}

// Search GET /api/accounts/search?q=
func (h *AccountHandler) Search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		resp := response.Error[any](c, http.StatusBadRequest, "query parameter q is required", nil)
		c.JSON(resp.Status, resp)
		return
	}

	size := 20
	if raw := c.Query("size"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			size = n
		}
	}

	results, err := h.Service.SearchAccounts(c.Request.Context(), query, size)
	if err != nil {
		h.Logger.WithError(err).Error("account search failed")
		resp := response.Error[any](c, http.StatusInternalServerError, "search unavailable", nil)
		c.JSON(resp.Status, resp)
		return
	}

	resp := response.Success(c, http.StatusOK, results, "search results", nil)
	c.JSON(resp.Status, resp)
}
