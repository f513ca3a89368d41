package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/accentry/account-service/internal/application"
	"github.com/accentry/account-service/internal/domain/repository"
	"github.com/accentry/account-service/internal/infrastructure/inmem"
	"github.com/accentry/account-service/internal/interface/middleware"
	"github.com/accentry/account-service/pkg/helpers"
	"github.com/accentry/account-service/pkg/validation"
)

func newTestRouter(t *testing.T) (*gin.Engine, *application.Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	validation.Init()

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	tokens := helpers.NewTokenManager("testsecret", "HS256", 30)
	service := application.NewService(inmem.NewStore(), tokens, nil, logger, nil, "", nil, "")

	auth := NewAuthHandler(service, logger)
	account := NewAccountHandler(service, logger)

	r := gin.New()
	api := r.Group("/api")
	api.POST("/register", auth.Register)
	api.POST("/login", auth.Login)
	profile := api.Group("/profile", middleware.JWTAuth(tokens))
	profile.GET("", account.GetProfile)
	profile.PUT("", account.UpdateProfile)
	api.POST("/accounts/:id/disable", middleware.JWTAuth(tokens), account.Disable)
	api.POST("/accounts/:id/enable", middleware.JWTAuth(tokens), account.Enable)
	return r, service
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestRegisterEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/register", "", gin.H{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "Sup3rSecret",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	body := decodeBody(t, w)
	data := body["data"].(map[string]any)
	assert.Equal(t, "alice", data["username"])
	assert.Equal(t, true, data["is_enabled"])
	assert.Equal(t, false, data["is_email_verified"])
	assert.NotContains(t, data, "hashed_password")
}

func TestRegisterEndpointValidation(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/register", "", gin.H{
		"username": "ab",
		"email":    "not-an-email",
		"password": "weak",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	body := decodeBody(t, w)
	details := body["error"].(map[string]any)
	assert.Contains(t, details, "username")
	assert.Contains(t, details, "email")
	assert.Contains(t, details, "password")
}

func TestRegisterEndpointConflict(t *testing.T) {
	r, _ := newTestRouter(t)

	payload := gin.H{"username": "alice", "email": "alice@example.com", "password": "Sup3rSecret"}
	require.Equal(t, http.StatusCreated, doJSON(t, r, http.MethodPost, "/api/register", "", payload).Code)

	w := doJSON(t, r, http.MethodPost, "/api/register", "", payload)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestLoginAndProfileFlow(t *testing.T) {
	r, _ := newTestRouter(t)

	require.Equal(t, http.StatusCreated, doJSON(t, r, http.MethodPost, "/api/register", "", gin.H{
		"username": "alice", "email": "alice@example.com", "password": "Sup3rSecret",
	}).Code)

	w := doJSON(t, r, http.MethodPost, "/api/login", "", gin.H{
		"username": "alice", "password": "Sup3rSecret",
	})
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeBody(t, w)["data"].(map[string]any)
	assert.Equal(t, "bearer", data["token_type"])
	token := data["access_token"].(string)
	require.NotEmpty(t, token)

	w = doJSON(t, r, http.MethodGet, "/api/profile", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	profile := decodeBody(t, w)["data"].(map[string]any)
	assert.Equal(t, "alice", profile["username"])

	w = doJSON(t, r, http.MethodPut, "/api/profile", token, gin.H{
		"current_password": "Sup3rSecret",
		"email":            "new@example.com",
	})
	require.Equal(t, http.StatusOK, w.Code)
	updated := decodeBody(t, w)["data"].(map[string]any)
	assert.Equal(t, "new@example.com", updated["email"])
}

func TestLoginEndpointBadCredentials(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/login", "", gin.H{
		"username": "nobody", "password": "Sup3rSecret",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProfileRequiresToken(t *testing.T) {
	r, _ := newTestRouter(t)

	assert.Equal(t, http.StatusUnauthorized, doJSON(t, r, http.MethodGet, "/api/profile", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, doJSON(t, r, http.MethodGet, "/api/profile", "garbage", nil).Code)
}

func TestUpdateProfileWrongCurrentPassword(t *testing.T) {
	r, _ := newTestRouter(t)

	require.Equal(t, http.StatusCreated, doJSON(t, r, http.MethodPost, "/api/register", "", gin.H{
		"username": "alice", "email": "alice@example.com", "password": "Sup3rSecret",
	}).Code)
	w := doJSON(t, r, http.MethodPost, "/api/login", "", gin.H{"username": "alice", "password": "Sup3rSecret"})
	token := decodeBody(t, w)["data"].(map[string]any)["access_token"].(string)

	w = doJSON(t, r, http.MethodPut, "/api/profile", token, gin.H{
		"current_password": "WrongPass1",
		"email":            "new@example.com",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestDisableEndpointLocksOutProfile(t *testing.T) {
	r, service := newTestRouter(t)

	require.Equal(t, http.StatusCreated, doJSON(t, r, http.MethodPost, "/api/register", "", gin.H{
		"username": "alice", "email": "alice@example.com", "password": "Sup3rSecret",
	}).Code)
	w := doJSON(t, r, http.MethodPost, "/api/login", "", gin.H{"username": "alice", "password": "Sup3rSecret"})
	token := decodeBody(t, w)["data"].(map[string]any)["access_token"].(string)

	id, ok := service.Tokens.DecodeSubject(token)
	require.True(t, ok)

	w = doJSON(t, r, http.MethodPost, "/api/accounts/"+id.String()+"/disable", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, http.StatusForbidden, doJSON(t, r, http.MethodGet, "/api/profile", token, nil).Code)

	w = doJSON(t, r, http.MethodPost, "/api/accounts/"+id.String()+"/enable", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusOK, doJSON(t, r, http.MethodGet, "/api/profile", token, nil).Code)
}

// countingFactory wraps a unit-of-work factory and counts Begin calls.
type countingFactory struct {
	repository.UnitOfWorkFactory
	begins atomic.Int32
}

func (f *countingFactory) Begin(ctx context.Context) (repository.UnitOfWork, error) {
	f.begins.Add(1)
	return f.UnitOfWorkFactory.Begin(ctx)
}

func TestUpdateProfileUsesOneUnitOfWork(t *testing.T) {
	gin.SetMode(gin.TestMode)
	validation.Init()

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	tokens := helpers.NewTokenManager("testsecret", "HS256", 30)
	factory := &countingFactory{UnitOfWorkFactory: inmem.NewStore()}
	service := application.NewService(factory, tokens, nil, logger, nil, "", nil, "")

	account := NewAccountHandler(service, logger)
	auth := NewAuthHandler(service, logger)
	r := gin.New()
	r.POST("/api/register", auth.Register)
	r.POST("/api/login", auth.Login)
	r.PUT("/api/profile", middleware.JWTAuth(tokens), account.UpdateProfile)

	require.Equal(t, http.StatusCreated, doJSON(t, r, http.MethodPost, "/api/register", "", gin.H{
		"username": "alice", "email": "alice@example.com", "password": "Sup3rSecret",
	}).Code)
	w := doJSON(t, r, http.MethodPost, "/api/login", "", gin.H{"username": "alice", "password": "Sup3rSecret"})
	token := decodeBody(t, w)["data"].(map[string]any)["access_token"].(string)

	factory.begins.Store(0)
	w = doJSON(t, r, http.MethodPut, "/api/profile", token, gin.H{
		"current_password": "Sup3rSecret",
		"email":            "new@example.com",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int32(1), factory.begins.Load(), "one inbound update spans one transaction scope")
}

func TestEnableEndpointUnknownAccount(t *testing.T) {
	r, _ := newTestRouter(t)

	require.Equal(t, http.StatusCreated, doJSON(t, r, http.MethodPost, "/api/register", "", gin.H{
		"username": "alice", "email": "alice@example.com", "password": "Sup3rSecret",
	}).Code)
	w := doJSON(t, r, http.MethodPost, "/api/login", "", gin.H{"username": "alice", "password": "Sup3rSecret"})
	token := decodeBody(t, w)["data"].(map[string]any)["access_token"].(string)

	w = doJSON(t, r, http.MethodPost, "/api/accounts/00000000-0000-0000-0000-000000000001/enable", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/accounts/not-a-uuid/enable", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
