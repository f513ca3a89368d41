package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/accentry/account-service/internal/interface/http"
	"github.com/accentry/account-service/internal/interface/middleware"
	"github.com/accentry/account-service/pkg/helpers"
)

// AuthModule mounts registration, login and email verification routes.
type AuthModule struct {
	Handler *handlers.AuthHandler
	Tokens  *helpers.TokenManager
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	rg.POST("/register", m.Handler.Register)
	rg.POST("/login", m.Handler.Login)

	verify := rg.Group("/auth/verify")
	verify.POST("/confirm", m.Handler.VerifyConfirm)
	verify.POST("/init", middleware.JWTAuth(m.Tokens), m.Handler.VerifyInit)
}
