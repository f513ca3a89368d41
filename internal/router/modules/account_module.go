package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/accentry/account-service/internal/interface/http"
	"github.com/accentry/account-service/internal/interface/middleware"
	"github.com/accentry/account-service/pkg/helpers"
)

// AccountModule mounts profile and account administration routes.
type AccountModule struct {
	Handler *handlers.AccountHandler
	Tokens  *helpers.TokenManager
}

func (m *AccountModule) Register(rg *gin.RouterGroup) {
	profile := rg.Group("/profile", middleware.JWTAuth(m.Tokens))
	profile.GET("", m.Handler.GetProfile)
	profile.PUT("", m.Handler.UpdateProfile)

	accounts := rg.Group("/accounts", middleware.JWTAuth(m.Tokens))
	accounts.GET("/search", m.Handler.Search)
	accounts.POST("/:id/enable", m.Handler.Enable)
	accounts.POST("/:id/disable", m.Handler.Disable)
}
