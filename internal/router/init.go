package router

import (
	"github.com/accentry/account-service/internal/application"
	"github.com/accentry/account-service/internal/container"
	handlers "github.com/accentry/account-service/internal/interface/http"
	"github.com/accentry/account-service/internal/router/modules"
)

type AccountModuleDeps struct {
	Service *application.Service
	Auth    *handlers.AuthHandler
	Account *handlers.AccountHandler
}

func buildAccountDeps() AccountModuleDeps {
	cfg := container.GetConfig()

	service := application.NewService(
		container.GetUnitOfWork(),
		container.GetTokens(),
		container.GetRedis(),
		container.GetLogger(),
		container.GetES(),
		cfg.ESAccountIndex,
		container.GetRabbitPub(),
		cfg.VerifyEmailURL,
	)

	return AccountModuleDeps{
		Service: service,
		Auth:    handlers.NewAuthHandler(service, container.GetLogger()),
		Account: handlers.NewAccountHandler(service, container.GetLogger()),
	}
}

// InitModules initializes all application modules and registers them with the router registry
// This function should be called once during application startup to wire up all modules
func InitModules(r *Registry) {
	deps := buildAccountDeps()
	r.Add(&modules.AuthModule{Handler: deps.Auth, Tokens: container.GetTokens()})
	r.Add(&modules.AccountModule{Handler: deps.Account, Tokens: container.GetTokens()})
}
