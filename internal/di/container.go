// Package di provides dependency injection configuration for the cash flow server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/stepweaver/cashflow-server/internal/auth"
	"github.com/stepweaver/cashflow-server/internal/config"
	"github.com/stepweaver/cashflow-server/internal/di/providers"
	"github.com/stepweaver/cashflow-server/internal/logger"
	"github.com/stepweaver/cashflow-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideSlogLogger)
	do.Provide(injector, providers.ProvideValidator)
	do.Provide(injector, providers.ProvideSigningSecret)

	// Database layer
	do.Provide(injector, providers.ProvideStore)

	// External collaborators
	do.Provide(injector, providers.ProvideIdentityVerifier)
	do.Provide(injector, providers.ProvideEmailSender)

	// Auth layer
	do.Provide(injector, providers.ProvideTokenService)
	do.Provide(injector, providers.ProvideRateLimiter)

	// Business services
	do.Provide(injector, providers.ProvideAuthService)
	do.Provide(injector, providers.ProvideInviteService)
	do.Provide(injector, providers.ProvideUserService)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[providers.SigningSecret](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*auth.TokenService](injector)

	// Business services
	_ = do.MustInvoke[*service.AuthService](injector)
	_ = do.MustInvoke[*service.InviteService](injector)
	_ = do.MustInvoke[*service.UserService](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
