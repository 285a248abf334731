package providers

import (
	"github.com/samber/do/v2"

	"github.com/stepweaver/cashflow-server/internal/auth"
	"github.com/stepweaver/cashflow-server/internal/config"
	"github.com/stepweaver/cashflow-server/internal/email"
	"github.com/stepweaver/cashflow-server/internal/identity"
	"github.com/stepweaver/cashflow-server/internal/logger"
	"github.com/stepweaver/cashflow-server/internal/ratelimit"
	"github.com/stepweaver/cashflow-server/internal/service"
	"github.com/stepweaver/cashflow-server/internal/validation"
)

// ProvideAuthService provides the token minting service.
func ProvideAuthService(i do.Injector) (*service.AuthService, error) {
	tokens := do.MustInvoke[*auth.TokenService](i)
	verifier := do.MustInvoke[identity.Verifier](i)
	validate := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAuthService(tokens, verifier, validate, log.Logger), nil
}

// ProvideInviteService provides the invitation lifecycle service.
func ProvideInviteService(i do.Injector) (*service.InviteService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sender := do.MustInvoke[email.Sender](i)
	validate := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewInviteService(
		storeHandle.Store,
		sender,
		validate,
		log.Logger,
		cfg.Server.BaseURL,
		cfg.InviteExpiry(),
	), nil
}

// ProvideUserService provides the account administration service.
func ProvideUserService(i do.Injector) (*service.UserService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewUserService(storeHandle.Store, log.Logger), nil
}

// ProvideRateLimiter provides the per-client limiter for the public
// endpoints. It is injected into the server rather than shared as a
// package global so tests and future endpoints can carry their own.
func ProvideRateLimiter(i do.Injector) (*ratelimit.KeyedRateLimiter, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst), nil
}
