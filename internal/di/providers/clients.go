package providers

import (
	"github.com/samber/do/v2"

	"github.com/stepweaver/cashflow-server/internal/config"
	"github.com/stepweaver/cashflow-server/internal/email"
	"github.com/stepweaver/cashflow-server/internal/identity"
	"github.com/stepweaver/cashflow-server/internal/logger"
)

// ProvideIdentityVerifier provides the identity assertion verifier.
// Without a configured endpoint the static development verifier is
// used; config validation forbids that in production.
func ProvideIdentityVerifier(i do.Injector) (identity.Verifier, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Identity.Endpoint == "" {
		log.Warn("No identity endpoint configured, using static development verifier")
		return &identity.StaticVerifier{
			Principals: map[string]identity.Principal{
				"dev-assertion": {ID: "usr-dev", Email: "dev@localhost", EmailVerified: true},
			},
		}, nil
	}

	log.Info("Identity provider configured", "endpoint", cfg.Identity.Endpoint)
	return identity.NewClient(cfg.Identity.Endpoint, cfg.Identity.Timeout, log.Logger), nil
}

// ProvideEmailSender provides the outbound email sender.
// Without a configured endpoint messages are captured in memory, which
// keeps local development working while sending nothing.
func ProvideEmailSender(i do.Injector) (email.Sender, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Email.Endpoint == "" {
		log.Warn("No email endpoint configured, invitation emails will not be delivered")
		return &email.CaptureSender{}, nil
	}

	log.Info("Email provider configured", "endpoint", cfg.Email.Endpoint)
	return email.NewAPISender(cfg.Email.Endpoint, cfg.Email.APIKey, cfg.Email.From, cfg.Email.Timeout, log.Logger), nil
}
