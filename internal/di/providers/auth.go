package providers

import (
	"github.com/samber/do/v2"

	"github.com/stepweaver/cashflow-server/internal/auth"
	"github.com/stepweaver/cashflow-server/internal/config"
	"github.com/stepweaver/cashflow-server/internal/logger"
)

// SigningSecret wraps the token signing secret bytes.
type SigningSecret []byte

// ProvideSigningSecret loads or generates the signing secret.
func ProvideSigningSecret(i do.Injector) (SigningSecret, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	secret, err := auth.LoadOrGenerateSecret(cfg.Data.BasePath)
	if err != nil {
		return nil, err
	}

	// Update config with the loaded secret
	cfg.Auth.SigningSecret = secret

	log.Info("Token signing secret loaded")

	return SigningSecret(secret), nil
}

// ProvideTokenService provides the token codec.
// When a previous secret is configured, tokens it signed stay valid
// until they expire.
func ProvideTokenService(i do.Injector) (*auth.TokenService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	secret := do.MustInvoke[SigningSecret](i)

	var previous []byte
	if cfg.Auth.PreviousSecretHex != "" {
		decoded, err := auth.DecodeSecret(cfg.Auth.PreviousSecretHex)
		if err != nil {
			return nil, err
		}
		previous = decoded
	}

	return auth.NewTokenService([]byte(secret), previous)
}
