package service

import (
	"context"
	"log/slog"

	"github.com/stepweaver/cashflow-server/internal/auth"
	domainerrors "github.com/stepweaver/cashflow-server/internal/errors"
	"github.com/stepweaver/cashflow-server/internal/identity"
	"github.com/stepweaver/cashflow-server/internal/scope"
	"github.com/stepweaver/cashflow-server/internal/validation"
)

// AuthService exchanges identity assertions for scoped access tokens.
type AuthService struct {
	tokens   *auth.TokenService
	verifier identity.Verifier
	validate *validation.Validator
	logger   *slog.Logger
}

// NewAuthService creates a new auth service.
func NewAuthService(
	tokens *auth.TokenService,
	verifier identity.Verifier,
	validate *validation.Validator,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		tokens:   tokens,
		verifier: verifier,
		validate: validate,
		logger:   logger,
	}
}

// MintTokenRequest asks for a single-scope access token.
type MintTokenRequest struct {
	Assertion  string         `json:"assertion" validate:"required"`
	Scope      string         `json:"scope" validate:"required"`
	ResourceID string         `json:"resource_id"`
	Claims     map[string]any `json:"claims"`
}

// TokenResponse carries a freshly minted token.
type TokenResponse struct {
	Token      string `json:"token"`
	ExpiresIn  int64  `json:"expires_in"`
	Scope      string `json:"scope"`
	ResourceID string `json:"resource_id,omitempty"`
}

// MintToken verifies the caller's identity assertion and mints a token
// carrying exactly the requested scope.
func (s *AuthService) MintToken(ctx context.Context, req MintTokenRequest) (*TokenResponse, error) {
	if err := s.validate.Validate(req); err != nil {
		return nil, err
	}

	principal, err := s.verifier.VerifyAssertion(ctx, req.Assertion)
	if err != nil {
		if domainerrors.Is(err, domainerrors.AuthenticationFailed("")) {
			return nil, err
		}
		if s.logger != nil {
			s.logger.Error("Identity verification failed",
				"error", err,
			)
		}
		return nil, domainerrors.AuthenticationFailed("authentication failed")
	}

	requested := scope.Scope(req.Scope)
	token, err := s.tokens.Mint(principal.ID, requested, req.ResourceID, req.Claims)
	if err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("Token minted",
			"principal", principal.ID,
			"scope", requested,
			"resource_id", req.ResourceID,
		)
	}

	return &TokenResponse{
		Token:      token,
		ExpiresIn:  int64(s.tokens.Lifetime().Seconds()),
		Scope:      string(requested),
		ResourceID: req.ResourceID,
	}, nil
}

// VerifyToken checks a presented token against a required scope.
// Guards use this; every failure surfaces as the same opaque error.
func (s *AuthService) VerifyToken(tokenString string, required scope.Scope) (*auth.Claims, error) {
	return s.tokens.Verify(tokenString, required)
}
