// Package auth provides the scoped session-token subsystem: minting and
// verifying short-lived, single-capability HS256 tokens on top of an
// externally-verified identity.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/stepweaver/cashflow-server/internal/errors"
	"github.com/stepweaver/cashflow-server/internal/scope"
)

const (
	tokenIssuer   = "cashflow-server"
	tokenAudience = "cashflow-client"

	// Minted tokens live exactly five minutes. The lifetime is a protocol
	// constant, not a per-call option: each operation is expected to mint
	// its own narrowly-scoped token.
	tokenLifetime = 5 * time.Minute

	// HMAC-SHA-256 signing secret requirements.
	secretBytesSize = 32 // 256 bits
	secretHexSize   = 64 // 32 bytes as hex string
)

// reservedClaims are claim names callers may not override via extra claims.
var reservedClaims = map[string]bool{
	"iss":   true,
	"aud":   true,
	"sub":   true,
	"scope": true,
	"rid":   true,
	"iat":   true,
	"exp":   true,
}

// Claims is the verified content of a scoped token.
//
// Extra carries any additional claims the minting caller attached. They are
// returned for the caller's convenience but are advisory only: nothing in
// this system grants access based on them beyond what Scope already grants.
type Claims struct {
	Subject    string
	Scope      scope.Scope
	ResourceID string
	IssuedAt   time.Time
	ExpiresAt  time.Time
	Extra      map[string]any
}

// TokenService mints and verifies scoped session tokens.
//
// Minting always signs with the current secret. Verification accepts tokens
// signed under the current secret or, when configured, the immediately-prior
// secret, which allows zero-downtime secret rotation.
type TokenService struct {
	current  []byte
	previous []byte // nil when no rotation window is open

	// now is the clock; overridable in tests.
	now func() time.Time
}

// NewTokenService creates a token service with the given signing secrets.
// previous may be nil when no rotation is in progress.
func NewTokenService(current, previous []byte) (*TokenService, error) {
	if len(current) != secretBytesSize {
		return nil, errors.Internalf("signing secret must be exactly %d bytes, got %d", secretBytesSize, len(current))
	}
	if previous != nil && len(previous) != secretBytesSize {
		return nil, errors.Internalf("previous signing secret must be exactly %d bytes, got %d", secretBytesSize, len(previous))
	}

	return &TokenService{
		current:  current,
		previous: previous,
		now:      time.Now,
	}, nil
}

// Lifetime returns the fixed token lifetime.
func (s *TokenService) Lifetime() time.Duration {
	return tokenLifetime
}

// Mint issues a signed token for the given principal carrying exactly one
// scope. resourceID optionally narrows the capability to a single resource.
// extra claims are embedded verbatim (reserved claim names are skipped) and
// round-trip through Verify without being trusted for authorization.
func (s *TokenService) Mint(principal string, sc scope.Scope, resourceID string, extra map[string]any) (string, error) {
	if !sc.IsValid() {
		return "", errors.InvalidScopef("unknown scope %q", sc)
	}

	now := s.now()

	claims := jwt.MapClaims{
		"iss":   tokenIssuer,
		"aud":   tokenAudience,
		"sub":   principal,
		"scope": sc.String(),
		"iat":   jwt.NewNumericDate(now),
		"exp":   jwt.NewNumericDate(now.Add(tokenLifetime)),
	}
	if resourceID != "" {
		claims["rid"] = resourceID
	}
	for k, v := range extra {
		if reservedClaims[k] {
			continue
		}
		claims[k] = v
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.current)
	if err != nil {
		return "", errors.Wrap(err, errors.CodeInternal, "sign token")
	}
	return signed, nil
}

// Verify validates a token and returns its claims. When required is
// non-empty the token's scope must equal it exactly.
//
// Every failure mode (bad signature, expiry, issuer/audience mismatch,
// scope mismatch) collapses to the single opaque ErrInvalidToken so callers
// cannot be used as a validation oracle.
func (s *TokenService) Verify(tokenString string, required scope.Scope) (*Claims, error) {
	parsed, err := s.parse(tokenString, s.current)
	if err != nil {
		// Retry against the previous secret only for signature failures.
		// An expired or malformed token gets no second chance under the
		// old secret.
		if s.previous != nil && errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			parsed, err = s.parse(tokenString, s.previous)
		}
		if err != nil {
			return nil, errors.ErrInvalidToken
		}
	}

	raw, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.ErrInvalidToken
	}

	claims, err := claimsFromMap(raw)
	if err != nil {
		return nil, errors.ErrInvalidToken
	}

	if required != "" && claims.Scope != required {
		return nil, errors.ErrInvalidToken
	}

	return claims, nil
}

// parse runs signature and registered-claim validation against one secret.
func (s *TokenService) parse(tokenString string, secret []byte) (*jwt.Token, error) {
	return jwt.ParseWithClaims(tokenString, jwt.MapClaims{},
		func(_ *jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	)
}

// claimsFromMap extracts the typed claims and collects everything else
// into Extra.
func claimsFromMap(raw jwt.MapClaims) (*Claims, error) {
	sub, ok := raw["sub"].(string)
	if !ok || sub == "" {
		return nil, errors.ErrInvalidToken
	}

	scopeStr, ok := raw["scope"].(string)
	if !ok || !scope.Scope(scopeStr).IsValid() {
		return nil, errors.ErrInvalidToken
	}

	iat, err := raw.GetIssuedAt()
	if err != nil || iat == nil {
		return nil, errors.ErrInvalidToken
	}
	exp, err := raw.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, errors.ErrInvalidToken
	}

	claims := &Claims{
		Subject:   sub,
		Scope:     scope.Scope(scopeStr),
		IssuedAt:  iat.Time,
		ExpiresAt: exp.Time,
	}
	if rid, ok := raw["rid"].(string); ok {
		claims.ResourceID = rid
	}

	for k, v := range raw {
		if reservedClaims[k] {
			continue
		}
		if claims.Extra == nil {
			claims.Extra = make(map[string]any)
		}
		claims.Extra[k] = v
	}

	return claims, nil
}
