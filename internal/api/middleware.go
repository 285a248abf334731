package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/stepweaver/cashflow-server/internal/auth"
	"github.com/stepweaver/cashflow-server/internal/http/response"
	"github.com/stepweaver/cashflow-server/internal/scope"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const contextKeyClaims contextKey = "claims"

// requireScope returns middleware that validates the bearer token and
// requires it to carry exactly the given scope. Token verification
// failures are reported with a single opaque message so callers cannot
// distinguish a bad signature from a stale or mis-scoped token.
func (s *Server) requireScope(required scope.Scope) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				response.Unauthorized(w, "Missing authorization header", s.logger)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				response.Unauthorized(w, "Invalid authorization header format", s.logger)
				return
			}

			claims, err := s.authService.VerifyToken(parts[1], required)
			if err != nil {
				response.Unauthorized(w, "invalid or expired token", s.logger)
				return
			}

			ctx := context.WithValue(r.Context(), contextKeyClaims, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// getClaims extracts the verified token claims from request context.
// Returns nil outside a requireScope-guarded route.
func getClaims(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(contextKeyClaims).(*auth.Claims)
	return claims
}

// rateLimitByIP throttles a route per client IP.
// Returns 429 Too Many Requests when the limit is exceeded.
func (s *Server) rateLimitByIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := getClientIP(r)

		if !s.tokenLimiter.Allow(key) {
			if s.logger != nil {
				s.logger.Warn("Rate limit exceeded",
					"ip", key,
					"path", r.URL.Path,
				)
			}
			response.TooManyRequests(w, "Too many requests. Please try again later.", s.logger)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// getClientIP extracts the client IP from the request.
// Checks X-Forwarded-For and X-Real-IP headers before falling back to RemoteAddr.
func getClientIP(r *http.Request) string {
	// Check X-Forwarded-For (may contain multiple IPs, first is client).
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// Take first IP in the chain.
		for i := 0; i < len(xff); i++ {
			if xff[i] == ',' {
				return xff[:i]
			}
		}
		return xff
	}

	// Check X-Real-IP.
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	// Fall back to RemoteAddr (strip port).
	ip := r.RemoteAddr
	for i := len(ip) - 1; i >= 0; i-- {
		if ip[i] == ':' {
			return ip[:i]
		}
	}
	return ip
}
