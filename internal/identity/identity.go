// Package identity defines the boundary to the external identity provider.
// The core never interprets identity assertions itself; it hands them to a
// Verifier and receives a principal back.
package identity

import "context"

// Principal is the identity-provider-verified subject of an assertion.
type Principal struct {
	ID            string `json:"principal_id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
}

// Verifier validates an externally-issued identity assertion.
// Implementations must return a typed AuthenticationFailed domain error for
// invalid or expired assertions.
type Verifier interface {
	VerifyAssertion(ctx context.Context, assertion string) (*Principal, error)
}
