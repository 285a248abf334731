package identity

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/stepweaver/cashflow-server/internal/errors"
)

const defaultTimeout = 10 * time.Second

// Client verifies identity assertions against the provider's userinfo
// endpoint. The assertion is presented as a bearer credential; a 2xx
// response with a principal id means the assertion is live.
type Client struct {
	endpoint string
	http     *http.Client
	logger   *slog.Logger
}

// NewClient creates a userinfo-endpoint verifier.
func NewClient(endpoint string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		endpoint: endpoint,
		http: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// VerifyAssertion implements Verifier.
func (c *Client) VerifyAssertion(ctx context.Context, assertion string) (*Principal, error) {
	if assertion == "" {
		return nil, errors.AuthenticationFailed("missing identity assertion")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create userinfo request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+assertion)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute userinfo request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// Fall through to decode.
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, errors.AuthenticationFailed("identity assertion rejected")
	default:
		if c.logger != nil {
			c.logger.Warn("Identity provider returned unexpected status",
				"status", resp.StatusCode,
			)
		}
		return nil, errors.Internalf("identity provider returned status %d", resp.StatusCode)
	}

	var principal Principal
	if err := json.UnmarshalRead(resp.Body, &principal); err != nil {
		return nil, fmt.Errorf("decode userinfo response: %w", err)
	}
	if principal.ID == "" {
		return nil, errors.AuthenticationFailed("identity assertion rejected")
	}

	return &principal, nil
}

// StaticVerifier resolves assertions from a fixed map.
// For development and tests only.
type StaticVerifier struct {
	Principals map[string]Principal
}

// VerifyAssertion implements Verifier.
func (v *StaticVerifier) VerifyAssertion(_ context.Context, assertion string) (*Principal, error) {
	p, ok := v.Principals[assertion]
	if !ok {
		return nil, errors.AuthenticationFailed("identity assertion rejected")
	}
	return &p, nil
}
