package identity

import (
	"context"
	"encoding/json/v2"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/stepweaver/cashflow-server/internal/errors"
)

func TestClientVerifyAssertion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Header.Get("Authorization") {
		case "Bearer good-assertion":
			w.Header().Set("Content-Type", "application/json")
			_ = json.MarshalWrite(w, Principal{
				ID:            "principal-1",
				Email:         "owner@example.com",
				EmailVerified: true,
			})
		case "Bearer empty-principal":
			w.Header().Set("Content-Type", "application/json")
			_ = json.MarshalWrite(w, Principal{})
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second, nil)

	t.Run("valid assertion resolves principal", func(t *testing.T) {
		p, err := client.VerifyAssertion(context.Background(), "good-assertion")
		require.NoError(t, err)
		assert.Equal(t, "principal-1", p.ID)
		assert.Equal(t, "owner@example.com", p.Email)
		assert.True(t, p.EmailVerified)
	})

	t.Run("rejected assertion fails authentication", func(t *testing.T) {
		_, err := client.VerifyAssertion(context.Background(), "bad-assertion")
		require.Error(t, err)

		var domainErr *domainerrors.Error
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, domainerrors.CodeAuthenticationFailed, domainErr.Code)
	})

	t.Run("empty assertion fails without a request", func(t *testing.T) {
		_, err := client.VerifyAssertion(context.Background(), "")
		require.Error(t, err)

		var domainErr *domainerrors.Error
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, domainerrors.CodeAuthenticationFailed, domainErr.Code)
	})

	t.Run("response without a principal id is rejected", func(t *testing.T) {
		_, err := client.VerifyAssertion(context.Background(), "empty-principal")
		require.Error(t, err)

		var domainErr *domainerrors.Error
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, domainerrors.CodeAuthenticationFailed, domainErr.Code)
	})
}

func TestClientProviderOutage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second, nil)

	_, err := client.VerifyAssertion(context.Background(), "good-assertion")
	require.Error(t, err)

	var domainErr *domainerrors.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domainerrors.CodeInternal, domainErr.Code)
}

func TestStaticVerifier(t *testing.T) {
	verifier := &StaticVerifier{
		Principals: map[string]Principal{
			"dev-token": {ID: "dev-user", Email: "dev@example.com", EmailVerified: true},
		},
	}

	p, err := verifier.VerifyAssertion(context.Background(), "dev-token")
	require.NoError(t, err)
	assert.Equal(t, "dev-user", p.ID)

	_, err = verifier.VerifyAssertion(context.Background(), "unknown")
	require.Error(t, err)
}
