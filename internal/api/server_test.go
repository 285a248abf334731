package api

import (
	"bytes"
	"crypto/rand"
	"encoding/json/jsontext"
	"encoding/json/v2"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stepweaver/cashflow-server/internal/auth"
	"github.com/stepweaver/cashflow-server/internal/email"
	"github.com/stepweaver/cashflow-server/internal/identity"
	"github.com/stepweaver/cashflow-server/internal/ratelimit"
	"github.com/stepweaver/cashflow-server/internal/scope"
	"github.com/stepweaver/cashflow-server/internal/service"
	"github.com/stepweaver/cashflow-server/internal/store"
	"github.com/stepweaver/cashflow-server/internal/validation"
)

type testEnv struct {
	server *Server
	tokens *auth.TokenService
	sender *email.CaptureSender
	store  *store.Store
}

func setupServer(t *testing.T) *testEnv {
	t.Helper()

	st, err := store.New(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = st.Close()
	})

	secret := make([]byte, 32)
	_, err = rand.Read(secret)
	require.NoError(t, err)

	tokens, err := auth.NewTokenService(secret, nil)
	require.NoError(t, err)

	verifier := &identity.StaticVerifier{
		Principals: map[string]identity.Principal{
			"admin-assertion": {ID: "usr-admin", Email: "admin@example.com", EmailVerified: true},
		},
	}

	validate := validation.New()
	sender := &email.CaptureSender{}

	authService := service.NewAuthService(tokens, verifier, validate, nil)
	inviteService := service.NewInviteService(st, sender, validate, nil, "https://cash.example.com", 0)
	userService := service.NewUserService(st, nil)

	// Generous limits so only the dedicated test trips them.
	limiter := ratelimit.New(1000, 1000)

	server := NewServer(st, authService, inviteService, userService, limiter, nil, nil)

	return &testEnv{
		server: server,
		tokens: tokens,
		sender: sender,
		store:  st,
	}
}

type envelope struct {
	Data    jsontext.Value `json:"data"`
	Error   string         `json:"error"`
	Code    string         `json:"code"`
	Success bool           `json:"success"`
}

// doJSON performs a request against the test server and decodes the
// response envelope.
func (e *testEnv) doJSON(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec.Code, env
}

// mintToken mints a token for the admin principal with the given scope.
func (e *testEnv) mintToken(t *testing.T, sc scope.Scope) string {
	t.Helper()

	token, err := e.tokens.Mint("usr-admin", sc, "", nil)
	require.NoError(t, err)
	return token
}

func TestHealthCheck(t *testing.T) {
	env := setupServer(t)

	status, resp := env.doJSON(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, resp.Success)

	var health HealthResponse
	require.NoError(t, json.Unmarshal(resp.Data, &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "healthy", health.Components["database"].Status)
}

func TestMintTokenEndpoint(t *testing.T) {
	env := setupServer(t)

	t.Run("valid assertion mints a token", func(t *testing.T) {
		status, resp := env.doJSON(t, http.MethodPost, "/api/v1/tokens", "", service.MintTokenRequest{
			Assertion: "admin-assertion",
			Scope:     string(scope.WriteUsers),
		})
		require.Equal(t, http.StatusOK, status)

		var tokenResp service.TokenResponse
		require.NoError(t, json.Unmarshal(resp.Data, &tokenResp))
		assert.NotEmpty(t, tokenResp.Token)
		assert.Equal(t, int64(300), tokenResp.ExpiresIn)
		assert.Equal(t, string(scope.WriteUsers), tokenResp.Scope)
	})

	t.Run("bad assertion gets 401", func(t *testing.T) {
		status, resp := env.doJSON(t, http.MethodPost, "/api/v1/tokens", "", service.MintTokenRequest{
			Assertion: "forged",
			Scope:     string(scope.WriteUsers),
		})
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, "AUTHENTICATION_FAILED", resp.Code)
	})

	t.Run("unknown scope gets 400", func(t *testing.T) {
		status, resp := env.doJSON(t, http.MethodPost, "/api/v1/tokens", "", service.MintTokenRequest{
			Assertion: "admin-assertion",
			Scope:     "read_everything",
		})
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "INVALID_SCOPE", resp.Code)
	})

	t.Run("malformed body gets 400", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/tokens", bytes.NewReader([]byte("{not json")))
		rec := httptest.NewRecorder()
		env.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestScopeGuard(t *testing.T) {
	env := setupServer(t)

	t.Run("missing header", func(t *testing.T) {
		status, resp := env.doJSON(t, http.MethodGet, "/api/v1/invitations/", "", nil)
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, "Missing authorization header", resp.Error)
	})

	t.Run("malformed header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/invitations/", nil)
		req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		rec := httptest.NewRecorder()
		env.server.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "Invalid authorization header format")
	})

	t.Run("garbage token is opaque", func(t *testing.T) {
		status, resp := env.doJSON(t, http.MethodGet, "/api/v1/invitations/", "not.a.token", nil)
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, "invalid or expired token", resp.Error)
	})

	t.Run("wrong scope is opaque", func(t *testing.T) {
		token := env.mintToken(t, scope.ReadPersonalData)
		status, resp := env.doJSON(t, http.MethodGet, "/api/v1/invitations/", token, nil)
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, "invalid or expired token", resp.Error)
	})

	t.Run("read scope cannot write", func(t *testing.T) {
		token := env.mintToken(t, scope.ReadUsers)
		status, resp := env.doJSON(t, http.MethodPost, "/api/v1/invitations/", token, service.CreateInvitationRequest{
			Email: "new@example.com",
		})
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, "invalid or expired token", resp.Error)
	})
}

func TestInvitationLifecycleOverHTTP(t *testing.T) {
	env := setupServer(t)

	writeToken := env.mintToken(t, scope.WriteUsers)
	readToken := env.mintToken(t, scope.ReadUsers)

	// Create.
	status, resp := env.doJSON(t, http.MethodPost, "/api/v1/invitations/", writeToken, service.CreateInvitationRequest{
		Email:       "new@example.com",
		DisplayName: "Jordan",
	})
	require.Equal(t, http.StatusCreated, status)

	var created service.InvitationView
	require.NoError(t, json.Unmarshal(resp.Data, &created))
	assert.Equal(t, "new@example.com", created.Email)

	// The raw token never appears in admin responses; it travels by email.
	assert.NotContains(t, string(resp.Data), `"token"`)
	require.Len(t, env.sender.Captured(), 1)
	rawToken := tokenFromMessage(t, env.sender.Captured()[0])

	// Duplicate create conflicts.
	status, resp = env.doJSON(t, http.MethodPost, "/api/v1/invitations/", writeToken, service.CreateInvitationRequest{
		Email: "NEW@example.com",
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "DUPLICATE_INVITATION", resp.Code)

	// List with read scope.
	status, resp = env.doJSON(t, http.MethodGet, "/api/v1/invitations/", readToken, nil)
	require.Equal(t, http.StatusOK, status)

	var views []service.InvitationView
	require.NoError(t, json.Unmarshal(resp.Data, &views))
	require.Len(t, views, 1)
	assert.Equal(t, created.ID, views[0].ID)

	// Public details by token.
	status, resp = env.doJSON(t, http.MethodGet, "/api/v1/invitations/token/"+rawToken, "", nil)
	require.Equal(t, http.StatusOK, status)

	var details service.InvitationDetails
	require.NoError(t, json.Unmarshal(resp.Data, &details))
	assert.True(t, details.Valid)

	// Unknown tokens are indistinguishable from invalid ones.
	status, resp = env.doJSON(t, http.MethodGet, "/api/v1/invitations/token/no-such-token", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "INVALID_TOKEN", resp.Code)

	// Accept.
	status, resp = env.doJSON(t, http.MethodPost, "/api/v1/invitations/accept", "", service.AcceptInvitationRequest{
		Token:    rawToken,
		Password: "correct-horse-battery",
	})
	require.Equal(t, http.StatusCreated, status)
	assert.NotContains(t, string(resp.Data), "password_hash")

	// Second accept conflicts.
	status, resp = env.doJSON(t, http.MethodPost, "/api/v1/invitations/accept", "", service.AcceptInvitationRequest{
		Token:    rawToken,
		Password: "another-password-1",
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "ALREADY_USED", resp.Code)

	// Resend after accept conflicts.
	status, resp = env.doJSON(t, http.MethodPost, "/api/v1/invitations/"+created.ID+"/resend", writeToken, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "NOT_PENDING", resp.Code)

	// The accepted account shows up in the user list.
	status, resp = env.doJSON(t, http.MethodGet, "/api/v1/users/", readToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(resp.Data), "new@example.com")
}

func TestCancelInvitationOverHTTP(t *testing.T) {
	env := setupServer(t)
	writeToken := env.mintToken(t, scope.WriteUsers)

	status, resp := env.doJSON(t, http.MethodPost, "/api/v1/invitations/", writeToken, service.CreateInvitationRequest{
		Email: "cancel@example.com",
	})
	require.Equal(t, http.StatusCreated, status)

	var created service.InvitationView
	require.NoError(t, json.Unmarshal(resp.Data, &created))

	status, _ = env.doJSON(t, http.MethodDelete, "/api/v1/invitations/"+created.ID, writeToken, nil)
	assert.Equal(t, http.StatusOK, status)

	status, resp = env.doJSON(t, http.MethodDelete, "/api/v1/invitations/"+created.ID, writeToken, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "NOT_PENDING", resp.Code)

	status, resp = env.doJSON(t, http.MethodDelete, "/api/v1/invitations/inv-missing", writeToken, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", resp.Code)
}

func TestDeactivateUserRequiresAdmin(t *testing.T) {
	env := setupServer(t)

	writeToken := env.mintToken(t, scope.WriteUsers)
	adminToken := env.mintToken(t, scope.AdminAccess)

	// A write_users token cannot deactivate accounts.
	status, resp := env.doJSON(t, http.MethodDelete, "/api/v1/users/usr-whoever", writeToken, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "invalid or expired token", resp.Error)

	// Admin scope reaches the handler.
	status, resp = env.doJSON(t, http.MethodDelete, "/api/v1/users/usr-missing", adminToken, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", resp.Code)
}

func TestTokenEndpointRateLimit(t *testing.T) {
	env := setupServer(t)

	// Swap in a tight limiter: 1 rps, burst of 2.
	env.server.tokenLimiter = ratelimit.New(1, 2)

	var last int
	for range 3 {
		last, _ = env.doJSON(t, http.MethodPost, "/api/v1/tokens", "", service.MintTokenRequest{
			Assertion: "admin-assertion",
			Scope:     string(scope.ReadUsers),
		})
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}

func TestMutatingRoutesAreRateLimited(t *testing.T) {
	env := setupServer(t)

	writeToken := env.mintToken(t, scope.WriteUsers)
	adminToken := env.mintToken(t, scope.AdminAccess)

	// Every state-mutating route sits behind the limiter.
	env.server.tokenLimiter = ratelimit.New(0, 0)

	requests := []struct {
		method string
		path   string
		token  string
	}{
		{http.MethodPost, "/api/v1/invitations", writeToken},
		{http.MethodDelete, "/api/v1/invitations/inv-whatever", writeToken},
		{http.MethodPost, "/api/v1/invitations/inv-whatever/resend", writeToken},
		{http.MethodPost, "/api/v1/invitations/accept", ""},
		{http.MethodDelete, "/api/v1/users/usr-whatever", adminToken},
	}
	for _, req := range requests {
		status, resp := env.doJSON(t, req.method, req.path, req.token, nil)
		assert.Equal(t, http.StatusTooManyRequests, status, "%s %s", req.method, req.path)
		assert.Equal(t, "RATE_LIMITED", resp.Code, "%s %s", req.method, req.path)
	}
}

// tokenFromMessage extracts the raw invitation token from the accept
// link in a captured email.
func tokenFromMessage(t *testing.T, msg email.Message) string {
	t.Helper()

	marker := "/accept-invitation?token="
	idx := bytes.Index([]byte(msg.HTML), []byte(marker))
	require.GreaterOrEqual(t, idx, 0, "accept link missing from email")

	rest := msg.HTML[idx+len(marker):]
	for i := 0; i < len(rest); i++ {
		if rest[i] == '"' {
			return rest[:i]
		}
	}
	t.Fatal("unterminated accept link")
	return ""
}
