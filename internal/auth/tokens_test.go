package auth

import (
	"crypto/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stepweaver/cashflow-server/internal/errors"
	"github.com/stepweaver/cashflow-server/internal/scope"
)

func newSecret(t *testing.T) []byte {
	t.Helper()
	secret := make([]byte, secretBytesSize)
	_, err := rand.Read(secret)
	require.NoError(t, err)
	return secret
}

func newTestService(t *testing.T, previous []byte) *TokenService {
	t.Helper()
	svc, err := NewTokenService(newSecret(t), previous)
	require.NoError(t, err)
	return svc
}

func TestNewTokenService_SecretLength(t *testing.T) {
	_, err := NewTokenService(make([]byte, 16), nil)
	assert.Error(t, err)

	_, err = NewTokenService(make([]byte, secretBytesSize), make([]byte, 16))
	assert.Error(t, err)

	_, err = NewTokenService(make([]byte, secretBytesSize), nil)
	assert.NoError(t, err)
}

func TestMint_WireFormat(t *testing.T) {
	svc := newTestService(t, nil)

	token, err := svc.Mint("usr-alice", scope.ReadPersonalData, "", nil)
	require.NoError(t, err)

	// Three base64url parts: header.claims.signature.
	parts := strings.Split(token, ".")
	assert.Len(t, parts, 3)
	for _, p := range parts {
		assert.NotContains(t, p, "+")
		assert.NotContains(t, p, "/")
	}
}

func TestMintVerify_RoundTrip_AllScopes(t *testing.T) {
	svc := newTestService(t, nil)

	for _, sc := range scope.All() {
		token, err := svc.Mint("usr-alice", sc, "", nil)
		require.NoError(t, err, "mint scope %q", sc)

		claims, err := svc.Verify(token, sc)
		require.NoError(t, err, "verify scope %q", sc)
		assert.Equal(t, "usr-alice", claims.Subject)
		assert.Equal(t, sc, claims.Scope)
	}
}

func TestMint_UnknownScope(t *testing.T) {
	svc := newTestService(t, nil)

	for _, sc := range []string{"", "READ_USERS", "Read_Users", "launch_missiles"} {
		_, err := svc.Mint("usr-alice", scope.Scope(sc), "", nil)
		assert.ErrorIs(t, err, errors.ErrInvalidScope, "scope %q", sc)
	}
}

func TestVerify_ScopeMismatch_AllPairs(t *testing.T) {
	svc := newTestService(t, nil)

	all := scope.All()
	for _, minted := range all {
		token, err := svc.Mint("usr-alice", minted, "", nil)
		require.NoError(t, err)

		for _, required := range all {
			claims, err := svc.Verify(token, required)
			if minted == required {
				require.NoError(t, err)
				assert.Equal(t, minted, claims.Scope)
				continue
			}
			// Mismatch is indistinguishable from any other failure.
			assert.ErrorIs(t, err, errors.ErrInvalidToken, "minted %q required %q", minted, required)
		}
	}
}

func TestVerify_NoRequiredScope(t *testing.T) {
	svc := newTestService(t, nil)

	token, err := svc.Mint("usr-alice", scope.WriteUsers, "", nil)
	require.NoError(t, err)

	claims, err := svc.Verify(token, "")
	require.NoError(t, err)
	assert.Equal(t, scope.WriteUsers, claims.Scope)
}

func TestVerify_ExpiryBoundary(t *testing.T) {
	svc := newTestService(t, nil)

	minted := time.Now()
	svc.now = func() time.Time { return minted }

	token, err := svc.Mint("usr-alice", scope.ReadUsers, "", nil)
	require.NoError(t, err)

	expiry := minted.Add(tokenLifetime)

	// One second before expiry the token verifies.
	svc.now = func() time.Time { return expiry.Add(-time.Second) }
	_, err = svc.Verify(token, scope.ReadUsers)
	require.NoError(t, err)

	// Exactly at expiry it must fail.
	svc.now = func() time.Time { return expiry }
	_, err = svc.Verify(token, scope.ReadUsers)
	assert.ErrorIs(t, err, errors.ErrInvalidToken)

	// And obviously after.
	svc.now = func() time.Time { return expiry.Add(time.Minute) }
	_, err = svc.Verify(token, scope.ReadUsers)
	assert.ErrorIs(t, err, errors.ErrInvalidToken)
}

func TestVerify_SecretRotation(t *testing.T) {
	oldSecret := newSecret(t)

	oldSvc, err := NewTokenService(oldSecret, nil)
	require.NoError(t, err)

	token, err := oldSvc.Mint("usr-alice", scope.ReadUsers, "", nil)
	require.NoError(t, err)

	// Rotated service: new current secret, old secret kept as previous.
	rotated, err := NewTokenService(newSecret(t), oldSecret)
	require.NoError(t, err)

	claims, err := rotated.Verify(token, scope.ReadUsers)
	require.NoError(t, err)
	assert.Equal(t, "usr-alice", claims.Subject)

	// New tokens mint under the current secret only: the old service
	// no longer accepts them.
	freshToken, err := rotated.Mint("usr-bob", scope.ReadUsers, "", nil)
	require.NoError(t, err)
	_, err = oldSvc.Verify(freshToken, scope.ReadUsers)
	assert.ErrorIs(t, err, errors.ErrInvalidToken)

	// Once the previous secret is dropped, old tokens fail.
	final, err := NewTokenService(rotated.current, nil)
	require.NoError(t, err)
	_, err = final.Verify(token, scope.ReadUsers)
	assert.ErrorIs(t, err, errors.ErrInvalidToken)
}

func TestVerify_RotationDoesNotReviveExpiredTokens(t *testing.T) {
	oldSecret := newSecret(t)

	oldSvc, err := NewTokenService(oldSecret, nil)
	require.NoError(t, err)

	minted := time.Now().Add(-time.Hour)
	oldSvc.now = func() time.Time { return minted }

	token, err := oldSvc.Mint("usr-alice", scope.ReadUsers, "", nil)
	require.NoError(t, err)

	rotated, err := NewTokenService(newSecret(t), oldSecret)
	require.NoError(t, err)

	_, err = rotated.Verify(token, scope.ReadUsers)
	assert.ErrorIs(t, err, errors.ErrInvalidToken)
}

func TestVerify_TamperedToken(t *testing.T) {
	svc := newTestService(t, nil)

	token, err := svc.Mint("usr-alice", scope.ReadUsers, "", nil)
	require.NoError(t, err)

	// Flip a character in the signature segment.
	tampered := token[:len(token)-2] + "xx"
	_, err = svc.Verify(tampered, scope.ReadUsers)
	assert.ErrorIs(t, err, errors.ErrInvalidToken)

	// Garbage input.
	_, err = svc.Verify("not.a.token", scope.ReadUsers)
	assert.ErrorIs(t, err, errors.ErrInvalidToken)
	_, err = svc.Verify("", scope.ReadUsers)
	assert.ErrorIs(t, err, errors.ErrInvalidToken)
}

func TestMintVerify_ResourceID(t *testing.T) {
	svc := newTestService(t, nil)

	token, err := svc.Mint("usr-alice", scope.WriteBusinessTransactions, "biz-42", nil)
	require.NoError(t, err)

	claims, err := svc.Verify(token, scope.WriteBusinessTransactions)
	require.NoError(t, err)
	assert.Equal(t, "biz-42", claims.ResourceID)

	// Absent resource ID stays absent.
	token, err = svc.Mint("usr-alice", scope.WriteBusinessTransactions, "", nil)
	require.NoError(t, err)
	claims, err = svc.Verify(token, scope.WriteBusinessTransactions)
	require.NoError(t, err)
	assert.Empty(t, claims.ResourceID)
}

func TestMintVerify_ExtraClaims(t *testing.T) {
	svc := newTestService(t, nil)

	token, err := svc.Mint("usr-alice", scope.AdminAccess, "", map[string]any{
		"is_admin": true,
		"theme":    "dark",
		// Reserved names must not override the signed claims.
		"sub":   "usr-mallory",
		"scope": "write_users",
		"exp":   0,
	})
	require.NoError(t, err)

	claims, err := svc.Verify(token, scope.AdminAccess)
	require.NoError(t, err)

	assert.Equal(t, "usr-alice", claims.Subject)
	assert.Equal(t, scope.AdminAccess, claims.Scope)
	assert.Equal(t, true, claims.Extra["is_admin"])
	assert.Equal(t, "dark", claims.Extra["theme"])
	assert.NotContains(t, claims.Extra, "sub")
	assert.NotContains(t, claims.Extra, "scope")
}

func TestLifetime(t *testing.T) {
	svc := newTestService(t, nil)
	assert.Equal(t, 5*time.Minute, svc.Lifetime())
}
