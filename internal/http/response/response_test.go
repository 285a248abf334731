package response

import (
	"encoding/json/v2"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/stepweaver/cashflow-server/internal/errors"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestSuccess(t *testing.T) {
	rec := httptest.NewRecorder()
	Success(rec, map[string]string{"status": "healthy"}, nil)

	assert.Equal(t, 200, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))

	env := decode(t, rec)
	assert.True(t, env.Success)
	assert.Empty(t, env.Error)
}

func TestHandleError_DomainError(t *testing.T) {
	rec := httptest.NewRecorder()
	HandleError(rec, domainerrors.ErrDuplicateInvitation, nil)

	assert.Equal(t, 409, rec.Code)
	env := decode(t, rec)
	assert.False(t, env.Success)
	assert.Equal(t, "invitation already pending", env.Error)
	assert.Equal(t, "DUPLICATE_INVITATION", env.Code)
}

func TestHandleError_WrappedDomainError(t *testing.T) {
	rec := httptest.NewRecorder()
	wrapped := domainerrors.ErrExpired.WithCause(errors.New("lookup detail"))
	HandleError(rec, wrapped, nil)

	assert.Equal(t, 410, rec.Code)
	env := decode(t, rec)
	// The cause never reaches the response body.
	assert.Equal(t, "invitation has expired", env.Error)
	assert.NotContains(t, rec.Body.String(), "lookup detail")
}

func TestHandleError_UnknownError(t *testing.T) {
	rec := httptest.NewRecorder()
	HandleError(rec, errors.New("badger: value log corrupted"), nil)

	assert.Equal(t, 500, rec.Code)
	env := decode(t, rec)
	assert.Equal(t, "internal server error", env.Error)
	assert.NotContains(t, rec.Body.String(), "badger")
}

func TestErrorStatusHelpers(t *testing.T) {
	tests := []struct {
		name string
		fn   func(*httptest.ResponseRecorder)
		want int
	}{
		{"bad request", func(r *httptest.ResponseRecorder) { BadRequest(r, "m", nil) }, 400},
		{"unauthorized", func(r *httptest.ResponseRecorder) { Unauthorized(r, "m", nil) }, 401},
		{"forbidden", func(r *httptest.ResponseRecorder) { Forbidden(r, "m", nil) }, 403},
		{"not found", func(r *httptest.ResponseRecorder) { NotFound(r, "m", nil) }, 404},
		{"too many requests", func(r *httptest.ResponseRecorder) { TooManyRequests(r, "m", nil) }, 429},
		{"internal", func(r *httptest.ResponseRecorder) { InternalError(r, "m", nil) }, 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.fn(rec)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
