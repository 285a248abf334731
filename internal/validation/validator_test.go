package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/stepweaver/cashflow-server/internal/errors"
)

type sampleRequest struct {
	Email       string `json:"email" validate:"required,email"`
	DisplayName string `json:"display_name,omitempty" validate:"omitempty,max=100"`
	Password    string `json:"password" validate:"required,min=8"`
}

func TestValidate_Success(t *testing.T) {
	v := New()

	err := v.Validate(sampleRequest{
		Email:    "bob@example.com",
		Password: "long-enough-password",
	})
	assert.NoError(t, err)
}

func TestValidate_FieldErrors(t *testing.T) {
	v := New()

	err := v.Validate(sampleRequest{
		Email:    "not-an-email",
		Password: "short",
	})
	require.Error(t, err)

	var domainErr *domainerrors.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domainerrors.CodeValidation, domainErr.Code)

	// Details use the JSON tag names.
	details, ok := domainErr.Details.(map[string]string)
	require.True(t, ok)
	assert.Contains(t, details, "email")
	assert.Contains(t, details, "password")
	assert.NotContains(t, details, "display_name")
}

func TestValidate_MissingRequired(t *testing.T) {
	v := New()

	err := v.Validate(sampleRequest{})
	require.Error(t, err)

	var domainErr *domainerrors.Error
	require.ErrorAs(t, err, &domainErr)
	details := domainErr.Details.(map[string]string)
	assert.Equal(t, "is required", details["email"])
}
