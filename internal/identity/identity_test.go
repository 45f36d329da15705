package identity

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "quitflow/internal/common/errors"
)

func signToken(t *testing.T, secret string, c jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestVerifier_ValidToken(t *testing.T) {
	v := NewVerifier("secret", "quitflow")
	token := signToken(t, "secret", jwt.MapClaims{
		"sub":   "u-42",
		"name":  "Sam",
		"email": "sam@example.com",
		"iss":   "quitflow",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	u, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "u-42", u.ID)
	assert.Equal(t, "Sam", u.DisplayName())
}

func TestVerifier_RejectsBadSignature(t *testing.T) {
	v := NewVerifier("secret", "")
	token := signToken(t, "other-secret", jwt.MapClaims{"sub": "u-42"})

	_, err := v.Verify(token)
	assert.Equal(t, apperrors.ErrCodeTokenInvalid, apperrors.CodeOf(err))
}

func TestVerifier_RejectsMissingSubject(t *testing.T) {
	v := NewVerifier("secret", "")
	token := signToken(t, "secret", jwt.MapClaims{"name": "Sam"})

	_, err := v.Verify(token)
	assert.Equal(t, apperrors.ErrCodeTokenInvalid, apperrors.CodeOf(err))
}

func TestVerifier_RejectsIssuerMismatch(t *testing.T) {
	v := NewVerifier("secret", "quitflow")
	token := signToken(t, "secret", jwt.MapClaims{"sub": "u-42", "iss": "elsewhere"})

	_, err := v.Verify(token)
	assert.Equal(t, apperrors.ErrCodeTokenInvalid, apperrors.CodeOf(err))
}

func TestContextProvider(t *testing.T) {
	p := ContextProvider{}

	_, err := p.Current(context.Background())
	assert.Equal(t, apperrors.ErrCodeNoSignedInUser, apperrors.CodeOf(err))

	ctx := WithUser(context.Background(), User{ID: "u-1", Email: "a@b.c"})
	u, err := p.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a@b.c", u.DisplayName())
}
