package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndVerifyRoundTrip(t *testing.T) {
	codec := NewCodec("super-secret", "litepg-core")
	now := time.Now()

	token, err := codec.Sign("user-1", "authenticated", "jti-1", time.Hour, now, nil)
	require.NoError(t, err)

	claims, err := codec.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims["sub"])
	assert.Equal(t, "authenticated", claims["role"])
	assert.Equal(t, "jti-1", claims["jti"])
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	codec := NewCodec("super-secret", "litepg-core")
	past := time.Now().Add(-2 * time.Hour)

	token, err := codec.Sign("user-1", "authenticated", "jti-1", time.Hour, past, nil)
	require.NoError(t, err)

	_, err = codec.Verify(token)
	require.ErrorIs(t, err, ErrExpiredToken)
}

func TestVerifyRejectsTamperedSignature(t *testing.T) {
	codec := NewCodec("super-secret", "litepg-core")
	other := NewCodec("different-secret", "litepg-core")

	token, err := codec.Sign("user-1", "authenticated", "jti-1", time.Hour, time.Now(), nil)
	require.NoError(t, err)

	_, err = other.Verify(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	codec := NewCodec("super-secret", "litepg-core")
	other := NewCodec("super-secret", "some-other-issuer")

	token, err := codec.Sign("user-1", "authenticated", "jti-1", time.Hour, time.Now(), nil)
	require.NoError(t, err)

	_, err = other.Verify(token)
	require.Error(t, err)
}

func TestSignEmbedsExtraClaims(t *testing.T) {
	codec := NewCodec("super-secret", "litepg-core")
	token, err := codec.Sign("user-1", "authenticated", "jti-1", time.Hour, time.Now(), map[string]interface{}{
		"app_metadata": map[string]interface{}{"plan": "pro"},
	})
	require.NoError(t, err)

	claims, err := codec.Verify(token)
	require.NoError(t, err)
	assert.NotNil(t, claims["app_metadata"])
}
