package services

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTIssuerRoundTrip(t *testing.T) {
	issuer := NewJWTIssuer("secret", time.Hour)

	token, err := issuer.Issue("65f1c0ffee")
	require.NoError(t, err)

	id, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "65f1c0ffee", id)

	_, err = issuer.Issue("")
	assert.Error(t, err)
}

func TestJWTIssuerExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	issuer := NewJWTIssuer("secret", time.Hour)
	issuer.now = func() time.Time { return now }

	token, err := issuer.Issue("user-1")
	require.NoError(t, err)

	now = now.Add(59 * time.Minute)
	_, err = issuer.Verify(token)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = issuer.Verify(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestJWTIssuerDefaultLifetime(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	issuer := NewJWTIssuer("secret", 0)
	issuer.now = func() time.Time { return now }

	token, err := issuer.Issue("user-1")
	require.NoError(t, err)

	now = now.Add(30*24*time.Hour - time.Second)
	_, err = issuer.Verify(token)
	require.NoError(t, err)

	now = now.Add(2 * time.Second)
	_, err = issuer.Verify(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestJWTIssuerRejectsForeignTokens(t *testing.T) {
	issuer := NewJWTIssuer("secret", time.Hour)

	other, err := NewJWTIssuer("other-secret", time.Hour).Issue("user-1")
	require.NoError(t, err)
	_, err = issuer.Verify(other)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = issuer.Verify("not.a.token")
	assert.ErrorIs(t, err, ErrTokenInvalid)

	// No expiry claim.
	unsigned := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: "user-1"})
	noExp, err := unsigned.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = issuer.Verify(noExp)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	// Wrong algorithm family.
	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		UserID:           "user-1",
	})
	noneToken, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = issuer.Verify(noneToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
