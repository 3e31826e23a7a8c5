package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTIssuer_Issue(t *testing.T) {
	secret := "test-secret"
	issuer := NewJWTIssuer(secret)

	token, err := issuer.Issue("user-123", "u@example.com", 24*time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	parsed, err := jwt.ParseWithClaims(token, &jwtClaims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	require.NoError(t, err)
	require.True(t, parsed.Valid)
	claims, ok := parsed.Claims.(*jwtClaims)
	require.True(t, ok)
	assert.Equal(t, "user-123", claims.Subject)
	assert.Equal(t, "u@example.com", claims.Email)
}

func TestJWTVerifier_Verify(t *testing.T) {
	issuer := NewJWTIssuer("test-secret")
	token, err := issuer.Issue("user-123", "u@example.com", time.Hour)
	require.NoError(t, err)

	t.Run("valid token", func(t *testing.T) {
		userID, err := NewJWTVerifier("test-secret").Verify(token)
		require.NoError(t, err)
		assert.Equal(t, "user-123", userID)
	})

	t.Run("wrong secret", func(t *testing.T) {
		_, err := NewJWTVerifier("other-secret").Verify(token)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := NewJWTVerifier("test-secret").Verify("not-a-jwt")
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		a := newJWTAuthority("test-secret")
		a.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		old, err := a.Issue("user-123", "u@example.com", time.Hour)
		require.NoError(t, err)

		_, err = NewJWTVerifier("test-secret").Verify(old)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("unsigned token rejected", func(t *testing.T) {
		claims := jwtClaims{RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-123",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}}
		unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = NewJWTVerifier("test-secret").Verify(unsigned)
		require.ErrorIs(t, err, ErrInvalidToken)
	})
}
