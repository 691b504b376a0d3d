package auth

import (
	"testing"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateJWTString(t *testing.T) {
	secret := []byte("test-secret")
	a := NewJWTAuth(secret, WithIssuer("tests"), WithTokenTTL(time.Hour))

	tokenString, err := a.CreateJWTString("user-1", "admin")
	require.NoError(t, err)

	claims := new(Claims)
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	})
	require.NoError(t, err)
	require.True(t, token.Valid)

	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "tests", claims.Issuer)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func TestTokenVerifiesWithJWTAuth(t *testing.T) {
	a := NewJWTAuth([]byte("shared"))

	tokenString, err := a.CreateJWTString("user-2", "user")
	require.NoError(t, err)

	tokenAuth := jwtauth.New("HS256", a.Secret(), nil)

	token, err := tokenAuth.Decode(tokenString)
	require.NoError(t, err)
	assert.Equal(t, "user-2", token.Subject())

	role, ok := token.Get(RoleClaim)
	require.True(t, ok)
	assert.Equal(t, "user", role)

	_, err = jwtauth.New("HS256", []byte("other"), nil).Decode(tokenString)
	assert.Error(t, err)
}
