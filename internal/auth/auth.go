package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// RoleClaim is the name of the private claim carrying the user role.
const RoleClaim = "role"

type JWTAuth struct {
	secret   []byte
	issuer   string
	tokenTTL time.Duration
}

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func NewJWTAuth(secret []byte, opts ...Option) *JWTAuth {
	a := &JWTAuth{
		secret:   secret,
		tokenTTL: 24 * time.Hour,
		issuer:   "buggyvege",
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

type Option func(a *JWTAuth)

func WithIssuer(issuer string) Option {
	return func(a *JWTAuth) {
		a.issuer = issuer
	}
}

func WithTokenTTL(ttl time.Duration) Option {
	return func(a *JWTAuth) {
		a.tokenTTL = ttl
	}
}

// Secret returns the HMAC key tokens are signed with.
func (a *JWTAuth) Secret() []byte {
	return a.secret
}

// CreateJWTString signs an HS256 token for the subject with the given role.
func (a *JWTAuth) CreateJWTString(sub, role string) (string, error) {
	now := time.Now()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.issuer,
			Subject:   sub,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.tokenTTL)),
		},
	})

	tokenString, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("token.SignedString: %w", err)
	}

	return tokenString, nil
}
