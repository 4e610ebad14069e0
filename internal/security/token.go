package security

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for any bearer token that fails verification
var ErrInvalidToken = errors.New("invalid token")

// TokenClaims is the identity carried by a bearer token
type TokenClaims struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 bearer tokens for mobile clients
type TokenIssuer struct {
	secret   []byte
	duration time.Duration
	now      func() time.Time
}

// NewTokenIssuer creates an issuer whose tokens expire after duration
func NewTokenIssuer(secret []byte, duration time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: secret, duration: duration, now: time.Now}
}

// Issue signs a token for the given identity
func (ti *TokenIssuer) Issue(id int64, email, name string) (string, error) {
	now := ti.now()
	claims := TokenClaims{
		ID:    id,
		Email: email,
		Name:  name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(id, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ti.duration)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

// Verify checks signature, algorithm and expiry and returns the claims
func (ti *TokenIssuer) Verify(tokenString string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (any, error) {
			return ti.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(ti.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.ID <= 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
