// Package jwt issues and verifies HS256 bearer tokens carrying a user email.
package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/partsinc/parts-server/internal/identity"
)

// Config holds token settings.
type Config struct {
	SecretKey string
	Issuer    string
	// AccessTokenDuration of zero issues tokens that never expire.
	AccessTokenDuration time.Duration
}

// Claims is the token payload.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Authenticator signs and verifies tokens with a shared secret.
type Authenticator struct {
	config Config
	now    func() time.Time
}

// NewAuthenticator creates a new Authenticator.
func NewAuthenticator(config Config) (*Authenticator, error) {
	if config.SecretKey == "" {
		return nil, errors.New("jwt secret key is required")
	}
	return &Authenticator{
		config: config,
		now:    time.Now,
	}, nil
}

// IssueToken returns a signed token for email.
func (a *Authenticator) IssueToken(email string) (string, error) {
	now := a.now()
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  email,
			Issuer:   a.config.Issuer,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if a.config.AccessTokenDuration > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(a.config.AccessTokenDuration))
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(a.config.SecretKey))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken validates the signature and expiry of token and returns its email.
// The issuer is not checked so tokens minted before it was set keep working.
func (a *Authenticator) VerifyToken(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(_ *jwt.Token) (interface{}, error) {
		return []byte(a.config.SecretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(a.now))
	if err != nil {
		return "", fmt.Errorf("%w: %v", identity.ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Email == "" {
		return "", identity.ErrInvalidToken
	}
	return claims.Email, nil
}
