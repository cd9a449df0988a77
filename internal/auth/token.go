package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is the lifetime of issued application tokens.
const DefaultTokenTTL = 24 * time.Hour

var (
	// ErrTokenInvalid indicates the token failed signature or claim checks.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenIssuer indicates the token was minted by another issuer.
	ErrTokenIssuer = errors.New("unexpected token issuer")
	// ErrTokenSecret indicates the issuer has no signing secret.
	ErrTokenSecret = errors.New("token secret is not configured")
)

// TokenIssuer signs and verifies HS256 application tokens whose subject is
// a user ID. The same token is accepted as a bearer token (app credential)
// or from the session cookie (session credential).
type TokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer creates a TokenIssuer. A non-positive ttl uses DefaultTokenTTL.
func NewTokenIssuer(secret, issuer string, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenIssuer{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue returns a signed token for the given user.
func (t *TokenIssuer) Issue(userID string) (string, error) {
	if len(t.secret) == 0 {
		return "", ErrTokenSecret
	}
	now := t.now()
	claims := jwt.RegisteredClaims{
		Issuer:    t.issuer,
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the token and returns its subject user ID. An issuer
// without a secret rejects every token.
func (t *TokenIssuer) Verify(token string) (string, error) {
	if len(t.secret) == 0 {
		return "", ErrTokenSecret
	}
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now), jwt.WithExpirationRequired())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", ErrTokenInvalid
	}
	if claims.Issuer != t.issuer {
		return "", fmt.Errorf("%w: %s", ErrTokenIssuer, claims.Issuer)
	}
	return claims.Subject, nil
}

// LooksLikeToken reports whether s has the three-segment JWT shape.
func LooksLikeToken(s string) bool {
	dots := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			dots++
		}
	}
	return dots == 2
}
