package security

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when a token is malformed, expired, or signed with another key.
	ErrInvalidToken = errors.New("invalid token")
)

// OperatorTokenIssuer issues and validates HS256 operator tokens.
type OperatorTokenIssuer struct {
	key    []byte
	issuer string
	ttl    time.Duration
	nowF   func() time.Time
}

// NewOperatorTokenIssuer returns an issuer signing with key. ttl <= 0 selects 12h.
func NewOperatorTokenIssuer(key []byte, issuer string, ttl time.Duration) *OperatorTokenIssuer {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &OperatorTokenIssuer{key: key, issuer: issuer, ttl: ttl, nowF: time.Now}
}

// RandomKey returns n random bytes for use as a signing key.
func RandomKey(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// Issue returns a signed token for subject and its expiry.
func (p *OperatorTokenIssuer) Issue(subject string) (string, time.Time, error) {
	jti, err := RandomKey(16)
	if err != nil {
		return "", time.Time{}, err
	}
	now := p.nowF().UTC()
	expiresAt := now.Add(p.ttl)
	claims := jwt.RegisteredClaims{
		ID:        hex.EncodeToString(jti),
		Subject:   subject,
		Issuer:    p.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.key)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Validate checks signature, issuer and expiry and returns the token's subject.
func (p *OperatorTokenIssuer) Validate(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return p.key, nil
	}, jwt.WithIssuer(p.issuer), jwt.WithTimeFunc(p.nowF))
	if err != nil {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
