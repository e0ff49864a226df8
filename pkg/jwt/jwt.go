// Package jwt is a small HMAC-SHA256 JWT codec, the low-level counterpart
// to internal/authcore's higher-level TokenCodec (JWKS emission, API-key
// classification). This package knows nothing about users or
// refresh-token storage, only about signing and verifying claims.
package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("jwt: invalid token")
	ErrExpiredToken = errors.New("jwt: token expired")
)

// Claims is the registered-plus-custom claim set carried in every token
// this package issues.
type Claims struct {
	Subject string `json:"sub"`
	Role    string `json:"role"`
	JTI     string `json:"jti"`
	jwt.RegisteredClaims
}

// Codec signs and verifies tokens with a single symmetric secret.
type Codec struct {
	secret []byte
	issuer string
}

func NewCodec(secret, issuer string) *Codec {
	return &Codec{secret: []byte(secret), issuer: issuer}
}

// Sign issues a token for subject/role valid for ttl, embedding jti and any
// extra claims under their given keys.
func (c *Codec) Sign(subject, role, jti string, ttl time.Duration, now time.Time, extra map[string]interface{}) (string, error) {
	claims := jwt.MapClaims{
		"sub":   subject,
		"role":  role,
		"jti":   jti,
		"iss":   c.issuer,
		"iat":   jwt.NewNumericDate(now),
		"exp":   jwt.NewNumericDate(now.Add(ttl)),
	}
	for k, v := range extra {
		claims[k] = v
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}

// Verify parses and validates a token, returning its claim map.
func (c *Codec) Verify(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return c.secret, nil
	}, jwt.WithIssuer(c.issuer))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
