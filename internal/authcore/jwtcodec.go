package authcore

import (
	"time"

	"github.com/google/uuid"

	"github.com/litepg/litepg-core/internal/domain"
	pkgjwt "github.com/litepg/litepg-core/pkg/jwt"
)

// JWTCodec implements domain.TokenCodec over pkg/jwt's HMAC-SHA256 codec,
// following the same split of a thin service wrapping a lower-level jwt
// package.
type JWTCodec struct {
	codec  *pkgjwt.Codec
	kid    string
	issuer string
}

func NewJWTCodec(secret, issuer, kid string) *JWTCodec {
	return &JWTCodec{codec: pkgjwt.NewCodec(secret, issuer), kid: kid, issuer: issuer}
}

func (c *JWTCodec) Sign(claims domain.TokenClaims) (string, error) {
	ttl := claims.ExpiresAt.Sub(claims.IssuedAt)
	extra := map[string]interface{}{"aud": claims.Audience}
	return c.codec.Sign(claims.Subject.String(), string(claims.Role), claims.JTI, ttl, claims.IssuedAt, extra)
}

func (c *JWTCodec) Verify(token string) (domain.TokenClaims, error) {
	raw, err := c.codec.Verify(token)
	if err != nil {
		if err == pkgjwt.ErrExpiredToken {
			return domain.TokenClaims{}, domain.NewAuthError(domain.AuthSubUnauthorized, domain.CodeTokenExpired, "token is expired")
		}
		return domain.TokenClaims{}, domain.NewAuthError(domain.AuthSubUnauthorized, domain.CodeJWTExpired, "invalid token")
	}

	sub, _ := raw["sub"].(string)
	role, _ := raw["role"].(string)
	jti, _ := raw["jti"].(string)
	aud, _ := raw["aud"].(string)

	claims := domain.TokenClaims{
		Role:     domain.Role(role),
		Issuer:   c.issuer,
		JTI:      jti,
		Audience: aud,
	}
	if sub != "" {
		if id, err := uuid.Parse(sub); err == nil {
			claims.Subject = id
		}
	}
	if iat, ok := raw["iat"].(float64); ok {
		claims.IssuedAt = time.Unix(int64(iat), 0)
	}
	if exp, ok := raw["exp"].(float64); ok {
		claims.ExpiresAt = time.Unix(int64(exp), 0)
	}

	return claims, nil
}

// JWKS advertises the active key id without exposing the symmetric secret
// itself: an HS256 JWKS document cannot carry verification material safely,
// so unlike an RS256/ES256 deployment the single key entry carries only its
// kid, alg, use and kty, with no `k` value, and callers needing external
// verification must be handed the shared secret out of band.
func (c *JWTCodec) JWKS() (map[string]interface{}, error) {
	return map[string]interface{}{
		"keys": []map[string]interface{}{
			{"kid": c.kid, "alg": "HS256", "use": "sig", "kty": "oct"},
		},
	}, nil
}

// ClassifyAPIKey decodes a project's static API key (itself a long-lived
// JWT with no exp) and returns the role it authorises, distinguishing
// anon/authenticated/service_role.
func (c *JWTCodec) ClassifyAPIKey(key string) (domain.Role, error) {
	raw, err := c.codec.Verify(key)
	if err != nil {
		return "", domain.NewAuthError(domain.AuthSubUnauthorized, domain.CodeInvalidGrant, "invalid API key")
	}
	role, _ := raw["role"].(string)
	switch domain.Role(role) {
	case domain.RoleAnon, domain.RoleAuthenticated, domain.RoleServiceRole:
		return domain.Role(role), nil
	default:
		return "", domain.NewAuthError(domain.AuthSubUnauthorized, domain.CodeInvalidGrant, "unrecognised API key role")
	}
}

var _ domain.TokenCodec = (*JWTCodec)(nil)
