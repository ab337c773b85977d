// README: HS256 JWT issuer/verifier for admin sessions.
package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// RoleClaim is the custom claim carrying the admin role.
const RoleClaim = "admin_role"

type JWTIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewJWTIssuer(secret string, ttl time.Duration) *JWTIssuer {
	return &JWTIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

type adminClaims struct {
	Role string `json:"admin_role"`
	jwt.RegisteredClaims
}

// Issue signs a token for subject with the given role.
func (j *JWTIssuer) Issue(subject, role string) (string, time.Time, error) {
	now := j.now()
	exp := now.Add(j.ttl)
	claims := adminClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

func (j *JWTIssuer) VerifyIDToken(_ context.Context, raw string) (*Token, error) {
	var claims adminClaims
	parsed, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return j.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return &Token{
		UID:    claims.Subject,
		Claims: map[string]interface{}{RoleClaim: claims.Role},
	}, nil
}
