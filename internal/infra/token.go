// README: Token verification contract shared by the JWT and Firebase verifiers.
package infra

import (
	"context"
	"errors"
)

var ErrInvalidToken = errors.New("invalid token")

// Token holds the verified token data used by downstream middleware.
type Token struct {
	UID    string
	Claims map[string]interface{}
}

// TokenVerifier verifies a raw bearer token string and returns token data.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*Token, error)
}

// ChainVerifier tries each verifier in order and returns the first success.
type ChainVerifier []TokenVerifier

func (c ChainVerifier) VerifyIDToken(ctx context.Context, idToken string) (*Token, error) {
	lastErr := ErrInvalidToken
	for _, v := range c {
		if v == nil {
			continue
		}
		tok, err := v.VerifyIDToken(ctx, idToken)
		if err == nil {
			return tok, nil
		}
		lastErr = err
	}
	return nil, lastErr
}
