// Package auth defines how bearer tokens issued by an external identity
// provider are verified before a user is resolved.
package auth

import (
	"context"
	"errors"
)

var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrAudienceMismatch = errors.New("token audience does not match client id")
	ErrSubjectMismatch  = errors.New("token subject does not match user info")
)

// TokenInfo holds the claims the provider vouches for.
type TokenInfo struct {
	Subject       string
	Email         string
	EmailVerified bool
	Audience      string
	ExpiresIn     int64
}

// TokenVerifier checks an access token with its issuer. Implementations return
// an error wrapping ErrUnauthorized or ErrAudienceMismatch for rejected tokens.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (TokenInfo, error)
}
