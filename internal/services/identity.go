package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"spender/internal/auth"
	"spender/internal/core"
	"spender/internal/ports"
)

// IdentityService maps provider identities to local users.
type IdentityService struct {
	users    ports.UserStore
	verifier auth.TokenVerifier
}

func NewIdentityService(users ports.UserStore, verifier auth.TokenVerifier) *IdentityService {
	return &IdentityService{
		users:    users,
		verifier: verifier,
	}
}

// ResolveOrCreateUser returns the user for id.Subject, creating it on first
// sight and refreshing name and picture otherwise.
func (s *IdentityService) ResolveOrCreateUser(ctx context.Context, id core.Identity) (core.User, error) {
	id.Subject = strings.TrimSpace(id.Subject)
	id.Email = strings.TrimSpace(id.Email)
	if err := id.Validate(); err != nil {
		return core.User{}, err
	}

	u, err := s.users.UpsertUser(ctx, id)
	if err != nil {
		return core.User{}, fmt.Errorf("resolve user: %w", err)
	}
	return u, nil
}

// Authenticate verifies token with the provider and resolves the user it was
// issued to. The claimed subject must match the token's, and the provider's
// email wins over the claimed one.
func (s *IdentityService) Authenticate(ctx context.Context, token string, claimed core.Identity) (core.User, error) {
	if s.verifier == nil {
		return core.User{}, fmt.Errorf("%w: no token verifier configured", auth.ErrUnauthorized)
	}

	info, err := s.verifier.Verify(ctx, token)
	if err != nil {
		return core.User{}, fmt.Errorf("verify token: %w", err)
	}

	if info.Subject != strings.TrimSpace(claimed.Subject) {
		slog.WarnContext(ctx, "Token subject does not match claimed identity")
		return core.User{}, auth.ErrSubjectMismatch
	}
	if info.Email != "" {
		claimed.Email = info.Email
	}

	return s.ResolveOrCreateUser(ctx, claimed)
}
