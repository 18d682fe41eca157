// Package google verifies Google OAuth access tokens against the tokeninfo endpoint.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	oauth2api "google.golang.org/api/oauth2/v2"
	goption "google.golang.org/api/option"

	"spender/internal/auth"
)

const defaultTimeout = 10 * time.Second

type Verifier struct {
	svc      *oauth2api.Service
	clientID string
}

var _ auth.TokenVerifier = (*Verifier)(nil)

// Options configure a Verifier. Endpoint overrides the Google API base URL,
// which tests point at an httptest server.
type Options struct {
	ClientID   string
	Endpoint   string
	HTTPClient *http.Client
}

func NewVerifier(ctx context.Context, opts Options) (*Verifier, error) {
	clientID := strings.TrimSpace(opts.ClientID)
	if clientID == "" {
		return nil, errors.New("missing google client id")
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	clientOpts := []goption.ClientOption{
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(httpClient),
	}
	if endpoint := strings.TrimSpace(opts.Endpoint); endpoint != "" {
		if !strings.HasSuffix(endpoint, "/") {
			endpoint += "/"
		}
		clientOpts = append(clientOpts, goption.WithEndpoint(endpoint))
	}

	svc, err := oauth2api.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("oauth2 service: %w", err)
	}
	return &Verifier{svc: svc, clientID: clientID}, nil
}

// Verify asks Google for the token's claims and checks the audience.
func (v *Verifier) Verify(ctx context.Context, token string) (auth.TokenInfo, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return auth.TokenInfo{}, fmt.Errorf("%w: empty token", auth.ErrUnauthorized)
	}

	info, err := v.svc.Tokeninfo().AccessToken(token).Context(ctx).Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code >= 400 && gerr.Code < 500 {
			slog.WarnContext(ctx, "Google rejected token", "status", gerr.Code)
			return auth.TokenInfo{}, fmt.Errorf("%w: provider returned %d", auth.ErrUnauthorized, gerr.Code)
		}
		return auth.TokenInfo{}, fmt.Errorf("tokeninfo request: %w", err)
	}

	if info.Audience != v.clientID {
		slog.WarnContext(ctx, "Token audience mismatch", "audience", info.Audience)
		return auth.TokenInfo{}, auth.ErrAudienceMismatch
	}

	return auth.TokenInfo{
		Subject:       info.UserId,
		Email:         info.Email,
		EmailVerified: info.VerifiedEmail,
		Audience:      info.Audience,
		ExpiresIn:     info.ExpiresIn,
	}, nil
}
