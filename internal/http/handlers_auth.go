package http

import (
	"net/http"
	"sync/atomic"

	"spender/internal/log"
)

// handleGoogleAuth verifies the Google access token and returns the local
// user, creating it on first sign-in.
func (s *Server) handleGoogleAuth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	events := log.NewStructuredLogger(log.FromContext(ctx))

	var req googleAuthRequest
	if err := decodeJSONLenient(w, r, &req); err != nil {
		// Shape errors are the client's; they are not failed sign-ins.
		errorFor(err).Write(w)
		return
	}

	user, err := s.identity.Authenticate(ctx, req.Token, req.identity())
	if err != nil {
		atomic.AddInt64(&s.appMetrics.authFailures, 1)
		log.FromContext(ctx).WithComponent(log.ComponentAuth).WarnContext(ctx, "Google sign-in rejected",
			log.NewFields().WithError(err).WithErrorType(log.ErrorTypeAuth).WithOperation(log.OpResolve).ToSlice()...)
		authErrorFor(err).Write(w)
		return
	}

	atomic.AddInt64(&s.appMetrics.usersResolved, 1)
	events.LogUserResolved(ctx, user.ID)

	NewJSONResponse().
		Body(userResponse{
			ID:      user.ID,
			Email:   user.Email,
			Name:    user.Name,
			Picture: user.Picture,
		}).
		Write(w)
}
