package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"spender/internal/log"
	"spender/internal/middleware/ratelimit"
	"spender/internal/middleware/security"
	"spender/internal/middleware/trace"
	"spender/internal/ports"
	"spender/internal/services"
)

// Options wires the server to its services.
type Options struct {
	Addr               string
	Identity           *services.IdentityService
	Transactions       *services.TransactionService
	Dashboard          *services.DashboardService
	Store              ports.Pinger
	Logger             *log.Logger
	AllowedOrigins     []string
	TrustedProxies     []string
	RateLimitPerMinute int
	RequestTimeout     time.Duration
}

type Server struct {
	http.Server
	identity     *services.IdentityService
	transactions *services.TransactionService
	dashboard    *services.DashboardService
	store        ports.Pinger
	logger       *log.Logger

	requestTimeout   time.Duration
	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	appMetrics       *appMetrics

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	detector, err := security.NewDetector(opts.TrustedProxies...)
	if err != nil {
		return nil, err
	}

	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	s := &Server{
		Server: http.Server{
			Addr:              opts.Addr,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       timeout,
			WriteTimeout:      timeout + 5*time.Second,
			IdleTimeout:       60 * time.Second,
		},
		identity:         opts.Identity,
		transactions:     opts.Transactions,
		dashboard:        opts.Dashboard,
		store:            opts.Store,
		logger:           logger,
		requestTimeout:   timeout,
		rateLimiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		securityDetector: detector,
		traceMiddleware:  trace.NewMiddleware(logger, detector.ExtractClientIP),
		appMetrics:       newAppMetrics(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.Handle("POST /auth/google", s.limited(s.handleGoogleAuth))
	mux.Handle("GET /api/transactions", s.limited(s.handleListTransactions))
	mux.Handle("POST /api/transactions", s.limited(s.handleCreateTransaction))
	mux.Handle("PATCH /api/transactions/{id}", s.limited(s.handleUpdateTransaction))
	mux.Handle("GET /api/dashboard", s.limited(s.handleDashboard))

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	cors := security.NewCORS(opts.AllowedOrigins)

	var handler http.Handler = mux
	handler = cors.Middleware(handler)
	handler = headers.Middleware(handler)
	handler = s.securityDetector.Middleware(handler)
	handler = s.traceMiddleware.Middleware(handler)
	s.Handler = handler

	return s, nil
}

// limited applies per-client rate limiting and the request deadline to API routes.
func (s *Server) limited(h http.HandlerFunc) http.Handler {
	withDeadline := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
		defer cancel()
		h(w, r.WithContext(ctx))
	})
	return s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, s.handleRateLimited)(withDeadline)
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(),
		"Rate limit exceeded",
		log.FieldClientIP, s.securityDetector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	TooManyRequestsError().Write(w)
}

// Shutdown stops the rate limiter and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
