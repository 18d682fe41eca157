package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"spender/internal/core"
	"spender/internal/log"
)

// appMetrics holds application-level counters
type appMetrics struct {
	usersResolved       int64
	authFailures        int64
	transactionsCreated int64
	transactionsUpdated int64
	uptime              time.Time
}

func newAppMetrics() *appMetrics {
	return &appMetrics{uptime: time.Now()}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().
		Body(map[string]string{"message": "Welcome to Spender App Backend"}).
		Write(w)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady reports ready once the store answers a ping.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.store.Ping(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", "error", err)
			http.Error(w, "store unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	traceMetrics := s.traceMiddleware.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	securityMetrics := s.securityDetector.GetMetrics()

	w.WriteHeader(http.StatusOK)

	writeMetric(w, "http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	writeMetric(w, "http_requests_in_flight", "gauge", "Requests currently being served", traceMetrics.InFlight)
	writeMetric(w, "http_client_errors_total", "counter", "Responses with a 4xx status", traceMetrics.ClientErrors)
	writeMetric(w, "http_server_errors_total", "counter", "Responses with a 5xx status", traceMetrics.ServerErrors)
	writeMetric(w, "http_response_time_avg_microseconds", "gauge", "Average response time", traceMetrics.AverageResponseTime)
	writeMetric(w, "users_resolved_total", "counter", "Successful Google sign-ins", atomic.LoadInt64(&s.appMetrics.usersResolved))
	writeMetric(w, "auth_failures_total", "counter", "Rejected Google sign-ins", atomic.LoadInt64(&s.appMetrics.authFailures))
	writeMetric(w, "transactions_created_total", "counter", "Transactions created", atomic.LoadInt64(&s.appMetrics.transactionsCreated))
	writeMetric(w, "transactions_updated_total", "counter", "Transactions updated", atomic.LoadInt64(&s.appMetrics.transactionsUpdated))
	writeMetric(w, "rate_limit_hits_total", "counter", "Total rate limit hits", rateLimitMetrics.TotalHits)
	writeMetric(w, "active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", rateLimitMetrics.ClientCount)
	writeMetric(w, "suspicious_requests_total", "counter", "Total suspicious requests detected", securityMetrics.SuspiciousRequests)
	writeMetric(w, "uptime_seconds", "gauge", "Application uptime in seconds", int64(time.Since(s.appMetrics.uptime).Seconds()))
}

func writeMetric(w http.ResponseWriter, name, kind, help string, value int64) {
	fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	fmt.Fprintf(w, "# TYPE %s %s\n", name, kind)
	fmt.Fprintf(w, "%s %d\n\n", name, value)
}

// logFailure logs a service error at Warn when the client caused it and at
// Error otherwise.
func (s *Server) logFailure(r *http.Request, msg string, err error, op string, fields log.LogFields) {
	ctx := r.Context()
	logger := log.FromContext(ctx)

	var verr *core.ValidationError
	switch {
	case errors.As(err, &verr):
		logger.WarnContext(ctx, msg, fields.WithError(err).WithErrorType(log.ErrorTypeValidation).WithOperation(op).ToSlice()...)
	case errors.Is(err, core.ErrNotFound):
		logger.WarnContext(ctx, msg, fields.WithError(err).WithErrorType(log.ErrorTypeNotFound).WithOperation(op).ToSlice()...)
	default:
		log.NewStructuredLogger(logger).LogError(ctx, msg, err, log.ComponentStorage, op, fields.WithErrorType(log.ErrorTypeDatabase))
	}
}
