// Package http provides HTTP server and handler implementations.
//
// This file implements a small builder for JSON responses and the mapping
// from domain errors to status codes.

package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"spender/internal/auth"
	"spender/internal/core"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value to encode. A nil body writes only the status.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}

	payload, err := json.Marshal(b.body)
	if err != nil {
		slog.Error("Failed to encode response", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(append(payload, '\n'))
}

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// ErrorResponse creates a standard {"error": message} response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Body(errorBody{Error: message})
}

func UnauthorizedError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnauthorized, message)
}

func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func UnprocessableEntityError(field, message string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(http.StatusUnprocessableEntity).
		Body(errorBody{Error: message, Field: field})
}

func TooManyRequestsError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, please try again later")
}

func InternalServerError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, "internal server error")
}

// errorFor maps a service error to a response. Unknown errors become 500
// so storage details never reach the client.
func errorFor(err error) *JSONResponseBuilder {
	var verr *core.ValidationError
	var rerr *requestError
	switch {
	case errors.As(err, &rerr):
		return ErrorResponse(rerr.status, rerr.msg)
	case errors.As(err, &verr):
		return UnprocessableEntityError(verr.Field, verr.Error())
	case errors.Is(err, core.ErrUserNotFound):
		return NotFoundError("user not found")
	case errors.Is(err, core.ErrNotFound):
		return NotFoundError("transaction not found")
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorResponse(http.StatusServiceUnavailable, "request timed out")
	default:
		return InternalServerError()
	}
}

// authErrorFor maps every sign-in failure to 401. Provider outages and
// storage failures are indistinguishable to the client on this path.
func authErrorFor(err error) *JSONResponseBuilder {
	var rerr *requestError
	if errors.As(err, &rerr) {
		return ErrorResponse(rerr.status, rerr.msg)
	}
	switch {
	case errors.Is(err, auth.ErrAudienceMismatch):
		return UnauthorizedError("token was not issued for this application")
	case errors.Is(err, auth.ErrSubjectMismatch):
		return UnauthorizedError("token does not match user info")
	default:
		return UnauthorizedError("invalid token")
	}
}

// transactionResponse is the wire form of core.Transaction.
type transactionResponse struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"user_id"`
	Name      string     `json:"name"`
	Amount    core.Money `json:"amount"`
	Category  string     `json:"category"`
	Date      core.Date  `json:"date"`
	CreatedAt time.Time  `json:"created_at"`
}

func toTransactionResponse(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:        t.ID,
		UserID:    t.UserID,
		Name:      t.Name,
		Amount:    t.Amount,
		Category:  t.Category,
		Date:      t.Date,
		CreatedAt: t.CreatedAt.UTC(),
	}
}

type userResponse struct {
	ID      int64  `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

type categoryAmountResponse struct {
	Category string     `json:"category"`
	Amount   core.Money `json:"amount"`
}

type dashboardResponse struct {
	Month             string                   `json:"month"`
	TotalSpent        core.Money               `json:"total_spent"`
	CategoryBreakdown []categoryAmountResponse `json:"category_breakdown"`
}

func toDashboardResponse(o core.MonthOverview) dashboardResponse {
	resp := dashboardResponse{
		Month:             core.Month{Year: o.Year, Month: time.Month(o.Month)}.String(),
		TotalSpent:        o.Total,
		CategoryBreakdown: make([]categoryAmountResponse, 0, len(o.ByCategory)),
	}
	for _, c := range o.ByCategory {
		resp.CategoryBreakdown = append(resp.CategoryBreakdown, categoryAmountResponse{Category: c.Name, Amount: c.Amount})
	}
	return resp
}
