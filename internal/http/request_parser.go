// Package http provides HTTP server and handler implementations.
//
// This file implements the parsing of query parameters and JSON bodies
// shared by the API handlers.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"spender/internal/core"
)

const maxBodyBytes = 1 << 20

var errRequiredField = errors.New("field is required")

// requestError is a malformed request that never reached the services.
type requestError struct {
	status int
	msg    string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &requestError{status: http.StatusBadRequest, msg: fmt.Sprintf(format, args...)}
}

// parseUserID reads the required user_id query parameter.
func parseUserID(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if raw == "" {
		return 0, badRequest("user_id is required")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("user_id must be a positive integer")
	}
	return id, nil
}

// parseMonth reads the required month query parameter (YYYY-MM).
func parseMonth(r *http.Request) (core.Month, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("month"))
	if raw == "" {
		return core.Month{}, badRequest("month is required")
	}
	m, err := core.ParseMonth(raw)
	if err != nil {
		return core.Month{}, badRequest("month must be in YYYY-MM format")
	}
	return m, nil
}

func parseTransactionID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("transaction id must be a positive integer")
	}
	return id, nil
}

// decodeJSON reads exactly one JSON object of at most maxBodyBytes into dst
// and rejects fields dst does not declare. Field values that fail their own
// parsing (amount, date) come back as validation errors; everything else is
// a bad request.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	return decodeBody(w, r, dst, false)
}

// decodeJSONLenient is decodeJSON without the unknown-field check, for
// payloads relayed from a third party such as Google's userinfo response.
func decodeJSONLenient(w http.ResponseWriter, r *http.Request, dst any) error {
	return decodeBody(w, r, dst, true)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any, allowUnknown bool) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if !allowUnknown {
		dec.DisallowUnknownFields()
	}

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.As(err, &maxErr):
			return &requestError{status: http.StatusRequestEntityTooLarge, msg: "request body too large"}
		case errors.Is(err, core.ErrInvalidAmount):
			return &core.ValidationError{Field: "amount", Err: core.ErrInvalidAmount}
		case errors.Is(err, core.ErrInvalidDate):
			return &core.ValidationError{Field: "date", Err: core.ErrInvalidDate}
		case errors.Is(err, io.EOF):
			return badRequest("request body is empty")
		case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
			return badRequest("request body is not valid JSON")
		case errors.As(err, &typeErr):
			return badRequest("field %q has the wrong type", typeErr.Field)
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			return badRequest("unknown field %s", strings.TrimPrefix(err.Error(), "json: unknown field "))
		default:
			return badRequest("invalid request body")
		}
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return badRequest("request body must contain a single JSON object")
	}
	return nil
}

// googleAuthRequest is the body of POST /auth/google. user_info is the
// userinfo object as Google returns it; fields not listed here are ignored.
type googleAuthRequest struct {
	Token    string `json:"token"`
	UserInfo struct {
		Sub     string `json:"sub"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	} `json:"user_info"`
}

func (req googleAuthRequest) identity() core.Identity {
	return core.Identity{
		Subject: req.UserInfo.Sub,
		Email:   req.UserInfo.Email,
		Name:    req.UserInfo.Name,
		Picture: req.UserInfo.Picture,
	}
}

// transactionRequest is the body of transaction create and update. Optional
// tells a missing field apart from a zero value.
type transactionRequest struct {
	Name     core.Optional[string]     `json:"name"`
	Amount   core.Optional[core.Money] `json:"amount"`
	Category core.Optional[string]     `json:"category"`
	Date     core.Optional[core.Date]  `json:"date"`
}

func (req transactionRequest) toNewTransaction() (core.NewTransaction, error) {
	for _, f := range []struct {
		name      string
		set, null bool
	}{
		{"name", req.Name.Set, req.Name.Null},
		{"amount", req.Amount.Set, req.Amount.Null},
		{"date", req.Date.Set, req.Date.Null},
	} {
		if !f.set {
			return core.NewTransaction{}, &core.ValidationError{Field: f.name, Err: errRequiredField}
		}
		if f.null {
			return core.NewTransaction{}, &core.ValidationError{Field: f.name, Err: core.ErrNullField}
		}
	}
	if req.Category.Null {
		return core.NewTransaction{}, &core.ValidationError{Field: "category", Err: core.ErrNullField}
	}
	return core.NewTransaction{
		Name:     req.Name.Value,
		Amount:   req.Amount.Value,
		Category: req.Category.Value,
		Date:     req.Date.Value,
	}, nil
}

func (req transactionRequest) toPatch() core.TransactionPatch {
	return core.TransactionPatch{
		Name:     req.Name,
		Amount:   req.Amount,
		Category: req.Category,
		Date:     req.Date,
	}
}
