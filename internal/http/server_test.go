package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"spender/internal/auth"
	"spender/internal/core"
	"spender/internal/log"
	"spender/internal/services"
	"spender/internal/storage/memory"
)

type fakeVerifier map[string]auth.TokenInfo

func (f fakeVerifier) Verify(_ context.Context, token string) (auth.TokenInfo, error) {
	info, ok := f[token]
	if !ok {
		return auth.TokenInfo{}, fmt.Errorf("%w: unknown token", auth.ErrUnauthorized)
	}
	return info, nil
}

type wireTransaction struct {
	ID       int64       `json:"id"`
	UserID   int64       `json:"user_id"`
	Name     string      `json:"name"`
	Amount   json.Number `json:"amount"`
	Category string      `json:"category"`
	Date     string      `json:"date"`
}

func newTestServer(t *testing.T, perMinute int) (*Server, *memory.Store) {
	t.Helper()
	store := memory.New()
	verifier := fakeVerifier{
		"good-token": {Subject: "sub-1", Email: "ada@example.com", EmailVerified: true, Audience: "client-123"},
	}
	srv, err := NewServer(Options{
		Addr:               ":0",
		Identity:           services.NewIdentityService(store, verifier),
		Transactions:       services.NewTransactionService(store, nil),
		Dashboard:          services.NewDashboardService(store),
		Store:              store,
		Logger:             log.New(log.Config{Level: slog.LevelError, Output: io.Discard}),
		AllowedOrigins:     []string{"http://localhost:5173"},
		RateLimitPerMinute: perMinute,
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv, store
}

func do(t *testing.T, srv *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func mustUser(t *testing.T, store *memory.Store, subject, email string) core.User {
	t.Helper()
	u, err := store.UpsertUser(context.Background(), core.Identity{Subject: subject, Email: email})
	if err != nil {
		t.Fatalf("upsert user: %v", err)
	}
	return u
}

func TestIndexHealthAndMetrics(t *testing.T) {
	srv, _ := newTestServer(t, 100)

	rr := do(t, srv, http.MethodGet, "/", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "Welcome") {
		t.Fatalf("index: %d %s", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Fatal("every response should carry a request id")
	}

	for _, path := range []string{"/healthz", "/readyz"} {
		if rr := do(t, srv, http.MethodGet, path, ""); rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}

	rr = do(t, srv, http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "transactions_created_total 0") {
		t.Fatalf("metrics: %d %s", rr.Code, rr.Body.String())
	}

	if rr := do(t, srv, http.MethodGet, "/nope", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("unknown path status=%d", rr.Code)
	}
}

func TestGoogleAuth(t *testing.T) {
	srv, _ := newTestServer(t, 100)
	body := `{"token":"good-token","user_info":{"sub":"sub-1","email":"claimed@example.com","name":"Ada","picture":"https://example.com/a.png"}}`

	rr := do(t, srv, http.MethodPost, "/auth/google", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	first := decode[userResponse](t, rr)
	if first.Email != "ada@example.com" {
		t.Errorf("email = %q, the verified email should be stored", first.Email)
	}
	if first.Name != "Ada" || first.Picture != "https://example.com/a.png" {
		t.Errorf("unexpected profile %+v", first)
	}

	second := decode[userResponse](t, do(t, srv, http.MethodPost, "/auth/google", body))
	if second.ID != first.ID {
		t.Errorf("second sign-in created a new user: %d != %d", second.ID, first.ID)
	}

	tests := []struct {
		name string
		body string
		want int
	}{
		{"unknown token", `{"token":"bad","user_info":{"sub":"sub-1","email":"a@b.c"}}`, http.StatusUnauthorized},
		{"subject mismatch", `{"token":"good-token","user_info":{"sub":"someone-else","email":"a@b.c"}}`, http.StatusUnauthorized},
		{"malformed body", `{"token":`, http.StatusBadRequest},
		{"wrong token type", `{"token":5,"user_info":{"sub":"sub-1"}}`, http.StatusBadRequest},
		{"trailing data", `{"token":"good-token","user_info":{"sub":"sub-1"}} {}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, http.MethodPost, "/auth/google", tt.body)
			if rr.Code != tt.want {
				t.Fatalf("status=%d want %d body=%s", rr.Code, tt.want, rr.Body.String())
			}
			if !strings.Contains(rr.Body.String(), `"error"`) {
				t.Errorf("expected JSON error body, got %s", rr.Body.String())
			}
		})
	}
}

func TestGoogleAuthAcceptsFullUserinfo(t *testing.T) {
	srv, _ := newTestServer(t, 100)
	body := `{"token":"good-token","user_info":{
		"sub":"sub-1",
		"name":"Ada Lovelace",
		"given_name":"Ada",
		"family_name":"Lovelace",
		"picture":"https://example.com/a.png",
		"email":"ada@example.com",
		"email_verified":true,
		"locale":"en"
	}}`

	rr := do(t, srv, http.MethodPost, "/auth/google", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	u := decode[userResponse](t, rr)
	if u.ID == 0 || u.Email != "ada@example.com" || u.Name != "Ada Lovelace" {
		t.Errorf("unexpected user %+v", u)
	}
}

func TestCreateTransaction(t *testing.T) {
	srv, store := newTestServer(t, 100)
	u := mustUser(t, store, "sub-1", "ada@example.com")
	target := fmt.Sprintf("/api/transactions?user_id=%d", u.ID)

	rr := do(t, srv, http.MethodPost, target, `{"name":"Rent","amount":20.5,"category":"Bills","date":"2024-03-05"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	got := decode[wireTransaction](t, rr)
	if got.ID == 0 || got.UserID != u.ID || got.Name != "Rent" || got.Amount != "20.5" ||
		got.Category != "Bills" || got.Date != "2024-03-05" {
		t.Fatalf("unexpected transaction %+v", got)
	}

	rr = do(t, srv, http.MethodPost, target, `{"name":"Coffee","amount":"3,20","date":"2024-03-06"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if got := decode[wireTransaction](t, rr); got.Category != core.DefaultCategory || got.Amount != "3.2" {
		t.Fatalf("unexpected transaction %+v", got)
	}

	tests := []struct {
		name   string
		target string
		body   string
		want   int
	}{
		{"missing user_id", "/api/transactions", `{"name":"x","amount":1,"date":"2024-03-05"}`, http.StatusBadRequest},
		{"non numeric user_id", "/api/transactions?user_id=abc", `{"name":"x","amount":1,"date":"2024-03-05"}`, http.StatusBadRequest},
		{"zero user_id", "/api/transactions?user_id=0", `{"name":"x","amount":1,"date":"2024-03-05"}`, http.StatusBadRequest},
		{"unknown user", "/api/transactions?user_id=999", `{"name":"x","amount":1,"date":"2024-03-05"}`, http.StatusNotFound},
		{"invalid amount", target, `{"name":"x","amount":"abc","date":"2024-03-05"}`, http.StatusUnprocessableEntity},
		{"impossible date", target, `{"name":"x","amount":1,"date":"2024-02-30"}`, http.StatusUnprocessableEntity},
		{"missing date", target, `{"name":"x","amount":1}`, http.StatusUnprocessableEntity},
		{"missing amount", target, `{"name":"x","date":"2024-03-05"}`, http.StatusUnprocessableEntity},
		{"blank name", target, `{"name":"  ","amount":1,"date":"2024-03-05"}`, http.StatusUnprocessableEntity},
		{"null category", target, `{"name":"x","amount":1,"category":null,"date":"2024-03-05"}`, http.StatusUnprocessableEntity},
		{"unknown field", target, `{"name":"x","amount":1,"date":"2024-03-05","notes":"hi"}`, http.StatusBadRequest},
		{"not json", target, `name=x`, http.StatusBadRequest},
		{"trailing data", target, `{"name":"x","amount":1,"date":"2024-03-05"}{}`, http.StatusBadRequest},
		{"empty body", target, ``, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, http.MethodPost, tt.target, tt.body)
			if rr.Code != tt.want {
				t.Fatalf("status=%d want %d body=%s", rr.Code, tt.want, rr.Body.String())
			}
		})
	}
}

func TestCreateTransactionBodyTooLarge(t *testing.T) {
	srv, store := newTestServer(t, 100)
	u := mustUser(t, store, "sub-1", "ada@example.com")

	body := `{"name":"` + strings.Repeat("x", maxBodyBytes) + `","amount":1,"date":"2024-03-05"}`
	rr := do(t, srv, http.MethodPost, fmt.Sprintf("/api/transactions?user_id=%d", u.ID), body)
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status=%d", rr.Code)
	}
}

func TestListTransactions(t *testing.T) {
	srv, store := newTestServer(t, 100)
	u := mustUser(t, store, "sub-1", "ada@example.com")
	other := mustUser(t, store, "sub-2", "bob@example.com")
	create := fmt.Sprintf("/api/transactions?user_id=%d", u.ID)

	for _, body := range []string{
		`{"name":"a","amount":20,"category":"Bills","date":"2024-03-05"}`,
		`{"name":"b","amount":30,"category":"Bills","date":"2024-03-20"}`,
		`{"name":"c","amount":10,"category":"Shopping","date":"2024-04-01"}`,
	} {
		if rr := do(t, srv, http.MethodPost, create, body); rr.Code != http.StatusCreated {
			t.Fatalf("seed: %d %s", rr.Code, rr.Body.String())
		}
	}

	rr := do(t, srv, http.MethodGet, fmt.Sprintf("/api/transactions?user_id=%d&month=2024-03", u.ID), "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	got := decode[[]wireTransaction](t, rr)
	if len(got) != 2 || got[0].Name != "b" || got[1].Name != "a" {
		t.Fatalf("expected [b a] most recent first, got %+v", got)
	}

	rr = do(t, srv, http.MethodGet, fmt.Sprintf("/api/transactions?user_id=%d&month=2024-03", other.ID), "")
	if rr.Code != http.StatusOK || strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Fatalf("other user should see an empty list, got %d %s", rr.Code, rr.Body.String())
	}

	for _, target := range []string{
		fmt.Sprintf("/api/transactions?user_id=%d", u.ID),
		fmt.Sprintf("/api/transactions?user_id=%d&month=2024-13", u.ID),
		fmt.Sprintf("/api/transactions?user_id=%d&month=March", u.ID),
		"/api/transactions?month=2024-03",
	} {
		if rr := do(t, srv, http.MethodGet, target, ""); rr.Code != http.StatusBadRequest {
			t.Errorf("%s: status=%d want 400", target, rr.Code)
		}
	}
}

func TestUpdateTransaction(t *testing.T) {
	srv, store := newTestServer(t, 100)
	u := mustUser(t, store, "sub-1", "ada@example.com")
	other := mustUser(t, store, "sub-2", "bob@example.com")

	rr := do(t, srv, http.MethodPost, fmt.Sprintf("/api/transactions?user_id=%d", u.ID),
		`{"name":"Rent","amount":20,"category":"Bills","date":"2024-03-05"}`)
	created := decode[wireTransaction](t, rr)
	target := fmt.Sprintf("/api/transactions/%d?user_id=%d", created.ID, u.ID)

	rr = do(t, srv, http.MethodPatch, target, `{"amount":50}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	got := decode[wireTransaction](t, rr)
	if got.Amount != "50" || got.Name != "Rent" || got.Category != "Bills" || got.Date != "2024-03-05" {
		t.Fatalf("only amount should change, got %+v", got)
	}

	rr = do(t, srv, http.MethodPatch, target, `{}`)
	if rr.Code != http.StatusOK || decode[wireTransaction](t, rr).Amount != "50" {
		t.Fatalf("empty patch: %d %s", rr.Code, rr.Body.String())
	}

	rr = do(t, srv, http.MethodPatch, target, `{"category":""}`)
	if got := decode[wireTransaction](t, rr); got.Category != core.DefaultCategory {
		t.Fatalf("blank category should become %q, got %q", core.DefaultCategory, got.Category)
	}

	tests := []struct {
		name   string
		target string
		body   string
		want   int
	}{
		{"other owner", fmt.Sprintf("/api/transactions/%d?user_id=%d", created.ID, other.ID), `{"amount":1}`, http.StatusNotFound},
		{"missing id", fmt.Sprintf("/api/transactions/9999?user_id=%d", u.ID), `{"amount":1}`, http.StatusNotFound},
		{"bad id", fmt.Sprintf("/api/transactions/abc?user_id=%d", u.ID), `{"amount":1}`, http.StatusBadRequest},
		{"missing user_id", fmt.Sprintf("/api/transactions/%d", created.ID), `{"amount":1}`, http.StatusBadRequest},
		{"explicit null", target, `{"name":null}`, http.StatusUnprocessableEntity},
		{"invalid date", target, `{"date":"yesterday"}`, http.StatusUnprocessableEntity},
		{"unknown field", target, `{"user_id":2}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, http.MethodPatch, tt.target, tt.body)
			if rr.Code != tt.want {
				t.Fatalf("status=%d want %d body=%s", rr.Code, tt.want, rr.Body.String())
			}
		})
	}

	if rr := do(t, srv, http.MethodDelete, target, ""); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("DELETE status=%d want 405", rr.Code)
	}
}

func TestDashboard(t *testing.T) {
	srv, store := newTestServer(t, 100)
	u := mustUser(t, store, "sub-1", "ada@example.com")
	create := fmt.Sprintf("/api/transactions?user_id=%d", u.ID)
	for _, body := range []string{
		`{"name":"a","amount":20,"category":"Bills","date":"2024-03-05"}`,
		`{"name":"b","amount":30,"category":"Bills","date":"2024-03-20"}`,
		`{"name":"c","amount":10,"category":"Shopping","date":"2024-04-01"}`,
	} {
		do(t, srv, http.MethodPost, create, body)
	}

	rr := do(t, srv, http.MethodGet, fmt.Sprintf("/api/dashboard?user_id=%d&month=2024-03", u.ID), "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	got := decode[struct {
		Month             string `json:"month"`
		TotalSpent        json.Number `json:"total_spent"`
		CategoryBreakdown []struct {
			Category string      `json:"category"`
			Amount   json.Number `json:"amount"`
		} `json:"category_breakdown"`
	}](t, rr)
	if got.Month != "2024-03" || got.TotalSpent != "50" {
		t.Fatalf("unexpected dashboard %+v", got)
	}
	if len(got.CategoryBreakdown) != 1 || got.CategoryBreakdown[0].Category != "Bills" || got.CategoryBreakdown[0].Amount != "50" {
		t.Fatalf("unexpected breakdown %+v", got.CategoryBreakdown)
	}

	rr = do(t, srv, http.MethodGet, fmt.Sprintf("/api/dashboard?user_id=%d&month=2025-01", u.ID), "")
	if body := strings.TrimSpace(rr.Body.String()); body != `{"month":"2025-01","total_spent":0,"category_breakdown":[]}` {
		t.Fatalf("empty month = %s", body)
	}

	if rr := do(t, srv, http.MethodGet, "/api/dashboard?user_id=1&month=24-03", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("bad month status=%d", rr.Code)
	}
}

func TestRateLimitAppliesToAPIRoutes(t *testing.T) {
	srv, store := newTestServer(t, 2)
	u := mustUser(t, store, "sub-1", "ada@example.com")
	target := fmt.Sprintf("/api/transactions?user_id=%d&month=2024-03", u.ID)

	for i := 0; i < 2; i++ {
		if rr := do(t, srv, http.MethodGet, target, ""); rr.Code != http.StatusOK {
			t.Fatalf("request %d status=%d", i+1, rr.Code)
		}
	}
	rr := do(t, srv, http.MethodGet, target, "")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status=%d want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" || !strings.Contains(rr.Body.String(), "rate limit") {
		t.Fatalf("unexpected 429 response: %v %s", rr.Header(), rr.Body.String())
	}

	// probes are not rate limited
	if rr := do(t, srv, http.MethodGet, "/healthz", ""); rr.Code != http.StatusOK {
		t.Fatalf("healthz status=%d", rr.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t, 100)

	req := httptest.NewRequest(http.MethodOptions, "/api/transactions/1", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("status=%d", rr.Code)
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Fatalf("headers=%v", rr.Header())
	}
}
