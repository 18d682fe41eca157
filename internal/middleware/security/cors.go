package security

import (
	"net/http"
	"strconv"
	"strings"
)

// CORS answers preflight requests and tags responses for allowed origins.
// An allowed origin of "*" matches any origin.
type CORS struct {
	allowed map[string]struct{}
	any     bool
	methods string
	headers string
	maxAge  string
}

func NewCORS(allowedOrigins []string) *CORS {
	c := &CORS{
		allowed: make(map[string]struct{}, len(allowedOrigins)),
		methods: strings.Join([]string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions}, ", "),
		headers: "Content-Type, X-Request-ID",
		maxAge:  strconv.Itoa(600),
	}
	for _, o := range allowedOrigins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "" {
			continue
		}
		if o == "*" {
			c.any = true
			continue
		}
		c.allowed[o] = struct{}{}
	}
	return c
}

func (c *CORS) originAllowed(origin string) bool {
	if c.any {
		return true
	}
	_, ok := c.allowed[origin]
	return ok
}

func (c *CORS) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			next.ServeHTTP(w, r)
			return
		}

		h := w.Header()
		h.Add("Vary", "Origin")
		allowed := c.originAllowed(origin)
		if allowed {
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Expose-Headers", "X-Request-ID")
		}

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			if !allowed {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			h.Set("Access-Control-Allow-Methods", c.methods)
			h.Set("Access-Control-Allow-Headers", c.headers)
			h.Set("Access-Control-Max-Age", c.maxAge)
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
