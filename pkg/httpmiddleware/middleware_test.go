package httpmiddleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestWrapOrder(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Wrap(okHandler(), tag("outer"), tag("inner"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"outer", "inner"}, order)
}

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		reused   bool
	}{
		{name: "missing ID gets a fresh UUID", incoming: "", reused: false},
		{name: "well-formed ID is reused", incoming: "trace-abc-123", reused: true},
		{name: "oversized ID is replaced", incoming: strings.Repeat("x", 129), reused: false},
		{name: "non-printable ID is replaced", incoming: "bad\x01id", reused: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var fromCtx string
			h := Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fromCtx = RequestIDFromContext(r.Context())
			}), RequestID())

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.incoming != "" {
				req.Header.Set("X-Request-ID", tt.incoming)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			echoed := rec.Header().Get("X-Request-ID")
			require.NotEmpty(t, echoed)
			assert.Equal(t, echoed, fromCtx)

			if tt.reused {
				assert.Equal(t, tt.incoming, echoed)
			} else {
				assert.NotEqual(t, tt.incoming, echoed)
				_, err := uuid.Parse(echoed)
				assert.NoError(t, err)
			}
		})
	}
}

func TestRecovery(t *testing.T) {
	h := Wrap(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}), Recovery())

	rec := httptest.NewRecorder()
	require.NotPanics(t, func() {
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRateLimit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := Wrap(okHandler(), RateLimit(ctx, RateLimitConfig{
		Max:     2,
		Window:  time.Hour,
		KeyFunc: ClientIDKey,
	}))

	doReq := func(clientID string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		if clientID != "" {
			req.Header.Set("X-Client-ID", clientID)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	rec := doReq("device-a")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Remaining"))

	rec = doReq("device-a")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = doReq("device-a")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// Another device behind the same IP has its own budget.
	rec = doReq("device-b")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitWindowExpiry(t *testing.T) {
	rl := &rateLimiter{
		cfg:     RateLimitConfig{Max: 1, Window: time.Minute},
		windows: make(map[string]*window),
	}

	now := time.Now()
	_, _, ok := rl.allow("k", now)
	require.True(t, ok)
	_, _, ok = rl.allow("k", now.Add(time.Second))
	require.False(t, ok)

	// A new window opens once the old one ends.
	_, _, ok = rl.allow("k", now.Add(time.Minute))
	assert.True(t, ok)

	rl.sweep(now.Add(3 * time.Minute))
	assert.Empty(t, rl.windows)
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name        string
		cfg         CORSConfig
		method      string
		origin      string
		wantCode    int
		wantOrigin  string
		wantCreds   string
	}{
		{
			name:       "wildcard allows any origin",
			cfg:        CORSConfig{AllowOrigins: []string{"*"}},
			method:     http.MethodGet,
			origin:     "https://shop.verdora.test",
			wantCode:   http.StatusOK,
			wantOrigin: "*",
		},
		{
			name:       "exact origin is echoed",
			cfg:        CORSConfig{AllowOrigins: []string{"https://shop.verdora.test"}},
			method:     http.MethodGet,
			origin:     "https://shop.verdora.test",
			wantCode:   http.StatusOK,
			wantOrigin: "https://shop.verdora.test",
		},
		{
			name:       "wildcard with credentials echoes concrete origin",
			cfg:        CORSConfig{AllowOrigins: []string{"*"}, AllowCredentials: true},
			method:     http.MethodGet,
			origin:     "https://shop.verdora.test",
			wantCode:   http.StatusOK,
			wantOrigin: "https://shop.verdora.test",
			wantCreds:  "true",
		},
		{
			name:       "preflight from allowed origin",
			cfg:        CORSConfig{AllowOrigins: []string{"*"}, AllowHeaders: []string{"X-Client-ID"}, MaxAge: 600},
			method:     http.MethodOptions,
			origin:     "https://shop.verdora.test",
			wantCode:   http.StatusNoContent,
			wantOrigin: "*",
		},
		{
			name:     "preflight from disallowed origin",
			cfg:      CORSConfig{AllowOrigins: []string{"https://shop.verdora.test"}},
			method:   http.MethodOptions,
			origin:   "https://evil.test",
			wantCode: http.StatusForbidden,
		},
		{
			name:     "no origin header passes through untouched",
			cfg:      CORSConfig{AllowOrigins: []string{"*"}},
			method:   http.MethodGet,
			wantCode: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := Wrap(okHandler(), CORS(tt.cfg))

			req := httptest.NewRequest(tt.method, "/", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, tt.wantCreds, rec.Header().Get("Access-Control-Allow-Credentials"))

			if tt.method == http.MethodOptions && tt.wantCode == http.StatusNoContent {
				assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Methods"))
				assert.Equal(t, "X-Client-ID", rec.Header().Get("Access-Control-Allow-Headers"))
				assert.Equal(t, "600", rec.Header().Get("Access-Control-Max-Age"))
			}
		})
	}
}
