package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studentdesk/complaints/internal/ctxkeys"
	"github.com/studentdesk/complaints/internal/service"
)

func principalEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(ctxkeys.Principal(r.Context())))
	})
}

func TestAuthenticate(t *testing.T) {
	tokens := service.NewTokenService("secret", "", time.Hour, false)
	token, _, err := tokens.Issue("student-1", time.Hour)
	require.NoError(t, err)

	handler := Authenticate(tokens)(principalEcho())

	tests := []struct {
		name    string
		prepare func(r *http.Request)
		want    string
		cleared bool
	}{
		{"anonymous", func(*http.Request) {}, "", false},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }, "student-1", false},
		{"lowercase scheme", func(r *http.Request) { r.Header.Set("Authorization", "bearer "+token) }, "student-1", false},
		{"basic scheme", func(r *http.Request) { r.Header.Set("Authorization", "Basic abc") }, "", false},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: service.AuthCookieName, Value: token}) }, "student-1", false},
		{"bad cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: service.AuthCookieName, Value: "junk"}) }, "", true},
		{"bad bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer junk") }, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.prepare(req)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Body.String())
			assert.Equal(t, tt.cleared, len(rec.Result().Cookies()) > 0)
		})
	}
}

func TestRequireAuth(t *testing.T) {
	handler := RequireAuth(principalEcho())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"authentication required"}`, rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(ctxkeys.WithPrincipal(req.Context(), "admin-1"))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin-1", rec.Body.String())
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(2, time.Minute)
	limiter.now = func() time.Time { return now }

	assert.True(t, limiter.Allow("a"))
	assert.True(t, limiter.Allow("a"))
	assert.False(t, limiter.Allow("a"))
	assert.True(t, limiter.Allow("b"), "keys are independent")

	now = now.Add(time.Minute + time.Second)
	assert.True(t, limiter.Allow("a"))

	now = now.Add(time.Hour)
	limiter.cleanup()
	assert.Empty(t, limiter.requests)
}

func TestRateLimitMiddlewareKeysByPrincipal(t *testing.T) {
	handler := RateLimit(NewRateLimiter(1, time.Hour))(principalEcho())

	serve := func(principal string) int {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req = req.WithContext(ctxkeys.WithPrincipal(req.Context(), principal))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, serve("alice"))
	assert.Equal(t, http.StatusTooManyRequests, serve("alice"))
	assert.Equal(t, http.StatusOK, serve("bob"))
}

func TestCSRFProtection(t *testing.T) {
	handler := CSRFProtection(false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	// A safe request hands out the token in a cookie and a header
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	token := rec.Header().Get(csrfHeader)
	require.NotEmpty(t, token)
	csrfCookie := &http.Cookie{Name: csrfCookieName, Value: token}
	authCookie := &http.Cookie{Name: service.AuthCookieName, Value: "session"}

	post := func(principal string, prepare func(r *http.Request)) int {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		if principal != "" {
			req = req.WithContext(ctxkeys.WithPrincipal(req.Context(), principal))
		}
		prepare(req)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusForbidden, post("alice", func(r *http.Request) {
		r.AddCookie(csrfCookie)
		r.AddCookie(authCookie)
	}), "cookie session without header")

	assert.Equal(t, http.StatusForbidden, post("alice", func(r *http.Request) {
		r.AddCookie(csrfCookie)
		r.AddCookie(authCookie)
		r.Header.Set(csrfHeader, "wrong")
	}))

	assert.Equal(t, http.StatusNoContent, post("alice", func(r *http.Request) {
		r.AddCookie(csrfCookie)
		r.AddCookie(authCookie)
		r.Header.Set(csrfHeader, token)
	}))

	assert.Equal(t, http.StatusNoContent, post("", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer anything")
	}), "bearer clients are exempt")

	assert.Equal(t, http.StatusNoContent, post("", func(r *http.Request) {
		r.AddCookie(authCookie)
	}), "a cookie that failed verification is anonymous")
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(principalEcho()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}
