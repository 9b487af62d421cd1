package httputil

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubVerifier map[string]string

func (s stubVerifier) VerifyToken(token string) (string, error) {
	if email, ok := s[token]; ok {
		return email, nil
	}
	return "", errors.New("bad token")
}

type stubRoles struct {
	admins map[string]bool
	err    error
}

func (s stubRoles) IsAdmin(_ context.Context, email string) (bool, error) {
	return s.admins[email], s.err
}

func echoEmail() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		Text(w, http.StatusOK, GetEmail(r.Context()))
	})
}

func TestAuthMiddleware(t *testing.T) {
	handler := AuthMiddleware(stubVerifier{"good": "a@example.com"})(echoEmail())

	tests := []struct {
		name     string
		header   string
		wantCode int
		wantBody string
	}{
		{name: "no header", wantCode: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Token good", wantCode: http.StatusForbidden},
		{name: "empty token", header: "Bearer ", wantCode: http.StatusForbidden},
		{name: "unknown token", header: "Bearer nope", wantCode: http.StatusForbidden},
		{name: "valid", header: "Bearer good", wantCode: http.StatusOK, wantBody: "a@example.com"},
		{name: "scheme is case insensitive", header: "bearer good", wantCode: http.StatusOK, wantBody: "a@example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		roles    stubRoles
		wantCode int
	}{
		{name: "no identity", roles: stubRoles{}, wantCode: http.StatusUnauthorized},
		{name: "member", email: "m@example.com", roles: stubRoles{}, wantCode: http.StatusForbidden},
		{name: "admin", email: "a@example.com", roles: stubRoles{admins: map[string]bool{"a@example.com": true}}, wantCode: http.StatusOK},
		{name: "lookup fails", email: "a@example.com", roles: stubRoles{err: errors.New("db down")}, wantCode: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.email != "" {
				req = req.WithContext(WithEmail(req.Context(), tt.email))
			}
			rec := httptest.NewRecorder()

			RequireAdmin(tt.roles)(echoEmail()).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

func TestRateLimiter(t *testing.T) {
	limiter := NewRateLimiter(0.001, 2)
	handler := limiter.Middleware(echoEmail())

	codes := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest(http.MethodPut, "/user/a@example.com", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// Other clients have their own bucket.
	req := httptest.NewRequest(http.MethodPut, "/user/a@example.com", nil)
	req.RemoteAddr = "10.0.0.2:5555"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORSMiddleware(t *testing.T) {
	handler := CORSMiddleware([]string{"https://shop.example.com"})(echoEmail())

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/parts", nil)
		req.Header.Set("Origin", "https://shop.example.com")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "https://shop.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
	})

	t.Run("unknown origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/parts", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestRateLimiter_SweepsIdleClientsPeriodically(t *testing.T) {
	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(1, 1)
	limiter.now = func() time.Time { return clock }

	limiter.Allow("10.0.0.1")
	limiter.Allow("10.0.0.2")
	require.Len(t, limiter.clients, 2)

	// No sweep due yet.
	clock = clock.Add(limiter.ttl / 2)
	limiter.Allow("10.0.0.3")
	assert.Len(t, limiter.clients, 3)

	clock = clock.Add(limiter.ttl/2 + time.Second)
	limiter.Allow("10.0.0.3")
	assert.Len(t, limiter.clients, 1)
	assert.Contains(t, limiter.clients, "10.0.0.3")
}
