package middlewarectx

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitematcher/access-service/internal/lib/jwt"
)

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestJWTMiddleware(t *testing.T) {
	maker := jwt.NewJWTMaker("test_secret", 15*time.Minute)
	validToken, err := maker.GenerateToken("testuser", "user", "uid-1", "sess-1")
	require.NoError(t, err)

	tests := []struct {
		name         string
		authHeader   string
		wantStatus   int
		wantNextCall bool
	}{
		{
			name:         "valid token populates context",
			authHeader:   "Bearer " + validToken,
			wantStatus:   http.StatusOK,
			wantNextCall: true,
		},
		{
			name:       "missing header",
			authHeader: "",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "not bearer",
			authHeader: "Basic dXNlcjpwYXNz",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "garbage token",
			authHeader: "Bearer not.a.jwt",
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nextCalled := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				nextCalled = true
				assert.Equal(t, "testuser", r.Context().Value(User))
				assert.Equal(t, "user", r.Context().Value(Role))
				assert.Equal(t, "uid-1", r.Context().Value(UserUID))
				assert.Equal(t, "sess-1", r.Context().Value(SessionID))
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			w := httptest.NewRecorder()

			JWTMiddleware(maker, newNoopLogger())(next).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantNextCall, nextCalled)
		})
	}
}

func TestOptionalJWTMiddleware(t *testing.T) {
	maker := jwt.NewJWTMaker("test_secret", 15*time.Minute)
	validToken, err := maker.GenerateToken("testuser", "user", "uid-1", "sess-1")
	require.NoError(t, err)

	tests := []struct {
		name        string
		authHeader  string
		wantUserUID any
	}{
		{
			name:        "valid token populates context",
			authHeader:  "Bearer " + validToken,
			wantUserUID: "uid-1",
		},
		{
			name:        "missing header passes through",
			authHeader:  "",
			wantUserUID: nil,
		},
		{
			name:        "invalid token passes through without identity",
			authHeader:  "Bearer not.a.jwt",
			wantUserUID: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, tt.wantUserUID, r.Context().Value(UserUID))
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/subscription/access", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			w := httptest.NewRecorder()

			OptionalJWTMiddleware(maker)(next).ServeHTTP(w, req)

			// запрос никогда не отклоняется
			assert.Equal(t, http.StatusOK, w.Code)
		})
	}
}

func TestRequireRole(t *testing.T) {
	maker := jwt.NewJWTMaker("test_secret", 15*time.Minute)

	tests := []struct {
		name       string
		role       string
		wantStatus int
	}{
		{name: "admin passes", role: "admin", wantStatus: http.StatusOK},
		{name: "user rejected", role: "user", wantStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := maker.GenerateToken("testuser", tt.role, "uid-1", "sess-1")
			require.NoError(t, err)

			next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			})
			handler := JWTMiddleware(maker, newNoopLogger())(
				RequireRole("admin", newNoopLogger())(next))

			req := httptest.NewRequest(http.MethodPost, "/admin/subscription/reconcile", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}
