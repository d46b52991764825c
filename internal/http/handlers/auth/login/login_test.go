package login_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitematcher/access-service/internal/http/handlers/auth/login"
	"github.com/sitematcher/access-service/internal/http/response"
	"github.com/sitematcher/access-service/internal/services/auth"
)

type mockAuth struct {
	LoginFunc func(ctx context.Context, username, rawPassword string) (*auth.LoginResult, error)
}

func (m *mockAuth) Login(ctx context.Context, username, rawPassword string) (*auth.LoginResult, error) {
	return m.LoginFunc(ctx, username, rawPassword)
}

func makeLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoginHandler(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		body, _ := json.Marshal(login.Request{
			Username: "validuser",
			Password: "password123",
		})

		svc := &mockAuth{
			LoginFunc: func(_ context.Context, username, rawPassword string) (*auth.LoginResult, error) {
				require.Equal(t, "validuser", username)
				require.Equal(t, "password123", rawPassword)
				return &auth.LoginResult{
					Token:     "jwt-token-123",
					SessionID: "session-token-456",
					Role:      "user",
				}, nil
			},
		}

		req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(body))
		w := httptest.NewRecorder()

		login.New(makeLogger(), svc).ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var resp response.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Equal(t, response.StatusOK, resp.Status)
		data, ok := resp.Data.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "jwt-token-123", data["token"])
		assert.Equal(t, "session-token-456", data["session_id"])
		assert.Equal(t, "validuser", data["username"])
	})

	t.Run("invalid credentials", func(t *testing.T) {
		body, _ := json.Marshal(login.Request{
			Username: "validuser",
			Password: "wrongpassword",
		})

		svc := &mockAuth{
			LoginFunc: func(context.Context, string, string) (*auth.LoginResult, error) {
				return nil, auth.ErrInvalidCredentials
			},
		}

		req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(body))
		w := httptest.NewRecorder()

		login.New(makeLogger(), svc).ServeHTTP(w, req)

		require.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("missing fields", func(t *testing.T) {
		svc := &mockAuth{
			LoginFunc: func(context.Context, string, string) (*auth.LoginResult, error) {
				t.Fatal("login must not be called")
				return nil, nil
			},
		}

		req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader([]byte(`{"username": "ab"}`)))
		w := httptest.NewRecorder()

		login.New(makeLogger(), svc).ServeHTTP(w, req)

		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("malformed json", func(t *testing.T) {
		svc := &mockAuth{
			LoginFunc: func(context.Context, string, string) (*auth.LoginResult, error) {
				t.Fatal("login must not be called")
				return nil, nil
			},
		}

		req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader([]byte(`{not json`)))
		w := httptest.NewRecorder()

		login.New(makeLogger(), svc).ServeHTTP(w, req)

		require.Equal(t, http.StatusBadRequest, w.Code)
	})
}
