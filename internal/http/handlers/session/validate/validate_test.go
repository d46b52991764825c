package validate_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sitematcher/access-service/internal/http/handlers/session/validate"
	"github.com/sitematcher/access-service/internal/http/middlewarectx"
	"github.com/sitematcher/access-service/internal/http/response"
	"github.com/sitematcher/access-service/internal/services/session"
)

type mockValidator struct {
	ValidateFunc func(ctx context.Context, userUID, presented string) (session.ValidationResult, error)
}

func (m *mockValidator) Validate(ctx context.Context, userUID, presented string) (session.ValidationResult, error) {
	return m.ValidateFunc(ctx, userUID, presented)
}

func makeLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func doRequest(t *testing.T, svc *mockValidator, uid string, body any) *httptest.ResponseRecorder {
	t.Helper()

	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/session/validate", bytes.NewReader(raw))
	if uid != "" {
		req = req.WithContext(context.WithValue(req.Context(), middlewarectx.UserUID, uid))
	}
	w := httptest.NewRecorder()

	validate.New(makeLogger(), svc).ServeHTTP(w, req)
	return w
}

func TestValidateHandler(t *testing.T) {
	t.Run("valid session", func(t *testing.T) {
		svc := &mockValidator{
			ValidateFunc: func(_ context.Context, userUID, presented string) (session.ValidationResult, error) {
				require.Equal(t, "user-1", userUID)
				require.Equal(t, "token-a", presented)
				return session.ValidationResult{Valid: true}, nil
			},
		}

		w := doRequest(t, svc, "user-1", validate.Request{SessionID: "token-a"})

		require.Equal(t, http.StatusOK, w.Code)

		var resp response.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		data, ok := resp.Data.(map[string]any)
		require.True(t, ok)
		require.Equal(t, true, data["valid"])
	})

	t.Run("superseded session", func(t *testing.T) {
		svc := &mockValidator{
			ValidateFunc: func(context.Context, string, string) (session.ValidationResult, error) {
				return session.ValidationResult{Valid: false, Reason: session.ReasonSessionMismatch}, nil
			},
		}

		w := doRequest(t, svc, "user-1", validate.Request{SessionID: "stale-token"})

		require.Equal(t, http.StatusOK, w.Code)

		var resp response.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		data, ok := resp.Data.(map[string]any)
		require.True(t, ok)
		require.Equal(t, false, data["valid"])
		require.Equal(t, session.ReasonSessionMismatch, data["reason"])
	})

	t.Run("missing session id", func(t *testing.T) {
		svc := &mockValidator{
			ValidateFunc: func(_ context.Context, _, presented string) (session.ValidationResult, error) {
				require.Empty(t, presented)
				return session.ValidationResult{Reason: session.ReasonNoTokenProvided}, session.ErrNoTokenProvided
			},
		}

		w := doRequest(t, svc, "user-1", map[string]any{})

		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unauthenticated caller", func(t *testing.T) {
		svc := &mockValidator{
			ValidateFunc: func(context.Context, string, string) (session.ValidationResult, error) {
				return session.ValidationResult{}, session.ErrNotAuthenticated
			},
		}

		w := doRequest(t, svc, "", validate.Request{SessionID: "token-a"})

		require.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("storage failure", func(t *testing.T) {
		svc := &mockValidator{
			ValidateFunc: func(context.Context, string, string) (session.ValidationResult, error) {
				return session.ValidationResult{}, errors.New("connection refused")
			},
		}

		w := doRequest(t, svc, "user-1", validate.Request{SessionID: "token-a"})

		require.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
