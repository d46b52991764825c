package middlewarectx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/sitematcher/access-service/internal/services/session"
)

type ValidatorMock struct{ mock.Mock }

func (m *ValidatorMock) Validate(ctx context.Context, userUID, presented string) (session.ValidationResult, error) {
	args := m.Called(ctx, userUID, presented)
	return args.Get(0).(session.ValidationResult), args.Error(1)
}

func TestSessionGuard(t *testing.T) {
	tests := []struct {
		name       string
		userUID    string
		sessionID  string
		setupMocks func(v *ValidatorMock)
		wantStatus int
	}{
		{
			name:      "valid session passes",
			userUID:   "uid-1",
			sessionID: "sess-1",
			setupMocks: func(v *ValidatorMock) {
				v.On("Validate", mock.Anything, "uid-1", "sess-1").
					Return(session.ValidationResult{Valid: true}, nil).Once()
			},
			wantStatus: http.StatusOK,
		},
		{
			name:      "stale session rejected",
			userUID:   "uid-1",
			sessionID: "sess-stale",
			setupMocks: func(v *ValidatorMock) {
				v.On("Validate", mock.Anything, "uid-1", "sess-stale").
					Return(session.ValidationResult{Valid: false, Reason: session.ReasonSessionMismatch}, nil).Once()
			},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "missing identity",
			userUID:    "",
			sessionID:  "sess-1",
			setupMocks: func(_ *ValidatorMock) {},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:      "missing session token in claims",
			userUID:   "uid-1",
			sessionID: "",
			setupMocks: func(v *ValidatorMock) {
				v.On("Validate", mock.Anything, "uid-1", "").
					Return(session.ValidationResult{Reason: session.ReasonNoTokenProvided}, session.ErrNoTokenProvided).Once()
			},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:      "storage failure",
			userUID:   "uid-1",
			sessionID: "sess-1",
			setupMocks: func(v *ValidatorMock) {
				v.On("Validate", mock.Anything, "uid-1", "sess-1").
					Return(session.ValidationResult{Reason: session.ReasonStorageError},
						errors.New("storage error")).Once()
			},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			validator := new(ValidatorMock)
			tt.setupMocks(validator)

			next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			ctx := req.Context()
			if tt.userUID != "" {
				ctx = context.WithValue(ctx, UserUID, tt.userUID)
			}
			ctx = context.WithValue(ctx, SessionID, tt.sessionID)
			req = req.WithContext(ctx)
			w := httptest.NewRecorder()

			SessionGuard(validator, newNoopLogger())(next).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			validator.AssertExpectations(t)
		})
	}
}
