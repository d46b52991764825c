package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sitematcher/access-service/internal/models"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) GetUser(ctx context.Context, userUID string) (*models.User, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *RepoMock) UpdateSessionID(ctx context.Context, userUID, sessionID string, changedAt time.Time) (int64, error) {
	args := m.Called(ctx, userUID, sessionID, changedAt)
	return args.Get(0).(int64), args.Error(1)
}

func (m *RepoMock) ClearSessionID(ctx context.Context, userUID string, changedAt time.Time) (int64, error) {
	args := m.Called(ctx, userUID, changedAt)
	return args.Get(0).(int64), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func strPtr(s string) *string { return &s }

func TestService_Issue(t *testing.T) {
	tests := []struct {
		name       string
		userUID    string
		setupMocks func(r *RepoMock)
		wantErr    error
	}{
		{
			name:    "success issue",
			userUID: "uid-1",
			setupMocks: func(r *RepoMock) {
				r.On("UpdateSessionID", mock.Anything, "uid-1", mock.AnythingOfType("string"), mock.Anything).
					Return(int64(1), nil).Once()
			},
		},
		{
			name:       "empty user uid",
			userUID:    "",
			setupMocks: func(_ *RepoMock) {},
			wantErr:    ErrNotAuthenticated,
		},
		{
			name:    "user not found",
			userUID: "uid-missing",
			setupMocks: func(r *RepoMock) {
				r.On("UpdateSessionID", mock.Anything, "uid-missing", mock.AnythingOfType("string"), mock.Anything).
					Return(int64(0), nil).Once()
			},
			wantErr: ErrUserNotFound,
		},
		{
			name:    "storage failure",
			userUID: "uid-1",
			setupMocks: func(r *RepoMock) {
				r.On("UpdateSessionID", mock.Anything, "uid-1", mock.AnythingOfType("string"), mock.Anything).
					Return(int64(0), errors.New("db down")).Once()
			},
			wantErr: ErrStorage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			tt.setupMocks(repo)
			svc := New(repo, newNoopLogger())

			got, err := svc.Issue(context.Background(), tt.userUID)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, got)
			} else {
				require.NoError(t, err)
				// 16 байт энтропии в hex
				assert.Len(t, got, 32)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestService_Issue_OverwritesPreviousToken(t *testing.T) {
	repo := new(RepoMock)
	var stored string
	repo.On("UpdateSessionID", mock.Anything, "uid-1", mock.AnythingOfType("string"), mock.Anything).
		Run(func(args mock.Arguments) {
			stored = args.String(2)
		}).
		Return(int64(1), nil).Twice()

	svc := New(repo, newNoopLogger())

	first, err := svc.Issue(context.Background(), "uid-1")
	require.NoError(t, err)
	second, err := svc.Issue(context.Background(), "uid-1")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	// выживает последний записанный токен
	assert.Equal(t, second, stored)

	repo.On("GetUser", mock.Anything, "uid-1").
		Return(&models.User{UID: "uid-1", CurrentSessionID: &stored}, nil).Twice()

	res, err := svc.Validate(context.Background(), "uid-1", second)
	require.NoError(t, err)
	assert.True(t, res.Valid)

	res, err = svc.Validate(context.Background(), "uid-1", first)
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, ReasonSessionMismatch, res.Reason)
}

func TestService_Validate(t *testing.T) {
	tests := []struct {
		name       string
		userUID    string
		presented  string
		setupMocks func(r *RepoMock)
		wantValid  bool
		wantReason string
		wantErr    error
	}{
		{
			name:      "null stored token validates anything",
			userUID:   "uid-1",
			presented: "whatever-token",
			setupMocks: func(r *RepoMock) {
				r.On("GetUser", mock.Anything, "uid-1").
					Return(&models.User{UID: "uid-1", CurrentSessionID: nil}, nil).Once()
			},
			wantValid: true,
		},
		{
			name:      "matching token is valid",
			userUID:   "uid-1",
			presented: "tok-abc",
			setupMocks: func(r *RepoMock) {
				r.On("GetUser", mock.Anything, "uid-1").
					Return(&models.User{UID: "uid-1", CurrentSessionID: strPtr("tok-abc")}, nil).Once()
			},
			wantValid: true,
		},
		{
			name:      "mismatched token",
			userUID:   "uid-1",
			presented: "tok-stale",
			setupMocks: func(r *RepoMock) {
				r.On("GetUser", mock.Anything, "uid-1").
					Return(&models.User{UID: "uid-1", CurrentSessionID: strPtr("tok-fresh")}, nil).Once()
			},
			wantValid:  false,
			wantReason: ReasonSessionMismatch,
		},
		{
			name:       "unauthenticated caller",
			userUID:    "",
			presented:  "tok-abc",
			setupMocks: func(_ *RepoMock) {},
			wantReason: ReasonNotAuthenticated,
			wantErr:    ErrNotAuthenticated,
		},
		{
			name:       "missing presented token",
			userUID:    "uid-1",
			presented:  "",
			setupMocks: func(_ *RepoMock) {},
			wantReason: ReasonNoTokenProvided,
			wantErr:    ErrNoTokenProvided,
		},
		{
			name:      "storage read failure",
			userUID:   "uid-1",
			presented: "tok-abc",
			setupMocks: func(r *RepoMock) {
				r.On("GetUser", mock.Anything, "uid-1").
					Return(nil, errors.New("connection refused")).Once()
			},
			wantReason: ReasonStorageError,
			wantErr:    ErrStorage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			tt.setupMocks(repo)
			svc := New(repo, newNoopLogger())

			got, err := svc.Validate(context.Background(), tt.userUID, tt.presented)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantValid, got.Valid)
			assert.Equal(t, tt.wantReason, got.Reason)
			repo.AssertExpectations(t)
		})
	}
}

func TestService_InvalidateAll_ThenValidateAnyToken(t *testing.T) {
	repo := new(RepoMock)
	repo.On("ClearSessionID", mock.Anything, "uid-1", mock.Anything).
		Return(int64(1), nil).Once()
	// после сброса хранилище возвращает NULL
	repo.On("GetUser", mock.Anything, "uid-1").
		Return(&models.User{UID: "uid-1", CurrentSessionID: nil}, nil).Once()

	svc := New(repo, newNoopLogger())

	require.NoError(t, svc.InvalidateAll(context.Background(), "uid-1"))

	res, err := svc.Validate(context.Background(), "uid-1", "any-token-at-all")
	require.NoError(t, err)
	assert.True(t, res.Valid)
	repo.AssertExpectations(t)
}

func TestService_InvalidateAll_Errors(t *testing.T) {
	t.Run("empty uid", func(t *testing.T) {
		svc := New(new(RepoMock), newNoopLogger())
		assert.ErrorIs(t, svc.InvalidateAll(context.Background(), ""), ErrNotAuthenticated)
	})

	t.Run("user not found", func(t *testing.T) {
		repo := new(RepoMock)
		repo.On("ClearSessionID", mock.Anything, "uid-x", mock.Anything).
			Return(int64(0), nil).Once()
		svc := New(repo, newNoopLogger())
		assert.ErrorIs(t, svc.InvalidateAll(context.Background(), "uid-x"), ErrUserNotFound)
	})
}
