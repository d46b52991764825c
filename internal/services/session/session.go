// Package session реализует реестр токенов сессий: на каждого пользователя
// хранится не более одного "текущего" токена, по которому устаревшие входы
// принудительно завершаются.
//
// Политика fail open: если сохранённый токен равен NULL, любая проверка
// проходит успешно. NULL означает "ограничение не действует", а не
// "всегда недействительно": пользователь, только что нажавший "выйти везде",
// не должен оказаться заблокированным в собственной новой сессии.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sitematcher/access-service/internal/lib/token"
	"github.com/sitematcher/access-service/internal/models"
)

// Коды причин отказа проверки сессии.
const (
	ReasonNotAuthenticated = "NOT_AUTHENTICATED"
	ReasonNoTokenProvided  = "NO_TOKEN_PROVIDED"
	ReasonSessionMismatch  = "SESSION_MISMATCH"
	ReasonStorageError     = "STORAGE_ERROR"
)

// Ошибки реестра сессий. Все терминальны для текущего запроса,
// внутренних повторов нет.
var (
	ErrNotAuthenticated = errors.New("caller is not authenticated")
	ErrNoTokenProvided  = errors.New("no session token provided")
	ErrUserNotFound     = errors.New("user not found")
	ErrStorage          = errors.New("storage error")
)

// ValidationResult — результат сверки предъявленного токена с сохранённым.
type ValidationResult struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// UserRepository описывает операции хранилища, нужные реестру сессий.
type UserRepository interface {
	// GetUser возвращает пользователя по UID.
	GetUser(ctx context.Context, userUID string) (*models.User, error)
	// UpdateSessionID перезаписывает токен текущей сессии.
	UpdateSessionID(ctx context.Context, userUID, sessionID string, changedAt time.Time) (int64, error)
	// ClearSessionID сбрасывает токен текущей сессии в NULL.
	ClearSessionID(ctx context.Context, userUID string, changedAt time.Time) (int64, error)
}

// Service реализует выдачу, сброс и проверку токенов сессий.
type Service struct {
	repo UserRepository
	log  *slog.Logger
}

// New создает новый Service.
func New(repo UserRepository, log *slog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log,
	}
}

// Issue генерирует свежий токен, сохраняет его как текущую сессию
// пользователя и возвращает вызывающему. Прежний токен перезаписывается,
// чем неявно завершается предыдущая сессия.
//
// Два конкурентных вызова для одного пользователя гонятся на уровне
// хранилища: выживает последний записанный токен, проигравший клиент
// получит SESSION_MISMATCH при следующей проверке.
func (s *Service) Issue(ctx context.Context, userUID string) (string, error) {
	if userUID == "" {
		return "", ErrNotAuthenticated
	}

	sessionID, err := token.New()
	if err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}

	affected, err := s.repo.UpdateSessionID(ctx, userUID, sessionID, time.Now().UTC())
	if err != nil {
		s.log.Error("failed to persist session id", slog.String("user_uid", userUID), slog.Any("err", err))
		return "", fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if affected == 0 {
		return "", ErrUserNotFound
	}

	s.log.Info("issued new session", slog.String("user_uid", userUID))
	return sessionID, nil
}

// InvalidateAll сбрасывает токен текущей сессии в NULL ("выйти везде").
// После вызова любая проверка проходит успешно, пока Issue не установит
// новое ограничение.
func (s *Service) InvalidateAll(ctx context.Context, userUID string) error {
	if userUID == "" {
		return ErrNotAuthenticated
	}

	affected, err := s.repo.ClearSessionID(ctx, userUID, time.Now().UTC())
	if err != nil {
		s.log.Error("failed to clear session id", slog.String("user_uid", userUID), slog.Any("err", err))
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if affected == 0 {
		return ErrUserNotFound
	}

	s.log.Info("invalidated all sessions", slog.String("user_uid", userUID))
	return nil
}

// Validate сверяет предъявленный токен с сохранённым.
//
// Возвращает ошибку только при невозможности выполнить сверку
// (нет идентификации, нет токена, сбой хранилища); несовпадение токенов
// ошибкой не является и отражается в ValidationResult.
func (s *Service) Validate(ctx context.Context, userUID, presented string) (ValidationResult, error) {
	if userUID == "" {
		return ValidationResult{Reason: ReasonNotAuthenticated}, ErrNotAuthenticated
	}
	if presented == "" {
		return ValidationResult{Reason: ReasonNoTokenProvided}, ErrNoTokenProvided
	}

	user, err := s.repo.GetUser(ctx, userUID)
	if err != nil {
		s.log.Error("failed to load user for session check", slog.String("user_uid", userUID), slog.Any("err", err))
		return ValidationResult{Reason: ReasonStorageError}, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	if user.CurrentSessionID == nil {
		return ValidationResult{Valid: true}, nil
	}
	if *user.CurrentSessionID == presented {
		return ValidationResult{Valid: true}, nil
	}
	return ValidationResult{Valid: false, Reason: ReasonSessionMismatch}, nil
}
