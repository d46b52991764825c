// Package auth содержит логику регистрации и входа пользователей.
//
// Вход выдаёт новый токен сессии через реестр сессий и JWT,
// в claims которого токен сессии передаётся клиенту.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/sitematcher/access-service/internal/lib/jwt"
	"github.com/sitematcher/access-service/internal/lib/password"
	"github.com/sitematcher/access-service/internal/models"
)

// ErrInvalidCredentials возвращается при неверной паре username/password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// UserRepository описывает контракт для работы с пользователями в базе данных.
type UserRepository interface {
	// RegisterUser сохраняет нового пользователя и возвращает его UID.
	RegisterUser(ctx context.Context, user models.User) (string, error)
	// GetUserByUsername возвращает пользователя по имени или ошибку, если не найден.
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// SessionIssuer выдаёт токен текущей сессии при входе.
type SessionIssuer interface {
	Issue(ctx context.Context, userUID string) (string, error)
}

// LoginResult — результат успешного входа.
type LoginResult struct {
	Token     string
	SessionID string
	Role      string
}

// Service отвечает за регистрацию и авторизацию.
type Service struct {
	users    UserRepository
	sessions SessionIssuer
	jwtMaker jwt.Maker
}

// New создает новый Service.
func New(users UserRepository, sessions SessionIssuer, jwtMaker jwt.Maker) *Service {
	return &Service{
		users:    users,
		sessions: sessions,
		jwtMaker: jwtMaker,
	}
}

// Register создает нового пользователя с хэшированием пароля,
// дефолтной ролью user и статусом подписки none.
func (s *Service) Register(ctx context.Context, email, username, rawPassword string) (string, error) {
	hashed, err := password.GetHash(rawPassword)
	if err != nil {
		return "", err
	}
	user := models.User{
		UID:                uuid.NewString(),
		Email:              email,
		Username:           username,
		PasswordHash:       hashed,
		Role:               "user",
		SubscriptionStatus: models.StatusNone,
		CreatedAt:          time.Now().UTC(),
	}
	return s.users.RegisterUser(ctx, user)
}

// Login проверяет пароль пользователя, выдаёт новый токен сессии
// (перезаписывая прежний — предыдущий вход принудительно завершается)
// и генерирует JWT с токеном сессии в claims.
func (s *Service) Login(ctx context.Context, username, rawPassword string) (*LoginResult, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if err := password.CompareHash(user.PasswordHash, rawPassword); err != nil {
		return nil, ErrInvalidCredentials
	}

	sessionID, err := s.sessions.Issue(ctx, user.UID)
	if err != nil {
		return nil, err
	}

	token, err := s.jwtMaker.GenerateToken(user.Username, user.Role, user.UID, sessionID)
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		Token:     token,
		SessionID: sessionID,
		Role:      user.Role,
	}, nil
}
