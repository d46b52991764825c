// Package subscription содержит бизнес-логику определения эффективного
// уровня доступа пользователя по сохранённым полям подписки.
//
// Разрешение статуса — чистая функция от полей записи и текущего времени
// (models.ResolveView); сервис добавляет загрузку из хранилища, кеширование
// производного представления и путь записи для административных коррекций.
package subscription

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sitematcher/access-service/internal/lib/rabbitmq"
	"github.com/sitematcher/access-service/internal/models"
)

// viewCacheTTL — время жизни кешированного представления подписки.
const viewCacheTTL = 5 * time.Minute

// trialDays — длительность пробного периода в днях.
const trialDays = 30

// Ошибки резолвера подписки.
var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmptyPatch   = errors.New("empty subscription patch")
)

// UserRepository определяет операции хранилища для работы с подпиской.
type UserRepository interface {
	// GetUser возвращает пользователя по UID.
	GetUser(ctx context.Context, userUID string) (*models.User, error)
	// UpdateSubscription применяет частичное обновление полей подписки.
	UpdateSubscription(ctx context.Context, userUID string, patch models.SubscriptionPatch) (int64, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	// Get пытается получить значение из кеша по ключу.
	Get(key string, result any) (bool, error)
	// Set сохраняет значение в кеш с временем жизни.
	Set(key string, value any, expiration time.Duration) error
	// Invalidate удаляет значение из кеша по ключу.
	Invalidate(key string) error
}

// EventPublisher публикует события об изменении статуса подписки.
type EventPublisher interface {
	PublishStatusChanged(event rabbitmq.StatusChangedEvent) error
}

// Service реализует резолвер статуса подписки и шлюз доступа.
type Service struct {
	repo   UserRepository
	cache  Cache
	events EventPublisher
	log    *slog.Logger
}

// New создает новый Service.
func New(repo UserRepository, cache Cache, events EventPublisher, log *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		cache:  cache,
		events: events,
		log:    log,
	}
}

func viewCacheKey(userUID string) string {
	return fmt.Sprintf("subscription:view:%s", userUID)
}

// ResolveStatus загружает поля подписки пользователя и вычисляет
// производное представление. Представление кешируется на viewCacheTTL;
// Reconcile инвалидирует ключ.
func (s *Service) ResolveStatus(ctx context.Context, userUID string) (models.SubscriptionView, error) {
	var view models.SubscriptionView

	cacheKey := viewCacheKey(userUID)
	found, err := s.cache.Get(cacheKey, &view)
	if err != nil {
		s.log.Warn("failed to read subscription view from cache", slog.String("key", cacheKey), slog.Any("err", err))
	}
	if found {
		return view, nil
	}

	user, err := s.repo.GetUser(ctx, userUID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.SubscriptionView{}, ErrUserNotFound
		}
		return models.SubscriptionView{}, err
	}

	view = models.ResolveView(user, time.Now().UTC())

	if err := s.cache.Set(cacheKey, view, viewCacheTTL); err != nil {
		s.log.Warn("failed to cache subscription view", slog.String("key", cacheKey), slog.Any("err", err))
	}
	return view, nil
}

// HasAccess возвращает true, если эффективный уровень доступа отличен
// от none. Неидентифицированный вызывающий всегда получает false —
// без ошибки, чтобы интерфейс мог показать предложение подписки,
// а не состояние ошибки.
func (s *Service) HasAccess(ctx context.Context, userUID string) bool {
	if userUID == "" {
		return false
	}
	view, err := s.ResolveStatus(ctx, userUID)
	if err != nil {
		s.log.Warn("access check degraded to deny", slog.String("user_uid", userUID), slog.Any("err", err))
		return false
	}
	return view.EffectiveTier != models.TierNone
}

// GetStatus возвращает сохранённый статус подписки пользователя.
func (s *Service) GetStatus(ctx context.Context, userUID string) (models.SubscriptionStatus, error) {
	user, err := s.repo.GetUser(ctx, userUID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrUserNotFound
		}
		return "", err
	}
	return user.SubscriptionStatus, nil
}

// Reconcile применяет частичную коррекцию полей подписки.
//
// Бизнес-правило: статус active означает, что платёжное средство считается
// привязанным, даже если вызывающий этого не указал — patch дополняется
// payment_method_added=true.
func (s *Service) Reconcile(ctx context.Context, userUID string, patch models.SubscriptionPatch) error {
	if isEmptyPatch(patch) {
		return ErrEmptyPatch
	}

	oldStatus := models.StatusUnknown
	oldStatusKnown := false
	if user, err := s.repo.GetUser(ctx, userUID); err == nil {
		oldStatus = user.SubscriptionStatus
		oldStatusKnown = true
	} else if errors.Is(err, sql.ErrNoRows) {
		return ErrUserNotFound
	} else {
		// Прежний статус неизвестен, событие о переходе публиковать нельзя
		s.log.Warn("failed to read previous status, change event suppressed",
			slog.String("user_uid", userUID), slog.Any("err", err))
	}

	if patch.Status != nil && *patch.Status == models.StatusActive {
		forced := true
		patch.PaymentMethodAdded = &forced
	}

	affected, err := s.repo.UpdateSubscription(ctx, userUID, patch)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrUserNotFound
	}

	cacheKey := viewCacheKey(userUID)
	if err := s.cache.Invalidate(cacheKey); err != nil {
		s.log.Warn("failed to invalidate subscription view", slog.String("key", cacheKey), slog.Any("err", err))
	}

	if oldStatusKnown && patch.Status != nil && *patch.Status != oldStatus {
		event := rabbitmq.StatusChangedEvent{
			UserUID:    userUID,
			OldStatus:  string(oldStatus),
			NewStatus:  string(*patch.Status),
			OccurredAt: time.Now().UTC(),
		}
		if err := s.events.PublishStatusChanged(event); err != nil {
			s.log.Warn("failed to publish status change event", slog.String("user_uid", userUID), slog.Any("err", err))
		}
	}

	s.log.Info("reconciled subscription", slog.String("user_uid", userUID))
	return nil
}

// StartTrial запускает пробный период на trialDays дней после привязки
// платёжного средства у провайдера.
func (s *Service) StartTrial(ctx context.Context, userUID, providerCustomerID, providerSubscriptionID string) error {
	now := time.Now().UTC()
	trialEnd := now.AddDate(0, 0, trialDays)
	status := models.StatusTrialing
	flag := true

	patch := models.SubscriptionPatch{
		Status:             &status,
		TrialStartDate:     &now,
		TrialEndDate:       &trialEnd,
		PaymentMethodAdded: &flag,
		TrialWillConvert:   &flag,
	}
	if providerCustomerID != "" {
		patch.ProviderCustomerID = &providerCustomerID
	}
	if providerSubscriptionID != "" {
		patch.ProviderSubscriptionID = &providerSubscriptionID
	}
	return s.Reconcile(ctx, userUID, patch)
}

func isEmptyPatch(patch models.SubscriptionPatch) bool {
	return patch.Status == nil &&
		patch.TrialStartDate == nil &&
		patch.TrialEndDate == nil &&
		patch.PaymentMethodAdded == nil &&
		patch.TrialWillConvert == nil &&
		patch.ProviderCustomerID == nil &&
		patch.ProviderSubscriptionID == nil
}
