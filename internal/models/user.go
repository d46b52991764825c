// Package models содержит доменную модель пользователя сервиса доступа,
// включающую поля подписки, пробного периода и текущей сессии.
// Структуры используются в бизнес‑логике и при работе с хранилищем.
package models

import "time"

// User представляет зарегистрированного пользователя системы.
//
// CurrentSessionID — токен последнего входа; nil означает, что ограничение
// одной активной сессии не действует.
type User struct {
	UID                    string               // Уникальный идентификатор пользователя
	Email                  string               // Электронная почта
	Username               string               // Имя пользователя (уникальное)
	PasswordHash           string               // Хэш пароля пользователя
	Role                   string               // Роль пользователя, admin или user
	SubscriptionStatus     SubscriptionStatus   // Статус подписки
	TrialStartDate         *time.Time           // Дата начала пробного периода
	TrialEndDate           *time.Time           // Дата окончания пробного периода
	PaymentMethodAdded     bool                 // Признак наличия платёжного средства
	TrialWillConvert       bool                 // Конвертируется ли пробный период в оплату
	ProviderCustomerID     *string              // Идентификатор клиента у платёжного провайдера
	ProviderSubscriptionID *string              // Идентификатор подписки у платёжного провайдера
	CurrentSessionID       *string              // Токен текущей сессии, nil — ограничение снято
	LastSessionChange      *time.Time           // Момент последнего изменения CurrentSessionID
	CreatedAt              time.Time            // Дата создания учётной записи
}

// SubscriptionPatch описывает частичное обновление полей подписки.
// Заполненные указатели применяются к записи пользователя, nil-поля не трогаются.
type SubscriptionPatch struct {
	Status                 *SubscriptionStatus
	TrialStartDate         *time.Time
	TrialEndDate           *time.Time
	PaymentMethodAdded     *bool
	TrialWillConvert       *bool
	ProviderCustomerID     *string
	ProviderSubscriptionID *string
}
