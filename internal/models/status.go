// Package models содержит закрытое перечисление статусов подписки
// и производное представление, используемое шлюзом доступа.
package models

import (
	"math"
	"time"
)

// SubscriptionStatus — статус подписки пользователя, хранимый в базе.
type SubscriptionStatus string

// Допустимые значения статуса подписки.
const (
	StatusNone     SubscriptionStatus = "none"
	StatusTrialing SubscriptionStatus = "trialing"
	StatusActive   SubscriptionStatus = "active"
	StatusPastDue  SubscriptionStatus = "past_due"
	StatusCanceled SubscriptionStatus = "canceled"
	// StatusUnknown присваивается значениям, записанным внешними
	// инструментами вне закрытого перечисления.
	StatusUnknown SubscriptionStatus = "unknown"
)

// EffectiveTier — уровень доступа, выведенный из статуса подписки.
type EffectiveTier string

// Возможные уровни доступа.
const (
	TierActive   EffectiveTier = "active"
	TierTrialing EffectiveTier = "trialing"
	TierNone     EffectiveTier = "none"
)

// ParseStatus приводит строку из хранилища к SubscriptionStatus.
// Неизвестные значения не считаются ошибкой и отображаются в StatusUnknown.
func ParseStatus(raw string) SubscriptionStatus {
	switch s := SubscriptionStatus(raw); s {
	case StatusNone, StatusTrialing, StatusActive, StatusPastDue, StatusCanceled:
		return s
	default:
		return StatusUnknown
	}
}

// SubscriptionView — производное представление подписки на момент времени.
type SubscriptionView struct {
	Status               SubscriptionStatus `json:"status"`
	IsTrialExpired       bool               `json:"is_trial_expired"`
	DaysRemainingInTrial int                `json:"days_remaining_in_trial"`
	EffectiveTier        EffectiveTier      `json:"effective_tier"`
}

// ResolveView вычисляет SubscriptionView из сохранённых полей пользователя
// и текущего времени. Функция чистая: никаких обращений к хранилищу.
//
// Остаток пробного периода округляется вверх до целых дней.
func ResolveView(u *User, now time.Time) SubscriptionView {
	view := SubscriptionView{
		Status:        u.SubscriptionStatus,
		EffectiveTier: TierNone,
	}

	switch u.SubscriptionStatus {
	case StatusActive:
		view.EffectiveTier = TierActive
	case StatusTrialing:
		if u.TrialEndDate != nil && now.After(*u.TrialEndDate) {
			view.IsTrialExpired = true
			return view
		}
		view.EffectiveTier = TierTrialing
		if u.TrialEndDate != nil {
			remaining := u.TrialEndDate.Sub(now)
			days := int(math.Ceil(remaining.Hours() / 24))
			if days < 0 {
				days = 0
			}
			view.DaysRemainingInTrial = days
		}
	}
	return view
}
