package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func timePtr(t time.Time) *time.Time { return &t }

func TestParseStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want SubscriptionStatus
	}{
		{raw: "none", want: StatusNone},
		{raw: "trialing", want: StatusTrialing},
		{raw: "active", want: StatusActive},
		{raw: "past_due", want: StatusPastDue},
		{raw: "canceled", want: StatusCanceled},
		// значения, записанные внешними инструментами, не роняют парсер
		{raw: "trial_expired", want: StatusUnknown},
		{raw: "", want: StatusUnknown},
		{raw: "garbage", want: StatusUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseStatus(tt.raw))
		})
	}
}

func TestResolveView(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		user User
		want SubscriptionView
	}{
		{
			name: "active subscription",
			user: User{SubscriptionStatus: StatusActive},
			want: SubscriptionView{Status: StatusActive, EffectiveTier: TierActive},
		},
		{
			name: "trial expired one second ago",
			user: User{
				SubscriptionStatus: StatusTrialing,
				TrialEndDate:       timePtr(now.Add(-time.Second)),
			},
			want: SubscriptionView{Status: StatusTrialing, IsTrialExpired: true, EffectiveTier: TierNone},
		},
		{
			name: "trial with 3 days 2 hours left rounds up to 4",
			user: User{
				SubscriptionStatus: StatusTrialing,
				TrialEndDate:       timePtr(now.Add(74 * time.Hour)),
			},
			want: SubscriptionView{
				Status:               StatusTrialing,
				EffectiveTier:        TierTrialing,
				DaysRemainingInTrial: 4,
			},
		},
		{
			name: "trial with exactly 3 days left",
			user: User{
				SubscriptionStatus: StatusTrialing,
				TrialEndDate:       timePtr(now.Add(72 * time.Hour)),
			},
			want: SubscriptionView{
				Status:               StatusTrialing,
				EffectiveTier:        TierTrialing,
				DaysRemainingInTrial: 3,
			},
		},
		{
			name: "trialing without a trial window",
			user: User{SubscriptionStatus: StatusTrialing},
			want: SubscriptionView{Status: StatusTrialing, EffectiveTier: TierTrialing},
		},
		{
			name: "past due maps to none",
			user: User{SubscriptionStatus: StatusPastDue},
			want: SubscriptionView{Status: StatusPastDue, EffectiveTier: TierNone},
		},
		{
			name: "canceled maps to none",
			user: User{SubscriptionStatus: StatusCanceled},
			want: SubscriptionView{Status: StatusCanceled, EffectiveTier: TierNone},
		},
		{
			name: "none maps to none",
			user: User{SubscriptionStatus: StatusNone},
			want: SubscriptionView{Status: StatusNone, EffectiveTier: TierNone},
		},
		{
			name: "unknown stored value maps to none",
			user: User{SubscriptionStatus: StatusUnknown},
			want: SubscriptionView{Status: StatusUnknown, EffectiveTier: TierNone},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveView(&tt.user, now))
		})
	}
}
