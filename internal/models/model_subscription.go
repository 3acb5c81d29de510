package models

import (
	"time"

	"github.com/fatflowers/tgpass/pkg/types"
)

// Subscription grants a user access to one channel for [StartDate, EndDate].
// Status is the stored value; use EffectiveStatus for anything user visible.
type Subscription struct {
	ID        string                   `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID    string                   `gorm:"column:user_id;type:varchar(64);not null;index" json:"user_id"`
	PlanID    string                   `gorm:"column:plan_id;type:uuid;not null" json:"plan_id"`
	ChannelID string                   `gorm:"column:channel_id;type:uuid;not null;index" json:"channel_id"`
	StartDate time.Time                `gorm:"column:start_date;not null" json:"start_date"`
	EndDate   time.Time                `gorm:"column:end_date;not null" json:"end_date"`
	Status    types.SubscriptionStatus `gorm:"column:status;type:varchar(32);not null" json:"status"`
	// FromSubscriptionID links a renewal to the subscription it renews.
	FromSubscriptionID *string `gorm:"column:from_subscription_id;type:uuid;default:null" json:"from_subscription_id"`
	InviteLinkID       *string `gorm:"column:invite_link_id;type:uuid;default:null" json:"invite_link_id"`
	// TelegramUserID is set once the holder joins the channel.
	TelegramUserID *int64 `gorm:"column:telegram_user_id;default:null" json:"telegram_user_id"`
	// Version is bumped on every update and checked by conditional writes.
	Version   int64     `gorm:"column:version;not null;default:0" json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Subscription) TableName() string {
	return "subscription"
}

// EffectiveStatus applies read-time expiry: a lapsable status whose end date
// has passed reads as expired.
func (s *Subscription) EffectiveStatus(now time.Time) types.SubscriptionStatus {
	if s == nil {
		return ""
	}
	if s.Status.Lapsable() && s.EndDate.Before(now) {
		return types.SubscriptionStatusExpired
	}
	return s.Status
}

func (s *Subscription) Valid(now time.Time) bool {
	st := s.EffectiveStatus(now)
	return st == types.SubscriptionStatusActive || st == types.SubscriptionStatusKYC
}

// ExtendFrom returns max(EndDate, now) + days.
func (s *Subscription) ExtendFrom(now time.Time, days int) time.Time {
	base := s.EndDate
	if now.After(base) {
		base = now
	}
	return base.AddDate(0, 0, days)
}

func (s *Subscription) Clone() *Subscription {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
