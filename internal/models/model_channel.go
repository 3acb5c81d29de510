package models

import "time"

type Channel struct {
	ID      string `gorm:"column:id;type:uuid;primary_key" json:"id"`
	OwnerID string `gorm:"column:owner_id;type:varchar(64);not null;index" json:"owner_id"`
	Name    string `gorm:"column:name;type:varchar(128);not null" json:"name"`
	// TelegramChatID is either a numeric chat id or a public @username.
	TelegramChatID string  `gorm:"column:telegram_chat_id;type:varchar(64);not null" json:"telegram_chat_id"`
	CouponCode     *string `gorm:"column:coupon_code;type:varchar(64);default:null" json:"coupon_code"`
	// CouponDiscount is a percentage in [0, 100].
	CouponDiscount int       `gorm:"column:coupon_discount;not null;default:0" json:"coupon_discount"`
	IsActive       bool      `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (Channel) TableName() string {
	return "channel"
}

// HasCoupon reports whether code matches the channel's coupon.
func (c *Channel) HasCoupon(code string) bool {
	return c != nil && c.CouponCode != nil && *c.CouponCode != "" && *c.CouponCode == code
}
