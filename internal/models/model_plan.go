package models

import "time"

// Plan is a purchasable access package for one channel. Prices are in minor units.
type Plan struct {
	ID              string    `gorm:"column:id;type:uuid;primary_key" json:"id"`
	ChannelID       string    `gorm:"column:channel_id;type:uuid;not null;index" json:"channel_id"`
	Name            string    `gorm:"column:name;type:varchar(128);not null" json:"name"`
	Description     string    `gorm:"column:description;type:text" json:"description"`
	MarkupPrice     int64     `gorm:"column:markup_price;type:bigint;not null" json:"markup_price"`
	DiscountedPrice *int64    `gorm:"column:discounted_price;type:bigint;default:null" json:"discounted_price"`
	ValidityDays    int       `gorm:"column:validity_days;not null" json:"validity_days"`
	IsActive        bool      `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (Plan) TableName() string {
	return "plan"
}

// BasePrice is the discounted price when set and positive, the markup price otherwise.
func (p *Plan) BasePrice() int64 {
	if p.DiscountedPrice != nil && *p.DiscountedPrice > 0 {
		return *p.DiscountedPrice
	}
	return p.MarkupPrice
}
