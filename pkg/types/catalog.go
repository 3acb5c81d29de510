package types

// CatalogChannel describes a channel seeded from configuration.
type CatalogChannel struct {
	ID             string `json:"id" mapstructure:"id"`
	OwnerID        string `json:"owner_id" mapstructure:"owner_id"`
	Name           string `json:"name" mapstructure:"name"`
	TelegramChatID string `json:"telegram_chat_id" mapstructure:"telegram_chat_id"`
	CouponCode     string `json:"coupon_code" mapstructure:"coupon_code"`
	CouponDiscount int    `json:"coupon_discount" mapstructure:"coupon_discount"`
}

// CatalogPlan describes a plan seeded from configuration. Prices are in minor units.
type CatalogPlan struct {
	ID              string `json:"id" mapstructure:"id"`
	ChannelID       string `json:"channel_id" mapstructure:"channel_id"`
	Name            string `json:"name" mapstructure:"name"`
	MarkupPrice     int64  `json:"markup_price" mapstructure:"markup_price"`
	DiscountedPrice *int64 `json:"discounted_price" mapstructure:"discounted_price"`
	ValidityDays    int    `json:"validity_days" mapstructure:"validity_days"`
	Inactive        bool   `json:"inactive" mapstructure:"inactive"`
}
