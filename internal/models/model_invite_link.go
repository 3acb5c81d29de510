package models

import "time"

// InviteLink is the single-use channel invite issued when a subscription is provisioned.
type InviteLink struct {
	ID             string    `gorm:"column:id;type:uuid;primary_key" json:"id"`
	URL            string    `gorm:"column:url;type:varchar(255);not null;uniqueIndex" json:"url"`
	ChannelID      string    `gorm:"column:channel_id;type:uuid;not null" json:"channel_id"`
	SubscriptionID string    `gorm:"column:subscription_id;type:uuid;not null;index" json:"subscription_id"`
	CreatedAt      time.Time `json:"created_at"`
}

func (InviteLink) TableName() string {
	return "invite_link"
}
