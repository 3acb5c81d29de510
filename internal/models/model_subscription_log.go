package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/fatflowers/tgpass/pkg/types"
)

// SubscriptionLog records before/after snapshots of a subscription change.
type SubscriptionLog struct {
	ID             string                          `gorm:"column:id;type:uuid;primary_key" json:"id"`
	SubscriptionID string                          `gorm:"column:subscription_id;type:uuid;not null;index" json:"subscription_id"`
	UserID         string                          `gorm:"column:user_id;type:varchar(64);not null" json:"user_id"`
	Reason         types.SubscriptionChangeReason  `gorm:"column:reason;type:varchar(64);not null" json:"reason"`
	Before         datatypes.JSONType[*Subscription] `gorm:"column:before;type:jsonb;default:'null'" json:"before"`
	After          datatypes.JSONType[*Subscription] `gorm:"column:after;type:jsonb;default:'null'" json:"after"`
	// Extra holds the actor and the triggering transaction, when known.
	Extra     datatypes.JSONMap `gorm:"column:extra;type:jsonb;default:'{}'" json:"extra"`
	CreatedAt time.Time         `json:"created_at"`
}

func (SubscriptionLog) TableName() string {
	return "subscription_log"
}
