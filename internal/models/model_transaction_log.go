package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/fatflowers/tgpass/pkg/types"
)

type TransactionLog struct {
	ID             string                         `gorm:"column:id;primary_key;type:uuid" json:"id"`
	TransactionID  string                         `gorm:"column:transaction_id;type:uuid;not null;index" json:"transaction_id"`
	UserID         string                         `gorm:"column:user_id;type:varchar(64);not null" json:"user_id"`
	ProviderID     types.PaymentProvider          `gorm:"column:provider_id;type:varchar(32);not null" json:"provider_id"`
	GatewayOrderID string                         `gorm:"column:gateway_order_id;type:varchar(64);not null" json:"gateway_order_id"`
	Reason         types.SubscriptionChangeReason `gorm:"column:reason;type:varchar(64);not null" json:"reason"`
	Before         datatypes.JSONType[*Transaction] `gorm:"column:before;type:jsonb;default:'null'" json:"before"`
	After          datatypes.JSONType[*Transaction] `gorm:"column:after;type:jsonb;default:'null'" json:"after"`
	Extra          datatypes.JSONMap              `gorm:"column:extra;type:jsonb;default:'{}'" json:"extra"`
	CreatedAt      time.Time                      `json:"created_at"`
}

func (TransactionLog) TableName() string {
	return "transaction_log"
}
