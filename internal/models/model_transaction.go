package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/fatflowers/tgpass/pkg/types"
)

// TransactionNotes is the notes payload sent to the gateway with the order.
type TransactionNotes struct {
	UserID         string            `json:"userid"`
	PlanID         string            `json:"planid"`
	SubscriptionID string            `json:"subscriptionid,omitempty"`
	Action         types.OrderAction `json:"action"`
	Receipt        string            `json:"receipt"`
	CouponCode     string            `json:"coupon_code,omitempty"`
}

// Transaction is one payment attempt against a gateway order.
type Transaction struct {
	ID        string `gorm:"column:id;primary_key;type:uuid" json:"id"`
	UserID    string `gorm:"column:user_id;type:varchar(64);not null;index:idx_pending_lookup,priority:1" json:"user_id"`
	PlanID    string `gorm:"column:plan_id;type:uuid;not null;index:idx_pending_lookup,priority:2" json:"plan_id"`
	ChannelID string `gorm:"column:channel_id;type:uuid;not null" json:"channel_id"`
	// Amount is in minor units of Currency.
	Amount           int64                   `gorm:"column:amount;type:bigint;not null" json:"amount"`
	Currency         string                  `gorm:"column:currency;type:varchar(16);not null" json:"currency"`
	ProviderID       types.PaymentProvider   `gorm:"column:provider_id;type:varchar(32);not null" json:"provider_id"`
	GatewayOrderID   string                  `gorm:"column:gateway_order_id;type:varchar(64);not null;uniqueIndex" json:"gateway_order_id"`
	GatewayPaymentID *string                 `gorm:"column:gateway_payment_id;type:varchar(64);default:null" json:"gateway_payment_id"`
	Status           types.TransactionStatus `gorm:"column:status;type:varchar(32);not null;index:idx_pending_lookup,priority:3" json:"status"`
	Action           types.OrderAction       `gorm:"column:action;type:varchar(32);not null" json:"action"`
	// TargetSubscriptionID is the subscription a renew or upgrade acts on.
	TargetSubscriptionID *string `gorm:"column:target_subscription_id;type:uuid;default:null" json:"target_subscription_id"`
	// SubscriptionID is set once the payment has been provisioned.
	SubscriptionID *string                              `gorm:"column:subscription_id;type:uuid;default:null;index" json:"subscription_id"`
	Notes          datatypes.JSONType[*TransactionNotes] `gorm:"column:notes;type:jsonb;default:'{}'" json:"notes"`
	CapturedAt     *time.Time                           `gorm:"column:captured_at;default:null" json:"captured_at"`
	CreatedAt      time.Time                            `json:"created_at"`
	UpdatedAt      time.Time                            `json:"updated_at"`
}

func (Transaction) TableName() string {
	return "transaction"
}

func (t *Transaction) Provisioned() bool {
	return t != nil && t.SubscriptionID != nil && *t.SubscriptionID != ""
}

func (t *Transaction) TargetID() string {
	if t == nil || t.TargetSubscriptionID == nil {
		return ""
	}
	return *t.TargetSubscriptionID
}

func (t *Transaction) Clone() *Transaction {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
