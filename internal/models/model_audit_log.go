package models

import (
	"time"

	"gorm.io/datatypes"
)

type AuditLog struct {
	ID          string            `gorm:"column:id;type:uuid;primary_key" json:"id"`
	ActorType   string            `gorm:"column:actor_type;type:varchar(32);not null" json:"actor_type"`
	ActorID     string            `gorm:"column:actor_id;type:varchar(64)" json:"actor_id"`
	ActionType  string            `gorm:"column:action_type;type:varchar(64);not null;index" json:"action_type"`
	TargetType  string            `gorm:"column:target_type;type:varchar(32);not null" json:"target_type"`
	TargetID    string            `gorm:"column:target_id;type:varchar(64);index" json:"target_id"`
	Description string            `gorm:"column:description;type:text" json:"description"`
	Details     datatypes.JSONMap `gorm:"column:details;type:jsonb;default:'{}'" json:"details"`
	CreatedAt   time.Time         `json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_log"
}
