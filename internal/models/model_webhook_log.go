package models

import (
	"time"

	"github.com/fatflowers/paygate/pkg/types"

	"gorm.io/datatypes"
)

// WebhookLog records every inbound gateway webhook, for support and replay.
type WebhookLog struct {
	ID        string                 `gorm:"column:id;type:uuid;primary_key" json:"id"`
	Gateway   types.Gateway          `gorm:"column:gateway;type:varchar(16);not null;index:idx_webhook_log_ref,priority:1" json:"gateway"`
	Reference string                 `gorm:"column:reference;type:varchar(128);index:idx_webhook_log_ref,priority:2" json:"reference"`
	OrderID   *string                `gorm:"column:order_id;type:uuid" json:"order_id"`
	TraceID   string                 `gorm:"column:trace_id;type:varchar(128)" json:"trace_id"`
	Data      datatypes.JSON         `gorm:"column:data;type:jsonb" json:"data"`
	Result    *datatypes.JSON        `gorm:"column:result;type:jsonb" json:"result"`
	Status    types.WebhookLogStatus `gorm:"column:status;type:varchar(32);not null" json:"status"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

func (WebhookLog) TableName() string { return "webhook_log" }
