package models

import (
	"encoding/json"
	"time"

	"github.com/fatflowers/paygate/pkg/types"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// GatewayPayload keeps what the gateway told us about the current invoice
// and the last webhook received for it. It is audit data only; state
// decisions never read it.
type GatewayPayload struct {
	InvoiceUID      string          `json:"invoice_uid,omitempty"`
	InvoiceSequence string          `json:"invoice_sequence,omitempty"`
	PaymentURL      string          `json:"payment_url,omitempty"`
	Amount          string          `json:"amount,omitempty"`
	CustomerPhone   string          `json:"customer_phone,omitempty"`
	ProfileID       string          `json:"profile_id,omitempty"`
	PaymentMethod   string          `json:"payment_method,omitempty"`
	CreatedAt       *time.Time      `json:"created_at,omitempty"`
	InvoiceDetails  json.RawMessage `json:"invoice_details,omitempty"`
	WebhookReceived bool            `json:"webhook_received,omitempty"`
	WebhookAt       *time.Time      `json:"webhook_timestamp,omitempty"`
	WebhookData     json.RawMessage `json:"webhook_data,omitempty"`
}

// Order is the entity an invoice is issued for.
type Order struct {
	ID            string            `gorm:"column:id;primary_key;type:uuid" json:"id"`
	Number        string            `gorm:"column:number;type:varchar(64);not null;uniqueIndex" json:"number"`
	UserID        string            `gorm:"column:user_id;type:varchar(64);not null;index" json:"user_id"`
	Amount        decimal.Decimal   `gorm:"column:amount;type:decimal(12,2);not null" json:"amount"`
	CustomerName  string            `gorm:"column:customer_name;type:varchar(128)" json:"customer_name"`
	CustomerPhone string            `gorm:"column:customer_phone;type:varchar(32)" json:"customer_phone"`
	Status        types.OrderStatus `gorm:"column:status;type:varchar(16);not null" json:"status"`
	// PaymentGateway is fixed by the first invoice and decides which gateway
	// status checks and webhooks are matched against.
	PaymentGateway   types.Gateway `gorm:"column:payment_gateway;type:varchar(16);not null;index:idx_gateway_invoice_id,priority:1;index:idx_gateway_invoice_sequence,priority:1" json:"payment_gateway"`
	InvoiceID        string        `gorm:"column:invoice_id;type:varchar(128);index:idx_gateway_invoice_id,priority:2" json:"invoice_id"`
	InvoiceSequence  string        `gorm:"column:invoice_sequence;type:varchar(128);index:idx_gateway_invoice_sequence,priority:2" json:"invoice_sequence"`
	InvoiceCreatedAt *time.Time    `gorm:"column:invoice_created_at" json:"invoice_created_at"`
	Paid             bool          `gorm:"column:paid;not null" json:"paid"`

	GatewayPayload datatypes.JSONType[*GatewayPayload] `gorm:"column:gateway_payload;type:jsonb;not null" json:"gateway_payload"`
	CreatedAt      time.Time                           `json:"created_at"`
	UpdatedAt      time.Time                           `json:"updated_at"`
}

func (Order) TableName() string {
	return "orders"
}

// HasInvoice reports whether a gateway invoice has been recorded.
func (o *Order) HasInvoice() bool {
	if o == nil {
		return false
	}
	return !o.PaymentGateway.IsNone() && o.InvoiceCreatedAt != nil && (o.InvoiceID != "" || o.InvoiceSequence != "")
}

// Payload returns the gateway payload, never nil.
func (o *Order) Payload() *GatewayPayload {
	if o == nil || o.GatewayPayload.Data() == nil {
		return &GatewayPayload{}
	}
	return o.GatewayPayload.Data()
}

// Clone returns a copy safe to mutate without touching o.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	c := *o
	if o.InvoiceCreatedAt != nil {
		t := *o.InvoiceCreatedAt
		c.InvoiceCreatedAt = &t
	}
	if p := o.GatewayPayload.Data(); p != nil {
		cp := *p
		c.GatewayPayload = datatypes.NewJSONType(&cp)
	}
	return &c
}
