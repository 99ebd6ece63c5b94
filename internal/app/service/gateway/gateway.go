package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fatflowers/paygate/internal/models"
	"github.com/fatflowers/paygate/pkg/signature"
	"github.com/fatflowers/paygate/pkg/types"
)

var (
	// ErrUnknownGateway means a configured or requested gateway name matches no gateway.
	ErrUnknownGateway = errors.New("unknown payment gateway")
	// ErrNotConfigured means the gateway lacks the credentials needed to sign requests.
	ErrNotConfigured = errors.New("payment gateway not configured")
	// ErrMalformedPayload is returned for webhook bodies that are not a JSON object.
	ErrMalformedPayload = errors.New("malformed webhook payload")
)

// MissingFieldsError lists the webhook fields that were absent or empty.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return "missing required fields"
}

// Signature templates per gateway operation. Two operations on one gateway
// sign overlapping fields in different orders.
var (
	EasyPayInvoiceTemplate = signature.Template{
		Name:   "easypay.invoice",
		Fields: []signature.Field{signature.FieldVendorCode, signature.FieldSecret, signature.FieldAmount, signature.FieldProfileID, signature.FieldPhone},
	}
	EasyPayWebhookTemplate = signature.Template{
		Name:   "easypay.webhook",
		Fields: []signature.Field{signature.FieldAmount, signature.FieldPhone, signature.FieldSecret},
	}
	ShakeoutInvoiceTemplate = signature.Template{
		Name:   "shakeout.invoice",
		Fields: []signature.Field{signature.FieldVendorCode, signature.FieldAmount, signature.FieldPhone, signature.FieldSecret},
	}
	ShakeoutWebhookTemplate = signature.Template{
		Name:   "shakeout.webhook",
		Fields: []signature.Field{signature.FieldAmount, signature.FieldPhone, signature.FieldSecret},
	}
)

// TemplateByName looks a signature template up by its name, e.g. "easypay.webhook".
func TemplateByName(name string) (signature.Template, bool) {
	for _, t := range []signature.Template{EasyPayInvoiceTemplate, EasyPayWebhookTemplate, ShakeoutInvoiceTemplate, ShakeoutWebhookTemplate} {
		if t.Name == name {
			return t, true
		}
	}
	return signature.Template{}, false
}

// InvoiceRequest is what a gateway needs to issue an invoice for an order.
type InvoiceRequest struct {
	OrderID       string
	OrderNumber   string
	Amount        decimal.Decimal
	CustomerName  string
	CustomerPhone string
	Now           time.Time
}

// Invoice is a gateway issued invoice.
type Invoice struct {
	Gateway         types.Gateway
	InvoiceID       string
	InvoiceSequence string
	PaymentURL      string
	Amount          string
	ProfileID       string
	PaymentMethod   string
	Details         json.RawMessage
}

// WebhookEvent is a parsed, not yet verified webhook notification.
type WebhookEvent struct {
	Gateway       types.Gateway
	RefField      types.InvoiceRefField
	Reference     string
	Status        string
	Paid          bool
	Amount        string
	CustomerPhone string
	Signature     string
	Raw           json.RawMessage
}

// InvoiceStatus is the live state of an invoice as reported by the gateway.
type InvoiceStatus struct {
	Gateway types.Gateway   `json:"gateway"`
	Status  string          `json:"status"`
	Paid    bool            `json:"paid"`
	Raw     json.RawMessage `json:"raw,omitempty" swaggertype:"object"`
}

// Gateway is one external payment provider.
type Gateway interface {
	Name() types.Gateway
	CreateInvoice(ctx context.Context, req *InvoiceRequest) (*Invoice, error)
	InvoiceStatus(ctx context.Context, order *models.Order) (*InvoiceStatus, error)
	ParseWebhook(body []byte) (*WebhookEvent, error)
	VerifyWebhook(ev *WebhookEvent) (bool, error)
	// Expiry is how long an issued invoice blocks a new one.
	Expiry() time.Duration
	// WebhookAPIKey is the key inbound webhooks must present; empty means no key gate.
	WebhookAPIKey() string
	// RequiresAPIKeyGate reports whether this gateway's webhook route has a key gate at all.
	RequiresAPIKeyGate() bool
}
