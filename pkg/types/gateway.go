package types

import "strings"

// Gateway identifies a payment gateway an invoice was issued through.
type Gateway string

const (
	GatewayNone     Gateway = "none"
	GatewayShakeout Gateway = "shakeout"
	GatewayEasyPay  Gateway = "easypay"
)

// KnownGateways lists every gateway that can issue invoices.
var KnownGateways = []Gateway{GatewayShakeout, GatewayEasyPay}

// ParseGateway normalizes a configured or requested gateway name.
// It returns false when the name matches no known gateway.
func ParseGateway(name string) (Gateway, bool) {
	g := Gateway(strings.ToLower(strings.TrimSpace(name)))
	for _, k := range KnownGateways {
		if g == k {
			return k, true
		}
	}
	return "", false
}

func (g Gateway) String() string { return string(g) }

// IsNone reports whether no gateway has been bound yet.
func (g Gateway) IsNone() bool { return g == "" || g == GatewayNone }

// InvoiceRefField names the stored invoice column a webhook reference is
// matched against.
type InvoiceRefField string

const (
	InvoiceRefID       InvoiceRefField = "invoice_id"
	InvoiceRefSequence InvoiceRefField = "invoice_sequence"
)

type OrderStatus string

const (
	OrderStatusInitiated OrderStatus = "initiated"
	OrderStatusPaid      OrderStatus = "paid"
)

// WebhookLogStatus tracks how far a received webhook got.
type WebhookLogStatus string

const (
	WebhookLogStatusReceived     WebhookLogStatus = "received"
	WebhookLogStatusHandled      WebhookLogStatus = "handled"
	WebhookLogStatusHandleFailed WebhookLogStatus = "handle_failed"
)
