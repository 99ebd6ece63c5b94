package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fatflowers/paygate/internal/models"
	"github.com/fatflowers/paygate/internal/platform/shakeout"
	"github.com/fatflowers/paygate/pkg/config"
	"github.com/fatflowers/paygate/pkg/signature"
	"github.com/fatflowers/paygate/pkg/types"
)

const shakeoutPaidStatus = "paid"

// Shakeout issues invoices through Shakeout and verifies its webhooks.
type Shakeout struct {
	cfg    config.ShakeoutConfig
	client *shakeout.Client
}

func NewShakeout(cfg config.ShakeoutConfig, client *shakeout.Client) *Shakeout {
	return &Shakeout{cfg: cfg, client: client}
}

func (g *Shakeout) Name() types.Gateway { return types.GatewayShakeout }

func (g *Shakeout) Expiry() time.Duration { return g.cfg.Expiry() }

func (g *Shakeout) WebhookAPIKey() string { return "" }

func (g *Shakeout) RequiresAPIKeyGate() bool { return false }

func (g *Shakeout) CreateInvoice(ctx context.Context, req *InvoiceRequest) (*Invoice, error) {
	if g.cfg.VendorCode == "" || g.cfg.SecretKey == "" {
		return nil, fmt.Errorf("%w: shakeout vendor code or secret key is empty", ErrNotConfigured)
	}
	amount := signature.FormatAmount(req.Amount)
	sig, err := signature.Compute(ShakeoutInvoiceTemplate, signature.Values{
		signature.FieldVendorCode: g.cfg.VendorCode,
		signature.FieldAmount:     amount,
		signature.FieldPhone:      req.CustomerPhone,
		signature.FieldSecret:     g.cfg.SecretKey,
	})
	if err != nil {
		return nil, err
	}

	first, last := splitName(req.CustomerName)
	inv, err := g.client.CreateInvoice(ctx, &shakeout.CreateInvoiceRequest{
		VendorCode:    g.cfg.VendorCode,
		Reference:     req.OrderNumber,
		Amount:        amount,
		Currency:      "EGP",
		DueDate:       req.Now.Add(g.cfg.Expiry()).UTC().Format(time.DateOnly),
		PaymentMethod: g.cfg.PaymentMethod,
		Customer:      shakeout.Customer{FirstName: first, LastName: last, Phone: req.CustomerPhone},
		InvoiceItems: []shakeout.InvoiceItem{{
			Name:     "Order " + req.OrderNumber,
			Price:    amount,
			Quantity: 1,
		}},
		Signature: sig,
	})
	if err != nil {
		return nil, err
	}

	return &Invoice{
		Gateway:         types.GatewayShakeout,
		InvoiceID:       inv.InvoiceID.String(),
		InvoiceSequence: inv.InvoiceRef.String(),
		PaymentURL:      inv.URL,
		Amount:          amount,
		PaymentMethod:   g.cfg.PaymentMethod,
		Details:         inv.Raw,
	}, nil
}

func (g *Shakeout) InvoiceStatus(ctx context.Context, order *models.Order) (*InvoiceStatus, error) {
	inv, err := g.client.GetInvoice(ctx, order.InvoiceID)
	if err != nil {
		return nil, err
	}
	status := inv.InvoiceStatus
	if status == "" {
		status = "unknown"
	}
	return &InvoiceStatus{
		Gateway: types.GatewayShakeout,
		Status:  status,
		Paid:    strings.EqualFold(status, shakeoutPaidStatus),
		Raw:     inv.Raw,
	}, nil
}

type shakeoutWebhook struct {
	InvoiceID     types.FlexString `json:"invoice_id" validate:"required"`
	InvoiceRef    types.FlexString `json:"invoice_ref"`
	InvoiceStatus string           `json:"invoice_status" validate:"required"`
	Amount        types.FlexString `json:"amount" validate:"required"`
	CustomerPhone types.FlexString `json:"customer_phone" validate:"required"`
	Signature     string           `json:"signature" validate:"required"`
}

func (g *Shakeout) ParseWebhook(body []byte) (*WebhookEvent, error) {
	var p shakeoutWebhook
	if err := decodeWebhook(body, &p); err != nil {
		return nil, err
	}
	return &WebhookEvent{
		Gateway:       types.GatewayShakeout,
		RefField:      types.InvoiceRefID,
		Reference:     p.InvoiceID.String(),
		Status:        p.InvoiceStatus,
		Paid:          strings.EqualFold(p.InvoiceStatus, shakeoutPaidStatus),
		Amount:        p.Amount.String(),
		CustomerPhone: p.CustomerPhone.String(),
		Signature:     p.Signature,
		Raw:           json.RawMessage(body),
	}, nil
}

func (g *Shakeout) VerifyWebhook(ev *WebhookEvent) (bool, error) {
	if g.cfg.SecretKey == "" {
		return false, fmt.Errorf("%w: shakeout secret key is empty", ErrNotConfigured)
	}
	return signature.Verify(ShakeoutWebhookTemplate, signature.Values{
		signature.FieldAmount: ev.Amount,
		signature.FieldPhone:  ev.CustomerPhone,
		signature.FieldSecret: g.cfg.SecretKey,
	}, ev.Signature)
}

func splitName(full string) (string, string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}
