package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fatflowers/paygate/internal/models"
	"github.com/fatflowers/paygate/internal/platform/easypay"
	"github.com/fatflowers/paygate/pkg/config"
	"github.com/fatflowers/paygate/pkg/signature"
	"github.com/fatflowers/paygate/pkg/types"
)

const easyPayPaidStatus = "PAID"

// EasyPay issues invoices through EasyPay and verifies its webhooks.
type EasyPay struct {
	cfg    config.EasyPayConfig
	client *easypay.Client
}

func NewEasyPay(cfg config.EasyPayConfig, client *easypay.Client) *EasyPay {
	return &EasyPay{cfg: cfg, client: client}
}

func (g *EasyPay) Name() types.Gateway { return types.GatewayEasyPay }

func (g *EasyPay) Expiry() time.Duration { return g.cfg.Expiry() }

func (g *EasyPay) WebhookAPIKey() string { return g.cfg.WebhookAPIKey }

func (g *EasyPay) RequiresAPIKeyGate() bool { return true }

func (g *EasyPay) CreateInvoice(ctx context.Context, req *InvoiceRequest) (*Invoice, error) {
	if g.cfg.VendorCode == "" || g.cfg.SecretKey == "" {
		return nil, fmt.Errorf("%w: easypay vendor code or secret key is empty", ErrNotConfigured)
	}
	amount := signature.FormatAmount(req.Amount)
	// The order id doubles as the customer profile id.
	profileID := req.OrderID
	sig, err := signature.Compute(EasyPayInvoiceTemplate, signature.Values{
		signature.FieldVendorCode: g.cfg.VendorCode,
		signature.FieldSecret:     g.cfg.SecretKey,
		signature.FieldAmount:     amount,
		signature.FieldProfileID:  profileID,
		signature.FieldPhone:      req.CustomerPhone,
	})
	if err != nil {
		return nil, err
	}

	res, err := g.client.CreateInvoice(ctx, &easypay.CreateInvoiceRequest{
		VendorCode:    g.cfg.VendorCode,
		Amount:        amount,
		PaymentExpiry: req.Now.Add(g.cfg.Expiry()).UnixMilli(),
		PaymentMethod: g.cfg.PaymentMethod,
		Signature:     sig,
		Customer: easypay.Customer{
			Name:      req.CustomerName,
			Phone:     req.CustomerPhone,
			ProfileID: profileID,
		},
		Items: []easypay.Item{{
			ItemID:      req.OrderID,
			Price:       amount,
			Quantity:    1,
			Description: "Order " + req.OrderNumber,
		}},
	})
	if err != nil {
		return nil, err
	}

	uid, seq := res.InvoiceUID.String(), res.InvoiceSequence.String()
	// The create answer only carries identifiers; the stored details are the
	// full invoice as EasyPay reports it right after issuing.
	inv, err := g.client.GetInvoice(ctx, uid, seq)
	if err != nil {
		return nil, fmt.Errorf("easypay: invoice %s/%s created but fetching its details failed: %w", uid, seq, err)
	}
	return &Invoice{
		Gateway:         types.GatewayEasyPay,
		InvoiceID:       uid,
		InvoiceSequence: seq,
		PaymentURL:      fmt.Sprintf("%s/%s/%s", strings.TrimRight(g.cfg.PaymentURLBase, "/"), uid, seq),
		Amount:          amount,
		ProfileID:       profileID,
		PaymentMethod:   g.cfg.PaymentMethod,
		Details:         inv.Raw,
	}, nil
}

func (g *EasyPay) InvoiceStatus(ctx context.Context, order *models.Order) (*InvoiceStatus, error) {
	inv, err := g.client.GetInvoice(ctx, order.InvoiceID, order.InvoiceSequence)
	if err != nil {
		return nil, err
	}
	return &InvoiceStatus{
		Gateway: types.GatewayEasyPay,
		Status:  inv.PaymentStatus,
		Paid:    strings.EqualFold(inv.PaymentStatus, easyPayPaidStatus),
		Raw:     inv.Raw,
	}, nil
}

type easyPayWebhook struct {
	Sequence      types.FlexString `json:"easy_pay_sequence" validate:"required"`
	Status        string           `json:"status" validate:"required"`
	Signature     string           `json:"signature" validate:"required"`
	CustomerPhone types.FlexString `json:"customer_phone" validate:"required"`
	Amount        types.FlexString `json:"amount" validate:"required"`
}

func (g *EasyPay) ParseWebhook(body []byte) (*WebhookEvent, error) {
	var p easyPayWebhook
	if err := decodeWebhook(body, &p); err != nil {
		return nil, err
	}
	return &WebhookEvent{
		Gateway:       types.GatewayEasyPay,
		RefField:      types.InvoiceRefSequence,
		Reference:     p.Sequence.String(),
		Status:        p.Status,
		Paid:          p.Status == easyPayPaidStatus,
		Amount:        p.Amount.String(),
		CustomerPhone: p.CustomerPhone.String(),
		Signature:     p.Signature,
		Raw:           json.RawMessage(body),
	}, nil
}

// VerifyWebhook checks the signature over the amount exactly as EasyPay sent it.
func (g *EasyPay) VerifyWebhook(ev *WebhookEvent) (bool, error) {
	if g.cfg.SecretKey == "" {
		return false, fmt.Errorf("%w: easypay secret key is empty", ErrNotConfigured)
	}
	return signature.Verify(EasyPayWebhookTemplate, signature.Values{
		signature.FieldAmount: ev.Amount,
		signature.FieldPhone:  ev.CustomerPhone,
		signature.FieldSecret: g.cfg.SecretKey,
	}, ev.Signature)
}

// StatusCheck looks an invoice up by its Fawry reference.
func (g *EasyPay) StatusCheck(ctx context.Context, fawryRef string) (json.RawMessage, error) {
	if g.cfg.VendorCode == "" {
		return nil, fmt.Errorf("%w: easypay vendor code is empty", ErrNotConfigured)
	}
	if strings.TrimSpace(fawryRef) == "" {
		return nil, errors.New("easypay: fawry reference is empty")
	}
	return g.client.StatusCheck(ctx, fawryRef)
}
