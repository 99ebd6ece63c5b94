package invoice

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/fatflowers/paygate/internal/app/service/gateway"
	"github.com/fatflowers/paygate/internal/app/service/order"
	"github.com/fatflowers/paygate/internal/models"
	"github.com/fatflowers/paygate/internal/platform/lock"
	"github.com/fatflowers/paygate/pkg/logctx"
	"github.com/fatflowers/paygate/pkg/metrics"
	"github.com/fatflowers/paygate/pkg/types"
)

// OrderStore is the persistence the guard needs.
type OrderStore interface {
	Get(ctx context.Context, id string) (*models.Order, error)
	FindByInvoice(ctx context.Context, gw types.Gateway, field types.InvoiceRefField, ref string) (*models.Order, error)
	Save(ctx context.Context, o *models.Order) error
}

// Service guards the invoice lifecycle of an order: none, pending, paid.
// Every read-modify-write of an order runs under the order's lock.
type Service struct {
	store    OrderStore
	selector *gateway.Selector
	locker   lock.Locker
	notifier Notifier
	metrics  *metrics.Payment
	log      *zap.SugaredLogger
	now      func() time.Time
}

func NewService(store OrderStore, selector *gateway.Selector, locker lock.Locker, notifier Notifier, m *metrics.Payment, log *zap.SugaredLogger) *Service {
	return &Service{
		store:    store,
		selector: selector,
		locker:   locker,
		notifier: notifier,
		metrics:  m,
		log:      log,
		now:      time.Now,
	}
}

// CreateResult describes a freshly issued invoice.
type CreateResult struct {
	OrderID         string        `json:"order_id"`
	OrderNumber     string        `json:"pill_number"`
	Gateway         types.Gateway `json:"payment_gateway"`
	InvoiceUID      string        `json:"invoice_uid"`
	InvoiceSequence string        `json:"invoice_sequence"`
	PaymentURL      string        `json:"payment_url"`
	Amount          string        `json:"amount"`
	CreatedAt       time.Time     `json:"created_at"`
}

// IsInvoiceExpired reports whether the order's invoice no longer blocks a new
// one. An order without an invoice counts as expired.
func (s *Service) IsInvoiceExpired(o *models.Order, now time.Time) bool {
	if !o.HasInvoice() {
		return true
	}
	gw, err := s.selector.Gateway(o.PaymentGateway)
	if err != nil {
		// A gateway we no longer know cannot be paid through.
		return true
	}
	return IsExpired(o, gw.Expiry(), now)
}

// IsExpired is true when more than expiry has passed since the invoice was created.
func IsExpired(o *models.Order, expiry time.Duration, now time.Time) bool {
	if o == nil || o.InvoiceCreatedAt == nil {
		return true
	}
	return now.Sub(*o.InvoiceCreatedAt) > expiry
}

// CreateInvoice moves an order from none (or an expired invoice) to pending.
// The gateway call happens outside the order lock; its result is committed
// only if no other invoice appeared meanwhile.
func (s *Service) CreateInvoice(ctx context.Context, orderID, mode string) (*CreateResult, error) {
	ctx = logctx.WithOrderID(ctx, orderID)
	l := logctx.FromCtx(ctx, s.log)

	gw, err := s.selector.Select(mode)
	if err != nil {
		return nil, err
	}
	name := gw.Name().String()

	var o *models.Order
	err = s.withOrderLock(ctx, orderID, func() error {
		o, err = s.loadOrder(ctx, orderID)
		if err != nil {
			return err
		}
		return s.checkCanIssue(o, s.now())
	})
	if err != nil {
		s.metrics.Invoice(name, outcome(err))
		return nil, err
	}

	now := s.now()
	start := time.Now()
	inv, err := gw.CreateInvoice(ctx, &gateway.InvoiceRequest{
		OrderID:       o.ID,
		OrderNumber:   o.Number,
		Amount:        o.Amount,
		CustomerName:  o.CustomerName,
		CustomerPhone: o.CustomerPhone,
		Now:           now,
	})
	s.metrics.ObserveGateway(name, "create_invoice", start)
	if err != nil {
		l.Errorw("gateway create invoice failed", "gateway", name, "err", err)
		if !errors.Is(err, gateway.ErrNotConfigured) {
			err = fmt.Errorf("%w: %s: %v", ErrUpstream, name, err)
		}
		s.metrics.Invoice(name, outcome(err))
		return nil, err
	}

	var res *CreateResult
	err = s.withOrderLock(ctx, orderID, func() error {
		cur, err := s.loadOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if err := s.checkCanIssue(cur, s.now()); err != nil {
			l.Warnw("discarding invoice issued during a concurrent request",
				"gateway", name, "invoice_uid", inv.InvoiceID, "invoice_sequence", inv.InvoiceSequence, "err", err)
			return err
		}

		recordInvoice(cur, inv, now)
		if err := s.store.Save(ctx, cur); err != nil {
			return err
		}
		res = &CreateResult{
			OrderID:         cur.ID,
			OrderNumber:     cur.Number,
			Gateway:         cur.PaymentGateway,
			InvoiceUID:      cur.InvoiceID,
			InvoiceSequence: cur.InvoiceSequence,
			PaymentURL:      inv.PaymentURL,
			Amount:          inv.Amount,
			CreatedAt:       now,
		}
		return nil
	})
	s.metrics.Invoice(name, outcome(err))
	if err != nil {
		return nil, err
	}
	l.Infow("invoice created", "gateway", name, "invoice_uid", res.InvoiceUID, "invoice_sequence", res.InvoiceSequence)
	return res, nil
}

// checkCanIssue is the precondition of a new invoice.
func (s *Service) checkCanIssue(o *models.Order, now time.Time) error {
	if o.Paid {
		return ErrOrderAlreadyPaid
	}
	if o.HasInvoice() && !s.IsInvoiceExpired(o, now) {
		p := o.Payload()
		dup := &DuplicateInvoiceError{
			OrderID:         o.ID,
			Gateway:         o.PaymentGateway,
			InvoiceUID:      o.InvoiceID,
			InvoiceSequence: o.InvoiceSequence,
			PaymentURL:      p.PaymentURL,
			Amount:          p.Amount,
			CreatedAt:       *o.InvoiceCreatedAt,
		}
		if dup.Amount == "" {
			dup.Amount = o.Amount.StringFixed(2)
		}
		if gw, err := s.selector.Gateway(o.PaymentGateway); err == nil {
			dup.ExpiresAt = o.InvoiceCreatedAt.Add(gw.Expiry())
		}
		return dup
	}
	var missing []string
	if o.CustomerPhone == "" {
		missing = append(missing, "customer_phone")
	}
	if !o.Amount.IsPositive() {
		missing = append(missing, "amount")
	}
	if len(missing) > 0 {
		return &ValidationError{Message: "order is missing payment details", Fields: missing}
	}
	return nil
}

// recordInvoice overwrites any stale invoice fields with inv.
func recordInvoice(o *models.Order, inv *gateway.Invoice, now time.Time) {
	created := now
	o.PaymentGateway = inv.Gateway
	o.InvoiceID = inv.InvoiceID
	o.InvoiceSequence = inv.InvoiceSequence
	o.InvoiceCreatedAt = &created
	o.GatewayPayload = datatypes.NewJSONType(&models.GatewayPayload{
		InvoiceUID:      inv.InvoiceID,
		InvoiceSequence: inv.InvoiceSequence,
		PaymentURL:      inv.PaymentURL,
		Amount:          inv.Amount,
		CustomerPhone:   o.CustomerPhone,
		ProfileID:       inv.ProfileID,
		PaymentMethod:   inv.PaymentMethod,
		CreatedAt:       &created,
		InvoiceDetails:  inv.Details,
	})
}

// WebhookRequest is one inbound webhook delivery.
type WebhookRequest struct {
	Gateway types.Gateway
	// APIKey is the key presented in the URL or header, empty when none was.
	APIKey string
	Body   []byte
}

// WebhookResult is what was done with a webhook. Transitioned is true only
// for the delivery that marked the order paid.
type WebhookResult struct {
	OrderID      string    `json:"-"`
	OrderNumber  string    `json:"pill_number"`
	Reference    string    `json:"-"`
	Status       string    `json:"status"`
	Paid         bool      `json:"-"`
	Transitioned bool      `json:"-"`
	ProcessedAt  time.Time `json:"processed_at"`
}

// ApplyWebhook validates a webhook and applies it to its order. A rejected
// webhook never changes the order. A webhook for an order that is already
// paid is accepted and changes nothing.
func (s *Service) ApplyWebhook(ctx context.Context, req *WebhookRequest) (*WebhookResult, error) {
	gw, err := s.selector.Gateway(req.Gateway)
	if err != nil {
		return nil, err
	}
	name := gw.Name().String()
	res, err := s.applyWebhook(ctx, gw, req)
	s.metrics.Webhook(name, outcome(err))
	return res, err
}

func (s *Service) applyWebhook(ctx context.Context, gw gateway.Gateway, req *WebhookRequest) (*WebhookResult, error) {
	l := logctx.FromCtx(ctx, s.log).With("gateway", gw.Name())

	if err := checkAPIKey(gw, req.APIKey); err != nil {
		l.Warnw("webhook api key rejected")
		return nil, err
	}

	ev, err := gw.ParseWebhook(req.Body)
	if err != nil {
		var missing *gateway.MissingFieldsError
		switch {
		case errors.As(err, &missing):
			return nil, &ValidationError{Message: "missing required fields", Fields: missing.Fields}
		case errors.Is(err, gateway.ErrMalformedPayload):
			return nil, &ValidationError{Message: "invalid JSON payload"}
		default:
			return nil, err
		}
	}
	l = l.With("reference", ev.Reference, "status", ev.Status)

	found, err := s.store.FindByInvoice(ctx, gw.Name(), ev.RefField, ev.Reference)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			l.Warnw("webhook for unknown invoice")
			return nil, fmt.Errorf("%w: no invoice %q for %s", ErrOrderNotFound, ev.Reference, gw.Name())
		}
		return nil, err
	}
	ctx = logctx.WithOrderID(ctx, found.ID)

	ok, err := gw.VerifyWebhook(ev)
	if err != nil {
		return nil, err
	}
	if !ok {
		l.Warnw("webhook signature mismatch", "order_id", found.ID)
		return nil, fmt.Errorf("%w: invalid signature", ErrWebhookRejected)
	}

	reported, err := decimal.NewFromString(ev.Amount)
	if err != nil || !reported.Equal(found.Amount) {
		l.Warnw("webhook amount mismatch", "order_id", found.ID, "reported", ev.Amount, "expected", found.Amount.StringFixed(2))
		return nil, fmt.Errorf("%w: amount mismatch", ErrWebhookRejected)
	}

	var (
		res       *WebhookResult
		confirmed *models.Order
	)
	err = s.withOrderLock(ctx, found.ID, func() error {
		o, err := s.loadOrder(ctx, found.ID)
		if err != nil {
			return err
		}
		// The invoice may have been replaced while we were verifying.
		if o.PaymentGateway != gw.Name() || !matchesReference(o, ev) {
			return fmt.Errorf("%w: invoice %q was replaced", ErrOrderNotFound, ev.Reference)
		}

		now := s.now()
		res = &WebhookResult{
			OrderID:     o.ID,
			OrderNumber: o.Number,
			Reference:   ev.Reference,
			Status:      ev.Status,
			Paid:        o.Paid,
			ProcessedAt: now,
		}
		if o.Paid {
			l.Infow("webhook for paid order ignored", "order_id", o.ID)
			return nil
		}

		p := *o.Payload()
		p.WebhookReceived = true
		p.WebhookAt = &now
		p.WebhookData = ev.Raw
		o.GatewayPayload = datatypes.NewJSONType(&p)
		if ev.Paid {
			o.Paid = true
			if o.Status == types.OrderStatusInitiated {
				o.Status = types.OrderStatusPaid
			}
		}
		if err := s.store.Save(ctx, o); err != nil {
			return err
		}
		res.Paid = o.Paid
		res.Transitioned = ev.Paid
		if ev.Paid {
			confirmed = o
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if confirmed != nil {
		l.Infow("order marked paid", "order_id", confirmed.ID, "number", confirmed.Number)
		if err := s.notifier.PaymentConfirmed(ctx, confirmed); err != nil {
			l.Errorw("payment notification failed", "order_id", confirmed.ID, "err", err)
		}
	} else if !ev.Paid {
		l.Infow("non payment webhook recorded", "order_id", res.OrderID)
	}
	return res, nil
}

// checkAPIKey gates gateways with a webhook key. With a key configured the
// request must present it; with none configured no key may be presented.
func checkAPIKey(gw gateway.Gateway, presented string) error {
	if !gw.RequiresAPIKeyGate() {
		return nil
	}
	expected := gw.WebhookAPIKey()
	if expected == "" {
		if presented != "" {
			return fmt.Errorf("%w: no webhook api key is configured", ErrUnauthorized)
		}
		return nil
	}
	if subtle.ConstantTimeCompare([]byte(expected), []byte(presented)) != 1 {
		return fmt.Errorf("%w: invalid webhook api key", ErrUnauthorized)
	}
	return nil
}

func matchesReference(o *models.Order, ev *gateway.WebhookEvent) bool {
	switch ev.RefField {
	case types.InvoiceRefID:
		return o.InvoiceID == ev.Reference
	case types.InvoiceRefSequence:
		return o.InvoiceSequence == ev.Reference
	}
	return false
}

// CheckStatus asks the order's gateway for the live state of its invoice.
func (s *Service) CheckStatus(ctx context.Context, orderID string) (*gateway.InvoiceStatus, error) {
	ctx = logctx.WithOrderID(ctx, orderID)
	o, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !o.HasInvoice() {
		return nil, &ValidationError{Message: "order has no invoice"}
	}
	gw, err := s.selector.Gateway(o.PaymentGateway)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	st, err := gw.InvoiceStatus(ctx, o)
	s.metrics.ObserveGateway(gw.Name().String(), "invoice_status", start)
	if err != nil {
		logctx.FromCtx(ctx, s.log).Errorw("gateway invoice status failed", "gateway", gw.Name(), "err", err)
		return nil, fmt.Errorf("%w: %s: %v", ErrUpstream, gw.Name(), err)
	}
	return st, nil
}

func (s *Service) loadOrder(ctx context.Context, id string) (*models.Order, error) {
	o, err := s.store.Get(ctx, id)
	if errors.Is(err, order.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
	}
	return o, err
}

func (s *Service) withOrderLock(ctx context.Context, orderID string, fn func() error) error {
	unlock, err := s.locker.Lock(ctx, "order:"+orderID)
	if err != nil {
		return fmt.Errorf("failed to lock order %s: %w", orderID, err)
	}
	defer unlock()
	return fn()
}

// outcome is the metric label of a result.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrDuplicateInvoice):
		return "duplicate"
	case errors.Is(err, ErrOrderAlreadyPaid):
		return "already_paid"
	case errors.Is(err, ErrValidation):
		return "invalid"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrWebhookRejected):
		return "rejected"
	case errors.Is(err, ErrOrderNotFound):
		return "not_found"
	case errors.Is(err, ErrUpstream):
		return "upstream_error"
	default:
		return "error"
	}
}
