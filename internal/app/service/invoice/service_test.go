package invoice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/fatflowers/paygate/internal/app/service/gateway"
	"github.com/fatflowers/paygate/internal/app/service/order"
	"github.com/fatflowers/paygate/internal/models"
	"github.com/fatflowers/paygate/internal/platform/lock"
	"github.com/fatflowers/paygate/pkg/config"
	"github.com/fatflowers/paygate/pkg/signature"
	"github.com/fatflowers/paygate/pkg/types"
)

const (
	testSecret = "aa093225-cb06-4b39-b684-1f8533c5e2f6"
	testPhone  = "01030265229"
	testExpiry = 48 * time.Hour
)

type memStore struct {
	mu     sync.Mutex
	orders map[string]*models.Order
	saves  int
}

func newMemStore(orders ...*models.Order) *memStore {
	s := &memStore{orders: map[string]*models.Order{}}
	for _, o := range orders {
		s.orders[o.ID] = o.Clone()
	}
	return s
}

func (s *memStore) Get(_ context.Context, id string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	return o.Clone(), nil
}

func (s *memStore) FindByInvoice(_ context.Context, gw types.Gateway, field types.InvoiceRefField, ref string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.PaymentGateway != gw {
			continue
		}
		if (field == types.InvoiceRefID && o.InvoiceID == ref) || (field == types.InvoiceRefSequence && o.InvoiceSequence == ref) {
			return o.Clone(), nil
		}
	}
	return nil, order.ErrNotFound
}

func (s *memStore) Save(_ context.Context, o *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = o.Clone()
	s.saves++
	return nil
}

func (s *memStore) snapshot(id string) *models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orders[id].Clone()
}

func (s *memStore) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// fakeGateway issues invoices locally; webhook parsing and verification are
// the real gateway ones.
type fakeGateway struct {
	gateway.Gateway
	calls  int32
	fail   error
	before func()
}

func (f *fakeGateway) CreateInvoice(_ context.Context, req *gateway.InvoiceRequest) (*gateway.Invoice, error) {
	n := atomic.AddInt32(&f.calls, 1)
	if f.before != nil {
		f.before()
	}
	if f.fail != nil {
		return nil, f.fail
	}
	return &gateway.Invoice{
		Gateway:         f.Name(),
		InvoiceID:       fmt.Sprintf("%s-uid-%d", f.Name(), n),
		InvoiceSequence: fmt.Sprintf("%d", 778800+n),
		PaymentURL:      fmt.Sprintf("https://pay.example/%s/%d", f.Name(), n),
		Amount:          signature.FormatAmount(req.Amount),
	}, nil
}

func (f *fakeGateway) InvoiceStatus(_ context.Context, o *models.Order) (*gateway.InvoiceStatus, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	return &gateway.InvoiceStatus{Gateway: f.Name(), Status: "PAID", Paid: true}, nil
}

type countingNotifier struct{ n int32 }

func (c *countingNotifier) PaymentConfirmed(context.Context, *models.Order) error {
	atomic.AddInt32(&c.n, 1)
	return nil
}

type fixture struct {
	svc      *Service
	store    *memStore
	easypay  *fakeGateway
	shakeout *fakeGateway
	notifier *countingNotifier
	now      time.Time
}

func (f *fixture) advance(d time.Duration) { f.now = f.now.Add(d) }

func newOrder(id string) *models.Order {
	return &models.Order{
		ID:             id,
		Number:         "P-" + id,
		UserID:         "u-1",
		Amount:         decimal.RequireFromString("180.00"),
		CustomerName:   "Mona",
		CustomerPhone:  testPhone,
		Status:         types.OrderStatusInitiated,
		PaymentGateway: types.GatewayNone,
		GatewayPayload: datatypes.NewJSONType(&models.GatewayPayload{}),
	}
}

func newFixture(t *testing.T, apiKey string, orders ...*models.Order) *fixture {
	t.Helper()
	ep := &fakeGateway{Gateway: gateway.NewEasyPay(config.EasyPayConfig{
		VendorCode:    "VC-1",
		SecretKey:     testSecret,
		ExpiryMS:      testExpiry.Milliseconds(),
		WebhookAPIKey: apiKey,
	}, nil)}
	so := &fakeGateway{Gateway: gateway.NewShakeout(config.ShakeoutConfig{
		VendorCode: "SV-1",
		SecretKey:  testSecret,
		ExpiryMS:   testExpiry.Milliseconds(),
	}, nil)}
	sel, err := gateway.NewSelector("easypay", ep, so)
	require.NoError(t, err)

	f := &fixture{
		store:    newMemStore(orders...),
		easypay:  ep,
		shakeout: so,
		notifier: &countingNotifier{},
		now:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(f.store, sel, lock.NewMemory(), f.notifier, nil, zap.NewNop().Sugar())
	f.svc.now = func() time.Time { return f.now }
	return f
}

func easyPayWebhook(sequence, status, amount string) []byte {
	sig := signature.Digest(amount + testPhone + testSecret)
	return []byte(fmt.Sprintf(`{"easy_pay_sequence":%q,"status":%q,"signature":%q,"customer_phone":%q,"amount":%q}`,
		sequence, status, sig, testPhone, amount))
}

func shakeoutWebhookFor(invoiceID string) []byte {
	sig := signature.Digest("180.00" + testPhone + testSecret)
	return []byte(fmt.Sprintf(`{"invoice_id":%q,"invoice_status":"paid","amount":"180.00","customer_phone":%q,"signature":%q}`,
		invoiceID, testPhone, sig))
}

func TestCreateInvoice_Success(t *testing.T) {
	f := newFixture(t, "", newOrder("o-1"))

	res, err := f.svc.CreateInvoice(context.Background(), "o-1", gateway.ModeActive)
	require.NoError(t, err)
	require.Equal(t, types.GatewayEasyPay, res.Gateway)
	require.Equal(t, "easypay-uid-1", res.InvoiceUID)
	require.Equal(t, "778801", res.InvoiceSequence)
	require.Equal(t, "180.00", res.Amount)

	o := f.store.snapshot("o-1")
	require.Equal(t, types.GatewayEasyPay, o.PaymentGateway)
	require.Equal(t, "easypay-uid-1", o.InvoiceID)
	require.Equal(t, f.now, *o.InvoiceCreatedAt)
	require.False(t, o.Paid)
	require.Equal(t, res.PaymentURL, o.Payload().PaymentURL)
}

func TestCreateInvoice_ExplicitGateway(t *testing.T) {
	f := newFixture(t, "", newOrder("o-1"))

	res, err := f.svc.CreateInvoice(context.Background(), "o-1", "shakeout")
	require.NoError(t, err)
	require.Equal(t, types.GatewayShakeout, res.Gateway)
	require.Equal(t, int32(0), f.easypay.calls)
	require.Equal(t, int32(1), f.shakeout.calls)
}

func TestCreateInvoice_Duplicate(t *testing.T) {
	f := newFixture(t, "", newOrder("o-1"))

	first, err := f.svc.CreateInvoice(context.Background(), "o-1", "")
	require.NoError(t, err)

	f.advance(time.Hour)
	for _, mode := range []string{"", "easypay", "shakeout"} {
		_, err = f.svc.CreateInvoice(context.Background(), "o-1", mode)
		require.ErrorIs(t, err, ErrDuplicateInvoice, mode)

		var dup *DuplicateInvoiceError
		require.True(t, errors.As(err, &dup))
		require.Equal(t, first.InvoiceUID, dup.InvoiceUID)
		require.Equal(t, first.InvoiceSequence, dup.InvoiceSequence)
		require.Equal(t, types.GatewayEasyPay, dup.Gateway)
		require.Equal(t, first.PaymentURL, dup.PaymentURL)
		require.Equal(t, first.CreatedAt.Add(testExpiry), dup.ExpiresAt)
	}

	// The blocked requests never reach a gateway.
	require.Equal(t, int32(1), f.easypay.calls)
	require.Equal(t, int32(0), f.shakeout.calls)
	o := f.store.snapshot("o-1")
	require.Equal(t, first.InvoiceUID, o.InvoiceID)
}

func TestCreateInvoice_ReplacesExpiredInvoice(t *testing.T) {
	f := newFixture(t, "", newOrder("o-1"))

	first, err := f.svc.CreateInvoice(context.Background(), "o-1", "")
	require.NoError(t, err)

	// Exactly at the threshold the invoice still blocks.
	f.advance(testExpiry)
	_, err = f.svc.CreateInvoice(context.Background(), "o-1", "")
	require.ErrorIs(t, err, ErrDuplicateInvoice)

	f.advance(time.Millisecond)
	second, err := f.svc.CreateInvoice(context.Background(), "o-1", "shakeout")
	require.NoError(t, err)
	require.NotEqual(t, first.InvoiceUID, second.InvoiceUID)

	o := f.store.snapshot("o-1")
	require.Equal(t, types.GatewayShakeout, o.PaymentGateway)
	require.Equal(t, second.InvoiceUID, o.InvoiceID)
	require.Equal(t, second.InvoiceSequence, o.InvoiceSequence)
	require.Equal(t, f.now, *o.InvoiceCreatedAt)
}

func TestCreateInvoice_UpstreamFailureRecordsNothing(t *testing.T) {
	f := newFixture(t, "", newOrder("o-1"))
	f.easypay.fail = errors.New("connection refused")

	_, err := f.svc.CreateInvoice(context.Background(), "o-1", "")
	require.ErrorIs(t, err, ErrUpstream)
	require.Zero(t, f.store.saveCount())

	o := f.store.snapshot("o-1")
	require.True(t, o.PaymentGateway.IsNone())
	require.Nil(t, o.InvoiceCreatedAt)
}

func TestCreateInvoice_NotConfiguredIsNotUpstream(t *testing.T) {
	f := newFixture(t, "", newOrder("o-1"))
	f.easypay.fail = fmt.Errorf("%w: secret missing", gateway.ErrNotConfigured)

	_, err := f.svc.CreateInvoice(context.Background(), "o-1", "")
	require.ErrorIs(t, err, gateway.ErrNotConfigured)
	require.NotErrorIs(t, err, ErrUpstream)
}

func TestCreateInvoice_Preconditions(t *testing.T) {
	paid := newOrder("paid")
	paid.Paid = true
	paid.Status = types.OrderStatusPaid
	noPhone := newOrder("no-phone")
	noPhone.CustomerPhone = ""

	f := newFixture(t, "", paid, noPhone)

	_, err := f.svc.CreateInvoice(context.Background(), "paid", "")
	require.ErrorIs(t, err, ErrOrderAlreadyPaid)

	_, err = f.svc.CreateInvoice(context.Background(), "no-phone", "")
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, []string{"customer_phone"}, verr.Fields)

	_, err = f.svc.CreateInvoice(context.Background(), "missing", "")
	require.ErrorIs(t, err, ErrOrderNotFound)

	_, err = f.svc.CreateInvoice(context.Background(), "paid", "paymob")
	require.ErrorIs(t, err, gateway.ErrUnknownGateway)

	require.Equal(t, int32(0), f.easypay.calls)
}

func TestCreateInvoice_ConcurrentRequestsIssueOneInvoice(t *testing.T) {
	f := newFixture(t, "", newOrder("o-1"))

	// Hold every gateway call until both requests are in flight, so both pass
	// the first check and race on the commit.
	var arrived sync.WaitGroup
	arrived.Add(2)
	f.easypay.before = func() {
		arrived.Done()
		arrived.Wait()
	}

	var (
		wg   sync.WaitGroup
		errs = make([]error, 2)
	)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.CreateInvoice(context.Background(), "o-1", "")
		}(i)
	}
	wg.Wait()

	var ok, dup int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrDuplicateInvoice):
			dup++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, ok)
	require.Equal(t, 1, dup)
	require.Equal(t, 1, f.store.saveCount())
}

func pendingOrder(t *testing.T, f *fixture, id string) *models.Order {
	t.Helper()
	_, err := f.svc.CreateInvoice(context.Background(), id, "")
	require.NoError(t, err)
	return f.store.snapshot(id)
}

func TestApplyWebhook_MarksPaidOnce(t *testing.T) {
	f := newFixture(t, "", newOrder("o-1"))
	o := pendingOrder(t, f, "o-1")
	saves := f.store.saveCount()

	body := easyPayWebhook(o.InvoiceSequence, "PAID", "180.00")
	res, err := f.svc.ApplyWebhook(context.Background(), &WebhookRequest{Gateway: types.GatewayEasyPay, Body: body})
	require.NoError(t, err)
	require.True(t, res.Transitioned)
	require.Equal(t, "P-o-1", res.OrderNumber)
	require.Equal(t, "PAID", res.Status)

	got := f.store.snapshot("o-1")
	require.True(t, got.Paid)
	require.Equal(t, types.OrderStatusPaid, got.Status)
	require.Equal(t, types.GatewayEasyPay, got.PaymentGateway)
	require.True(t, got.Payload().WebhookReceived)
	require.JSONEq(t, string(body), string(got.Payload().WebhookData))
	require.Equal(t, int32(1), f.notifier.n)
	require.Equal(t, saves+1, f.store.saveCount())

	// Redelivery is accepted and does nothing.
	f.advance(time.Minute)
	res, err = f.svc.ApplyWebhook(context.Background(), &WebhookRequest{Gateway: types.GatewayEasyPay, Body: body})
	require.NoError(t, err)
	require.False(t, res.Transitioned)
	require.True(t, res.Paid)
	require.Equal(t, int32(1), f.notifier.n)
	require.Equal(t, saves+1, f.store.saveCount())
	require.Equal(t, got.Payload().WebhookAt, f.store.snapshot("o-1").Payload().WebhookAt)
}

func TestApplyWebhook_AcceptsNumericAmount(t *testing.T) {
	f := newFixture(t, "", newOrder("o-1"))
	o := pendingOrder(t, f, "o-1")

	sig := signature.Digest("180.00" + testPhone + testSecret)
	body := fmt.Sprintf(`{"easy_pay_sequence":%s,"status":"PAID","signature":%q,"customer_phone":%q,"amount":180.00}`, o.InvoiceSequence, sig, testPhone)
	_, err := f.svc.ApplyWebhook(context.Background(), &WebhookRequest{Gateway: types.GatewayEasyPay, Body: []byte(body)})
	require.NoError(t, err)
	require.True(t, f.store.snapshot("o-1").Paid)
}

func TestApplyWebhook_TamperedNeverChangesState(t *testing.T) {
	f := newFixture(t, "", newOrder("o-1"))
	o := pendingOrder(t, f, "o-1")
	saves := f.store.saveCount()

	validSig := signature.Digest("180.00" + testPhone + testSecret)
	cases := map[string]string{
		// amount changed, signature left as is
		"tampered amount": fmt.Sprintf(`{"easy_pay_sequence":%q,"status":"PAID","signature":%q,"customer_phone":%q,"amount":"1.00"}`, o.InvoiceSequence, validSig, testPhone),
		// amount changed and re-signed with a guessed secret
		"wrong secret": fmt.Sprintf(`{"easy_pay_sequence":%q,"status":"PAID","signature":%q,"customer_phone":%q,"amount":"180.00"}`, o.InvoiceSequence, signature.Digest("180.00"+testPhone+"guess"), testPhone),
		// signature valid for the reported amount, which is not the order amount
		"amount mismatch": string(easyPayWebhook(o.InvoiceSequence, "PAID", "18.00")),
		"uppercase signature": fmt.Sprintf(`{"easy_pay_sequence":%q,"status":"PAID","signature":%q,"customer_phone":%q,"amount":"180.00"}`, o.InvoiceSequence, strings.ToUpper(validSig), testPhone),
	}
	for name, body := range cases {
		_, err := f.svc.ApplyWebhook(context.Background(), &WebhookRequest{Gateway: types.GatewayEasyPay, Body: []byte(body)})
		require.ErrorIs(t, err, ErrWebhookRejected, name)
	}

	got := f.store.snapshot("o-1")
	require.False(t, got.Paid)
	require.False(t, got.Payload().WebhookReceived)
	require.Equal(t, saves, f.store.saveCount())
	require.Zero(t, f.notifier.n)
}

func TestApplyWebhook_APIKeyGate(t *testing.T) {
	f := newFixture(t, "hook-key", newOrder("o-1"))
	o := pendingOrder(t, f, "o-1")
	body := easyPayWebhook(o.InvoiceSequence, "PAID", "180.00")

	for _, key := range []string{"", "wrong"} {
		_, err := f.svc.ApplyWebhook(context.Background(), &WebhookRequest{Gateway: types.GatewayEasyPay, APIKey: key, Body: body})
		require.ErrorIs(t, err, ErrUnauthorized, key)
	}
	// The key is checked before the body is even parsed.
	_, err := f.svc.ApplyWebhook(context.Background(), &WebhookRequest{Gateway: types.GatewayEasyPay, Body: []byte(`{}`)})
	require.ErrorIs(t, err, ErrUnauthorized)
	require.False(t, f.store.snapshot("o-1").Paid)

	_, err = f.svc.ApplyWebhook(context.Background(), &WebhookRequest{Gateway: types.GatewayEasyPay, APIKey: "hook-key", Body: body})
	require.NoError(t, err)
	require.True(t, f.store.snapshot("o-1").Paid)
}

func TestApplyWebhook_KeyPresentedButNoneConfigured(t *testing.T) {
	f := newFixture(t, "", newOrder("o-1"))
	o := pendingOrder(t, f, "o-1")

	_, err := f.svc.ApplyWebhook(context.Background(), &WebhookRequest{
		Gateway: types.GatewayEasyPay,
		APIKey:  "anything",
		Body:    easyPayWebhook(o.InvoiceSequence, "PAID", "180.00"),
	})
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestApplyWebhook_ValidationAndLookup(t *testing.T) {
	f := newFixture(t, "", newOrder("o-1"))
	o := pendingOrder(t, f, "o-1")

	_, err := f.svc.ApplyWebhook(context.Background(), &WebhookRequest{Gateway: types.GatewayEasyPay, Body: []byte(`{"status":"PAID"}`)})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, []string{"easy_pay_sequence", "signature", "customer_phone", "amount"}, verr.Fields)

	_, err = f.svc.ApplyWebhook(context.Background(), &WebhookRequest{Gateway: types.GatewayEasyPay, Body: []byte(`{`)})
	require.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.ApplyWebhook(context.Background(), &WebhookRequest{Gateway: types.GatewayEasyPay, Body: easyPayWebhook("999", "PAID", "180.00")})
	require.ErrorIs(t, err, ErrOrderNotFound)

	// A sequence issued by easypay is not found through shakeout.
	_, err = f.svc.ApplyWebhook(context.Background(), &WebhookRequest{Gateway: types.GatewayShakeout, Body: shakeoutWebhookFor(o.InvoiceSequence)})
	require.ErrorIs(t, err, ErrOrderNotFound)

	_, err = f.svc.ApplyWebhook(context.Background(), &WebhookRequest{Gateway: types.GatewayNone, Body: nil})
	require.ErrorIs(t, err, gateway.ErrUnknownGateway)
}

func TestApplyWebhook_NonPaidStatusOnlyRecordsPayload(t *testing.T) {
	f := newFixture(t, "", newOrder("o-1"))
	o := pendingOrder(t, f, "o-1")

	res, err := f.svc.ApplyWebhook(context.Background(), &WebhookRequest{
		Gateway: types.GatewayEasyPay,
		Body:    easyPayWebhook(o.InvoiceSequence, "UNPAID", "180.00"),
	})
	require.NoError(t, err)
	require.False(t, res.Transitioned)
	require.Equal(t, "UNPAID", res.Status)

	got := f.store.snapshot("o-1")
	require.False(t, got.Paid)
	require.Equal(t, types.OrderStatusInitiated, got.Status)
	require.True(t, got.Payload().WebhookReceived)
	require.Equal(t, o.Payload().PaymentURL, got.Payload().PaymentURL)
	require.Zero(t, f.notifier.n)
}

func TestApplyWebhook_Shakeout(t *testing.T) {
	f := newFixture(t, "hook-key", newOrder("o-1"))
	_, err := f.svc.CreateInvoice(context.Background(), "o-1", "shakeout")
	require.NoError(t, err)
	o := f.store.snapshot("o-1")

	sig := signature.Digest("180.00" + testPhone + testSecret)
	body := fmt.Sprintf(`{"invoice_id":%q,"invoice_ref":%q,"invoice_status":"paid","amount":"180.00","customer_phone":%q,"signature":%q}`,
		o.InvoiceID, o.InvoiceSequence, testPhone, sig)

	// Shakeout has no key gate, so the easypay key does not apply.
	res, err := f.svc.ApplyWebhook(context.Background(), &WebhookRequest{Gateway: types.GatewayShakeout, Body: []byte(body)})
	require.NoError(t, err)
	require.True(t, res.Transitioned)
	require.True(t, f.store.snapshot("o-1").Paid)
}

func TestIsInvoiceExpired(t *testing.T) {
	f := newFixture(t, "")
	created := f.now

	o := newOrder("o-1")
	require.True(t, f.svc.IsInvoiceExpired(o, f.now))

	o.PaymentGateway = types.GatewayEasyPay
	o.InvoiceID = "uid"
	o.InvoiceCreatedAt = &created
	require.False(t, f.svc.IsInvoiceExpired(o, created))
	require.False(t, f.svc.IsInvoiceExpired(o, created.Add(testExpiry)))
	require.True(t, f.svc.IsInvoiceExpired(o, created.Add(testExpiry+time.Nanosecond)))
}

func TestCheckStatus(t *testing.T) {
	f := newFixture(t, "", newOrder("o-1"), newOrder("o-2"))
	pendingOrder(t, f, "o-1")

	st, err := f.svc.CheckStatus(context.Background(), "o-1")
	require.NoError(t, err)
	require.True(t, st.Paid)

	_, err = f.svc.CheckStatus(context.Background(), "o-2")
	require.ErrorIs(t, err, ErrValidation)

	f.easypay.fail = errors.New("timeout")
	_, err = f.svc.CheckStatus(context.Background(), "o-1")
	require.ErrorIs(t, err, ErrUpstream)
}
