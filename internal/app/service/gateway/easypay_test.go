package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fatflowers/paygate/internal/models"
	"github.com/fatflowers/paygate/internal/platform/easypay"
	"github.com/fatflowers/paygate/pkg/config"
	"github.com/fatflowers/paygate/pkg/signature"
	"github.com/fatflowers/paygate/pkg/types"
)

const testSecret = "aa093225-cb06-4b39-b684-1f8533c5e2f6"

func testEasyPayConfig(baseURL string) config.EasyPayConfig {
	return config.EasyPayConfig{
		BaseURL:        baseURL,
		PaymentURLBase: "https://stu.easy-adds.com/invoice/",
		VendorCode:     "VC-1",
		SecretKey:      testSecret,
		PaymentMethod:  "fawry",
		ExpiryMS:       172800000,
		WebhookAPIKey:  "hook-key",
	}
}

func newTestEasyPay(t *testing.T, h http.HandlerFunc) *EasyPay {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	cfg := testEasyPayConfig(srv.URL)
	client, err := easypay.NewClient(easypay.Options{BaseURL: cfg.BaseURL, VendorCode: cfg.VendorCode})
	require.NoError(t, err)
	return NewEasyPay(cfg, client)
}

func TestEasyPay_CreateInvoice(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	g := newTestEasyPay(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			assert.Equal(t, "/get-invoice/uid-1/778899/", r.URL.Path)
			_, _ = w.Write([]byte(`{"payment_status":"UNPAID","fawry_ref":"9912","total_amount":"180.00"}`))
			return
		}
		var req easypay.CreateInvoiceRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		assert.Equal(t, "180.00", req.Amount)
		assert.Equal(t, now.UnixMilli()+172800000, req.PaymentExpiry)
		assert.Equal(t, "fawry", req.PaymentMethod)
		assert.Equal(t, "order-1", req.Customer.ProfileID)
		assert.Equal(t, signature.Digest("VC-1"+testSecret+"180.00"+"order-1"+"01030265229"), req.Signature)
		if assert.Len(t, req.Items, 1) {
			assert.Equal(t, "Order P-100", req.Items[0].Description)
			assert.Equal(t, "180.00", req.Items[0].Price)
		}

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"invoice_uid":"uid-1","invoice_sequence":778899}`))
	})

	inv, err := g.CreateInvoice(context.Background(), &InvoiceRequest{
		OrderID:       "order-1",
		OrderNumber:   "P-100",
		Amount:        decimal.RequireFromString("180"),
		CustomerName:  "Mona",
		CustomerPhone: "01030265229",
		Now:           now,
	})
	require.NoError(t, err)
	require.Equal(t, types.GatewayEasyPay, inv.Gateway)
	require.Equal(t, "uid-1", inv.InvoiceID)
	require.Equal(t, "778899", inv.InvoiceSequence)
	require.Equal(t, "https://stu.easy-adds.com/invoice/uid-1/778899", inv.PaymentURL)
	require.Equal(t, "180.00", inv.Amount)
	require.JSONEq(t, `{"payment_status":"UNPAID","fawry_ref":"9912","total_amount":"180.00"}`, string(inv.Details))
}

func TestEasyPay_CreateInvoice_DetailsUnavailable(t *testing.T) {
	g := newTestEasyPay(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"invoice_uid":"uid-1","invoice_sequence":778899}`))
	})

	_, err := g.CreateInvoice(context.Background(), &InvoiceRequest{
		OrderID:       "order-1",
		Amount:        decimal.RequireFromString("180"),
		CustomerPhone: "01030265229",
		Now:           time.Now(),
	})
	var apiErr *easypay.APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
}

func TestEasyPay_StatusCheck(t *testing.T) {
	g := newTestEasyPay(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/invoice-status-check/", r.URL.Path)
		assert.Equal(t, "VC-1", r.URL.Query().Get("vendor_code"))
		assert.Equal(t, "9912", r.URL.Query().Get("fawry_ref"))
		_, _ = w.Write([]byte(`{"status":"PAID"}`))
	})

	raw, err := g.StatusCheck(context.Background(), "9912")
	require.NoError(t, err)
	require.JSONEq(t, `{"status":"PAID"}`, string(raw))

	_, err = g.StatusCheck(context.Background(), " ")
	require.Error(t, err)

	_, err = NewEasyPay(config.EasyPayConfig{}, nil).StatusCheck(context.Background(), "9912")
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestEasyPay_CreateInvoice_NotConfigured(t *testing.T) {
	g := NewEasyPay(config.EasyPayConfig{}, nil)
	_, err := g.CreateInvoice(context.Background(), &InvoiceRequest{})
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestEasyPay_ParseWebhook(t *testing.T) {
	g := NewEasyPay(testEasyPayConfig("http://unused"), nil)

	ev, err := g.ParseWebhook([]byte(`{"easy_pay_sequence":778899,"status":"PAID","signature":"abc","customer_phone":"01030265229","amount":"180.00"}`))
	require.NoError(t, err)
	require.Equal(t, types.InvoiceRefSequence, ev.RefField)
	require.Equal(t, "778899", ev.Reference)
	require.True(t, ev.Paid)
	require.Equal(t, "180.00", ev.Amount)

	ev, err = g.ParseWebhook([]byte(`{"easy_pay_sequence":"778899","status":"UNPAID","signature":"abc","customer_phone":"010","amount":180.00}`))
	require.NoError(t, err)
	require.False(t, ev.Paid)
	require.Equal(t, "180.00", ev.Amount)
}

func TestEasyPay_ParseWebhook_MissingFields(t *testing.T) {
	g := NewEasyPay(testEasyPayConfig("http://unused"), nil)

	_, err := g.ParseWebhook([]byte(`{"easy_pay_sequence":"1","status":"PAID"}`))
	var missing *MissingFieldsError
	require.True(t, errors.As(err, &missing))
	require.Equal(t, []string{"signature", "customer_phone", "amount"}, missing.Fields)

	_, err = g.ParseWebhook([]byte(`not json`))
	require.ErrorIs(t, err, ErrMalformedPayload)
}

func TestEasyPay_VerifyWebhook(t *testing.T) {
	g := NewEasyPay(testEasyPayConfig("http://unused"), nil)
	good := signature.Digest("180.00" + "01030265229" + testSecret)

	ok, err := g.VerifyWebhook(&WebhookEvent{Amount: "180.00", CustomerPhone: "01030265229", Signature: good})
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = g.VerifyWebhook(&WebhookEvent{Amount: "181.00", CustomerPhone: "01030265229", Signature: good})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestEasyPay_InvoiceStatus(t *testing.T) {
	g := newTestEasyPay(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/get-invoice/uid-1/778899/", r.URL.Path)
		_, _ = w.Write([]byte(`{"payment_status":"paid"}`))
	})

	st, err := g.InvoiceStatus(context.Background(), &models.Order{InvoiceID: "uid-1", InvoiceSequence: "778899"})
	require.NoError(t, err)
	require.True(t, st.Paid)
	require.Equal(t, "paid", st.Status)
}
