package easypay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fatflowers/paygate/pkg/types"
)

type Options struct {
	BaseURL    string
	VendorCode string
	Timeout    time.Duration
	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
}

// Client talks to the EasyPay invoice REST API.
type Client struct {
	baseURL    string
	vendorCode string
	http       *http.Client
}

func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("easypay: base url is empty")
	}
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{baseURL: strings.TrimRight(opts.BaseURL, "/"), vendorCode: opts.VendorCode, http: hc}, nil
}

type Customer struct {
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	ProfileID string `json:"profile_id"`
}

type Item struct {
	ItemID      string `json:"item_id"`
	Price       string `json:"price"`
	Quantity    int    `json:"quantity"`
	Description string `json:"description"`
}

type CreateInvoiceRequest struct {
	VendorCode string `json:"vendor_code"`
	Amount     string `json:"amount"`
	// PaymentExpiry is an absolute unix timestamp in milliseconds.
	PaymentExpiry int64    `json:"payment_expiry"`
	PaymentMethod string   `json:"payment_method"`
	Signature     string   `json:"signature"`
	Customer      Customer `json:"customer"`
	Items         []Item   `json:"items"`
}

type CreateInvoiceResponse struct {
	InvoiceUID      types.FlexString `json:"invoice_uid"`
	InvoiceSequence types.FlexString `json:"invoice_sequence"`
}

// Invoice is the get-invoice view; Raw keeps the full body for auditing.
type Invoice struct {
	PaymentStatus string          `json:"payment_status"`
	Raw           json.RawMessage `json:"-"`
}

// APIError is returned for any non 2xx answer.
type APIError struct {
	StatusCode int
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("easypay api error: HTTP %d: %s", e.StatusCode, e.Message)
}

// CreateInvoice calls POST {base}/create-invoice/.
func (c *Client) CreateInvoice(ctx context.Context, req *CreateInvoiceRequest) (*CreateInvoiceResponse, error) {
	if req.VendorCode == "" {
		req.VendorCode = c.vendorCode
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("easypay: marshal create invoice: %w", err)
	}
	raw, err := c.do(ctx, http.MethodPost, c.baseURL+"/create-invoice/", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	var res CreateInvoiceResponse
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("easypay: decode create invoice: %w", err)
	}
	if res.InvoiceUID == "" || res.InvoiceSequence == "" {
		return nil, errors.New("easypay: response is missing invoice_uid or invoice_sequence")
	}
	return &res, nil
}

// GetInvoice calls GET {base}/get-invoice/{uid}/{sequence}/.
func (c *Client) GetInvoice(ctx context.Context, uid, sequence string) (*Invoice, error) {
	u := fmt.Sprintf("%s/get-invoice/%s/%s/", c.baseURL, url.PathEscape(uid), url.PathEscape(sequence))
	raw, err := c.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	inv := &Invoice{Raw: raw}
	if err := json.Unmarshal(raw, inv); err != nil {
		return nil, fmt.Errorf("easypay: decode invoice: %w", err)
	}
	if inv.PaymentStatus == "" {
		inv.PaymentStatus = "unknown"
	}
	return inv, nil
}

// StatusCheck calls GET {base}/invoice-status-check/ for a Fawry reference.
func (c *Client) StatusCheck(ctx context.Context, fawryRef string) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("vendor_code", c.vendorCode)
	q.Set("fawry_ref", fawryRef)
	raw, err := c.do(ctx, http.MethodGet, c.baseURL+"/invoice-status-check/?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if !json.Valid(raw) {
		return nil, errors.New("easypay: status check returned invalid json")
	}
	return raw, nil
}

func (c *Client) do(ctx context.Context, method, u string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("easypay: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("easypay: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("easypay: read response: %w", err)
	}
	// 201 is what create-invoice returns on success.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: errorMessage(raw), Body: string(raw)}
	}
	return raw, nil
}

func errorMessage(raw []byte) string {
	var e struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &e) == nil {
		if e.Error != "" {
			return e.Error
		}
		if e.Message != "" {
			return e.Message
		}
	}
	return strings.TrimSpace(string(raw))
}
