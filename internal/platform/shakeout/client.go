package shakeout

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
	BaseURL string
	// APIKey authenticates outbound calls ("Authorization: apikey <key>").
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client talks to the Shakeout vendor invoice API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("shakeout: base url is empty")
	}
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{baseURL: strings.TrimRight(opts.BaseURL, "/"), apiKey: opts.APIKey, http: hc}, nil
}

type Customer struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

type InvoiceItem struct {
	Name     string `json:"name"`
	Price    string `json:"price"`
	Quantity int    `json:"quantity"`
}

type CreateInvoiceRequest struct {
	VendorCode    string        `json:"vendor_code"`
	Reference     string        `json:"reference"`
	Amount        string        `json:"amount"`
	Currency      string        `json:"currency"`
	DueDate       string        `json:"due_date"`
	PaymentMethod string        `json:"payment_method"`
	Customer      Customer      `json:"customer"`
	InvoiceItems  []InvoiceItem `json:"invoice_items"`
	Signature     string        `json:"signature"`
}

type InvoiceData struct {
	InvoiceID     types.FlexString `json:"invoice_id"`
	InvoiceRef    types.FlexString `json:"invoice_ref"`
	URL           string           `json:"url"`
	InvoiceStatus string           `json:"invoice_status"`
	Amount        types.FlexString `json:"amount"`
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Invoice is a decoded invoice with the raw data object kept for auditing.
type Invoice struct {
	InvoiceData
	Raw json.RawMessage
}

type APIError struct {
	StatusCode int
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("shakeout api error: HTTP %d: %s", e.StatusCode, e.Message)
}

// CreateInvoice calls POST {base}/invoice.
func (c *Client) CreateInvoice(ctx context.Context, req *CreateInvoiceRequest) (*Invoice, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("shakeout: marshal create invoice: %w", err)
	}
	inv, err := c.call(ctx, http.MethodPost, c.baseURL+"/invoice", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	if inv.InvoiceID == "" || inv.URL == "" {
		return nil, errors.New("shakeout: response is missing invoice_id or url")
	}
	return inv, nil
}

// GetInvoice calls GET {base}/invoice/{invoice_id}.
func (c *Client) GetInvoice(ctx context.Context, invoiceID string) (*Invoice, error) {
	return c.call(ctx, http.MethodGet, c.baseURL+"/invoice/"+url.PathEscape(invoiceID), nil)
}

func (c *Client) call(ctx context.Context, method, u string, body io.Reader) (*Invoice, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("shakeout: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "apikey "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("shakeout: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("shakeout: read response: %w", err)
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)
	if resp.StatusCode < 200 || resp.StatusCode > 299 || (decodeErr == nil && strings.EqualFold(env.Status, "error")) {
		msg := env.Message
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: msg, Body: string(raw)}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("shakeout: decode response: %w", decodeErr)
	}

	inv := &Invoice{Raw: env.Data}
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &inv.InvoiceData); err != nil {
			return nil, fmt.Errorf("shakeout: decode invoice: %w", err)
		}
	}
	return inv, nil
}
