package invoice

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fatflowers/paygate/pkg/types"
)

var (
	ErrDuplicateInvoice = errors.New("an active invoice already exists for this order")
	ErrOrderAlreadyPaid = errors.New("order is already paid")
	ErrValidation       = errors.New("validation failed")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrWebhookRejected  = errors.New("webhook rejected")
	ErrOrderNotFound    = errors.New("order not found")
	ErrUpstream         = errors.New("payment gateway request failed")
)

// DuplicateInvoiceError carries the invoice that still blocks a new one so
// the caller can send the customer to it.
type DuplicateInvoiceError struct {
	OrderID         string        `json:"order_id"`
	Gateway         types.Gateway `json:"payment_gateway"`
	InvoiceUID      string        `json:"invoice_uid"`
	InvoiceSequence string        `json:"invoice_sequence"`
	PaymentURL      string        `json:"payment_url"`
	Amount          string        `json:"amount"`
	CreatedAt       time.Time     `json:"created_at"`
	ExpiresAt       time.Time     `json:"expires_at"`
}

func (e *DuplicateInvoiceError) Error() string {
	return fmt.Sprintf("order %s already has an active %s invoice %s", e.OrderID, e.Gateway, e.InvoiceUID)
}

func (e *DuplicateInvoiceError) Is(target error) bool { return target == ErrDuplicateInvoice }

// ValidationError reports a malformed request. Fields lists missing fields, if any.
type ValidationError struct {
	Message string
	Fields  []string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.Fields, ", "))
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
