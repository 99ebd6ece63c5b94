// Package signature computes and checks the SHA-256 digests payment gateways
// attach to invoice requests and webhook notifications.
//
// A digest covers the string values of a fixed, gateway defined list of fields
// concatenated without separators. Each gateway operation owns its own
// Template, so the same field set may be signed in different orders.
package signature

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Field selects one value taking part in a signature.
type Field string

const (
	FieldVendorCode Field = "vendor_code"
	FieldSecret     Field = "secret_key"
	FieldAmount     Field = "amount"
	FieldProfileID  Field = "profile_id"
	FieldPhone      Field = "customer_phone"
	FieldReference  Field = "reference"
	FieldStatus     Field = "status"
)

// Template is the ordered field list of one gateway operation.
type Template struct {
	Name   string
	Fields []Field
}

// Values holds the already formatted value of every field.
type Values map[Field]string

var ErrMissingField = errors.New("signature field missing")

// MissingFieldError lists the template fields that had no value.
type MissingFieldError struct {
	Template string
	Fields   []Field
}

func (e *MissingFieldError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		names = append(names, string(f))
	}
	return fmt.Sprintf("%s: missing %s", e.Template, strings.Join(names, ", "))
}

func (e *MissingFieldError) Is(target error) bool { return target == ErrMissingField }

// Payload returns the exact string that gets hashed.
func (t Template) Payload(v Values) (string, error) {
	var missing []Field
	var b strings.Builder
	for _, f := range t.Fields {
		s, ok := v[f]
		if !ok || s == "" {
			missing = append(missing, f)
			continue
		}
		b.WriteString(s)
	}
	if len(missing) > 0 {
		return "", &MissingFieldError{Template: t.Name, Fields: missing}
	}
	return b.String(), nil
}

// Compute returns the lowercase hex SHA-256 digest of the template payload.
func Compute(t Template, v Values) (string, error) {
	payload, err := t.Payload(v)
	if err != nil {
		return "", err
	}
	return Digest(payload), nil
}

// Digest hashes s as UTF-8 and renders it as lowercase hex.
func Digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// Verify reports whether presented matches the digest of v under t.
// The comparison runs in constant time.
func Verify(t Template, v Values, presented string) (bool, error) {
	expected, err := Compute(t, v)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(presented)) == 1, nil
}

// FormatAmount renders an amount with exactly two decimal places.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
