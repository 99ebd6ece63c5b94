package signature

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var webhookTemplate = Template{
	Name:   "test.webhook",
	Fields: []Field{FieldAmount, FieldPhone, FieldSecret},
}

const testSecret = "aa093225-cb06-4b39-b684-1f8533c5e2f6"

func referenceDigest() string {
	sum := sha256.Sum256([]byte("180.00" + "01030265229" + testSecret))
	return hex.EncodeToString(sum[:])
}

func testValues() Values {
	return Values{
		FieldAmount: "180.00",
		FieldPhone:  "01030265229",
		FieldSecret: testSecret,
	}
}

func TestCompute_MatchesReferenceDigest(t *testing.T) {
	got, err := Compute(webhookTemplate, testValues())
	require.NoError(t, err)
	require.Equal(t, referenceDigest(), got)
	require.Len(t, got, 64)

	again, err := Compute(webhookTemplate, testValues())
	require.NoError(t, err)
	require.Equal(t, got, again)
}

func TestVerify_Valid(t *testing.T) {
	ok, err := Verify(webhookTemplate, testValues(), referenceDigest())
	require.NoError(t, err)
	require.True(t, ok)
}

func TestVerify_AnySingleMutationFails(t *testing.T) {
	sig := referenceDigest()
	mutations := map[string]func(Values){
		"secret": func(v Values) { v[FieldSecret] = testSecret + "x" },
		"amount": func(v Values) { v[FieldAmount] = "180.01" },
		"phone":  func(v Values) { v[FieldPhone] = "01030265228" },
		"amount without decimals": func(v Values) {
			v[FieldAmount] = "180"
		},
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			v := testValues()
			mutate(v)
			ok, err := Verify(webhookTemplate, v, sig)
			require.NoError(t, err)
			require.False(t, ok)
		})
	}
}

func TestVerify_UppercaseSignatureRejected(t *testing.T) {
	upper := []byte(referenceDigest())
	for i, c := range upper {
		if c >= 'a' && c <= 'f' {
			upper[i] = c - 32
		}
	}
	ok, err := Verify(webhookTemplate, testValues(), string(upper))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestTemplate_OrderMatters(t *testing.T) {
	reordered := Template{Name: "reordered", Fields: []Field{FieldSecret, FieldAmount, FieldPhone}}
	a, err := Compute(webhookTemplate, testValues())
	require.NoError(t, err)
	b, err := Compute(reordered, testValues())
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestCompute_MissingFields(t *testing.T) {
	v := testValues()
	delete(v, FieldPhone)
	v[FieldAmount] = ""

	_, err := Compute(webhookTemplate, v)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrMissingField))

	var mfe *MissingFieldError
	require.True(t, errors.As(err, &mfe))
	require.Equal(t, []Field{FieldAmount, FieldPhone}, mfe.Fields)

	ok, err := Verify(webhookTemplate, v, referenceDigest())
	require.Error(t, err)
	require.False(t, ok)
}

func TestFormatAmount(t *testing.T) {
	require.Equal(t, "180.00", FormatAmount(decimal.NewFromInt(180)))
	require.Equal(t, "99.50", FormatAmount(decimal.RequireFromString("99.5")))
	require.Equal(t, "0.13", FormatAmount(decimal.RequireFromString("0.125")))
}
