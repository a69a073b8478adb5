package codec

import (
	"net/http"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/x402agent/x402-go/types"
)

func TestRequirementRoundTrip(t *testing.T) {
	req := &types.PaymentRequirement{
		Amount:    decimal.RequireFromString("0.05"),
		Currency:  types.CurrencyUSDC,
		Recipient: "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin",
		Reference: "pay_abc123",
		Expires:   1900000000,
		Network:   "devnet",
	}

	h := make(http.Header)
	WriteRequirement(h, req)

	assert.Equal(t, types.ProtocolVersion, h.Get(HeaderVersion))

	parsed, err := ParseRequirement(h)
	require.NoError(t, err)
	assert.True(t, parsed.Amount.Equal(req.Amount))
	assert.Equal(t, req.Currency, parsed.Currency)
	assert.Equal(t, req.Recipient, parsed.Recipient)
	assert.Equal(t, req.Reference, parsed.Reference)
	assert.Equal(t, req.Expires, parsed.Expires)
	assert.Equal(t, req.Network, parsed.Network)
}

func TestParseRequirementDefaultsCurrencyToSOL(t *testing.T) {
	h := make(http.Header)
	h.Set(HeaderAmount, "0.01")
	h.Set(HeaderRecipient, "recipient")
	h.Set(HeaderReference, "pay_ref")

	parsed, err := ParseRequirement(h)
	require.NoError(t, err)
	assert.Equal(t, types.CurrencySOL, parsed.Currency)
}

func TestParseRequirementRejectsIncompleteTerms(t *testing.T) {
	tests := []struct {
		name  string
		build func(h http.Header)
	}{
		{"missing amount", func(h http.Header) {
			h.Set(HeaderRecipient, "recipient")
			h.Set(HeaderReference, "pay_ref")
		}},
		{"unparseable amount", func(h http.Header) {
			h.Set(HeaderAmount, "one ether")
			h.Set(HeaderRecipient, "recipient")
			h.Set(HeaderReference, "pay_ref")
		}},
		{"negative amount", func(h http.Header) {
			h.Set(HeaderAmount, "-0.01")
			h.Set(HeaderRecipient, "recipient")
			h.Set(HeaderReference, "pay_ref")
		}},
		{"missing recipient", func(h http.Header) {
			h.Set(HeaderAmount, "0.01")
			h.Set(HeaderReference, "pay_ref")
		}},
		{"missing reference", func(h http.Header) {
			h.Set(HeaderAmount, "0.01")
			h.Set(HeaderRecipient, "recipient")
		}},
		{"unparseable expires", func(h http.Header) {
			h.Set(HeaderAmount, "0.01")
			h.Set(HeaderRecipient, "recipient")
			h.Set(HeaderReference, "pay_ref")
			h.Set(HeaderExpires, "tomorrow")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := make(http.Header)
			tt.build(h)

			_, err := ParseRequirement(h)
			require.Error(t, err)
			assert.True(t, types.IsCode(err, types.ErrInvalidRequirement))
		})
	}
}

func TestParseProof(t *testing.T) {
	h := make(http.Header)
	_, ok := ParseProof(h)
	assert.False(t, ok)

	h.Set(HeaderPaymentSignature, "sig")
	_, ok = ParseProof(h)
	assert.False(t, ok, "signature alone is not a proof")

	h.Set(HeaderPaymentReference, "pay_ref")
	proof, ok := ParseProof(h)
	require.True(t, ok)
	assert.Equal(t, "sig", proof.Signature)
	assert.Equal(t, "pay_ref", proof.Reference)
}

func TestGenerateReference(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		ref := GenerateReference()
		assert.True(t, strings.HasPrefix(ref, "pay_"))

		_, dup := seen[ref]
		require.False(t, dup, "duplicate reference %s", ref)
		seen[ref] = struct{}{}
	}
}

func TestNewChallenge(t *testing.T) {
	req := &types.PaymentRequirement{
		Amount:    decimal.RequireFromString("1.5"),
		Currency:  types.CurrencySOL,
		Recipient: "recipient",
		Reference: "pay_ref",
		Expires:   1900000000,
		Memo:      "premium tier",
	}

	ch := NewChallenge(req)
	assert.Equal(t, "Payment Required", ch.Error)
	assert.Equal(t, types.CodePaymentRequired, ch.Code)
	assert.True(t, ch.Payment.Amount.Equal(req.Amount))
	assert.Equal(t, "premium tier", ch.Payment.Memo)
	assert.NotEmpty(t, ch.Instructions)
}
