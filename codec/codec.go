// Package codec parses and serializes x402 payment terms to and from the
// fixed X-402 header set. Headers are authoritative; the 402 JSON body is
// informational only.
package codec

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/x402agent/x402-go/types"
)

// Challenge response headers.
const (
	HeaderVersion   = "X-402-Version"
	HeaderAmount    = "X-402-Amount"
	HeaderCurrency  = "X-402-Currency"
	HeaderRecipient = "X-402-Recipient"
	HeaderReference = "X-402-Reference"
	HeaderExpires   = "X-402-Expires"
	HeaderNetwork   = "X-402-Network"
)

// Proof request headers.
const (
	HeaderPaymentSignature = "X-402-Payment-Signature"
	HeaderPaymentReference = "X-402-Payment-Reference"
)

// ParseRequirement reads payment terms from 402 response headers. A 402
// without complete terms is a protocol violation, not a payable challenge,
// so any missing or malformed required field fails parsing as a whole.
func ParseRequirement(h http.Header) (*types.PaymentRequirement, error) {
	rawAmount := h.Get(HeaderAmount)
	if rawAmount == "" {
		return nil, invalid("missing " + HeaderAmount + " header")
	}

	amount, err := decimal.NewFromString(rawAmount)
	if err != nil {
		return nil, invalid("unparseable " + HeaderAmount + " header")
	}

	currency := types.Currency(h.Get(HeaderCurrency))
	if currency == "" {
		currency = types.CurrencySOL
	}

	var expires int64
	if raw := h.Get(HeaderExpires); raw != "" {
		e, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, invalid("unparseable " + HeaderExpires + " header")
		}
		expires = e.IntPart()
	}

	req := &types.PaymentRequirement{
		Amount:    amount,
		Currency:  currency,
		Recipient: h.Get(HeaderRecipient),
		Reference: h.Get(HeaderReference),
		Expires:   expires,
		Network:   h.Get(HeaderNetwork),
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}
	return req, nil
}

// WriteRequirement attaches the requirement to h as challenge headers. It is
// the inverse of ParseRequirement: parsing the written headers yields an
// equal requirement.
func WriteRequirement(h http.Header, req *types.PaymentRequirement) {
	h.Set(HeaderVersion, types.ProtocolVersion)
	h.Set(HeaderAmount, req.Amount.String())
	h.Set(HeaderCurrency, req.Currency.String())
	h.Set(HeaderRecipient, req.Recipient)
	h.Set(HeaderReference, req.Reference)
	h.Set(HeaderExpires, decimal.NewFromInt(req.Expires).String())
	if req.Network != "" {
		h.Set(HeaderNetwork, req.Network)
	}
}

// RequirementHeaders returns the challenge headers as a plain map, for
// embedding in API responses.
func RequirementHeaders(req *types.PaymentRequirement) map[string]string {
	h := make(http.Header, 7)
	WriteRequirement(h, req)
	m := make(map[string]string, len(h))
	for k := range h {
		m[k] = h.Get(k)
	}
	return m
}

// ParseProof reads proof headers from an inbound request. The second return
// is false when either header is absent.
func ParseProof(h http.Header) (*types.PaymentProof, bool) {
	sig := h.Get(HeaderPaymentSignature)
	ref := h.Get(HeaderPaymentReference)
	if sig == "" || ref == "" {
		return nil, false
	}
	return &types.PaymentProof{Signature: sig, Reference: ref}, true
}

// WriteProof attaches proof headers to an outbound retry request.
func WriteProof(h http.Header, proof *types.PaymentProof) {
	h.Set(HeaderPaymentSignature, proof.Signature)
	h.Set(HeaderPaymentReference, proof.Reference)
}

func invalid(msg string) *types.X402Error {
	return &types.X402Error{
		Code:    types.ErrInvalidRequirement,
		Message: "invalid 402 response: " + msg,
		Status:  402,
	}
}
