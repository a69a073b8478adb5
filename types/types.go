// Package types defines the data model and error taxonomy shared by the
// x402 client engine, server guard and verification services.
package types

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ProtocolVersion is the x402 header protocol version emitted by the guard.
const ProtocolVersion = "1.0"

// Currency is the settlement currency of a payment demand.
type Currency string

const (
	CurrencySOL  Currency = "SOL"
	CurrencyUSDC Currency = "USDC"
)

// IsValid reports whether the currency is one the protocol understands.
func (c Currency) IsValid() bool {
	return c == CurrencySOL || c == CurrencyUSDC
}

func (c Currency) String() string {
	return string(c)
}

// PaymentRequirement is the payment terms a server demands for one resource
// access. It is created per rejected request, transmitted once via 402
// response headers and consumed by the client exactly once.
type PaymentRequirement struct {
	// Amount due, in the currency's native unit (SOL or USDC, not lamports).
	Amount decimal.Decimal `json:"amount"`

	Currency Currency `json:"currency"`

	// Recipient address the payment must be sent to.
	Recipient string `json:"recipient"`

	// Reference is the opaque unique token binding this demand to one proof.
	Reference string `json:"reference"`

	// Expires is the absolute deadline as Unix seconds.
	Expires int64 `json:"expires"`

	// Network optionally names the chain the payment must settle on.
	Network string `json:"network,omitempty"`

	Memo string `json:"memo,omitempty"`
}

// Validate checks the requirement invariants: a positive amount and non-empty
// recipient and reference. A requirement failing any of these is malformed
// and must be rejected as a whole.
func (r *PaymentRequirement) Validate() error {
	if !r.Amount.IsPositive() {
		return &X402Error{Code: ErrInvalidRequirement, Message: "requirement amount must be positive"}
	}
	if r.Recipient == "" {
		return &X402Error{Code: ErrInvalidRequirement, Message: "requirement recipient is required"}
	}
	if r.Reference == "" {
		return &X402Error{Code: ErrInvalidRequirement, Message: "requirement reference is required"}
	}
	if r.Currency != "" && !r.Currency.IsValid() {
		return &X402Error{Code: ErrInvalidRequirement, Message: fmt.Sprintf("unsupported currency %q", r.Currency)}
	}
	return nil
}

// ExpiresAt returns the expiry deadline as a time.Time.
func (r *PaymentRequirement) ExpiresAt() time.Time {
	return time.Unix(r.Expires, 0)
}

// ExpiredAt reports whether the requirement is past its deadline at now. A
// zero Expires means the demand carries no deadline.
func (r *PaymentRequirement) ExpiredAt(now time.Time) bool {
	return r.Expires > 0 && now.After(r.ExpiresAt())
}

// PaymentProof is the client-supplied evidence that one requirement was paid.
type PaymentProof struct {
	// Signature is the opaque transaction identifier produced by the executor.
	Signature string `json:"signature"`

	// Reference must equal the requirement's reference.
	Reference string `json:"reference"`

	Sender string `json:"sender,omitempty"`
}

// VerifiedPayment is the result of successful proof verification. Its
// presence on the request context is the sole signal that payment succeeded.
type VerifiedPayment struct {
	Signature  string          `json:"signature"`
	Reference  string          `json:"reference"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   Currency        `json:"currency"`
	Sender     string          `json:"sender,omitempty"`
	VerifiedAt time.Time       `json:"verifiedAt"`
}

// PaymentMade summarizes the payment a client attached to a successfully
// retried request.
type PaymentMade struct {
	Amount    decimal.Decimal `json:"amount"`
	Currency  Currency        `json:"currency"`
	Signature string          `json:"signature"`
}

// VerifyRequest is the payload sent to a verifier to check a proof against
// ledger state.
type VerifyRequest struct {
	Signature         string          `json:"signature"`
	Reference         string          `json:"reference"`
	ExpectedAmount    decimal.Decimal `json:"expected_amount"`
	ExpectedRecipient string          `json:"expected_recipient"`
	Currency          Currency        `json:"currency,omitempty"`
	Network           string          `json:"network,omitempty"`
}

// Validate checks that the VerifyRequest carries everything a verifier needs.
func (v *VerifyRequest) Validate() error {
	if v.Signature == "" {
		return &X402Error{Code: ErrInvalidPayload, Message: "verify request signature is required"}
	}
	if v.Reference == "" {
		return &X402Error{Code: ErrInvalidPayload, Message: "verify request reference is required"}
	}
	if v.ExpectedRecipient == "" {
		return &X402Error{Code: ErrInvalidPayload, Message: "verify request expected recipient is required"}
	}
	return nil
}

// TransactionDetails describes the on-chain transaction backing a proof.
type TransactionDetails struct {
	Signature   string           `json:"signature"`
	Amount      decimal.Decimal  `json:"amount"`
	Currency    Currency         `json:"currency"`
	Sender      string           `json:"sender"`
	Recipient   string           `json:"recipient"`
	ConfirmedAt string           `json:"confirmed_at,omitempty"`
	Slot        uint64           `json:"slot,omitempty"`
	Fee         *decimal.Decimal `json:"fee,omitempty"`
}

// VerifyResponse is a verifier's answer. Verified=false means the proof was
// inspected and rejected; a transport failure is an error, not a response.
type VerifyResponse struct {
	Verified    bool                `json:"verified"`
	Transaction *TransactionDetails `json:"transaction,omitempty"`
	Reason      string              `json:"reason,omitempty"`
}

// PaymentRequest asks the facilitator API to mint a new payment demand.
type PaymentRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Currency  Currency        `json:"currency"`
	Recipient string          `json:"recipient"`
	Memo      string          `json:"memo,omitempty"`
	Reference string          `json:"reference,omitempty"`
	ExpiresIn int             `json:"expires_in,omitempty"`
}

// PaymentResponse is the facilitator's answer to CreatePaymentRequest,
// including the ready-to-serve challenge headers.
type PaymentResponse struct {
	Reference string            `json:"reference"`
	Amount    decimal.Decimal   `json:"amount"`
	Currency  Currency          `json:"currency"`
	Recipient string            `json:"recipient"`
	Expires   int64             `json:"expires"`
	Headers   map[string]string `json:"headers"`
}

// BalanceResponse reports per-currency balances for one address.
type BalanceResponse struct {
	Address  string                       `json:"address"`
	Balances map[Currency]decimal.Decimal `json:"balances"`
}

// TransactionHistoryRequest pages through an address's transactions.
type TransactionHistoryRequest struct {
	Address string
	Limit   int
	Before  string
	After   string
}

// TransactionHistoryResponse carries one page of transaction history.
type TransactionHistoryResponse struct {
	Transactions []TransactionDetails `json:"transactions"`
	HasMore      bool                 `json:"has_more"`
	NextCursor   string               `json:"next_cursor,omitempty"`
}
