package codec

import (
	"github.com/shopspring/decimal"

	"github.com/x402agent/x402-go/types"
)

// DefaultInstructions is the human-readable hint included in challenge bodies.
const DefaultInstructions = "Send payment to the recipient address and retry with " +
	HeaderPaymentSignature + " and " + HeaderPaymentReference + " headers"

// Challenge is the informational JSON body of a 402 response. The headers
// written by WriteRequirement remain the authoritative copy of the terms.
type Challenge struct {
	Error        string           `json:"error"`
	Code         string           `json:"code"`
	Payment      ChallengePayment `json:"payment"`
	Instructions string           `json:"instructions"`
}

// ChallengePayment mirrors the requirement inside a challenge body.
type ChallengePayment struct {
	Amount    decimal.Decimal `json:"amount"`
	Currency  types.Currency  `json:"currency"`
	Recipient string          `json:"recipient"`
	Reference string          `json:"reference"`
	Expires   int64           `json:"expires"`
	Memo      string          `json:"memo,omitempty"`
}

// NewChallenge builds the 402 body for a freshly issued requirement.
func NewChallenge(req *types.PaymentRequirement) Challenge {
	return Challenge{
		Error: "Payment Required",
		Code:  types.CodePaymentRequired,
		Payment: ChallengePayment{
			Amount:    req.Amount,
			Currency:  req.Currency,
			Recipient: req.Recipient,
			Reference: req.Reference,
			Expires:   req.Expires,
			Memo:      req.Memo,
		},
		Instructions: DefaultInstructions,
	}
}
