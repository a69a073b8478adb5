// Package x402 implements the x402 machine-payable HTTP extension: clients
// that settle 402 challenges automatically and servers that price handlers
// behind them.
//
// The client side lives in package client, the server guard in package
// middleware, wire parsing in package codec and on-chain collaborators in
// packages verify and wallet. This package re-exports the entry points most
// integrations need.
package x402

import (
	"github.com/shopspring/decimal"

	"github.com/x402agent/x402-go/client"
	"github.com/x402agent/x402-go/middleware"
	"github.com/x402agent/x402-go/types"
)

// Version is the SDK release version.
const Version = client.SDKVersion

// ProtocolVersion is the x402 wire protocol version spoken by this SDK.
const ProtocolVersion = types.ProtocolVersion

// NewClient creates a payment-capable HTTP client.
func NewClient(cfg client.Config, opts ...client.Option) (*client.Client, error) {
	return client.New(cfg, opts...)
}

// NewGuard creates a server payment guard demanding amount units of currency
// paid to recipient.
func NewGuard(amount decimal.Decimal, currency types.Currency, recipient string, opts ...middleware.GuardOption) (*middleware.Guard, error) {
	return middleware.NewGuard(amount, currency, recipient, opts...)
}
