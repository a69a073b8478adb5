// Package wallet manages Solana keypairs and executes payments for the x402
// client engine. It also provides the unit conversions the verifiers share.
package wallet

import (
	"regexp"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

const (
	LamportsPerSOL = 1_000_000_000
	USDCDecimals   = 6
)

// USDCMint is the USDC SPL token mint on mainnet-beta.
var USDCMint = solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")

var base58Pattern = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]+$`)

// LamportsToSOL converts lamports to a SOL decimal.
func LamportsToSOL(lamports uint64) decimal.Decimal {
	return decimal.NewFromUint64(lamports).Shift(-9)
}

// SOLToLamports converts a SOL amount to whole lamports, truncating any
// sub-lamport remainder.
func SOLToLamports(sol decimal.Decimal) uint64 {
	return uint64(sol.Shift(9).IntPart())
}

// USDCToRaw converts a USDC amount to raw token units.
func USDCToRaw(usdc decimal.Decimal) uint64 {
	return uint64(usdc.Shift(USDCDecimals).IntPart())
}

// RawToUSDC converts raw token units to a USDC decimal.
func RawToUSDC(raw uint64) decimal.Decimal {
	return decimal.NewFromUint64(raw).Shift(-USDCDecimals)
}

// IsValidSolanaAddress reports whether s looks like a base58 Solana address.
func IsValidSolanaAddress(s string) bool {
	if len(s) < 32 || len(s) > 44 {
		return false
	}
	return base58Pattern.MatchString(s)
}

// ShortenAddress abbreviates an address for display, keeping chars from each
// end.
func ShortenAddress(address string, chars int) string {
	if address == "" {
		return ""
	}
	if chars <= 0 || len(address) <= 2*chars {
		return address
	}
	return address[:chars] + "..." + address[len(address)-chars:]
}
