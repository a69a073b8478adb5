package wallet

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"

	"github.com/x402agent/x402-go/types"
)

// Wallet holds a Solana keypair and executes payments against an RPC node.
// It satisfies the client engine's PaymentExecutor contract.
type Wallet struct {
	key    solana.PrivateKey
	client *rpc.Client
	mint   solana.PublicKey

	confirmAttempts int
	confirmInterval time.Duration
}

// NewWallet creates a wallet around an existing private key.
func NewWallet(key solana.PrivateKey, rpcURL string) *Wallet {
	return &Wallet{
		key:             key,
		client:          rpc.New(rpcURL),
		mint:            USDCMint,
		confirmAttempts: 5,
		confirmInterval: 3 * time.Second,
	}
}

// FromBase58Key creates a wallet from a base58-encoded private key.
func FromBase58Key(key, rpcURL string) (*Wallet, error) {
	pk, err := solana.PrivateKeyFromBase58(key)
	if err != nil {
		return nil, types.NewConfigError("private_key", err.Error())
	}
	return NewWallet(pk, rpcURL), nil
}

// Generate creates a wallet with a fresh random keypair.
func Generate(rpcURL string) (*Wallet, error) {
	pk, err := solana.NewRandomPrivateKey()
	if err != nil {
		return nil, err
	}
	return NewWallet(pk, rpcURL), nil
}

// PublicKey returns the wallet's public key.
func (w *Wallet) PublicKey() solana.PublicKey {
	return w.key.PublicKey()
}

// SetUSDCMint overrides the SPL mint used for USDC transfers.
func (w *Wallet) SetUSDCMint(mint solana.PublicKey) {
	w.mint = mint
}

// ExecutePayment pays one requirement and returns the transaction signature.
// The transfer is built for the requirement's currency, signed, broadcast and
// polled until the cluster confirms it or the attempts run out.
func (w *Wallet) ExecutePayment(ctx context.Context, req *types.PaymentRequirement) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	recipient, err := solana.PublicKeyFromBase58(req.Recipient)
	if err != nil {
		return "", fmt.Errorf("invalid recipient address: %w", err)
	}

	inst, err := w.transferInstruction(req, recipient)
	if err != nil {
		return "", err
	}

	recent, err := w.client.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return "", types.NewNetworkError("failed to fetch recent blockhash", err)
	}

	tx, err := solana.NewTransaction(
		[]solana.Instruction{inst},
		recent.Value.Blockhash,
		solana.TransactionPayer(w.PublicKey()),
	)
	if err != nil {
		return "", fmt.Errorf("build transaction: %w", err)
	}

	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(w.PublicKey()) {
			return &w.key
		}
		return nil
	}); err != nil {
		return "", fmt.Errorf("sign transaction: %w", err)
	}

	sig, err := w.client.SendTransaction(ctx, tx)
	if err != nil {
		return "", types.NewNetworkError("broadcast failed", err)
	}

	if err := w.awaitConfirmation(ctx, sig); err != nil {
		return sig.String(), err
	}
	return sig.String(), nil
}

func (w *Wallet) transferInstruction(req *types.PaymentRequirement, recipient solana.PublicKey) (solana.Instruction, error) {
	switch req.Currency {
	case types.CurrencyUSDC:
		source, _, err := solana.FindAssociatedTokenAddress(w.PublicKey(), w.mint)
		if err != nil {
			return nil, fmt.Errorf("derive source token account: %w", err)
		}
		dest, _, err := solana.FindAssociatedTokenAddress(recipient, w.mint)
		if err != nil {
			return nil, fmt.Errorf("derive destination token account: %w", err)
		}
		return token.NewTransferCheckedInstruction(
			USDCToRaw(req.Amount),
			USDCDecimals,
			source,
			w.mint,
			dest,
			w.PublicKey(),
			nil,
		).Build(), nil
	default:
		return system.NewTransferInstruction(
			SOLToLamports(req.Amount),
			w.PublicKey(),
			recipient,
		).Build(), nil
	}
}

func (w *Wallet) awaitConfirmation(ctx context.Context, sig solana.Signature) error {
	for i := 0; i < w.confirmAttempts; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.confirmInterval):
		}

		status, err := w.client.GetSignatureStatuses(ctx, false, sig)
		if err != nil || len(status.Value) == 0 || status.Value[0] == nil {
			continue
		}
		switch status.Value[0].ConfirmationStatus {
		case rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusFinalized:
			return nil
		}
	}
	return types.NewNetworkError("transaction not confirmed after retries", nil)
}

// GetBalance returns the wallet's SOL and USDC balances.
func (w *Wallet) GetBalance(ctx context.Context) (sol, usdc decimal.Decimal, err error) {
	res, err := w.client.GetBalance(ctx, w.PublicKey(), rpc.CommitmentFinalized)
	if err != nil {
		return decimal.Zero, decimal.Zero, types.NewNetworkError("balance lookup failed", err)
	}
	sol = LamportsToSOL(res.Value)

	ata, _, err := solana.FindAssociatedTokenAddress(w.PublicKey(), w.mint)
	if err != nil {
		return sol, decimal.Zero, nil
	}

	tokenRes, err := w.client.GetTokenAccountBalance(ctx, ata, rpc.CommitmentFinalized)
	if err != nil || tokenRes.Value == nil {
		// No token account means a zero USDC balance, not a failure.
		return sol, decimal.Zero, nil
	}

	raw, err := decimal.NewFromString(tokenRes.Value.Amount)
	if err != nil {
		return sol, decimal.Zero, nil
	}
	return sol, raw.Shift(-USDCDecimals), nil
}
