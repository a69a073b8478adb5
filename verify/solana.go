package verify

import (
	"context"
	"fmt"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/x402agent/x402-go/types"
	"github.com/x402agent/x402-go/wallet"
)

// SolanaVerifier checks a proof signature against a Solana RPC node by
// fetching the transaction and locating a transfer that satisfies the
// expected recipient and amount.
type SolanaVerifier struct {
	network types.Network
	client  *rpc.Client
	mint    solana.PublicKey
}

// NewSolanaVerifier creates a verifier for the given Solana network. The
// USDC mint defaults to the mainnet mint and can be overridden for devnet.
func NewSolanaVerifier(network types.Network, rpcURL string) (*SolanaVerifier, error) {
	if !network.IsSolana() {
		return nil, fmt.Errorf("network %s is not a Solana network", network)
	}
	return &SolanaVerifier{
		network: network,
		client:  rpc.New(rpcURL),
		mint:    wallet.USDCMint,
	}, nil
}

// SetUSDCMint overrides the SPL mint used for USDC verification.
func (v *SolanaVerifier) SetUSDCMint(mint solana.PublicKey) {
	v.mint = mint
}

func (v *SolanaVerifier) Verify(ctx context.Context, req *types.VerifyRequest) (*types.VerifyResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	sig, err := solana.SignatureFromBase58(req.Signature)
	if err != nil {
		return &types.VerifyResponse{Verified: false, Reason: "malformed transaction signature"}, nil
	}

	maxVersion := uint64(0)
	out, err := v.client.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingBase64,
		Commitment:                     rpc.CommitmentFinalized,
		MaxSupportedTransactionVersion: &maxVersion,
	})
	if err != nil {
		return nil, types.NewNetworkError("solana transaction lookup failed", err)
	}
	if out == nil || out.Transaction == nil {
		return &types.VerifyResponse{Verified: false, Reason: "transaction not found"}, nil
	}
	if out.Meta != nil && out.Meta.Err != nil {
		return &types.VerifyResponse{Verified: false, Reason: "transaction failed on chain"}, nil
	}

	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(out.Transaction.GetBinary()))
	if err != nil {
		return &types.VerifyResponse{Verified: false, Reason: fmt.Sprintf("failed to decode transaction: %v", err)}, nil
	}

	details := v.findTransfer(tx, req)
	if details == nil {
		return &types.VerifyResponse{Verified: false, Reason: "no matching transfer found"}, nil
	}

	details.Signature = req.Signature
	details.Slot = out.Slot
	if out.BlockTime != nil {
		details.ConfirmedAt = out.BlockTime.Time().UTC().Format(time.RFC3339)
	}
	return &types.VerifyResponse{Verified: true, Transaction: details}, nil
}

// findTransfer walks the transaction's instructions for a transfer to the
// expected recipient carrying at least the expected amount.
func (v *SolanaVerifier) findTransfer(tx *solana.Transaction, req *types.VerifyRequest) *types.TransactionDetails {
	for _, inst := range tx.Message.Instructions {
		prog, err := tx.Message.Program(inst.ProgramIDIndex)
		if err != nil {
			continue
		}

		metas, err := accountMetas(tx, inst)
		if err != nil {
			continue
		}

		switch {
		case prog.Equals(solana.SystemProgramID) && req.Currency != types.CurrencyUSDC:
			if d := matchSystemTransfer(metas, inst.Data, req); d != nil {
				return d
			}
		case prog.Equals(solana.TokenProgramID) && req.Currency == types.CurrencyUSDC:
			if d := v.matchTokenTransfer(metas, inst.Data, req); d != nil {
				return d
			}
		}
	}
	return nil
}

func matchSystemTransfer(metas []*solana.AccountMeta, data []byte, req *types.VerifyRequest) *types.TransactionDetails {
	sysInst, err := system.DecodeInstruction(metas, data)
	if err != nil {
		return nil
	}
	transfer, ok := sysInst.Impl.(*system.Transfer)
	if !ok || transfer.Lamports == nil || len(metas) < 2 {
		return nil
	}

	from := metas[0].PublicKey
	to := metas[1].PublicKey
	if to.String() != req.ExpectedRecipient {
		return nil
	}

	amount := wallet.LamportsToSOL(*transfer.Lamports)
	if amount.LessThan(req.ExpectedAmount) {
		return nil
	}

	return &types.TransactionDetails{
		Amount:    amount,
		Currency:  types.CurrencySOL,
		Sender:    from.String(),
		Recipient: to.String(),
	}
}

// matchTokenTransfer matches an SPL transfer whose destination is the
// expected recipient's associated token account for the USDC mint.
func (v *SolanaVerifier) matchTokenTransfer(metas []*solana.AccountMeta, data []byte, req *types.VerifyRequest) *types.TransactionDetails {
	recipient, err := solana.PublicKeyFromBase58(req.ExpectedRecipient)
	if err != nil {
		return nil
	}
	expectedATA, _, err := solana.FindAssociatedTokenAddress(recipient, v.mint)
	if err != nil {
		return nil
	}

	tokenInst, err := token.DecodeInstruction(metas, data)
	if err != nil {
		return nil
	}

	var (
		rawAmount   uint64
		destination solana.PublicKey
		owner       solana.PublicKey
	)
	switch impl := tokenInst.Impl.(type) {
	case *token.TransferChecked:
		if impl.Amount == nil || len(metas) < 4 {
			return nil
		}
		rawAmount = *impl.Amount
		destination = metas[2].PublicKey
		owner = metas[3].PublicKey
	case *token.Transfer:
		if impl.Amount == nil || len(metas) < 3 {
			return nil
		}
		rawAmount = *impl.Amount
		destination = metas[1].PublicKey
		owner = metas[2].PublicKey
	default:
		return nil
	}

	if !destination.Equals(expectedATA) {
		return nil
	}

	amount := wallet.RawToUSDC(rawAmount)
	if amount.LessThan(req.ExpectedAmount) {
		return nil
	}

	return &types.TransactionDetails{
		Amount:    amount,
		Currency:  types.CurrencyUSDC,
		Sender:    owner.String(),
		Recipient: req.ExpectedRecipient,
	}
}

func accountMetas(tx *solana.Transaction, inst solana.CompiledInstruction) ([]*solana.AccountMeta, error) {
	metas := make([]*solana.AccountMeta, len(inst.Accounts))
	for i, accIdx := range inst.Accounts {
		if int(accIdx) >= len(tx.Message.AccountKeys) {
			return nil, fmt.Errorf("account index %d out of range", accIdx)
		}
		pub := tx.Message.AccountKeys[accIdx]
		writable, err := tx.Message.IsWritable(pub)
		if err != nil {
			return nil, err
		}
		metas[i] = &solana.AccountMeta{
			PublicKey:  pub,
			IsSigner:   tx.Message.IsSigner(pub),
			IsWritable: writable,
		}
	}
	return metas, nil
}
