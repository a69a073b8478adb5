package verify

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"

	"github.com/x402agent/x402-go/types"
)

// erc20TransferTopic is keccak256("Transfer(address,address,uint256)").
var erc20TransferTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

// usdcContracts maps EVM networks to their canonical USDC contract.
var usdcContracts = map[types.Network]common.Address{
	types.NetworkBase:        common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"),
	types.NetworkBaseSepolia: common.HexToAddress("0x036CbD53842c5426634e7929541eC2318f3dCF7e"),
	types.NetworkPolygon:     common.HexToAddress("0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359"),
	types.NetworkPolygonAmoy: common.HexToAddress("0x41E94Eb019C0762f9Bfcf9Fb1E58725BfB0e7582"),
}

// EVMVerifier checks a proof whose signature is an EVM transaction hash. Only
// USDC settles on EVM networks; the verifier scans the receipt for an ERC-20
// Transfer to the expected recipient with a sufficient amount.
type EVMVerifier struct {
	network types.Network
	client  *ethclient.Client
	chainID *big.Int
	usdc    common.Address
}

// NewEVMVerifier dials the RPC endpoint for the given EVM network.
func NewEVMVerifier(network types.Network, rpcURL string) (*EVMVerifier, error) {
	chainID, ok := types.EVMChainIDs[network]
	if !ok {
		return nil, fmt.Errorf("network %s is not an EVM network", network)
	}

	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create EVM client for %s: %w", network, err)
	}

	return &EVMVerifier{
		network: network,
		client:  client,
		chainID: big.NewInt(chainID),
		usdc:    usdcContracts[network],
	}, nil
}

// Close releases the underlying RPC connection.
func (v *EVMVerifier) Close() {
	v.client.Close()
}

func (v *EVMVerifier) Verify(ctx context.Context, req *types.VerifyRequest) (*types.VerifyResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.Currency == types.CurrencySOL {
		return &types.VerifyResponse{Verified: false, Reason: "SOL cannot settle on an EVM network"}, nil
	}

	hash := common.HexToHash(req.Signature)

	tx, pending, err := v.client.TransactionByHash(ctx, hash)
	if errors.Is(err, ethereum.NotFound) {
		return &types.VerifyResponse{Verified: false, Reason: "transaction not found"}, nil
	}
	if err != nil {
		return nil, types.NewNetworkError("EVM transaction lookup failed", err)
	}
	if pending {
		return &types.VerifyResponse{Verified: false, Reason: "transaction not yet mined"}, nil
	}

	receipt, err := v.client.TransactionReceipt(ctx, hash)
	if err != nil {
		return nil, types.NewNetworkError("EVM receipt lookup failed", err)
	}
	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		return &types.VerifyResponse{Verified: false, Reason: "transaction reverted"}, nil
	}

	sender, err := ethtypes.Sender(ethtypes.LatestSignerForChainID(v.chainID), tx)
	if err != nil {
		return &types.VerifyResponse{Verified: false, Reason: "cannot recover transaction sender"}, nil
	}

	recipient := common.HexToAddress(req.ExpectedRecipient)
	wantRaw := req.ExpectedAmount.Shift(6).BigInt()

	for _, log := range receipt.Logs {
		if log.Address != v.usdc || len(log.Topics) != 3 || log.Topics[0] != erc20TransferTopic {
			continue
		}
		to := common.BytesToAddress(log.Topics[2].Bytes())
		if to != recipient {
			continue
		}
		value := new(big.Int).SetBytes(log.Data)
		if value.Cmp(wantRaw) < 0 {
			continue
		}

		amount := decimal.NewFromBigInt(value, -6)
		return &types.VerifyResponse{
			Verified: true,
			Transaction: &types.TransactionDetails{
				Signature: req.Signature,
				Amount:    amount,
				Currency:  types.CurrencyUSDC,
				Sender:    sender.Hex(),
				Recipient: recipient.Hex(),
				Slot:      receipt.BlockNumber.Uint64(),
			},
		}, nil
	}

	return &types.VerifyResponse{Verified: false, Reason: "no matching USDC transfer found"}, nil
}
