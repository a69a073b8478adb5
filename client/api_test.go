package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/x402agent/x402-go/types"
)

// apiTestClient points a client's facilitator base URL at srv.
func apiTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := New(Config{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)
	return c
}

func TestVerifyPostsToVerifyEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/verify", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(types.VerifyResponse{Verified: true})
	}))
	defer srv.Close()

	c := apiTestClient(t, srv)
	resp, err := c.Verify(context.Background(), &types.VerifyRequest{
		Signature:         "tx-sig",
		Reference:         "pay_ref",
		ExpectedAmount:    decimal.RequireFromString("0.01"),
		ExpectedRecipient: "merchant",
	})
	require.NoError(t, err)
	assert.True(t, resp.Verified)
}

func TestCreatePaymentRequestEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/payment-request", r.URL.Path)
		_ = json.NewEncoder(w).Encode(types.PaymentResponse{Reference: "pay_new"})
	}))
	defer srv.Close()

	c := apiTestClient(t, srv)
	resp, err := c.CreatePaymentRequest(context.Background(), &types.PaymentRequest{
		Amount:    decimal.RequireFromString("0.5"),
		Currency:  types.CurrencyUSDC,
		Recipient: "merchant",
	})
	require.NoError(t, err)
	assert.Equal(t, "pay_new", resp.Reference)
}

func TestGetBalanceAddressInPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/balance/payer-address", r.URL.Path)
		_ = json.NewEncoder(w).Encode(types.BalanceResponse{
			Address: "payer-address",
			Balances: map[types.Currency]decimal.Decimal{
				types.CurrencySOL: decimal.RequireFromString("1.5"),
			},
		})
	}))
	defer srv.Close()

	c := apiTestClient(t, srv)
	resp, err := c.GetBalance(context.Background(), "payer-address")
	require.NoError(t, err)
	assert.Equal(t, "payer-address", resp.Address)
	assert.True(t, resp.Balances[types.CurrencySOL].Equal(decimal.RequireFromString("1.5")))

	_, err = c.GetBalance(context.Background(), "")
	assert.True(t, types.IsCode(err, types.ErrInvalidPayload))
}

func TestGetTransactionSignatureInPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/transaction/tx-sig", r.URL.Path)
		_ = json.NewEncoder(w).Encode(types.TransactionDetails{Signature: "tx-sig"})
	}))
	defer srv.Close()

	c := apiTestClient(t, srv)
	tx, err := c.GetTransaction(context.Background(), "tx-sig")
	require.NoError(t, err)
	assert.Equal(t, "tx-sig", tx.Signature)

	_, err = c.GetTransaction(context.Background(), "")
	assert.True(t, types.IsCode(err, types.ErrInvalidPayload))
}

func TestGetTransactionHistoryAddressAndPaging(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/transactions/payer-address", r.URL.Path)
		assert.Equal(t, "25", r.URL.Query().Get("limit"))
		assert.Equal(t, "cursor-b", r.URL.Query().Get("before"))
		_ = json.NewEncoder(w).Encode(types.TransactionHistoryResponse{
			Transactions: []types.TransactionDetails{{Signature: "tx-1"}},
			HasMore:      true,
		})
	}))
	defer srv.Close()

	c := apiTestClient(t, srv)
	resp, err := c.GetTransactionHistory(context.Background(), &types.TransactionHistoryRequest{
		Address: "payer-address",
		Limit:   25,
		Before:  "cursor-b",
	})
	require.NoError(t, err)
	require.Len(t, resp.Transactions, 1)
	assert.True(t, resp.HasMore)

	_, err = c.GetTransactionHistory(context.Background(), nil)
	assert.True(t, types.IsCode(err, types.ErrInvalidPayload))

	_, err = c.GetTransactionHistory(context.Background(), &types.TransactionHistoryRequest{})
	assert.True(t, types.IsCode(err, types.ErrInvalidPayload))
}
