package verify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/x402agent/x402-go/types"
)

func testVerifyRequest() *types.VerifyRequest {
	return &types.VerifyRequest{
		Signature:         "tx-signature",
		Reference:         "pay_ref",
		ExpectedAmount:    decimal.RequireFromString("0.01"),
		ExpectedRecipient: "merchant",
		Currency:          types.CurrencySOL,
	}
}

func TestHTTPVerifierVerified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/verify", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req types.VerifyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "tx-signature", req.Signature)

		_ = json.NewEncoder(w).Encode(types.VerifyResponse{
			Verified: true,
			Transaction: &types.TransactionDetails{
				Signature: req.Signature,
				Amount:    req.ExpectedAmount,
				Sender:    "payer",
			},
		})
	}))
	defer srv.Close()

	v := NewHTTPVerifier(srv.URL, "test-key", nil)
	resp, err := v.Verify(context.Background(), testVerifyRequest())
	require.NoError(t, err)
	assert.True(t, resp.Verified)
	require.NotNil(t, resp.Transaction)
	assert.Equal(t, "payer", resp.Transaction.Sender)
}

func TestHTTPVerifierRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(types.VerifyResponse{Verified: false, Reason: "amount mismatch"})
	}))
	defer srv.Close()

	v := NewHTTPVerifier(srv.URL, "", nil)
	resp, err := v.Verify(context.Background(), testVerifyRequest())
	require.NoError(t, err, "a rejection is a response, not an error")
	assert.False(t, resp.Verified)
	assert.Equal(t, "amount mismatch", resp.Reason)
}

func TestHTTPVerifierTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	v := NewHTTPVerifier(srv.URL, "", nil)
	_, err := v.Verify(context.Background(), testVerifyRequest())
	require.Error(t, err)

	down := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	down.Close()

	v = NewHTTPVerifier(down.URL, "", nil)
	_, err = v.Verify(context.Background(), testVerifyRequest())
	assert.True(t, types.IsCode(err, types.ErrNetwork))
}

func TestHTTPVerifierRejectsInvalidRequest(t *testing.T) {
	v := NewHTTPVerifier("http://unused", "", nil)
	req := testVerifyRequest()
	req.Signature = ""
	_, err := v.Verify(context.Background(), req)
	assert.Error(t, err)
}

func TestServiceRoutesByNetwork(t *testing.T) {
	var hitDevnet, hitBase bool
	s := NewService(time.Second)
	s.Add(types.NetworkDevnet, VerifierFunc(func(context.Context, *types.VerifyRequest) (*types.VerifyResponse, error) {
		hitDevnet = true
		return &types.VerifyResponse{Verified: true}, nil
	}))
	s.Add(types.NetworkBase, VerifierFunc(func(context.Context, *types.VerifyRequest) (*types.VerifyResponse, error) {
		hitBase = true
		return &types.VerifyResponse{Verified: true}, nil
	}))

	req := testVerifyRequest()
	req.Network = types.NetworkDevnet.String()
	_, err := s.Verify(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, hitDevnet)
	assert.False(t, hitBase)

	req.Network = types.NetworkBase.String()
	_, err = s.Verify(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, hitBase)
}

func TestServiceUnsupportedNetwork(t *testing.T) {
	s := NewService(time.Second)
	assert.False(t, s.IsNetworkSupported(types.NetworkDevnet))

	req := testVerifyRequest()
	req.Network = types.NetworkDevnet.String()
	resp, err := s.Verify(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, resp.Verified)
	assert.Contains(t, resp.Reason, "no verifier configured")
}

func TestServiceDefaultsNetwork(t *testing.T) {
	var hit bool
	s := NewService(time.Second)
	s.Add(types.DefaultNetwork, VerifierFunc(func(context.Context, *types.VerifyRequest) (*types.VerifyResponse, error) {
		hit = true
		return &types.VerifyResponse{Verified: true}, nil
	}))

	req := testVerifyRequest() // no network set
	_, err := s.Verify(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, hit)
}

func TestNewSolanaVerifierRejectsEVMNetwork(t *testing.T) {
	_, err := NewSolanaVerifier(types.NetworkBase, "http://localhost:8899")
	assert.Error(t, err)

	_, err = NewSolanaVerifier(types.NetworkDevnet, "http://localhost:8899")
	assert.NoError(t, err)
}

func TestNewEVMVerifierRejectsSolanaNetwork(t *testing.T) {
	_, err := NewEVMVerifier(types.NetworkDevnet, "http://localhost:8545")
	assert.Error(t, err)
}
