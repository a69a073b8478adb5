package client

import (
	"context"
	"net/url"
	"strconv"

	"github.com/x402agent/x402-go/types"
)

// apiRequest calls a facilitator API endpoint under the configured base URL.
// Facilitator endpoints never challenge with 402, so automatic payment is off.
func (c *Client) apiRequest(ctx context.Context, method, endpoint string, body any, out any) error {
	resp, err := c.Request(ctx, c.config.BaseURL+"/api"+endpoint, &RequestOptions{
		Method:             method,
		Body:               body,
		DisableAutoPayment: true,
	})
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := resp.Decode(out); err != nil {
		return &types.X402Error{
			Code:    types.ErrInvalidPayload,
			Message: "failed to decode API response: " + err.Error(),
		}
	}
	return nil
}

// Verify asks the facilitator to verify a payment proof against the expected
// requirement.
func (c *Client) Verify(ctx context.Context, req *types.VerifyRequest) (*types.VerifyResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var out types.VerifyResponse
	if err := c.apiRequest(ctx, "POST", "/verify", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreatePaymentRequest registers a new payment requirement with the
// facilitator and returns the challenge metadata to serve to payers.
func (c *Client) CreatePaymentRequest(ctx context.Context, req *types.PaymentRequest) (*types.PaymentResponse, error) {
	var out types.PaymentResponse
	if err := c.apiRequest(ctx, "POST", "/payment-request", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetBalance fetches per-currency balances for one address.
func (c *Client) GetBalance(ctx context.Context, address string) (*types.BalanceResponse, error) {
	if address == "" {
		return nil, &types.X402Error{Code: types.ErrInvalidPayload, Message: "address is required"}
	}
	var out types.BalanceResponse
	if err := c.apiRequest(ctx, "GET", "/balance/"+url.PathEscape(address), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTransaction fetches one transaction by signature.
func (c *Client) GetTransaction(ctx context.Context, signature string) (*types.TransactionDetails, error) {
	if signature == "" {
		return nil, &types.X402Error{Code: types.ErrInvalidPayload, Message: "transaction signature is required"}
	}
	var out types.TransactionDetails
	if err := c.apiRequest(ctx, "GET", "/transaction/"+url.PathEscape(signature), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTransactionHistory fetches a page of an address's transactions.
func (c *Client) GetTransactionHistory(ctx context.Context, req *types.TransactionHistoryRequest) (*types.TransactionHistoryResponse, error) {
	if req == nil || req.Address == "" {
		return nil, &types.X402Error{Code: types.ErrInvalidPayload, Message: "address is required"}
	}

	query := url.Values{}
	if req.Limit > 0 {
		query.Set("limit", strconv.Itoa(req.Limit))
	}
	if req.Before != "" {
		query.Set("before", req.Before)
	}
	if req.After != "" {
		query.Set("after", req.After)
	}

	endpoint := "/transactions/" + url.PathEscape(req.Address)
	if encoded := query.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	var out types.TransactionHistoryResponse
	if err := c.apiRequest(ctx, "GET", endpoint, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
