// Package verify checks payment proofs against ledger state. The server
// guard consumes a Verifier; implementations cover the facilitator REST API
// and direct Solana and EVM RPC lookups.
package verify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/x402agent/x402-go/types"
)

// Verifier authoritatively checks a proof against ledger or chain state.
// A non-nil error is a transport failure; a rejected proof is reported via
// VerifyResponse.Verified=false with a nil error.
type Verifier interface {
	Verify(ctx context.Context, req *types.VerifyRequest) (*types.VerifyResponse, error)
}

// VerifierFunc adapts a function to the Verifier interface.
type VerifierFunc func(ctx context.Context, req *types.VerifyRequest) (*types.VerifyResponse, error)

func (f VerifierFunc) Verify(ctx context.Context, req *types.VerifyRequest) (*types.VerifyResponse, error) {
	return f(ctx, req)
}

// HTTPVerifier delegates verification to a facilitator API's /api/verify
// endpoint.
type HTTPVerifier struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPVerifier creates a verifier backed by the facilitator at baseURL.
func NewHTTPVerifier(baseURL, apiKey string, client *http.Client) *HTTPVerifier {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPVerifier{baseURL: baseURL, apiKey: apiKey, client: client}
}

func (v *HTTPVerifier) Verify(ctx context.Context, req *types.VerifyRequest) (*types.VerifyResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal verify request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+"/api/verify", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if v.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+v.apiKey)
	}

	resp, err := v.client.Do(httpReq)
	if err != nil {
		return nil, types.NewNetworkError("verify request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, types.NewAPIError(
			fmt.Sprintf("verify endpoint returned status %d", resp.StatusCode),
			types.ErrAPI, resp.StatusCode, nil,
		)
	}

	var out types.VerifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode verify response: %w", err)
	}
	return &out, nil
}
