package verify

import (
	"context"
	"fmt"
	"time"

	"github.com/x402agent/x402-go/types"
)

// Service routes verification requests to the verifier configured for the
// request's network. It implements Verifier itself, so a guard can be wired
// either to a single backend or to a multi-network service.
type Service struct {
	verifiers map[types.Network]Verifier
	timeout   time.Duration
}

// NewService creates an empty routing service. Each Verify call is bounded
// by timeout.
func NewService(timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Service{
		verifiers: make(map[types.Network]Verifier),
		timeout:   timeout,
	}
}

// AddSolana registers a Solana verifier for its network.
func (s *Service) AddSolana(network types.Network, rpcURL string) error {
	v, err := NewSolanaVerifier(network, rpcURL)
	if err != nil {
		return err
	}
	s.verifiers[network] = v
	return nil
}

// AddEVM registers an EVM verifier for its network.
func (s *Service) AddEVM(network types.Network, rpcURL string) error {
	v, err := NewEVMVerifier(network, rpcURL)
	if err != nil {
		return err
	}
	s.verifiers[network] = v
	return nil
}

// Add registers an arbitrary verifier for a network.
func (s *Service) Add(network types.Network, v Verifier) {
	s.verifiers[network] = v
}

// IsNetworkSupported reports whether a verifier is configured for network.
func (s *Service) IsNetworkSupported(network types.Network) bool {
	_, ok := s.verifiers[network]
	return ok
}

func (s *Service) Verify(ctx context.Context, req *types.VerifyRequest) (*types.VerifyResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	network := types.Network(req.Network)
	if network == "" {
		network = types.DefaultNetwork
	}

	v, ok := s.verifiers[network]
	if !ok {
		return &types.VerifyResponse{
			Verified: false,
			Reason:   fmt.Sprintf("no verifier configured for network %s", network),
		}, nil
	}

	verifyCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return v.Verify(verifyCtx, req)
}

// Close closes every verifier that holds a connection.
func (s *Service) Close() {
	for _, v := range s.verifiers {
		if closer, ok := v.(interface{ Close() }); ok {
			closer.Close()
		}
	}
}
