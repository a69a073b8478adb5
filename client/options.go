package client

import (
	"net/http"

	"github.com/x402agent/x402-go/logger"
	"github.com/x402agent/x402-go/metrics"
)

type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithExecutor wires the payment executor used to resolve 402 challenges.
// Without one, automatic payment fails with NO_EXECUTOR.
func WithExecutor(e PaymentExecutor) Option {
	return func(c *Client) {
		c.executor = e
	}
}

func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(c *Client) {
		c.metrics = r
	}
}
