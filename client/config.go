package client

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/x402agent/x402-go/types"
)

var validate = validator.New()

// Defaults applied by New for zero-valued Config fields.
const (
	DefaultBaseURL       = "https://api.x402agent.tech"
	DefaultTimeout       = 30 * time.Second
	DefaultRetryAttempts = 3
	DefaultRetryDelay    = time.Second
)

// DefaultMaxPayment is the client-wide per-request payment ceiling applied
// when the config does not set one.
var DefaultMaxPayment = decimal.RequireFromString("0.1")

// Config configures a Client.
type Config struct {
	// APIKey authenticates against the facilitator API.
	APIKey string `json:"apiKey" validate:"required"`

	BaseURL string        `json:"baseUrl,omitempty"`
	Network types.Network `json:"network,omitempty"`

	// MaxPaymentPerRequest is the client-wide payment ceiling. A challenge
	// demanding more fails with MAX_PAYMENT_EXCEEDED, never a partial payment.
	MaxPaymentPerRequest decimal.Decimal `json:"maxPaymentPerRequest,omitempty"`

	// Timeout bounds each HTTP call.
	Timeout time.Duration `json:"timeout,omitempty"`

	// RetryAttempts bounds the outer retry loop.
	RetryAttempts int `json:"retryAttempts,omitempty" validate:"gte=0"`

	// RetryDelay is the base delay for linear backoff between attempts.
	RetryDelay time.Duration `json:"retryDelay,omitempty"`
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Network == "" {
		c.Network = types.DefaultNetwork
	}
	if c.MaxPaymentPerRequest.IsZero() {
		c.MaxPaymentPerRequest = DefaultMaxPayment
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RetryAttempts <= 0 {
		c.RetryAttempts = DefaultRetryAttempts
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = DefaultRetryDelay
	}
}

// ParseConfig parses and validates a Config from JSON.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, &types.X402Error{
			Code:    types.ErrConfig,
			Message: fmt.Sprintf("failed to parse client config: %v", err),
		}
	}

	if err := validate.Struct(&cfg); err != nil {
		return nil, &types.X402Error{
			Code:    types.ErrConfig,
			Message: fmt.Sprintf("validation failed: %v", err),
		}
	}

	return &cfg, nil
}
