package types

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestX402ErrorRetryable(t *testing.T) {
	assert.True(t, (&X402Error{Code: ErrRateLimited}).Retryable())
	assert.True(t, (&X402Error{Code: ErrNetwork}).Retryable())

	for _, code := range []string{ErrConfig, ErrInvalidRequirement, ErrMaxPaymentExceeded, ErrPaymentExpired, ErrAPI, ErrNoExecutor} {
		assert.False(t, (&X402Error{Code: code}).Retryable(), code)
	}
}

func TestAsX402Error(t *testing.T) {
	direct := NewNetworkError("boom", nil)
	got, ok := AsX402Error(direct)
	require.True(t, ok)
	assert.Equal(t, ErrNetwork, got.Code)

	wrapped := fmt.Errorf("request failed: %w", direct)
	got, ok = AsX402Error(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrNetwork, got.Code)

	_, ok = AsX402Error(errors.New("plain"))
	assert.False(t, ok)

	_, ok = AsX402Error(nil)
	assert.False(t, ok)
}

func TestMaxPaymentExceededCarriesAmounts(t *testing.T) {
	err := NewMaxPaymentExceededError(
		decimal.RequireFromString("5"),
		decimal.RequireFromString("0.1"),
	)
	assert.Equal(t, ErrMaxPaymentExceeded, err.Code)
	assert.Equal(t, "5", err.Details["requested"])
	assert.Equal(t, "0.1", err.Details["maximum"])
	assert.False(t, err.Retryable())
}

func TestPaymentExpiredError(t *testing.T) {
	expiredAt := time.Unix(1700000000, 0)
	err := NewPaymentExpiredError("pay_ref", expiredAt)
	assert.Equal(t, ErrPaymentExpired, err.Code)
	assert.Equal(t, 410, err.Status)
	assert.Equal(t, "pay_ref", err.Details["reference"])
	assert.Equal(t, expiredAt.Unix(), err.Details["expiredAt"])
}

func TestRateLimitErrorCarriesRetryAfter(t *testing.T) {
	err := NewRateLimitError(42 * time.Second)
	assert.Equal(t, ErrRateLimited, err.Code)
	assert.Equal(t, 42*time.Second, err.RetryAfter)
	assert.True(t, err.Retryable())
}

func TestIsCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", NewConfigError("apiKey", "missing"))
	assert.True(t, IsCode(err, ErrConfig))
	assert.False(t, IsCode(err, ErrNetwork))
	assert.False(t, IsCode(nil, ErrConfig))
}
