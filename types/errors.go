package types

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Machine-readable error codes. Policy and protocol codes always surface to
// the caller unmodified; only RATE_LIMITED and NETWORK_ERROR are retried.
const (
	ErrConfig             = "CONFIG_ERROR"
	ErrNoExecutor         = "NO_EXECUTOR"
	ErrInvalidRequirement = "INVALID_402"
	ErrInvalidPayload     = "INVALID_PAYLOAD"
	ErrMaxPaymentExceeded = "MAX_PAYMENT_EXCEEDED"
	ErrPaymentExpired     = "PAYMENT_EXPIRED"
	ErrRateLimited        = "RATE_LIMITED"
	ErrNetwork            = "NETWORK_ERROR"
	ErrAPI                = "API_ERROR"
	ErrRetryExhausted     = "RETRY_EXHAUSTED"

	// Server-side response codes
	CodePaymentRequired    = "PAYMENT_REQUIRED"
	CodeReplayAttack       = "REPLAY_ATTACK"
	CodeVerificationFailed = "VERIFICATION_FAILED"
	CodeVerificationError  = "VERIFICATION_ERROR"
)

// X402Error is the error type for every failure mode in the protocol. Code is
// machine-readable and distinct from the human message; Status carries the
// HTTP status when one applies; RetryAfter is set only for RATE_LIMITED.
type X402Error struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	Status     int            `json:"status,omitempty"`
	RetryAfter time.Duration  `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
}

func (e *X402Error) Error() string {
	return e.Message
}

// Retryable reports whether the engine may retry after this error.
func (e *X402Error) Retryable() bool {
	return e.Code == ErrRateLimited || e.Code == ErrNetwork
}

// AsX402Error unwraps err to an *X402Error if one is in its chain.
func AsX402Error(err error) (*X402Error, bool) {
	var xerr *X402Error
	if errors.As(err, &xerr) {
		return xerr, true
	}
	return nil, false
}

// IsCode reports whether err is an X402Error carrying the given code.
func IsCode(err error, code string) bool {
	xerr, ok := AsX402Error(err)
	return ok && xerr.Code == code
}

// IsRetryable reports whether err is a transient failure worth retrying.
func IsRetryable(err error) bool {
	xerr, ok := AsX402Error(err)
	return ok && xerr.Retryable()
}

// NewConfigError reports an invalid or missing configuration field.
func NewConfigError(field, message string) *X402Error {
	return &X402Error{
		Code:    ErrConfig,
		Message: fmt.Sprintf("configuration error for %q: %s", field, message),
		Details: map[string]any{"field": field},
	}
}

// NewMaxPaymentExceededError reports a demand above the configured ceiling.
func NewMaxPaymentExceededError(requested, maximum decimal.Decimal) *X402Error {
	return &X402Error{
		Code:    ErrMaxPaymentExceeded,
		Message: fmt.Sprintf("payment amount %s exceeds maximum allowed %s", requested, maximum),
		Status:  402,
		Details: map[string]any{
			"requested": requested.String(),
			"maximum":   maximum.String(),
		},
	}
}

// NewPaymentExpiredError reports a challenge whose deadline has passed.
func NewPaymentExpiredError(reference string, expiredAt time.Time) *X402Error {
	return &X402Error{
		Code:    ErrPaymentExpired,
		Message: fmt.Sprintf("payment window expired at %s", expiredAt.UTC().Format(time.RFC3339)),
		Status:  410,
		Details: map[string]any{
			"reference": reference,
			"expiredAt": expiredAt.Unix(),
		},
	}
}

// NewRateLimitError reports a 429 with the server-specified pause.
func NewRateLimitError(retryAfter time.Duration) *X402Error {
	return &X402Error{
		Code:       ErrRateLimited,
		Message:    fmt.Sprintf("rate limit exceeded, retry after %s", retryAfter),
		Status:     429,
		RetryAfter: retryAfter,
	}
}

// NewNetworkError wraps a transport failure.
func NewNetworkError(message string, cause error) *X402Error {
	e := &X402Error{Code: ErrNetwork, Message: message}
	if cause != nil {
		e.Details = map[string]any{"cause": cause.Error()}
	}
	return e
}

// NewAPIError reports a non-2xx, non-402 response body.
func NewAPIError(message, code string, status int, details map[string]any) *X402Error {
	if code == "" {
		code = ErrAPI
	}
	return &X402Error{Code: code, Message: message, Status: status, Details: details}
}
