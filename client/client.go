// Package client implements the x402 payment engine: an HTTP client that
// detects 402 challenges, applies spending policy, pays through an injected
// executor and retries the request with proof headers.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/x402agent/x402-go/codec"
	"github.com/x402agent/x402-go/logger"
	"github.com/x402agent/x402-go/metrics"
	"github.com/x402agent/x402-go/types"
)

// SDKVersion travels in the X-402-SDK-Version request header.
const SDKVersion = "1.0.0"

// PaymentExecutor produces a payment proof for one requirement. It is the
// only collaborator that touches a chain; the engine treats the returned
// signature as opaque.
type PaymentExecutor interface {
	ExecutePayment(ctx context.Context, req *types.PaymentRequirement) (signature string, err error)
}

// ExecutorFunc adapts a function to the PaymentExecutor interface.
type ExecutorFunc func(ctx context.Context, req *types.PaymentRequirement) (string, error)

func (f ExecutorFunc) ExecutePayment(ctx context.Context, req *types.PaymentRequirement) (string, error) {
	return f(ctx, req)
}

// RequestOptions configures one Request call. The zero value means GET with
// automatic payment enabled and the client-wide defaults.
type RequestOptions struct {
	Method  string
	Headers map[string]string
	Body    any

	// Timeout overrides the client-wide per-call timeout.
	Timeout time.Duration

	// MaxPayment overrides the client-wide payment ceiling for this call.
	MaxPayment *decimal.Decimal

	// DisableAutoPayment returns 402 responses to the caller instead of
	// paying them.
	DisableAutoPayment bool
}

// Response is the outcome of a Request call. PaymentMade is set only when a
// 402 challenge was paid on the way to this response.
type Response struct {
	Data        json.RawMessage
	Status      int
	Header      http.Header
	PaymentMade *types.PaymentMade
}

// Decode unmarshals the response data into v.
func (r *Response) Decode(v any) error {
	return json.Unmarshal(r.Data, v)
}

// Client is the x402 payment engine. It holds no state between calls beyond
// its configuration; concurrent Request calls are independent.
type Client struct {
	config     Config
	httpClient *http.Client
	executor   PaymentExecutor
	log        logger.Logger
	metrics    metrics.Recorder

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Client from cfg, applying defaults to zero-valued fields.
func New(cfg Config, opts ...Option) (*Client, error) {
	cfg.applyDefaults()
	if err := validate.Struct(&cfg); err != nil {
		return nil, &types.X402Error{
			Code:    types.ErrConfig,
			Message: "invalid client configuration: " + err.Error(),
		}
	}

	c := &Client{
		config:     cfg,
		httpClient: &http.Client{},
		log:        logger.NoopLogger{},
		metrics:    metrics.NoopRecorder{},
		now:        time.Now,
		sleep:      sleepCtx,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Config returns a copy of the client's effective configuration.
func (c *Client) Config() Config {
	return c.config
}

// Request performs an HTTP request with automatic 402 payment handling.
//
// One attempt is: issue the request, and on a 402 parse the requirement,
// apply the payment ceiling and expiry policy, pay through the executor and
// re-issue the request once with proof headers. Attempts repeat up to the
// configured maximum: a 429 pauses for the server-specified delay, a network
// failure backs off linearly, and every policy or protocol error aborts
// immediately. A paid retry that fails is surfaced as an API error, never
// re-paid.
func (c *Client) Request(ctx context.Context, url string, opts *RequestOptions) (*Response, error) {
	if opts == nil {
		opts = &RequestOptions{}
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = c.config.Timeout
	}
	maxPayment := c.config.MaxPaymentPerRequest
	if opts.MaxPayment != nil {
		maxPayment = *opts.MaxPayment
	}

	var bodyBytes []byte
	if opts.Body != nil {
		var err error
		bodyBytes, err = json.Marshal(opts.Body)
		if err != nil {
			return nil, &types.X402Error{Code: types.ErrInvalidPayload, Message: "failed to encode request body: " + err.Error()}
		}
	}

	started := c.now()
	defer func() {
		c.metrics.ObserveLatency("request", c.now().Sub(started), nil)
	}()

	var lastErr error
	for attempt := 1; attempt <= c.config.RetryAttempts; attempt++ {
		resp, err := c.attempt(ctx, url, opts, bodyBytes, timeout, maxPayment)
		if err == nil {
			return resp, nil
		}

		xerr, ok := types.AsX402Error(err)
		if !ok || !xerr.Retryable() {
			return nil, err
		}

		lastErr = err
		if attempt == c.config.RetryAttempts {
			break
		}

		var delay time.Duration
		if xerr.Code == types.ErrRateLimited {
			delay = xerr.RetryAfter
		} else {
			delay = c.config.RetryDelay * time.Duration(attempt)
		}

		c.metrics.IncCounter(metrics.EventRetry, nil)
		c.log.Debug("retrying request", map[string]any{
			"url":     url,
			"attempt": attempt,
			"delay":   delay.String(),
			"code":    xerr.Code,
		})
		if err := c.sleep(ctx, delay); err != nil {
			return nil, types.NewNetworkError("request cancelled during backoff", err)
		}
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, &types.X402Error{Code: types.ErrRetryExhausted, Message: "max retry attempts exceeded"}
}

// attempt runs one issue-parse-pay-retry unit.
func (c *Client) attempt(ctx context.Context, url string, opts *RequestOptions, body []byte, timeout time.Duration, maxPayment decimal.Decimal) (*Response, error) {
	resp, err := c.do(ctx, opts.Method, url, opts.Headers, body, timeout)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusPaymentRequired {
		return c.finish(resp, nil)
	}
	if opts.DisableAutoPayment {
		// The caller asked to see challenges; hand the 402 back intact.
		return c.read(resp, nil)
	}

	requirement, err := codec.ParseRequirement(resp.Header)
	drainBody(resp)
	if err != nil {
		return nil, err
	}

	if requirement.Amount.GreaterThan(maxPayment) {
		return nil, types.NewMaxPaymentExceededError(requirement.Amount, maxPayment)
	}
	if requirement.ExpiredAt(c.now()) {
		return nil, types.NewPaymentExpiredError(requirement.Reference, requirement.ExpiresAt())
	}

	if c.executor == nil {
		return nil, &types.X402Error{
			Code:    types.ErrNoExecutor,
			Message: "payment executor required for automatic payments",
		}
	}

	signature, err := c.executor.ExecutePayment(ctx, requirement)
	if err != nil {
		if _, ok := types.AsX402Error(err); ok {
			return nil, err
		}
		return nil, &types.X402Error{
			Code:    types.ErrAPI,
			Message: "payment execution failed: " + err.Error(),
		}
	}

	c.metrics.IncCounter(metrics.EventPaymentMade, map[string]string{"currency": requirement.Currency.String()})
	c.log.Info("payment made", map[string]any{
		"amount":    requirement.Amount.String(),
		"currency":  requirement.Currency.String(),
		"reference": requirement.Reference,
		"signature": signature,
	})

	proofHeaders := make(map[string]string, len(opts.Headers)+2)
	for k, v := range opts.Headers {
		proofHeaders[k] = v
	}
	proofHeaders[codec.HeaderPaymentSignature] = signature
	proofHeaders[codec.HeaderPaymentReference] = requirement.Reference

	// Single paid retry, outside the backoff loop. Whatever comes back is
	// terminal for this payment: a non-success status is an API error, the
	// challenge is never paid twice.
	retryResp, err := c.do(ctx, opts.Method, url, proofHeaders, body, timeout)
	if err != nil {
		return nil, err
	}
	if retryResp.StatusCode < 200 || retryResp.StatusCode >= 300 {
		defer drainBody(retryResp)
		apiErr := c.apiError(retryResp)
		if xerr, ok := types.AsX402Error(apiErr); ok && xerr.Retryable() {
			// Keep the code but strip retryability so the engine cannot
			// pay the same resource again.
			return nil, types.NewAPIError(xerr.Message, types.ErrAPI, xerr.Status, xerr.Details)
		}
		return nil, apiErr
	}

	return c.finish(retryResp, &types.PaymentMade{
		Amount:    requirement.Amount,
		Currency:  requirement.Currency,
		Signature: signature,
	})
}

// do issues one HTTP call bounded by the per-call timeout.
func (c *Client) do(ctx context.Context, method, url string, headers map[string]string, body []byte, timeout time.Duration) (*http.Response, error) {
	if method == "" {
		method = http.MethodGet
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(callCtx, method, url, reader)
	if err != nil {
		cancel()
		return nil, &types.X402Error{Code: types.ErrConfig, Message: "invalid request: " + err.Error()}
	}

	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-402-SDK-Version", SDKVersion)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		cancel()
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, types.NewNetworkError("request timed out", err)
		}
		if ctx.Err() != nil {
			return nil, types.NewNetworkError("request cancelled", ctx.Err())
		}
		return nil, types.NewNetworkError("network request failed", err)
	}

	// The cancel is tied to the response body lifetime.
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// finish reads the body and converts a terminal response, surfacing non-2xx
// statuses as API errors.
func (c *Client) finish(resp *http.Response, paid *types.PaymentMade) (*Response, error) {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, c.apiError(resp)
	}
	return c.read(resp, paid)
}

// read drains the body into a Response without status conversion.
func (c *Client) read(resp *http.Response, paid *types.PaymentMade) (*Response, error) {
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.NewNetworkError("failed to read response body", err)
	}

	return &Response{
		Data:        data,
		Status:      resp.StatusCode,
		Header:      resp.Header,
		PaymentMade: paid,
	}, nil
}

// apiError converts a non-success response into the matching taxonomy error.
func (c *Client) apiError(resp *http.Response) error {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Code    string `json:"code"`
	}
	raw, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(raw, &body)

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := 60 * time.Second
		if v := resp.Header.Get("Retry-After"); v != "" {
			if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
				retryAfter = time.Duration(secs) * time.Second
			}
		}
		return types.NewRateLimitError(retryAfter)
	}

	message := body.Error
	if message == "" {
		message = body.Message
	}
	if message == "" {
		message = "unknown API error"
	}

	var details map[string]any
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &details)
	}
	return types.NewAPIError(message, body.Code, resp.StatusCode, details)
}

func drainBody(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
	resp.Body.Close()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	c.cancel()
	return c.ReadCloser.Close()
}
