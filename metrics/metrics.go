// Package metrics abstracts event counters and latency observation for the
// x402 client engine and server guard.
package metrics

import "time"

// Event names recorded by the SDK.
const (
	EventPaymentMade        = "payment_made"
	EventPaymentRequired    = "payment_required"
	EventPaymentVerified    = "payment_verified"
	EventReplayRejected     = "replay_rejected"
	EventVerificationFailed = "verification_failed"
	EventVerificationError  = "verification_error"
	EventRetry              = "retry"
)

type Recorder interface {
	IncCounter(name string, labels map[string]string)
	ObserveLatency(name string, duration time.Duration, labels map[string]string)
}
