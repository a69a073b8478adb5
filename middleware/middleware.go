// Package middleware guards HTTP handlers behind x402 payments. A request
// without proof headers gets a 402 challenge; a request with proof headers is
// admitted at most once per payment reference, after verification against
// ledger state.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/x402agent/x402-go/codec"
	"github.com/x402agent/x402-go/logger"
	"github.com/x402agent/x402-go/metrics"
	"github.com/x402agent/x402-go/types"
	"github.com/x402agent/x402-go/verify"
)

// DefaultExpiresIn is the challenge validity window.
const DefaultExpiresIn = 10 * time.Minute

type contextKey struct{}

var paymentKey contextKey

// ContextWithPayment stores a verified payment on ctx. Framework adapters
// use it to mirror the guard's context behavior.
func ContextWithPayment(ctx context.Context, p *types.VerifiedPayment) context.Context {
	return context.WithValue(ctx, paymentKey, p)
}

// PaymentFromContext returns the verified payment that admitted the request,
// if any. The second return is false for requests admitted without payment
// (optional-payment mode).
func PaymentFromContext(ctx context.Context) (*types.VerifiedPayment, bool) {
	p, ok := ctx.Value(paymentKey).(*types.VerifiedPayment)
	return p, ok
}

// Guard enforces payment on the handlers it wraps. Construct with NewGuard;
// a zero Guard is not usable.
type Guard struct {
	amount    decimal.Decimal
	currency  types.Currency
	recipient string
	network   types.Network
	memo      string
	expiresIn time.Duration

	verifier verify.Verifier
	registry ReplayRegistry
	trust    bool
	optional bool

	onRequired func(r *http.Request, req *types.PaymentRequirement)
	onVerified func(r *http.Request, payment *types.VerifiedPayment)
	onFailed   func(r *http.Request, err error)

	log     logger.Logger
	metrics metrics.Recorder
	now     func() time.Time
}

// GuardOption configures a Guard.
type GuardOption func(*Guard)

// WithVerifier sets the proof verifier. Without one the guard runs in trust
// mode.
func WithVerifier(v verify.Verifier) GuardOption {
	return func(g *Guard) { g.verifier = v }
}

// WithRegistry sets the replay registry. Defaults to a fresh MemoryRegistry
// per guard; share one registry across guards that protect the same payments.
func WithRegistry(r ReplayRegistry) GuardOption {
	return func(g *Guard) { g.registry = r }
}

// WithTrustMode disables verification: proofs are admitted on their claimed
// values. Replay protection still applies.
func WithTrustMode() GuardOption {
	return func(g *Guard) { g.trust = true }
}

// WithOptionalPayment admits requests without proof headers instead of
// challenging them. Requests that do present proof are still verified.
func WithOptionalPayment() GuardOption {
	return func(g *Guard) { g.optional = true }
}

// WithExpiresIn sets the challenge validity window.
func WithExpiresIn(d time.Duration) GuardOption {
	return func(g *Guard) { g.expiresIn = d }
}

// WithNetwork tags challenges and verification with a network.
func WithNetwork(n types.Network) GuardOption {
	return func(g *Guard) { g.network = n }
}

// WithMemo attaches a memo to challenge bodies.
func WithMemo(memo string) GuardOption {
	return func(g *Guard) { g.memo = memo }
}

// WithPaymentRequiredCallback fires whenever a fresh challenge is issued.
func WithPaymentRequiredCallback(fn func(r *http.Request, req *types.PaymentRequirement)) GuardOption {
	return func(g *Guard) { g.onRequired = fn }
}

// WithPaymentVerifiedCallback fires after a payment admits a request.
func WithPaymentVerifiedCallback(fn func(r *http.Request, payment *types.VerifiedPayment)) GuardOption {
	return func(g *Guard) { g.onVerified = fn }
}

// WithPaymentFailedCallback fires when a presented proof is rejected by
// verification or the verifier is unreachable. Replays do not fire it.
func WithPaymentFailedCallback(fn func(r *http.Request, err error)) GuardOption {
	return func(g *Guard) { g.onFailed = fn }
}

// WithGuardLogger sets the guard's logger.
func WithGuardLogger(l logger.Logger) GuardOption {
	return func(g *Guard) { g.log = l }
}

// WithGuardMetrics sets the guard's metrics recorder.
func WithGuardMetrics(m metrics.Recorder) GuardOption {
	return func(g *Guard) { g.metrics = m }
}

// NewGuard creates a payment guard demanding amount units of currency paid
// to recipient.
func NewGuard(amount decimal.Decimal, currency types.Currency, recipient string, opts ...GuardOption) (*Guard, error) {
	if !amount.IsPositive() {
		return nil, types.NewConfigError("amount", "payment amount must be positive")
	}
	if !currency.IsValid() {
		return nil, types.NewConfigError("currency", "unsupported currency "+currency.String())
	}
	if recipient == "" {
		return nil, types.NewConfigError("recipient", "payment recipient is required")
	}

	g := &Guard{
		amount:    amount,
		currency:  currency,
		recipient: recipient,
		expiresIn: DefaultExpiresIn,
		log:       logger.NoopLogger{},
		metrics:   metrics.NoopRecorder{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.registry == nil {
		g.registry = NewMemoryRegistry(0)
	}
	if g.verifier == nil {
		g.trust = true
	}
	return g, nil
}

// RequirePayment wraps next so it only runs for paid requests.
func (g *Guard) RequirePayment(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payment, ok := g.Admit(w, r)
		if !ok {
			return
		}
		if payment != nil {
			r = r.WithContext(context.WithValue(r.Context(), paymentKey, payment))
		}
		next.ServeHTTP(w, r)
	})
}

// Admit runs the payment state machine for one request. When the request may
// proceed it returns (payment, true); payment is nil for requests admitted
// without proof in optional-payment mode. Otherwise the 402 response has
// already been written and the caller must stop.
func (g *Guard) Admit(w http.ResponseWriter, r *http.Request) (*types.VerifiedPayment, bool) {
	proof, ok := codec.ParseProof(r.Header)
	if !ok {
		if g.optional {
			return nil, true
		}
		g.challenge(w, r)
		return nil, false
	}

	// Reserve before verifying so concurrent presentations of the same
	// reference cannot both pass verification.
	if !g.registry.Reserve(proof.Reference) {
		g.metrics.IncCounter(metrics.EventReplayRejected, map[string]string{"currency": g.currency.String()})
		g.log.Warn("replayed payment reference rejected", map[string]any{
			"reference": proof.Reference,
			"path":      r.URL.Path,
		})
		g.reject(w, http.StatusPaymentRequired, types.CodeReplayAttack, "payment reference already used")
		return nil, false
	}

	payment, err := g.verifyProof(r.Context(), proof)
	if err != nil {
		// The payment was not admitted, so the reference stays spendable.
		g.registry.Release(proof.Reference)

		if g.onFailed != nil {
			g.onFailed(r, err)
		}

		xerr, _ := types.AsX402Error(err)
		if xerr != nil && xerr.Code == types.CodeVerificationFailed {
			g.metrics.IncCounter(metrics.EventVerificationFailed, map[string]string{"currency": g.currency.String()})
			g.log.Warn("payment verification rejected", map[string]any{
				"reference": proof.Reference,
				"signature": proof.Signature,
				"reason":    xerr.Message,
			})
			g.reject(w, http.StatusPaymentRequired, types.CodeVerificationFailed, xerr.Message)
			return nil, false
		}

		g.metrics.IncCounter(metrics.EventVerificationError, map[string]string{"currency": g.currency.String()})
		g.log.Error("payment verification unavailable", map[string]any{
			"reference": proof.Reference,
			"error":     err.Error(),
		})
		g.reject(w, http.StatusPaymentRequired, types.CodeVerificationError, "payment verification unavailable")
		return nil, false
	}

	g.metrics.IncCounter(metrics.EventPaymentVerified, map[string]string{"currency": g.currency.String()})
	g.log.Info("payment verified", map[string]any{
		"reference": payment.Reference,
		"signature": payment.Signature,
		"amount":    payment.Amount.String(),
		"currency":  payment.Currency.String(),
	})
	if g.onVerified != nil {
		g.onVerified(r, payment)
	}
	return payment, true
}

// verifyProof checks the proof and returns the admitted payment. A rejection
// comes back as a CodeVerificationFailed error; anything else is a verifier
// transport failure.
func (g *Guard) verifyProof(ctx context.Context, proof *types.PaymentProof) (*types.VerifiedPayment, error) {
	if g.trust {
		return &types.VerifiedPayment{
			Signature:  proof.Signature,
			Reference:  proof.Reference,
			Amount:     g.amount,
			Currency:   g.currency,
			VerifiedAt: g.now(),
		}, nil
	}

	resp, err := g.verifier.Verify(ctx, &types.VerifyRequest{
		Signature:         proof.Signature,
		Reference:         proof.Reference,
		ExpectedAmount:    g.amount,
		ExpectedRecipient: g.recipient,
		Currency:          g.currency,
		Network:           g.network.String(),
	})
	if err != nil {
		return nil, err
	}
	if !resp.Verified {
		reason := resp.Reason
		if reason == "" {
			reason = "payment verification failed"
		}
		return nil, &types.X402Error{Code: types.CodeVerificationFailed, Message: reason, Status: 402}
	}

	payment := &types.VerifiedPayment{
		Signature:  proof.Signature,
		Reference:  proof.Reference,
		Amount:     g.amount,
		Currency:   g.currency,
		VerifiedAt: g.now(),
	}
	if tx := resp.Transaction; tx != nil {
		payment.Sender = tx.Sender
		if tx.Amount.IsPositive() {
			payment.Amount = tx.Amount
		}
		if tx.Currency != "" {
			payment.Currency = tx.Currency
		}
	}
	return payment, nil
}

// challenge writes a fresh 402 with new payment terms.
func (g *Guard) challenge(w http.ResponseWriter, r *http.Request) {
	req := &types.PaymentRequirement{
		Amount:    g.amount,
		Currency:  g.currency,
		Recipient: g.recipient,
		Reference: codec.GenerateReference(),
		Expires:   g.now().Add(g.expiresIn).Unix(),
		Network:   g.network.String(),
		Memo:      g.memo,
	}

	g.metrics.IncCounter(metrics.EventPaymentRequired, map[string]string{"currency": g.currency.String()})
	g.log.Debug("payment challenge issued", map[string]any{
		"reference": req.Reference,
		"amount":    req.Amount.String(),
		"path":      r.URL.Path,
	})
	if g.onRequired != nil {
		g.onRequired(r, req)
	}

	codec.WriteRequirement(w.Header(), req)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusPaymentRequired)
	_ = json.NewEncoder(w).Encode(codec.NewChallenge(req))
}

func (g *Guard) reject(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": message,
		"code":  code,
	})
}
