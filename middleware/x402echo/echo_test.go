package x402echo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/x402agent/x402-go/codec"
	"github.com/x402agent/x402-go/middleware"
	"github.com/x402agent/x402-go/types"
	"github.com/x402agent/x402-go/verify"
)

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()

	guard, err := middleware.NewGuard(
		decimal.RequireFromString("0.01"), types.CurrencySOL, "merchant",
		middleware.WithVerifier(verify.VerifierFunc(func(context.Context, *types.VerifyRequest) (*types.VerifyResponse, error) {
			return &types.VerifyResponse{Verified: true}, nil
		})),
	)
	require.NoError(t, err)

	e := echo.New()
	e.GET("/premium", func(c echo.Context) error {
		payment, ok := PaymentFromContext(c)
		require.True(t, ok)
		return c.JSON(http.StatusOK, map[string]string{"tx": payment.Signature})
	}, RequirePayment(guard))
	return e
}

func TestEchoChallengesWithoutProof(t *testing.T) {
	e := newTestServer(t)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/premium", nil))

	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(codec.HeaderReference))
}

func TestEchoAdmitsPaidRequest(t *testing.T) {
	e := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/premium", nil)
	codec.WriteProof(req.Header, &types.PaymentProof{Signature: "tx-sig", Reference: "pay_echo"})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "tx-sig")
}
