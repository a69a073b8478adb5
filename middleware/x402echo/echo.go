// Package x402echo adapts the payment guard to Echo.
package x402echo

import (
	"github.com/labstack/echo/v4"

	"github.com/x402agent/x402-go/middleware"
	"github.com/x402agent/x402-go/types"
)

// ContextKey is the Echo context key under which the verified payment is
// stored.
const ContextKey = "x402.payment"

// RequirePayment returns Echo middleware enforcing the guard. The verified
// payment is available both via PaymentFromContext on the Echo context and
// via middleware.PaymentFromContext on the request context.
func RequirePayment(g *middleware.Guard) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			payment, ok := g.Admit(c.Response(), c.Request())
			if !ok {
				return nil
			}
			if payment != nil {
				c.Set(ContextKey, payment)
				c.SetRequest(c.Request().WithContext(
					middleware.ContextWithPayment(c.Request().Context(), payment),
				))
			}
			return next(c)
		}
	}
}

// PaymentFromContext returns the verified payment stored on the Echo context.
func PaymentFromContext(c echo.Context) (*types.VerifiedPayment, bool) {
	payment, ok := c.Get(ContextKey).(*types.VerifiedPayment)
	return payment, ok
}
