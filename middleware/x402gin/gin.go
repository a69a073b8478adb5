// Package x402gin adapts the payment guard to Gin.
package x402gin

import (
	"github.com/gin-gonic/gin"

	"github.com/x402agent/x402-go/middleware"
	"github.com/x402agent/x402-go/types"
)

// ContextKey is the Gin context key under which the verified payment is
// stored.
const ContextKey = "x402.payment"

// RequirePayment returns Gin middleware enforcing the guard. The verified
// payment is available both via PaymentFromContext on the Gin context and
// via middleware.PaymentFromContext on the request context.
func RequirePayment(g *middleware.Guard) gin.HandlerFunc {
	return func(c *gin.Context) {
		payment, ok := g.Admit(c.Writer, c.Request)
		if !ok {
			c.Abort()
			return
		}
		if payment != nil {
			c.Set(ContextKey, payment)
			c.Request = c.Request.WithContext(middleware.ContextWithPayment(c.Request.Context(), payment))
		}
		c.Next()
	}
}

// PaymentFromContext returns the verified payment stored on the Gin context.
func PaymentFromContext(c *gin.Context) (*types.VerifiedPayment, bool) {
	v, ok := c.Get(ContextKey)
	if !ok {
		return nil, false
	}
	payment, ok := v.(*types.VerifiedPayment)
	return payment, ok
}
