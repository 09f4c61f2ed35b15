package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
)

// SettlementAttributes annotates the nrgin transaction of a request with the
// settlement query options and the idempotency key. It must run after
// nrgin.Middleware; without a transaction it does nothing.
func SettlementAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		txn := nrgin.Transaction(c)
		if txn == nil {
			c.Next()
			return
		}

		for _, name := range []string{"rule", "rounding", "basis", "strict", "format", "table"} {
			if v := c.Query(name); v != "" {
				txn.AddAttribute("settlement."+name, v)
			}
		}
		if key := c.GetHeader(idempotencyHeader); key != "" {
			txn.AddAttribute("idempotency_key", key)
		}

		c.Next()

		// Record error if present.
		for _, err := range c.Errors {
			txn.NoticeError(err.Err)
		}
	}
}
