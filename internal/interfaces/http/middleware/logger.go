package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"plan-ledger.backend/pkg/logger"
)

// LoggerMiddleware writes one structured line per request once the handler
// chain has finished. Only the path is logged; callback query strings carry
// gateway signatures.
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()

		c.Next()

		// c.Request may have been replaced downstream with an identity-bearing context.
		req := c.Request
		logger.LogRequest(req.Context(), req.Method, req.URL.Path, c.Writer.Status(), time.Since(started), c.ClientIP())
	}
}
