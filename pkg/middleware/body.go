package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// BodySizeLimiter rejects bodies bigger than maxBytes. Handlers reading
// past the limit get an error from the body reader.
func BodySizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Fast reject for honest clients
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
				"error":     "Request body size exceeds limit",
				"code":      "validation",
				"requestID": c.GetString("requestID"),
			})
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
