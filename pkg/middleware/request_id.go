// Package middleware contains any custom middleware used in the app
package middleware

import (
	"bitwise74/reel-api/pkg/util"
	"regexp"

	"github.com/gin-gonic/gin"
)

const RequestIDHeader = "X-Request-ID"

var validRequestID = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// NewRequestIDMiddleware returns a new middleware function that sets a
// request ID for each incoming request as requestID. A sane id sent by
// the caller is reused so client and server logs line up.
func NewRequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if !validRequestID.MatchString(id) {
			id = util.RequestID()
		}

		c.Set("requestID", id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}
