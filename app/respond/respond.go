// Package respond writes error responses in the shape every endpoint uses
package respond

import (
	"bitwise74/reel-api/pkg/apperr"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Error aborts the request with the status matching err's kind. Causes of
// internal errors are logged and never sent to the client.
func Error(c *gin.Context, err error) {
	requestID := c.GetString("requestID")
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)

	if status >= 500 {
		zap.L().Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.String("requestID", requestID),
			zap.Error(err))
	}

	c.AbortWithStatusJSON(status, gin.H{
		"error":     apperr.Message(err),
		"code":      kind,
		"requestID": requestID,
	})
}

// BadJSON is the response for bodies that don't bind.
func BadJSON(c *gin.Context, err error) {
	zap.L().Debug("Failed to read JSON body", zap.Error(err))
	Error(c, apperr.Validation("Malformed or invalid JSON request body"))
}
