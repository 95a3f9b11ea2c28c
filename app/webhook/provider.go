package webhook

import (
	"bitwise74/reel-api/internal"
	"bitwise74/reel-api/pkg/apperr"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ProviderWebhook receives asset lifecycle events. The body is read raw
// because the signature covers the exact bytes.
func ProviderWebhook(c *gin.Context, d *internal.Deps) {
	requestID := c.GetString("requestID")

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"received":  false,
			"error":     "Failed to read request body",
			"code":      apperr.KindValidation,
			"requestID": requestID,
		})
		return
	}

	signature := c.GetHeader("signature")
	if signature == "" {
		signature = c.GetHeader("mux-signature")
	}

	if err := d.Gateway.HandleWebhook(c.Request.Context(), signature, body); err != nil {
		kind := apperr.KindOf(err)
		if kind == apperr.KindSignature {
			zap.L().Warn("Rejected webhook with bad signature",
				zap.String("requestID", requestID),
				zap.String("ip", c.ClientIP()))
		}

		c.AbortWithStatusJSON(apperr.HTTPStatus(kind), gin.H{
			"received":  false,
			"error":     apperr.Message(err),
			"code":      kind,
			"requestID": requestID,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"received": true,
	})
}
