package upload

import (
	"bitwise74/reel-api/app/respond"
	"bitwise74/reel-api/internal"
	"bitwise74/reel-api/internal/gateway"
	"net/http"

	"github.com/gin-gonic/gin"
)

// UploadCreate mints a direct upload slot for the caller.
func UploadCreate(c *gin.Context, d *internal.Deps) {
	userID := c.MustGet("userID").(string)

	var req gateway.CreateUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadJSON(c, err)
		return
	}

	if req.CORSOrigin == "" {
		req.CORSOrigin = c.GetHeader("Origin")
	}

	slot, err := d.Gateway.CreateUploadSession(c.Request.Context(), userID, req)
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, slot)
}
