package upload

import (
	"bitwise74/reel-api/app/respond"
	"bitwise74/reel-api/internal"
	"bitwise74/reel-api/internal/gateway"
	"net/http"

	"github.com/gin-gonic/gin"
)

// UploadRegister is called by the client once the bytes reached the
// provider.
func UploadRegister(c *gin.Context, d *internal.Deps) {
	userID := c.MustGet("userID").(string)

	var req gateway.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadJSON(c, err)
		return
	}

	videoID, err := d.Gateway.RegisterAsset(c.Request.Context(), userID, req)
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"videoId": videoID,
	})
}
