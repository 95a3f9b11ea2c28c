package ads

import (
	"bitwise74/reel-api/app/respond"
	"bitwise74/reel-api/internal"
	"bitwise74/reel-api/pkg/apperr"
	"net/http"

	"github.com/gin-gonic/gin"
)

type impressionRequest struct {
	CampaignID string `json:"campaignId" binding:"required"`
}

// AdImpression records that the client showed an ad it fetched itself.
func AdImpression(c *gin.Context, d *internal.Deps) {
	var req impressionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadJSON(c, err)
		return
	}

	id, err := d.Ledger.Record(c.Request.Context(), req.CampaignID)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindInternal {
			err = apperr.Internal("failed to record impression", err)
		}

		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"impressionId": id,
	})
}
