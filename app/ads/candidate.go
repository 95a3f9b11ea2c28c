package ads

import (
	"bitwise74/reel-api/app/respond"
	"bitwise74/reel-api/internal"
	"bitwise74/reel-api/pkg/apperr"
	"net/http"

	"github.com/gin-gonic/gin"
)

type candidateRequest struct {
	VideoHistory []string `json:"videoHistory"`
}

// AdCandidate returns the next ad for a viewing history, or null.
func AdCandidate(c *gin.Context, d *internal.Deps) {
	var req candidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadJSON(c, err)
		return
	}

	if d.AdSource == nil {
		c.JSON(http.StatusOK, nil)
		return
	}

	ad, err := d.AdSource.Candidate(c.Request.Context(), req.VideoHistory, nil)
	if err != nil {
		respond.Error(c, apperr.Internal("failed to fetch ad candidate", err))
		return
	}

	c.JSON(http.StatusOK, ad)
}
