package video

import (
	"bitwise74/reel-api/app/respond"
	"bitwise74/reel-api/internal"
	"bitwise74/reel-api/internal/model"
	"bitwise74/reel-api/internal/provider"
	"bitwise74/reel-api/pkg/apperr"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// VideoPlayback returns the public playback URLs of a ready video.
func VideoPlayback(c *gin.Context, d *internal.Deps) {
	videoID := c.Param("id")
	if videoID == "" {
		respond.Error(c, apperr.Validation("No video ID provided"))
		return
	}

	var v model.Video
	err := d.DB.
		WithContext(c.Request.Context()).
		Where("id = ? AND status = ? AND visibility = ?", videoID, model.StatusReady, model.VisibilityPublic).
		First(&v).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respond.Error(c, apperr.NotFound("Video not found"))
			return
		}

		respond.Error(c, apperr.Internal("failed to fetch video", err))
		return
	}

	pb := provider.DerivePlayback(d.Domains, v.PlaybackID)

	c.JSON(http.StatusOK, gin.H{
		"videoId":      v.ID,
		"playbackId":   v.PlaybackID,
		"manifestUrl":  pb.ManifestURL,
		"thumbnailUrl": pb.ThumbnailURL,
		"previewUrl":   pb.PreviewURL,
		"duration":     v.Duration,
		"aspectRatio":  v.AspectRatio,
	})
}
