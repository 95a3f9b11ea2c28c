package root

import (
	"bitwise74/reel-api/internal"
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Heartbeat reports whether the server can still reach its database.
func Heartbeat(c *gin.Context, d *internal.Deps) {
	sqlDB, err := d.DB.DB()
	if err != nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		zap.L().Warn("Heartbeat database ping failed", zap.Error(err))
		c.Status(http.StatusServiceUnavailable)
		return
	}

	c.Status(http.StatusOK)
}
