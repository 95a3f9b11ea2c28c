package app

import (
	"bitwise74/reel-api/app/ads"
	"bitwise74/reel-api/app/feed"
	"bitwise74/reel-api/app/root"
	"bitwise74/reel-api/app/upload"
	"bitwise74/reel-api/app/video"
	"bitwise74/reel-api/app/webhook"
	"bitwise74/reel-api/internal"
	"bitwise74/reel-api/internal/metrics"
	"bitwise74/reel-api/pkg/middleware"
	"time"

	cache "github.com/chenyahui/gin-cache"
	"github.com/chenyahui/gin-cache/persist"
	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const webhookMaxBody = 1 << 20

func NewRouter(d *internal.Deps) *gin.Engine {
	router := gin.New()

	// One store per router so tests don't share cached responses
	store := persist.NewMemoryStore(time.Minute)

	router.Use(
		cors.New(cors.Config{
			AllowOrigins:     d.Config.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "HEAD", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
			ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		gin.Recovery(),
		middleware.NewRequestIDMiddleware(),
		metrics.Middleware(),
		ginzap.GinzapWithConfig(zap.L(), &ginzap.Config{
			TimeFormat: "15:04:05.000",
			UTC:        true,
			Skipper: func(c *gin.Context) bool {
				return c.Request.Method == "HEAD" || c.FullPath() == "/metrics"
			},
			Context: func(c *gin.Context) []zapcore.Field {
				fields := []zapcore.Field{}

				if v := c.GetString("requestID"); v != "" {
					fields = append(fields, zap.String("request_id", v))
				}

				if v := c.GetString("userID"); v != "" {
					fields = append(fields, zap.String("userID", v))
				}

				return fields
			},
		}),
	)

	router.HandleMethodNotAllowed = true
	router.RedirectFixedPath = true

	jwt := middleware.NewJWTMiddleware(d.Config.JWTSecret)
	rateLimiter := middleware.RateLimiterMiddleware(middleware.RateLimiterConfig{
		RequestsPerSecond: d.Config.RateLimit,
		Burst:             d.Config.RateLimit * 2,
	})

	// GET /metrics			-> Prometheus scrape endpoint
	router.GET("/metrics", metrics.Handler())

	m := router.Group("/api")
	{
		// HEAD /api/heartbeat 		-> 200 while the server and its database are up
		m.HEAD("/heartbeat", func(c *gin.Context) { root.Heartbeat(c, d) })

		// POST /api/webhooks/provider	-> Asset lifecycle events from the video provider.
		// Not rate limited, the provider retries aggressively and is authenticated by signature
		m.POST("/webhooks/provider", middleware.BodySizeLimiter(webhookMaxBody), func(c *gin.Context) { webhook.ProviderWebhook(c, d) })
	}

	limited := m.Group("", rateLimiter)

	u := limited.Group("/uploads", jwt, middleware.BodySizeLimiter(64<<10))
	{
		// POST /api/uploads		-> Mints a direct upload slot
		u.POST("", func(c *gin.Context) { upload.UploadCreate(c, d) })

		// POST /api/uploads/register	-> Registers a finished transfer with its metadata
		u.POST("/register", func(c *gin.Context) { upload.UploadRegister(c, d) })
	}

	// GET /api/feed/:mode		-> One page of the trending or personalized feed
	limited.GET("/feed/:mode", jwt, func(c *gin.Context) { feed.FeedFetch(c, d) })

	// GET /api/videos/:id/playback	-> Playback URLs of a public ready video
	limited.GET("/videos/:id/playback", cacheFor(store, 60), func(c *gin.Context) { video.VideoPlayback(c, d) })

	a := limited.Group("/ads", jwt, middleware.BodySizeLimiter(256<<10))
	{
		// POST /api/ads/candidate	-> Next ad for a viewing history
		a.POST("/candidate", func(c *gin.Context) { ads.AdCandidate(c, d) })

		// POST /api/ads/impressions	-> Records an ad impression
		a.POST("/impressions", func(c *gin.Context) { ads.AdImpression(c, d) })
	}

	return router
}

func cacheFor(store persist.CacheStore, sec int) gin.HandlerFunc {
	return cache.CacheByRequestURI(store, time.Second*time.Duration(sec))
}
