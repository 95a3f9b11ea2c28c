package main

import (
	"bitwise74/reel-api/app"
	"bitwise74/reel-api/config"
	"bitwise74/reel-api/internal/service"
	"bitwise74/reel-api/internal/telemetry"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	gin.SetMode(gin.ReleaseMode)

	err := config.Setup()
	if err != nil {
		panic(err)
	}

	cfg := config.Load()
	app.MakeLogger(cfg.LogLevel)
	defer zap.L().Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := telemetry.Init("reel-api", cfg.TelemetryEnabled); err != nil {
		zap.L().Warn("Tracing disabled", zap.Error(err))
	}

	d, err := app.NewDeps(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize dependencies", zap.Error(err))
	}
	defer d.Publisher.Close()

	service.TrendingRefresh(ctx, cfg.Feed.TrendingRefresh, d.DB, cfg.Feed.TrendingGravity)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           app.NewRouter(d),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zap.L().Info("Server starting", zap.Int("port", cfg.Port))

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("Server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zap.L().Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("Failed to shut down server cleanly", zap.Error(err))
	}

	telemetry.Shutdown(shutdownCtx)
}
