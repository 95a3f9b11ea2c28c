package app

import (
	"bitwise74/reel-api/aws"
	"bitwise74/reel-api/config"
	"bitwise74/reel-api/db"
	"bitwise74/reel-api/internal"
	"bitwise74/reel-api/internal/ads"
	"bitwise74/reel-api/internal/feed"
	"bitwise74/reel-api/internal/gateway"
	"bitwise74/reel-api/internal/notify"
	"bitwise74/reel-api/internal/provider"
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// NewDeps opens the database and builds every service from cfg.
func NewDeps(ctx context.Context, cfg config.Config) (*internal.Deps, error) {
	conn, err := db.New(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return nil, err
	}

	p, err := newProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return BuildDeps(cfg, conn, p, notify.NewPublisher(cfg.NATSURL)), nil
}

// BuildDeps wires services around already opened resources.
func BuildDeps(cfg config.Config, conn *gorm.DB, p provider.Provider, pub notify.Publisher) *internal.Deps {
	domains := provider.Domains{
		Stream: cfg.Playback.StreamDomain,
		Image:  cfg.Playback.ImageDomain,
	}

	source := &ads.DBSource{DB: conn}
	ledger := &ads.DBImpressions{DB: conn}

	return &internal.Deps{
		Config: cfg,
		DB:     conn,
		Gateway: gateway.New(conn, p, pub, gateway.Options{
			WebhookSecret:               cfg.Provider.WebhookSecret,
			Domains:                     domains,
			MaxDerivativeSourceDuration: cfg.Upload.MaxDerivativeSourceDuration,
			MaxCaptionLength:            cfg.Upload.MaxCaptionLength,
		}),
		Feed: feed.NewEngine(conn, feed.Options{
			DefaultLimit:  cfg.Feed.DefaultLimit,
			MaxLimit:      cfg.Feed.MaxLimit,
			AffinityBoost: cfg.Feed.AffinityBoost,
		}),
		Ads: &ads.Decorator{
			Source:      source,
			Impressions: ledger,
			Cadence:     cfg.Ads.Cadence,
		},
		AdSource:  source,
		Ledger:    ledger,
		Publisher: pub,
		Domains:   domains,
	}
}

func newProvider(ctx context.Context, cfg config.Config) (provider.Provider, error) {
	switch cfg.Provider.Type {
	case "mux":
		if cfg.Provider.TokenID == "" || cfg.Provider.TokenSecret == "" {
			zap.L().Warn("Provider credentials missing, upload requests will fail until they are set")
		}

		return provider.NewMux(cfg.Provider.BaseURL, cfg.Provider.TokenID, cfg.Provider.TokenSecret), nil
	case "s3":
		if cfg.S3.Bucket == "" || cfg.S3.AccessKey == "" || cfg.S3.SecretKey == "" {
			zap.L().Warn("S3 credentials missing, upload requests will fail until they are set")
			return provider.NewS3(nil, cfg.S3.UploadExpiry), nil
		}

		c, err := aws.NewS3(ctx, aws.S3Options{
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			Bucket:    cfg.S3.Bucket,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize S3 client, %w", err)
		}

		return provider.NewS3(c, cfg.S3.UploadExpiry), nil
	default:
		return nil, fmt.Errorf("unsupported provider type %q", cfg.Provider.Type)
	}
}
