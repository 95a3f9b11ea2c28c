package internal

import (
	"bitwise74/reel-api/config"
	"bitwise74/reel-api/internal/ads"
	"bitwise74/reel-api/internal/feed"
	"bitwise74/reel-api/internal/gateway"
	"bitwise74/reel-api/internal/notify"
	"bitwise74/reel-api/internal/provider"

	"gorm.io/gorm"
)

// Deps is handed to every handler.
type Deps struct {
	Config    config.Config
	DB        *gorm.DB
	Gateway   *gateway.Gateway
	Feed      *feed.Engine
	Ads       *ads.Decorator
	AdSource  ads.Source
	Ledger    ads.Impressions
	Publisher notify.Publisher
	Domains   provider.Domains
}
