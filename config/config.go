// Package config contains code to set the default values and read
// config files to be used throughout the whole application
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	v "github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	configPath         = pflag.String("config", ".", "Directory containing config.toml")
	validLogLevels     = []string{"debug", "info", "warn", "error", "fatal"}
	validDBDrivers     = []string{"sqlite", "postgres"}
	validProviderTypes = []string{"mux", "s3"}
)

// Config is a typed snapshot of everything the server needs. It's built
// once by Load after Setup succeeded and handed to constructors so that
// packages don't reach into viper on their own.
type Config struct {
	LogLevel    string
	Port        int
	CORSOrigins []string

	DBDriver string
	DBDSN    string

	JWTSecret string
	RateLimit int

	Provider ProviderConfig
	Playback PlaybackConfig
	S3       S3Config
	NATSURL  string

	Feed   FeedConfig
	Ads    AdsConfig
	Upload UploadConfig

	TelemetryEnabled bool
}

type ProviderConfig struct {
	Type          string
	BaseURL       string
	TokenID       string
	TokenSecret   string
	WebhookSecret string
}

type PlaybackConfig struct {
	StreamDomain string
	ImageDomain  string
}

type S3Config struct {
	Endpoint     string
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	UploadExpiry time.Duration
}

type FeedConfig struct {
	DefaultLimit    int
	MaxLimit        int
	TrendingRefresh time.Duration
	TrendingGravity float64
	AffinityBoost   float64
}

type AdsConfig struct {
	Enabled bool
	Cadence int
}

type UploadConfig struct {
	MaxDerivativeSourceDuration float64
	MaxCaptionLength            int
}

// Setup prepares everything config-related so that the app can
// start working. Function will return an error if something
// is critically wrong and the application can't run because of
// that.
//
// Provider credentials are intentionally not required here. Requests
// that need them fail with a configuration error instead.
func Setup() error {
	if !pflag.Parsed() {
		pflag.Parse()
	}
	v.BindPFlags(pflag.CommandLine)

	// .env never overrides variables that are already set
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to load .env file: %v\n", err)
		}
	}

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(*configPath)

	v.AutomaticEnv()

	//
	// ENVS
	//
	v.BindEnv("app.log_level", "app_log_level")

	v.BindEnv("host.port", "host_port")
	v.BindEnv("host.cors_origins", "host_cors")

	v.BindEnv("database.driver", "database_driver")
	v.BindEnv("database.dsn", "database_dsn")

	v.BindEnv("security.jwt_secret", "security_jwt_secret")
	v.BindEnv("security.rate_limit", "security_rate_limit")

	v.BindEnv("provider.type", "provider_type")
	v.BindEnv("provider.base_url", "provider_base_url")
	v.BindEnv("provider.token_id", "provider_token_id")
	v.BindEnv("provider.token_secret", "provider_token_secret")
	v.BindEnv("provider.webhook_secret", "provider_webhook_secret")

	v.BindEnv("playback.stream_domain", "playback_stream_domain")
	v.BindEnv("playback.image_domain", "playback_image_domain")

	v.BindEnv("s3.endpoint", "s3_endpoint")
	v.BindEnv("s3.region", "s3_region")
	v.BindEnv("s3.bucket", "s3_bucket")
	v.BindEnv("s3.access_key", "s3_access_key")
	v.BindEnv("s3.secret_key", "s3_secret_key")

	v.BindEnv("nats.url", "nats_url")

	v.BindEnv("ads.enabled", "ads_enabled")
	v.BindEnv("telemetry.enabled", "telemetry_enabled")

	//
	// Defaults
	//
	SetDefaults()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(v.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file, %w", err)
		}

		zap.L().Warn("No config.toml found, running with defaults and environment")
	}

	return Validate()
}

// SetDefaults registers every default value. It's split out of Setup so
// tests can get a usable configuration without touching the filesystem.
func SetDefaults() {
	v.SetDefault("app.log_level", "info")

	v.SetDefault("host.port", 8080)
	v.SetDefault("host.cors_origins", "http://localhost:5173")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "database.db")

	v.SetDefault("security.rate_limit", 20)

	v.SetDefault("provider.type", "mux")
	v.SetDefault("provider.base_url", "https://api.mux.com")

	v.SetDefault("playback.stream_domain", "stream.mux.com")
	v.SetDefault("playback.image_domain", "image.mux.com")

	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.upload_expiry", "1h")

	v.SetDefault("feed.default_limit", 10)
	v.SetDefault("feed.max_limit", 50)
	v.SetDefault("feed.trending_refresh", "5m")
	v.SetDefault("feed.trending_gravity", 1.5)
	v.SetDefault("feed.affinity_boost", 25.0)

	v.SetDefault("ads.enabled", true)
	v.SetDefault("ads.cadence", 5)

	v.SetDefault("upload.max_derivative_source_duration", 180.0)
	v.SetDefault("upload.max_caption_length", 2200)

	v.SetDefault("telemetry.enabled", false)
}

// Validate checks the values currently held by viper.
func Validate() error {
	if !slices.Contains(validLogLevels, v.GetString("app.log_level")) {
		return errors.New("invalid log level provided")
	}

	if v.GetInt("host.port") <= 0 {
		return errors.New("invalid port provided")
	}

	if !slices.Contains(validDBDrivers, v.GetString("database.driver")) {
		return errors.New("invalid database driver provided")
	}

	if v.GetString("database.dsn") == "" {
		return errors.New("database.dsn can't be empty")
	}

	if v.GetString("security.jwt_secret") == "" {
		return errors.New("security.jwt_secret can't be empty")
	}

	if !slices.Contains(validProviderTypes, v.GetString("provider.type")) {
		return errors.New("invalid provider type provided")
	}

	if v.GetString("provider.webhook_secret") == "" {
		zap.L().Warn("No provider.webhook_secret set, every webhook delivery will be rejected")
	}

	if v.GetInt("feed.default_limit") <= 0 {
		return errors.New("feed.default_limit must be bigger than 0")
	}

	if v.GetInt("feed.max_limit") < v.GetInt("feed.default_limit") {
		return errors.New("feed.max_limit can't be smaller than feed.default_limit")
	}

	if v.GetDuration("feed.trending_refresh") <= 0 {
		return errors.New("feed.trending_refresh must be a positive duration")
	}

	if v.GetInt("ads.cadence") < 2 {
		return errors.New("ads.cadence must be at least 2")
	}

	if v.GetFloat64("upload.max_derivative_source_duration") <= 0 {
		return errors.New("upload.max_derivative_source_duration must be bigger than 0")
	}

	return nil
}

func Load() Config {
	origins := strings.Split(v.GetString("host.cors_origins"), ",")
	for i, o := range origins {
		origins[i] = strings.TrimSpace(o)
	}

	return Config{
		LogLevel:    v.GetString("app.log_level"),
		Port:        v.GetInt("host.port"),
		CORSOrigins: origins,

		DBDriver: v.GetString("database.driver"),
		DBDSN:    v.GetString("database.dsn"),

		JWTSecret: v.GetString("security.jwt_secret"),
		RateLimit: v.GetInt("security.rate_limit"),

		Provider: ProviderConfig{
			Type:          v.GetString("provider.type"),
			BaseURL:       strings.TrimSuffix(v.GetString("provider.base_url"), "/"),
			TokenID:       v.GetString("provider.token_id"),
			TokenSecret:   v.GetString("provider.token_secret"),
			WebhookSecret: v.GetString("provider.webhook_secret"),
		},
		Playback: PlaybackConfig{
			StreamDomain: v.GetString("playback.stream_domain"),
			ImageDomain:  v.GetString("playback.image_domain"),
		},
		S3: S3Config{
			Endpoint:     v.GetString("s3.endpoint"),
			Region:       v.GetString("s3.region"),
			Bucket:       v.GetString("s3.bucket"),
			AccessKey:    v.GetString("s3.access_key"),
			SecretKey:    v.GetString("s3.secret_key"),
			UploadExpiry: v.GetDuration("s3.upload_expiry"),
		},
		NATSURL: v.GetString("nats.url"),

		Feed: FeedConfig{
			DefaultLimit:    v.GetInt("feed.default_limit"),
			MaxLimit:        v.GetInt("feed.max_limit"),
			TrendingRefresh: v.GetDuration("feed.trending_refresh"),
			TrendingGravity: v.GetFloat64("feed.trending_gravity"),
			AffinityBoost:   v.GetFloat64("feed.affinity_boost"),
		},
		Ads: AdsConfig{
			Enabled: v.GetBool("ads.enabled"),
			Cadence: v.GetInt("ads.cadence"),
		},
		Upload: UploadConfig{
			MaxDerivativeSourceDuration: v.GetFloat64("upload.max_derivative_source_duration"),
			MaxCaptionLength:            v.GetInt("upload.max_caption_length"),
		},

		TelemetryEnabled: v.GetBool("telemetry.enabled"),
	}
}
