package config

import (
	"testing"
	"time"

	v "github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withDefaults(t *testing.T) {
	t.Helper()

	v.Reset()
	SetDefaults()
	v.Set("security.jwt_secret", "test-secret")
	t.Cleanup(v.Reset)
}

func TestLoadDefaults(t *testing.T) {
	withDefaults(t)

	require.NoError(t, Validate())

	cfg := Load()
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "mux", cfg.Provider.Type)
	assert.Equal(t, 5, cfg.Ads.Cadence)
	assert.Equal(t, 10, cfg.Feed.DefaultLimit)
	assert.Equal(t, 5*time.Minute, cfg.Feed.TrendingRefresh)
	assert.Equal(t, time.Hour, cfg.S3.UploadExpiry)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.CORSOrigins)
}

func TestLoadTrimsOriginsAndBaseURL(t *testing.T) {
	withDefaults(t)

	v.Set("host.cors_origins", "https://a.example, https://b.example")
	v.Set("provider.base_url", "https://api.example.com/")

	cfg := Load()
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, "https://api.example.com", cfg.Provider.BaseURL)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]struct {
		key   string
		value any
	}{
		"log level":     {"app.log_level", "loud"},
		"port":          {"host.port", 0},
		"driver":        {"database.driver", "mysql"},
		"provider":      {"provider.type", "vimeo"},
		"cadence":       {"ads.cadence", 1},
		"max limit":     {"feed.max_limit", 1},
		"refresh":       {"feed.trending_refresh", "0s"},
		"derivative":    {"upload.max_derivative_source_duration", 0},
		"jwt secret":    {"security.jwt_secret", ""},
		"database path": {"database.dsn", ""},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			withDefaults(t)
			v.Set(tc.key, tc.value)

			assert.Error(t, Validate())
		})
	}
}

func TestMissingProviderCredentialsIsNotFatal(t *testing.T) {
	withDefaults(t)

	v.Set("provider.token_id", "")
	v.Set("provider.token_secret", "")

	assert.NoError(t, Validate())
}
