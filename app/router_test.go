package app

import (
	"bitwise74/reel-api/config"
	"bitwise74/reel-api/db/dbtest"
	"bitwise74/reel-api/internal/gateway"
	"bitwise74/reel-api/internal/model"
	"bitwise74/reel-api/internal/notify"
	"bitwise74/reel-api/internal/provider"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	testJWTSecret = "jwt-secret"
	testHookKey   = "hook-secret"
)

type stubProvider struct{ n int }

func (s *stubProvider) CreateUpload(ctx context.Context, r provider.UploadRequest) (*provider.Upload, error) {
	s.n++
	return &provider.Upload{ID: fmt.Sprintf("up%d", s.n), URL: "https://storage.test/put"}, nil
}

type harness struct {
	t      *testing.T
	db     *gorm.DB
	router *gin.Engine
	token  string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Config{
		CORSOrigins: []string{"http://localhost:5173"},
		JWTSecret:   testJWTSecret,
		Provider:    config.ProviderConfig{WebhookSecret: testHookKey},
		Playback:    config.PlaybackConfig{StreamDomain: "stream.test", ImageDomain: "image.test"},
		Feed:        config.FeedConfig{DefaultLimit: 10, MaxLimit: 50, AffinityBoost: 25},
		Ads:         config.AdsConfig{Enabled: true, Cadence: 2},
		Upload:      config.UploadConfig{MaxDerivativeSourceDuration: 180, MaxCaptionLength: 2200},
	}

	conn := dbtest.New(t)
	d := BuildDeps(cfg, conn, &stubProvider{}, notify.Noop())

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "u1",
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)

	return &harness{t: t, db: conn, router: NewRouter(d), token: token}
}

func (h *harness) do(method, path string, body any, auth bool, headers ...string) *httptest.ResponseRecorder {
	h.t.Helper()

	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case []byte:
		buf.Write(b)
	default:
		require.NoError(h.t, json.NewEncoder(&buf).Encode(b))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if auth {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)

	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())

	return v
}

func TestHeartbeat(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodHead, "/api/heartbeat", nil, false)
	assert.Equal(t, http.StatusOK, w.Code)

	sqlDB, err := h.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	w = h.do(http.MethodHead, "/api/heartbeat", nil, false)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestUploadFlowOverHTTP(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodPost, "/api/uploads", gin.H{"corsOrigin": "http://localhost:5173"}, false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.do(http.MethodPost, "/api/uploads", gin.H{"corsOrigin": "http://localhost:5173", "caption": "hi"}, true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	slot := decode[gateway.UploadSlot](t, w)
	assert.Equal(t, "up1", slot.SessionID)
	assert.Equal(t, "https://storage.test/put", slot.UploadURL)

	w = h.do(http.MethodPost, "/api/uploads/register", gin.H{"sessionId": slot.SessionID, "metadata": gin.H{"caption": "final"}}, true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, slot.VideoID, decode[map[string]string](t, w)["videoId"])

	w = h.do(http.MethodPost, "/api/uploads/register", gin.H{"sessionId": "nope"}, true)
	assert.Equal(t, http.StatusNotFound, w.Code)

	body := decode[map[string]string](t, w)
	assert.Equal(t, "not_found", body["code"])
	assert.NotEmpty(t, body["requestID"])

	hook := []byte(fmt.Sprintf(`{"type":"video.asset.ready","data":{"id":"a1","upload_id":"%s","playback_ids":[{"id":"pb1","policy":"public"}],"duration":12.4}}`, slot.SessionID))

	w = h.do(http.MethodPost, "/api/webhooks/provider", hook, false, "signature", "bm9wZQ==")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, false, decode[map[string]any](t, w)["received"])

	w = h.do(http.MethodPost, "/api/webhooks/provider", hook, false, "mux-signature", gateway.Sign(testHookKey, hook))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, decode[map[string]any](t, w)["received"])

	w = h.do(http.MethodGet, "/api/videos/"+slot.VideoID+"/playback", nil, false)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	pb := decode[map[string]any](t, w)
	assert.Equal(t, "https://stream.test/pb1.m3u8", pb["manifestUrl"])
	assert.Equal(t, 12.4, pb["duration"])

	w = h.do(http.MethodGet, "/api/videos/missing/playback", nil, false)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

type feedResponse struct {
	Results []struct {
		Type  string `json:"type"`
		Video *struct {
			ID string `json:"id"`
		} `json:"video"`
		Ad *struct {
			CampaignID   string `json:"campaignId"`
			ImpressionID string `json:"impressionId"`
		} `json:"ad"`
	} `json:"results"`
	NextCursor *string `json:"nextCursor"`
	HasMore    bool    `json:"hasMore"`
}

func seedFeed(t *testing.T, conn *gorm.DB) {
	t.Helper()

	for i := range 3 {
		require.NoError(t, conn.Create(&model.Video{
			ID:            fmt.Sprintf("v%d", i),
			UserID:        "author",
			UploadID:      fmt.Sprintf("seed%d", i),
			Status:        model.StatusReady,
			Visibility:    model.VisibilityPublic,
			TrendingScore: float64(10 - i),
		}).Error)
	}

	require.NoError(t, conn.Create(&model.Campaign{ID: "c1", Title: "Shoes", Active: true, Weight: 1}).Error)
}

func TestFeedOverHTTP(t *testing.T) {
	h := newHarness(t)
	seedFeed(t, h.db)

	w := h.do(http.MethodGet, "/api/feed/trending?limit=2", nil, true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	page := decode[feedResponse](t, w)
	require.Len(t, page.Results, 2)
	assert.Equal(t, "v0", page.Results[0].Video.ID)
	assert.Equal(t, "v1", page.Results[1].Video.ID)
	assert.True(t, page.HasMore)
	require.NotNil(t, page.NextCursor)

	w = h.do(http.MethodGet, "/api/feed/trending?limit=2&cursor="+*page.NextCursor, nil, true)
	require.Equal(t, http.StatusOK, w.Code)

	page = decode[feedResponse](t, w)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "v2", page.Results[0].Video.ID)
	assert.False(t, page.HasMore)
	assert.Nil(t, page.NextCursor)

	w = h.do(http.MethodGet, "/api/feed/trending?cursor=garbage!", nil, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(http.MethodGet, "/api/feed/sideways", nil, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(http.MethodGet, "/api/feed/trending", nil, false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestFeedWithAds(t *testing.T) {
	h := newHarness(t)
	seedFeed(t, h.db)

	w := h.do(http.MethodGet, "/api/feed/personalized", nil, true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	page := decode[feedResponse](t, w)
	require.Len(t, page.Results, 4)
	assert.Equal(t, "ad", page.Results[2].Type)
	assert.Equal(t, "c1", page.Results[2].Ad.CampaignID)
	assert.NotEmpty(t, page.Results[2].Ad.ImpressionID)

	w = h.do(http.MethodGet, "/api/feed/personalized?ads=false", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[feedResponse](t, w).Results, 3)
}

func TestAdEndpoints(t *testing.T) {
	h := newHarness(t)
	seedFeed(t, h.db)

	w := h.do(http.MethodPost, "/api/ads/candidate", gin.H{"videoHistory": []string{"v0"}}, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "c1", decode[map[string]any](t, w)["campaignId"])

	w = h.do(http.MethodPost, "/api/ads/impressions", gin.H{"campaignId": "c1"}, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decode[map[string]string](t, w)["impressionId"])

	w = h.do(http.MethodPost, "/api/ads/impressions", gin.H{"campaignId": "ghost"}, true)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = h.do(http.MethodPost, "/api/ads/impressions", gin.H{}, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	require.NoError(t, h.db.Model(&model.Campaign{}).Where("id = ?", "c1").Update("active", false).Error)

	w = h.do(http.MethodPost, "/api/ads/candidate", gin.H{}, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "null", w.Body.String())
}
