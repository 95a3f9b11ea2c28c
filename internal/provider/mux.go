package provider

import (
	"bitwise74/reel-api/pkg/apperr"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// MuxProvider mints direct upload slots through a Mux compatible video API.
type MuxProvider struct {
	BaseURL     string
	TokenID     string
	TokenSecret string
	HTTP        *http.Client
}

func NewMux(baseURL, tokenID, tokenSecret string) *MuxProvider {
	return &MuxProvider{
		BaseURL:     baseURL,
		TokenID:     tokenID,
		TokenSecret: tokenSecret,
		HTTP:        &http.Client{Timeout: 15 * time.Second},
	}
}

type muxAssetSettings struct {
	PlaybackPolicy []string `json:"playback_policy"`
	MP4Support     string   `json:"mp4_support"`
	Passthrough    string   `json:"passthrough,omitempty"`
}

type muxCreateUploadBody struct {
	CORSOrigin       string           `json:"cors_origin"`
	NewAssetSettings muxAssetSettings `json:"new_asset_settings"`
}

type muxUploadResponse struct {
	Data struct {
		ID      string `json:"id"`
		URL     string `json:"url"`
		AssetID string `json:"asset_id"`
		Status  string `json:"status"`
	} `json:"data"`
}

func (m *MuxProvider) CreateUpload(ctx context.Context, r UploadRequest) (*Upload, error) {
	if m.TokenID == "" || m.TokenSecret == "" {
		return nil, apperr.Configuration("video provider credentials are not configured")
	}

	origin := r.CORSOrigin
	if origin == "" {
		origin = "*"
	}

	body, err := json.Marshal(muxCreateUploadBody{
		CORSOrigin: origin,
		NewAssetSettings: muxAssetSettings{
			PlaybackPolicy: []string{"public"},
			MP4Support:     "standard",
			Passthrough:    r.Passthrough,
		},
	})
	if err != nil {
		return nil, apperr.Internal("failed to encode upload request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.BaseURL+"/video/v1/uploads", bytes.NewReader(body))
	if err != nil {
		return nil, apperr.Internal("failed to prepare upload request", err)
	}

	req.SetBasicAuth(m.TokenID, m.TokenSecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.HTTP.Do(req)
	if err != nil {
		return nil, apperr.Upstream("video provider is unreachable", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, apperr.Upstream("failed to read video provider response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		zap.L().Error("Video provider rejected upload creation",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", respBody))

		return nil, apperr.Upstream("video provider rejected the upload request", fmt.Errorf("status %d", resp.StatusCode))
	}

	var out muxUploadResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, apperr.Upstream("video provider returned malformed JSON", err)
	}

	if out.Data.ID == "" || out.Data.URL == "" {
		return nil, apperr.Upstream("video provider returned an incomplete upload", nil)
	}

	return &Upload{
		ID:      out.Data.ID,
		URL:     out.Data.URL,
		AssetID: out.Data.AssetID,
	}, nil
}
