package uploader

import (
	"bitwise74/reel-api/pkg/apperr"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Metadata mirrors the descriptive fields the server accepts.
type Metadata struct {
	Caption       string   `json:"caption,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	Visibility    string   `json:"visibility,omitempty"`
	AllowComments *bool    `json:"allowComments,omitempty"`
	AllowDuet     *bool    `json:"allowDuet,omitempty"`
	AllowStitch   *bool    `json:"allowStitch,omitempty"`
	ParentVideoID string   `json:"parentVideoId,omitempty"`
	ParentKind    string   `json:"parentKind,omitempty"`
}

type CreateUploadRequest struct {
	CORSOrigin string `json:"corsOrigin"`
	Metadata
}

type UploadSlot struct {
	UploadURL string `json:"uploadUrl"`
	SessionID string `json:"sessionId"`
	AssetID   string `json:"assetId"`
	VideoID   string `json:"videoId"`
}

type RegisterRequest struct {
	SessionID string   `json:"sessionId"`
	AssetID   string   `json:"assetId,omitempty"`
	Metadata  Metadata `json:"metadata"`
}

// GatewayClient is the server side of the handshake.
type GatewayClient interface {
	CreateUpload(ctx context.Context, token string, req CreateUploadRequest) (*UploadSlot, error)
	Register(ctx context.Context, token string, req RegisterRequest) (string, error)
}

// HTTPGateway talks to the API over HTTP. Error responses are turned back
// into *apperr.Error using their code field.
type HTTPGateway struct {
	BaseURL string
	HTTP    *http.Client
}

func NewHTTPGateway(baseURL string) *HTTPGateway {
	return &HTTPGateway{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (g *HTTPGateway) CreateUpload(ctx context.Context, token string, req CreateUploadRequest) (*UploadSlot, error) {
	var slot UploadSlot
	if err := g.post(ctx, token, "/api/uploads", req, &slot); err != nil {
		return nil, err
	}

	if slot.UploadURL == "" || slot.SessionID == "" {
		return nil, apperr.Upstream("Server returned an incomplete upload slot", nil)
	}

	return &slot, nil
}

func (g *HTTPGateway) Register(ctx context.Context, token string, req RegisterRequest) (string, error) {
	var out struct {
		VideoID string `json:"videoId"`
	}

	if err := g.post(ctx, token, "/api/uploads/register", req, &out); err != nil {
		return "", err
	}

	if out.VideoID == "" {
		return "", apperr.Upstream("Server didn't return a video id", nil)
	}

	return out.VideoID, nil
}

type errorBody struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"requestID"`
}

func (g *HTTPGateway) post(ctx context.Context, token, path string, in, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return apperr.Internal("failed to encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.BaseURL+path, bytes.NewReader(b))
	if err != nil {
		return apperr.Configuration("Invalid server URL")
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := g.HTTP.Do(req)
	if err != nil {
		return apperr.TransientIO("Server is unreachable", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return apperr.TransientIO("Failed to read server response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb errorBody
		_ = json.Unmarshal(body, &eb)

		msg := eb.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}

		kind := apperr.FromCode(eb.Code, resp.StatusCode)
		if eb.RequestID != "" {
			return apperr.Wrap(kind, msg, fmt.Errorf("request %s", eb.RequestID))
		}

		return apperr.New(kind, msg)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return apperr.Upstream("Server returned malformed JSON", err)
	}

	return nil
}
