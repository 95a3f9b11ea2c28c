package gateway

import (
	"bitwise74/reel-api/internal/metrics"
	"bitwise74/reel-api/internal/model"
	"bitwise74/reel-api/internal/notify"
	"bitwise74/reel-api/internal/telemetry"
	"bitwise74/reel-api/pkg/apperr"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Event is one of AssetCreated, AssetReady, AssetErrored or UnknownEvent.
type Event interface {
	eventType() string
}

type AssetCreated struct {
	AssetID  string
	UploadID string
}

type AssetReady struct {
	AssetID       string
	UploadID      string
	PlaybackID    string
	Duration      float64
	AspectRatio   string
	MaxResolution string
}

type AssetErrored struct {
	AssetID  string
	UploadID string
	Reason   string
}

type UnknownEvent struct {
	Type string
}

func (AssetCreated) eventType() string   { return "asset_created" }
func (AssetReady) eventType() string     { return "asset_ready" }
func (AssetErrored) eventType() string   { return "asset_errored" }
func (e UnknownEvent) eventType() string { return "unknown" }

type webhookBody struct {
	Type string `json:"type"`
	Data struct {
		ID          string `json:"id"`
		UploadID    string `json:"upload_id"`
		AssetID     string `json:"asset_id"`
		Status      string `json:"status"`
		PlaybackIDs []struct {
			ID     string `json:"id"`
			Policy string `json:"policy"`
		} `json:"playback_ids"`
		Duration            float64 `json:"duration"`
		AspectRatio         string  `json:"aspect_ratio"`
		MaxStoredResolution string  `json:"max_stored_resolution"`
		Errors              struct {
			Type     string   `json:"type"`
			Messages []string `json:"messages"`
		} `json:"errors"`
	} `json:"data"`
}

// VerifySignature checks a base64 HMAC-SHA256 of body. The comparison is
// constant time and an empty secret rejects everything.
func VerifySignature(secret, signature string, body []byte) bool {
	if secret == "" || signature == "" {
		return false
	}

	provided, err := base64.StdEncoding.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)

	return hmac.Equal(provided, mac.Sum(nil))
}

// Sign is the inverse of VerifySignature. Used by tests and local tooling
// that replays provider deliveries.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)

	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// ParseEvent decodes a webhook body into one of the known event kinds.
func ParseEvent(body []byte) (Event, error) {
	var b webhookBody
	if err := json.Unmarshal(body, &b); err != nil {
		return nil, apperr.Validation("Malformed webhook body")
	}

	d := b.Data

	switch b.Type {
	case "video.asset.created", "asset_created":
		return AssetCreated{AssetID: d.ID, UploadID: d.UploadID}, nil
	case "video.upload.asset_created":
		// Upload scoped event, the id is the upload and the asset is nested
		return AssetCreated{AssetID: d.AssetID, UploadID: d.ID}, nil
	case "video.asset.ready", "asset_ready":
		e := AssetReady{
			AssetID:       d.ID,
			UploadID:      d.UploadID,
			Duration:      d.Duration,
			AspectRatio:   d.AspectRatio,
			MaxResolution: d.MaxStoredResolution,
		}

		for _, p := range d.PlaybackIDs {
			if p.Policy == "" || p.Policy == "public" {
				e.PlaybackID = p.ID
				break
			}
		}

		if e.PlaybackID == "" {
			return nil, apperr.Validation("Ready event has no public playback id")
		}

		return e, nil
	case "video.asset.errored", "asset_errored":
		return AssetErrored{
			AssetID:  d.ID,
			UploadID: d.UploadID,
			Reason:   strings.Join(d.Errors.Messages, "; "),
		}, nil
	default:
		return UnknownEvent{Type: b.Type}, nil
	}
}

// HandleWebhook authenticates and applies one provider delivery. A nil
// error means the delivery should be acknowledged. Only signature and
// store failures are returned, so the provider redelivers on the latter.
func (g *Gateway) HandleWebhook(ctx context.Context, signature string, body []byte) error {
	ctx, span := telemetry.Tracer().Start(ctx, "gateway.HandleWebhook")
	defer span.End()

	if !VerifySignature(g.opts.WebhookSecret, signature, body) {
		metrics.WebhookEvents.WithLabelValues("unknown", "bad_signature").Inc()
		return apperr.Signature("Invalid webhook signature")
	}

	// Signed bodies that fail to parse are acked and dropped
	ev, err := ParseEvent(body)
	if err != nil {
		metrics.WebhookEvents.WithLabelValues("unknown", "malformed").Inc()
		zap.L().Warn("Dropping malformed webhook event", zap.Error(err))
		return nil
	}

	span.SetAttributes(attribute.String("webhook.event", ev.eventType()))

	outcome, err := g.apply(ctx, ev)
	if err != nil {
		metrics.WebhookEvents.WithLabelValues(ev.eventType(), "error").Inc()
		span.RecordError(err)

		zap.L().Error("Failed to apply webhook event",
			zap.String("event", ev.eventType()),
			zap.Error(err))

		return apperr.Internal("failed to apply webhook event", err)
	}

	metrics.WebhookEvents.WithLabelValues(ev.eventType(), outcome).Inc()
	return nil
}

func (g *Gateway) apply(ctx context.Context, ev Event) (string, error) {
	var (
		video model.Video
		p     patch
		found bool
		err   error
	)

	db := g.db.WithContext(ctx)

	switch e := ev.(type) {
	case AssetCreated:
		video, found, err = findVideo(db, e.UploadID, e.AssetID)
		if found {
			p = applyCreated(video, e)
		}
	case AssetReady:
		video, found, err = findVideo(db, e.UploadID, e.AssetID)
		if found {
			p = applyReady(video, e, g.opts.Domains)
		}
	case AssetErrored:
		video, found, err = findVideo(db, e.UploadID, e.AssetID)
		if found {
			p = applyErrored(video, e)
			if e.Reason != "" {
				zap.L().Warn("Provider failed to process asset",
					zap.String("videoID", video.ID),
					zap.String("reason", e.Reason))
			}
		}
	case UnknownEvent:
		zap.L().Debug("Ignoring webhook event", zap.String("type", e.Type))
		return "ignored", nil
	default:
		return "ignored", nil
	}

	if err != nil {
		return "", err
	}

	if !found {
		zap.L().Debug("No video matches webhook event", zap.String("event", ev.eventType()))
		return "unmatched", nil
	}

	if p.empty() {
		return "noop", nil
	}

	var won bool

	err = db.Transaction(func(tx *gorm.DB) error {
		if p.FillAssetID != "" {
			err := tx.Model(&model.Video{}).
				Where("id = ? AND asset_id = ?", video.ID, "").
				Update("asset_id", p.FillAssetID).
				Error
			if err != nil {
				return fmt.Errorf("failed to fill asset id, %w", err)
			}
		}

		if p.Status == "" {
			return nil
		}

		set := maps.Clone(p.Fields)
		if set == nil {
			set = map[string]any{}
		}
		set["status"] = p.Status

		res := tx.Model(&model.Video{}).
			Where("id = ? AND status IN ?", video.ID, p.From).
			Updates(set)
		if res.Error != nil {
			return fmt.Errorf("failed to update video status, %w", res.Error)
		}

		won = res.RowsAffected == 1
		if !won || !p.Publish {
			return nil
		}

		_, err := notify.Persist(tx, video.UserID, video.ID, model.NotificationVideoPublished)
		return err
	})
	if err != nil {
		return "", err
	}

	if !won {
		return "noop", nil
	}

	if p.Publish {
		var published model.Video
		if err := db.Where("id = ?", video.ID).First(&published).Error; err != nil {
			zap.L().Warn("Failed to reload published video", zap.String("videoID", video.ID), zap.Error(err))
			return "applied", nil
		}

		if err := g.publisher.PublishVideoPublished(context.WithoutCancel(ctx), published); err != nil {
			zap.L().Warn("Failed to publish video event", zap.String("videoID", video.ID), zap.Error(err))
		}
	}

	return "applied", nil
}

// findVideo looks a video up by asset id and falls back to the upload id,
// since the asset id is unknown locally until the first event lands.
func findVideo(db *gorm.DB, uploadID, assetID string) (model.Video, bool, error) {
	var v model.Video

	lookups := []struct {
		col string
		val string
	}{
		{"asset_id", assetID},
		{"upload_id", uploadID},
	}

	for _, l := range lookups {
		if l.val == "" {
			continue
		}

		err := db.Where(l.col+" = ?", l.val).First(&v).Error
		if err == nil {
			return v, true, nil
		}

		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return v, false, fmt.Errorf("failed to fetch video by %s, %w", l.col, err)
		}
	}

	return v, false, nil
}
