// Package gateway owns the server side of the upload handshake. It mints
// upload slots, registers finished transfers and reconciles provider
// webhooks with the video rows.
package gateway

import (
	"bitwise74/reel-api/internal/metrics"
	"bitwise74/reel-api/internal/model"
	"bitwise74/reel-api/internal/notify"
	"bitwise74/reel-api/internal/provider"
	"bitwise74/reel-api/internal/telemetry"
	"bitwise74/reel-api/pkg/apperr"
	"bitwise74/reel-api/pkg/util"
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Options struct {
	WebhookSecret               string
	Domains                     provider.Domains
	MaxDerivativeSourceDuration float64
	MaxCaptionLength            int
}

type Gateway struct {
	db        *gorm.DB
	provider  provider.Provider
	publisher notify.Publisher
	opts      Options
}

func New(db *gorm.DB, p provider.Provider, pub notify.Publisher, o Options) *Gateway {
	if pub == nil {
		pub = notify.Noop()
	}

	return &Gateway{
		db:        db,
		provider:  p,
		publisher: pub,
		opts:      o,
	}
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

// CreateUploadSession asks the provider for a fresh slot and records the
// pending video. Nothing is written when the provider call fails.
func (g *Gateway) CreateUploadSession(ctx context.Context, ownerID string, req CreateUploadRequest) (*UploadSlot, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "gateway.CreateUploadSession",
		trace.WithAttributes(attribute.String("user.id", ownerID)))
	defer span.End()

	if ownerID == "" {
		return nil, apperr.Auth("Missing caller identity")
	}

	if err := req.Metadata.normalize(g.opts.MaxCaptionLength); err != nil {
		return nil, err
	}

	if g.provider == nil {
		return nil, apperr.Configuration("No video provider configured")
	}

	videoID, err := util.NewID()
	if err != nil {
		return nil, apperr.Internal("failed to generate video id", err)
	}

	// Derivative rules are checked before a slot is minted so a doomed
	// upload never reaches the provider
	if err := g.checkParent(g.db.WithContext(ctx), &model.Video{ID: videoID}, &req.Metadata); err != nil {
		var ae *apperr.Error
		if errors.As(err, &ae) {
			return nil, ae
		}

		return nil, apperr.Internal("failed to check parent video", err)
	}

	up, err := g.provider.CreateUpload(ctx, provider.UploadRequest{
		CORSOrigin:  req.CORSOrigin,
		Passthrough: videoID,
	})
	if err != nil {
		metrics.UploadSessions.WithLabelValues(string(apperr.KindOf(err))).Inc()
		span.RecordError(err)
		return nil, err
	}

	m := req.Metadata
	video := model.Video{
		ID:            videoID,
		UserID:        ownerID,
		Status:        model.StatusUploading,
		UploadID:      up.ID,
		AssetID:       up.AssetID,
		Caption:       m.Caption,
		Tags:          m.Tags,
		Visibility:    m.Visibility,
		AllowComments: boolOr(m.AllowComments, true),
		AllowDuet:     boolOr(m.AllowDuet, true),
		AllowStitch:   boolOr(m.AllowStitch, true),
		ParentVideoID: m.ParentVideoID,
		ParentKind:    m.ParentKind,
	}

	err = g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&video).Error; err != nil {
			return fmt.Errorf("failed to create video, %w", err)
		}

		return tx.Create(&model.UploadSession{
			ID:      up.ID,
			VideoID: video.ID,
			UserID:  ownerID,
		}).Error
	})
	if err != nil {
		metrics.UploadSessions.WithLabelValues(string(apperr.KindInternal)).Inc()
		return nil, apperr.Internal("failed to persist upload session", err)
	}

	metrics.UploadSessions.WithLabelValues("created").Inc()

	zap.L().Debug("Upload session created",
		zap.String("videoID", video.ID),
		zap.String("uploadID", up.ID),
		zap.String("userID", ownerID))

	return &UploadSlot{
		UploadURL: up.URL,
		SessionID: up.ID,
		AssetID:   up.AssetID,
		VideoID:   video.ID,
	}, nil
}

type RegisterRequest struct {
	SessionID string   `json:"sessionId" binding:"required"`
	AssetID   string   `json:"assetId"`
	Metadata  Metadata `json:"metadata"`
}

// RegisterAsset attaches the final metadata to the video behind a session.
// Registering the same session again just rewrites the metadata.
func (g *Gateway) RegisterAsset(ctx context.Context, ownerID string, req RegisterRequest) (string, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "gateway.RegisterAsset",
		trace.WithAttributes(attribute.String("session.id", req.SessionID)))
	defer span.End()

	if req.SessionID == "" {
		return "", apperr.Validation("No session ID provided")
	}

	if err := req.Metadata.normalize(g.opts.MaxCaptionLength); err != nil {
		return "", err
	}

	var videoID string

	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var session model.UploadSession
		err := tx.Where("id = ?", req.SessionID).First(&session).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("Upload session not found")
			}

			return fmt.Errorf("failed to fetch upload session, %w", err)
		}

		// Somebody else's session looks exactly like a missing one
		if session.UserID != ownerID {
			return apperr.NotFound("Upload session not found")
		}

		var video model.Video
		if err := tx.Where("id = ?", session.VideoID).First(&video).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("Video not found")
			}

			return fmt.Errorf("failed to fetch video, %w", err)
		}

		if req.AssetID != "" && video.AssetID != "" && req.AssetID != video.AssetID {
			return apperr.Conflict("Asset ID doesn't match the upload session")
		}

		if err := g.checkParent(tx, &video, &req.Metadata); err != nil {
			return err
		}

		if err := tx.Model(&model.Video{}).Where("id = ?", video.ID).Updates(req.Metadata.columns()).Error; err != nil {
			return fmt.Errorf("failed to update video metadata, %w", err)
		}

		if req.AssetID != "" && video.AssetID == "" {
			err := tx.Model(&model.Video{}).
				Where("id = ? AND asset_id = ?", video.ID, "").
				Update("asset_id", req.AssetID).
				Error
			if err != nil {
				return fmt.Errorf("failed to store asset id, %w", err)
			}
		}

		videoID = video.ID
		return nil
	})
	if err != nil {
		var ae *apperr.Error
		if errors.As(err, &ae) {
			return "", ae
		}

		return "", apperr.Internal("failed to register asset", err)
	}

	return videoID, nil
}

// checkParent enforces the rules for duets and stitches.
func (g *Gateway) checkParent(tx *gorm.DB, video *model.Video, m *Metadata) error {
	if m.ParentVideoID == nil {
		return nil
	}

	if *m.ParentVideoID == video.ID {
		return apperr.Validation("A video can't be derived from itself")
	}

	var parent model.Video
	err := tx.
		Where("id = ? AND status = ?", *m.ParentVideoID, model.StatusReady).
		First(&parent).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("Parent video not found")
		}

		return fmt.Errorf("failed to fetch parent video, %w", err)
	}

	if g.opts.MaxDerivativeSourceDuration > 0 && parent.Duration > g.opts.MaxDerivativeSourceDuration {
		return apperr.Conflict(fmt.Sprintf("Parent video is longer than %.0f seconds", g.opts.MaxDerivativeSourceDuration))
	}

	switch m.ParentKind {
	case model.DerivativeDuet:
		if !parent.AllowDuet {
			return apperr.Conflict("Parent video doesn't allow duets")
		}
	case model.DerivativeStitch:
		if !parent.AllowStitch {
			return apperr.Conflict("Parent video doesn't allow stitches")
		}
	}

	return nil
}
