package notify

import (
	"bitwise74/reel-api/internal/model"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	streamName       = "REEL_VIDEOS"
	subjectPublished = "videos.published"
)

// Publisher pushes lifecycle events to whoever listens. Publishing is best
// effort, the notification row is the source of truth.
type Publisher interface {
	PublishVideoPublished(ctx context.Context, v model.Video) error
	Close() error
}

type Envelope struct {
	Type          string    `json:"type"`
	OccurredAt    time.Time `json:"occurredAt"`
	CorrelationID string    `json:"correlationId"`
	Payload       any       `json:"payload"`
}

type VideoPublished struct {
	VideoID      string  `json:"videoId"`
	UserID       string  `json:"userId"`
	PlaybackID   string  `json:"playbackId"`
	PlaybackURL  string  `json:"playbackUrl"`
	ThumbnailURL string  `json:"thumbnailUrl"`
	Duration     float64 `json:"duration"`
}

type noop struct{}

func (noop) PublishVideoPublished(context.Context, model.Video) error { return nil }
func (noop) Close() error                                             { return nil }

// Noop returns a publisher that drops everything.
func Noop() Publisher { return noop{} }

type natsPub struct {
	nc *nats.Conn
	js nats.JetStreamContext
}

// NewPublisher connects to url. An empty url or any connection problem
// yields a no-op publisher so the server still runs without NATS.
func NewPublisher(url string) Publisher {
	if url == "" {
		return noop{}
	}

	nc, err := nats.Connect(url, nats.Name("reel-api"))
	if err != nil {
		zap.L().Warn("NATS connect failed, events will not be published", zap.Error(err))
		return noop{}
	}

	js, err := nc.JetStream()
	if err != nil {
		zap.L().Warn("Failed to get JetStream context, events will not be published", zap.Error(err))
		nc.Close()
		return noop{}
	}

	_, err = js.AddStream(&nats.StreamConfig{
		Name:      streamName,
		Subjects:  []string{"videos.*"},
		Retention: nats.LimitsPolicy,
		MaxAge:    24 * time.Hour,
		Discard:   nats.DiscardOld,
		Storage:   nats.FileStorage,
	})
	if err != nil {
		zap.L().Warn("Failed to create NATS stream, events will not be published", zap.Error(err))
		nc.Close()
		return noop{}
	}

	return &natsPub{nc: nc, js: js}
}

func (p *natsPub) PublishVideoPublished(ctx context.Context, v model.Video) error {
	b, err := json.Marshal(Envelope{
		Type:          subjectPublished,
		OccurredAt:    time.Now().UTC(),
		CorrelationID: uuid.NewString(),
		Payload: VideoPublished{
			VideoID:      v.ID,
			UserID:       v.UserID,
			PlaybackID:   v.PlaybackID,
			PlaybackURL:  v.PlaybackURL,
			ThumbnailURL: v.ThumbnailURL,
			Duration:     v.Duration,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to encode event, %w", err)
	}

	// The video id doubles as the message id so JetStream drops redeliveries
	if _, err := p.js.Publish(subjectPublished, b, nats.MsgId(v.ID), nats.Context(ctx)); err != nil {
		return fmt.Errorf("failed to publish %s, %w", subjectPublished, err)
	}

	return nil
}

func (p *natsPub) Close() error {
	if p.nc != nil {
		p.nc.Close()
	}

	return nil
}
