// Package ads interleaves sponsored items into feed pages.
package ads

import (
	"bitwise74/reel-api/internal/feed"
	"bitwise74/reel-api/internal/metrics"
	"context"

	"go.uber.org/zap"
)

type Ad struct {
	CampaignID   string `json:"campaignId"`
	Title        string `json:"title"`
	MediaURL     string `json:"mediaUrl"`
	ClickURL     string `json:"clickUrl"`
	ImpressionID string `json:"impressionId,omitempty"`
}

const (
	ItemVideo = "video"
	ItemAd    = "ad"
)

type FeedItem struct {
	Type  string     `json:"type"`
	Video *feed.Item `json:"video,omitempty"`
	Ad    *Ad        `json:"ad,omitempty"`
}

// Source picks the next ad for a viewer. A nil ad with a nil error means
// there is nothing to show.
type Source interface {
	Candidate(ctx context.Context, history []string, exclude []string) (*Ad, error)
}

// Impressions records that an ad was served and returns the impression
// id. Only recorded ads are ever shown.
type Impressions interface {
	Record(ctx context.Context, campaignID string) (string, error)
}

type Decorator struct {
	Source      Source
	Impressions Impressions
	Cadence     int
}

// Decorate returns items with ads placed after every Cadence-th video of
// the viewing session. history holds the videos already seen before this
// page. Videos are never dropped or reordered and no ad follows the last
// video of the page. Ad failures only cost the slot.
func (d *Decorator) Decorate(ctx context.Context, items []feed.Item, history []string) []FeedItem {
	out := make([]FeedItem, 0, len(items)+len(items)/max(d.Cadence, 1))

	seen := append([]string(nil), history...)
	var placed []string

	for k := range items {
		it := items[k]
		out = append(out, FeedItem{Type: ItemVideo, Video: &it})
		seen = append(seen, it.ID)

		pos := len(history) + k + 1
		if d.Cadence <= 0 || pos%d.Cadence != 0 || k == len(items)-1 {
			continue
		}

		ad := d.fill(ctx, seen, placed)
		if ad == nil {
			continue
		}

		placed = append(placed, ad.CampaignID)
		out = append(out, FeedItem{Type: ItemAd, Ad: ad})
	}

	return out
}

func (d *Decorator) fill(ctx context.Context, seen, placed []string) *Ad {
	if d.Source == nil || d.Impressions == nil {
		return nil
	}

	ad, err := d.Source.Candidate(ctx, seen, placed)
	if err != nil {
		metrics.AdSlots.WithLabelValues("source_error").Inc()
		zap.L().Warn("Failed to fetch ad candidate", zap.Error(err))
		return nil
	}

	if ad == nil {
		metrics.AdSlots.WithLabelValues("empty").Inc()
		return nil
	}

	id, err := d.Impressions.Record(ctx, ad.CampaignID)
	if err != nil {
		metrics.AdSlots.WithLabelValues("impression_error").Inc()
		zap.L().Warn("Failed to record ad impression, dropping ad",
			zap.String("campaignID", ad.CampaignID),
			zap.Error(err))
		return nil
	}

	ad.ImpressionID = id
	metrics.AdSlots.WithLabelValues("filled").Inc()

	return ad
}
