package gateway

import (
	"bitwise74/reel-api/internal/model"
	"bitwise74/reel-api/internal/provider"
)

// patch is the write a webhook event turns into. Applying an empty patch
// is a no-op, which is what every replay of an already applied event
// produces.
type patch struct {
	// FillAssetID is only written while the stored asset id is empty
	FillAssetID string

	// Status is written together with Fields when the row is still in
	// one of From at write time
	Status model.VideoStatus
	From   []model.VideoStatus
	Fields map[string]any

	// Publish is set for transitions that make a video visible
	Publish bool
}

func (p patch) empty() bool {
	return p.FillAssetID == "" && p.Status == ""
}

var nonTerminal = []model.VideoStatus{model.StatusUploading, model.StatusProcessing}

func applyCreated(v model.Video, e AssetCreated) patch {
	var p patch

	if v.AssetID == "" && e.AssetID != "" {
		p.FillAssetID = e.AssetID
	}

	// Without an asset id the video stays in uploading
	if v.Status == model.StatusUploading && (v.AssetID != "" || e.AssetID != "") {
		p.Status = model.StatusProcessing
		p.From = []model.VideoStatus{model.StatusUploading}
	}

	return p
}

func applyReady(v model.Video, e AssetReady, d provider.Domains) patch {
	if v.Status.Terminal() || (v.AssetID == "" && e.AssetID == "") {
		return patch{}
	}

	var p patch
	if v.AssetID == "" && e.AssetID != "" {
		p.FillAssetID = e.AssetID
	}

	pb := provider.DerivePlayback(d, e.PlaybackID)

	p.Status = model.StatusReady
	p.From = nonTerminal
	p.Publish = true
	p.Fields = map[string]any{
		"playback_id":    e.PlaybackID,
		"playback_url":   pb.ManifestURL,
		"thumbnail_url":  pb.ThumbnailURL,
		"preview_url":    pb.PreviewURL,
		"duration":       e.Duration,
		"aspect_ratio":   e.AspectRatio,
		"max_resolution": e.MaxResolution,
	}

	return p
}

func applyErrored(v model.Video, e AssetErrored) patch {
	if v.Status.Terminal() {
		return patch{}
	}

	var p patch
	if v.AssetID == "" && e.AssetID != "" {
		p.FillAssetID = e.AssetID
	}

	p.Status = model.StatusError
	p.From = nonTerminal

	return p
}
