package provider

import "fmt"

type Playback struct {
	ManifestURL  string
	ThumbnailURL string
	PreviewURL   string
}

// Domains are the hosts public playback URLs are built on.
type Domains struct {
	Stream string
	Image  string
}

// DerivePlayback builds every public URL for a playback id. It's a pure
// function so the values can be recomputed at any time.
func DerivePlayback(d Domains, playbackID string) Playback {
	if playbackID == "" {
		return Playback{}
	}

	return Playback{
		ManifestURL:  fmt.Sprintf("https://%s/%s.m3u8", d.Stream, playbackID),
		ThumbnailURL: fmt.Sprintf("https://%s/%s/thumbnail.jpg", d.Image, playbackID),
		PreviewURL:   fmt.Sprintf("https://%s/%s/animated.gif", d.Image, playbackID),
	}
}
