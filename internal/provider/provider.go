// Package provider talks to the remote service that stores and transcodes
// uploaded videos. The rest of the app only sees the Provider interface.
package provider

import "context"

// UploadRequest describes the slot to mint. Playback is always public
// and the asset is created with standard mp4 support.
type UploadRequest struct {
	CORSOrigin string
	// Passthrough is echoed back by the provider on webhook events
	Passthrough string
}

// Upload is a single-use destination for one binary transfer.
type Upload struct {
	ID  string
	URL string
	// AssetID is empty when the provider only assigns it once bytes arrive
	AssetID string
}

type Provider interface {
	CreateUpload(ctx context.Context, r UploadRequest) (*Upload, error)
}
