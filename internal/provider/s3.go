package provider

import (
	"bitwise74/reel-api/aws"
	"bitwise74/reel-api/pkg/apperr"
	"bitwise74/reel-api/pkg/util"
	"context"
	"time"
)

// Presigner is the part of the S3 client the provider needs.
type Presigner interface {
	PresignPut(ctx context.Context, key, contentType string, expires time.Duration) (string, error)
}

// S3Provider hands out presigned PUT urls for a self hosted pipeline. The
// object key doubles as the asset id and the transcoder reports back over
// the same signed webhook the hosted provider uses.
type S3Provider struct {
	Presign Presigner
	Expiry  time.Duration
}

func NewS3(c *aws.S3Client, expiry time.Duration) *S3Provider {
	p := &S3Provider{Expiry: expiry}
	// Keep the interface nil when no client could be built so CreateUpload
	// surfaces a configuration error instead of panicking.
	if c != nil {
		p.Presign = c
	}

	return p
}

func (p *S3Provider) CreateUpload(ctx context.Context, r UploadRequest) (*Upload, error) {
	if p.Presign == nil {
		return nil, apperr.Configuration("object storage credentials are not configured")
	}

	id, err := util.NewID()
	if err != nil {
		return nil, apperr.Internal("failed to generate upload id", err)
	}

	key := "uploads/" + id + ".mp4"

	url, err := p.Presign.PresignPut(ctx, key, "", p.Expiry)
	if err != nil {
		return nil, apperr.Upstream("failed to mint upload url", err)
	}

	return &Upload{
		ID:      id,
		URL:     url,
		AssetID: key,
	}, nil
}
