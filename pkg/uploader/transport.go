package uploader

import (
	"bitwise74/reel-api/pkg/apperr"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
)

// Transport moves the file bytes to the upload slot. progress receives
// values in [0, 1].
type Transport interface {
	Put(ctx context.Context, url string, body io.Reader, size int64, contentType string, progress func(float64)) error
}

// HTTPTransport does a single binary PUT without resume support.
type HTTPTransport struct {
	HTTP *http.Client
}

func (t *HTTPTransport) Put(ctx context.Context, url string, body io.Reader, size int64, contentType string, progress func(float64)) error {
	pr := &progressReader{r: body, size: size, fn: progress}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, pr)
	if err != nil {
		return apperr.Validation("Invalid upload URL")
	}

	req.ContentLength = size
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	client := t.HTTP
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return apperr.TransientIO("Upload failed", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apperr.TransientIO("Upload was rejected by storage", fmt.Errorf("status %d", resp.StatusCode))
	}

	if progress != nil {
		progress(1)
	}

	return nil
}

type progressReader struct {
	r    io.Reader
	size int64
	read atomic.Int64
	fn   func(float64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 && p.fn != nil && p.size > 0 {
		done := p.read.Add(int64(n))
		p.fn(min(float64(done)/float64(p.size), 1))
	}

	return n, err
}
