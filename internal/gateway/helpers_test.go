package gateway

import (
	"bitwise74/reel-api/db/dbtest"
	"bitwise74/reel-api/internal/model"
	"bitwise74/reel-api/internal/provider"
	"context"
	"fmt"
	"sync"
	"testing"

	"gorm.io/gorm"
)

const testSecret = "whsec_test"

type fakeProvider struct {
	mu    sync.Mutex
	n     int
	err   error
	asset bool
	reqs  []provider.UploadRequest
}

func (f *fakeProvider) CreateUpload(ctx context.Context, r provider.UploadRequest) (*provider.Upload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.reqs = append(f.reqs, r)
	if f.err != nil {
		return nil, f.err
	}

	f.n++
	up := &provider.Upload{
		ID:  fmt.Sprintf("up%d", f.n),
		URL: fmt.Sprintf("https://storage.test/up%d", f.n),
	}
	if f.asset {
		up.AssetID = fmt.Sprintf("asset%d", f.n)
	}

	return up, nil
}

type fakePublisher struct {
	mu        sync.Mutex
	published []model.Video
}

func (f *fakePublisher) PublishVideoPublished(ctx context.Context, v model.Video) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.published = append(f.published, v)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.published)
}

type fixture struct {
	db  *gorm.DB
	gw  *Gateway
	prv *fakeProvider
	pub *fakePublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	conn := dbtest.New(t)
	prv := &fakeProvider{}
	pub := &fakePublisher{}

	gw := New(conn, prv, pub, Options{
		WebhookSecret:               testSecret,
		Domains:                     testDomains,
		MaxDerivativeSourceDuration: 180,
		MaxCaptionLength:            100,
	})

	return &fixture{db: conn, gw: gw, prv: prv, pub: pub}
}

func (f *fixture) video(t *testing.T, id string) model.Video {
	t.Helper()

	var v model.Video
	if err := f.db.Where("id = ?", id).First(&v).Error; err != nil {
		t.Fatalf("failed to load video %s, %v", id, err)
	}

	return v
}

func (f *fixture) notifications(t *testing.T, videoID string) int64 {
	t.Helper()

	var n int64
	if err := f.db.Model(&model.Notification{}).Where("video_id = ?", videoID).Count(&n).Error; err != nil {
		t.Fatalf("failed to count notifications, %v", err)
	}

	return n
}

func (f *fixture) deliver(t *testing.T, body string) error {
	t.Helper()

	return f.gw.HandleWebhook(context.Background(), Sign(testSecret, []byte(body)), []byte(body))
}

func ptr[T any](v T) *T { return &v }
