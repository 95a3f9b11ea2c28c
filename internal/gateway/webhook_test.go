package gateway

import (
	"bitwise74/reel-api/internal/model"
	"bitwise74/reel-api/pkg/apperr"
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"type":"video.asset.ready","data":{"id":"a1"}}`)
	sig := Sign("secret", body)

	assert.True(t, VerifySignature("secret", sig, body))
	assert.False(t, VerifySignature("other", sig, body))
	assert.False(t, VerifySignature("secret", "", body))
	assert.False(t, VerifySignature("", sig, body))
	assert.False(t, VerifySignature("secret", "%%%not-base64", body))

	for i := range body {
		altered := append([]byte(nil), body...)
		altered[i] ^= 0x01

		assert.False(t, VerifySignature("secret", sig, altered), "byte %d", i)
	}
}

func TestParseEvent(t *testing.T) {
	cases := map[string]Event{
		`{"type":"video.asset.created","data":{"id":"a1","upload_id":"up1"}}`:        AssetCreated{AssetID: "a1", UploadID: "up1"},
		`{"type":"asset_created","data":{"id":"a1","upload_id":"up1"}}`:              AssetCreated{AssetID: "a1", UploadID: "up1"},
		`{"type":"video.upload.asset_created","data":{"id":"up1","asset_id":"a1"}}`: AssetCreated{AssetID: "a1", UploadID: "up1"},
		`{"type":"asset_errored","data":{"id":"a1","errors":{"messages":["bad","codec"]}}}`: AssetErrored{
			AssetID: "a1",
			Reason:  "bad; codec",
		},
		`{"type":"video.asset.ready","data":{"id":"a1","playback_ids":[{"id":"sig","policy":"signed"},{"id":"pb1","policy":"public"}],"duration":12.4,"aspect_ratio":"9:16","max_stored_resolution":"HD"}}`: AssetReady{
			AssetID:       "a1",
			PlaybackID:    "pb1",
			Duration:      12.4,
			AspectRatio:   "9:16",
			MaxResolution: "HD",
		},
		`{"type":"video.live_stream.idle","data":{}}`: UnknownEvent{Type: "video.live_stream.idle"},
	}

	for body, want := range cases {
		got, err := ParseEvent([]byte(body))
		require.NoError(t, err, body)
		assert.Equal(t, want, got, body)
	}

	_, err := ParseEvent([]byte(`{"type":`))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = ParseEvent([]byte(`{"type":"asset_ready","data":{"id":"a1","playback_ids":[]}}`))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestHandleWebhookRejectsBadSignature(t *testing.T) {
	f := newFixture(t)

	slot, err := f.gw.CreateUploadSession(context.Background(), "u1", CreateUploadRequest{})
	require.NoError(t, err)

	body := []byte(fmt.Sprintf(`{"type":"asset_ready","data":{"upload_id":"%s","id":"a1","playback_ids":[{"id":"pb1"}]}}`, slot.SessionID))

	err = f.gw.HandleWebhook(context.Background(), Sign("wrong", body), body)
	assert.Equal(t, apperr.KindSignature, apperr.KindOf(err))

	err = f.gw.HandleWebhook(context.Background(), "", body)
	assert.Equal(t, apperr.KindSignature, apperr.KindOf(err))

	assert.Equal(t, model.StatusUploading, f.video(t, slot.VideoID).Status)
}

// Full handshake: slot, register, then the provider reports the asset.
func TestUploadToPublished(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	slot, err := f.gw.CreateUploadSession(ctx, "u1", CreateUploadRequest{})
	require.NoError(t, err)

	videoID, err := f.gw.RegisterAsset(ctx, "u1", RegisterRequest{SessionID: slot.SessionID})
	require.NoError(t, err)

	require.NoError(t, f.deliver(t, fmt.Sprintf(`{"type":"video.asset.created","data":{"id":"a1","upload_id":"%s"}}`, slot.SessionID)))

	v := f.video(t, videoID)
	assert.Equal(t, model.StatusProcessing, v.Status)
	assert.Equal(t, "a1", v.AssetID)

	ready := `{"type":"video.asset.ready","data":{"id":"a1","playback_ids":[{"id":"pb1","policy":"public"}],"duration":12.4,"aspect_ratio":"9:16"}}`
	require.NoError(t, f.deliver(t, ready))

	v = f.video(t, videoID)
	assert.Equal(t, model.StatusReady, v.Status)
	assert.Equal(t, "pb1", v.PlaybackID)
	assert.Equal(t, "https://stream.test/pb1.m3u8", v.PlaybackURL)
	assert.Equal(t, 12.4, v.Duration)
	assert.Equal(t, int64(1), f.notifications(t, videoID))
	assert.Equal(t, 1, f.pub.count())

	// Replays change nothing and never notify twice
	require.NoError(t, f.deliver(t, ready))
	require.NoError(t, f.deliver(t, ready))

	assert.Equal(t, v, f.video(t, videoID))
	assert.Equal(t, int64(1), f.notifications(t, videoID))
	assert.Equal(t, 1, f.pub.count())
}

func TestHandleWebhookOutOfOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	slot, err := f.gw.CreateUploadSession(ctx, "u1", CreateUploadRequest{})
	require.NoError(t, err)

	// Ready first, located by upload id and carrying the asset id itself
	require.NoError(t, f.deliver(t, fmt.Sprintf(`{"type":"asset_ready","data":{"id":"a1","upload_id":"%s","playback_ids":[{"id":"pb1"}],"duration":3}}`, slot.SessionID)))

	v := f.video(t, slot.VideoID)
	assert.Equal(t, model.StatusReady, v.Status)
	assert.Equal(t, "a1", v.AssetID)

	// A late created event can't regress the video or swap its asset id
	require.NoError(t, f.deliver(t, fmt.Sprintf(`{"type":"asset_created","data":{"id":"a9","upload_id":"%s"}}`, slot.SessionID)))
	require.NoError(t, f.deliver(t, `{"type":"asset_errored","data":{"id":"a1"}}`))

	assert.Equal(t, v, f.video(t, slot.VideoID))
	assert.Equal(t, int64(1), f.notifications(t, slot.VideoID))
}

func TestHandleWebhookErrored(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	slot, err := f.gw.CreateUploadSession(ctx, "u1", CreateUploadRequest{})
	require.NoError(t, err)

	require.NoError(t, f.deliver(t, fmt.Sprintf(`{"type":"asset_errored","data":{"id":"a1","upload_id":"%s"}}`, slot.SessionID)))
	assert.Equal(t, model.StatusError, f.video(t, slot.VideoID).Status)

	// Terminal, a ready afterwards is ignored
	require.NoError(t, f.deliver(t, `{"type":"asset_ready","data":{"id":"a1","playback_ids":[{"id":"pb1"}]}}`))

	v := f.video(t, slot.VideoID)
	assert.Equal(t, model.StatusError, v.Status)
	assert.Empty(t, v.PlaybackURL)
	assert.Zero(t, f.notifications(t, slot.VideoID))
}

func TestHandleWebhookAcksUnknownAndUnmatched(t *testing.T) {
	f := newFixture(t)

	assert.NoError(t, f.deliver(t, `{"type":"video.upload.cancelled","data":{"id":"up1"}}`))
	assert.NoError(t, f.deliver(t, `{"type":"asset_ready","data":{"id":"nobody","playback_ids":[{"id":"pb1"}]}}`))
	assert.Zero(t, f.pub.count())
}

func TestHandleWebhookConcurrentReady(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	slot, err := f.gw.CreateUploadSession(ctx, "u1", CreateUploadRequest{})
	require.NoError(t, err)

	body := fmt.Sprintf(`{"type":"asset_ready","data":{"id":"a1","upload_id":"%s","playback_ids":[{"id":"pb1"}]}}`, slot.SessionID)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, f.gw.HandleWebhook(ctx, Sign(testSecret, []byte(body)), []byte(body)))
		}()
	}
	wg.Wait()

	assert.Equal(t, model.StatusReady, f.video(t, slot.VideoID).Status)
	assert.Equal(t, int64(1), f.notifications(t, slot.VideoID))
	assert.Equal(t, 1, f.pub.count())
}

func TestHandleWebhookWithoutAssetIDKeepsUploading(t *testing.T) {
	f := newFixture(t)

	slot, err := f.gw.CreateUploadSession(context.Background(), "u1", CreateUploadRequest{})
	require.NoError(t, err)

	require.NoError(t, f.deliver(t, fmt.Sprintf(`{"type":"video.upload.asset_created","data":{"id":"%s"}}`, slot.SessionID)))
	require.NoError(t, f.deliver(t, fmt.Sprintf(`{"type":"asset_ready","data":{"upload_id":"%s","playback_ids":[{"id":"pb1"}]}}`, slot.SessionID)))

	v := f.video(t, slot.VideoID)
	assert.Equal(t, model.StatusUploading, v.Status)
	assert.Empty(t, v.AssetID)
	assert.Empty(t, v.PlaybackURL)
	assert.Zero(t, f.notifications(t, slot.VideoID))
}

func TestHandleWebhookAcksMalformed(t *testing.T) {
	f := newFixture(t)

	slot, err := f.gw.CreateUploadSession(context.Background(), "u1", CreateUploadRequest{})
	require.NoError(t, err)

	assert.NoError(t, f.deliver(t, `{"type":`))
	assert.NoError(t, f.deliver(t, fmt.Sprintf(`{"type":"asset_ready","data":{"id":"a1","upload_id":"%s","playback_ids":[{"id":"sig","policy":"signed"}]}}`, slot.SessionID)))

	assert.Equal(t, model.StatusUploading, f.video(t, slot.VideoID).Status)
}

func TestHandleWebhookStoreErrorRollsBack(t *testing.T) {
	f := newFixture(t)

	slot, err := f.gw.CreateUploadSession(context.Background(), "u1", CreateUploadRequest{})
	require.NoError(t, err)

	require.NoError(t, f.db.Migrator().DropTable(&model.Notification{}))

	ready := fmt.Sprintf(`{"type":"asset_ready","data":{"id":"a1","upload_id":"%s","playback_ids":[{"id":"pb1"}]}}`, slot.SessionID)

	err = f.deliver(t, ready)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))

	v := f.video(t, slot.VideoID)
	assert.Equal(t, model.StatusUploading, v.Status)
	assert.Empty(t, v.AssetID)
	assert.Empty(t, v.PlaybackURL)
	assert.Zero(t, f.pub.count())

	// The redelivery after recovery applies normally
	require.NoError(t, f.db.AutoMigrate(&model.Notification{}))
	require.NoError(t, f.deliver(t, ready))

	assert.Equal(t, model.StatusReady, f.video(t, slot.VideoID).Status)
	assert.Equal(t, int64(1), f.notifications(t, slot.VideoID))
	assert.Equal(t, 1, f.pub.count())
}
