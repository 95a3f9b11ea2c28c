package uploader

import (
	"bitwise74/reel-api/pkg/apperr"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPGatewayCreateAndRegister(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")

		switch r.URL.Path {
		case "/api/uploads":
			var body map[string]any
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "https://app.test", body["corsOrigin"])
			assert.Equal(t, "hi", body["caption"])

			io.WriteString(w, `{"uploadUrl":"https://up.test/1","sessionId":"s1","assetId":"","videoId":"v1"}`)
		case "/api/uploads/register":
			var body RegisterRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "s1", body.SessionID)

			io.WriteString(w, `{"videoId":"v1"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	gw := NewHTTPGateway(srv.URL + "/")

	slot, err := gw.CreateUpload(context.Background(), "tok", CreateUploadRequest{
		CORSOrigin: "https://app.test",
		Metadata:   Metadata{Caption: "hi"},
	})
	require.NoError(t, err)
	assert.Equal(t, "s1", slot.SessionID)
	assert.Equal(t, "https://up.test/1", slot.UploadURL)

	id, err := gw.Register(context.Background(), "tok", RegisterRequest{SessionID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, "v1", id)
}

func TestHTTPGatewayMapsErrorCodes(t *testing.T) {
	cases := map[string]struct {
		status int
		body   string
		kind   apperr.Kind
	}{
		"coded":       {http.StatusNotFound, `{"error":"Upload session not found","code":"not_found","requestID":"r1"}`, apperr.KindNotFound},
		"upstream":    {http.StatusBadGateway, `{"error":"Video provider is unavailable","code":"upstream"}`, apperr.KindUpstream},
		"no body":     {http.StatusUnauthorized, ``, apperr.KindAuth},
		"rate limit":  {http.StatusTooManyRequests, `{"error":"Too many requests","code":"rate_limited"}`, apperr.KindTransientIO},
		"bad json ok": {http.StatusOK, `not json`, apperr.KindUpstream},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				io.WriteString(w, tc.body)
			}))
			defer srv.Close()

			_, err := NewHTTPGateway(srv.URL).CreateUpload(context.Background(), "tok", CreateUploadRequest{})
			assert.Equal(t, tc.kind, apperr.KindOf(err))
		})
	}
}

func TestHTTPGatewayUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewHTTPGateway(url).Register(context.Background(), "tok", RegisterRequest{SessionID: "s"})
	assert.Equal(t, apperr.KindTransientIO, apperr.KindOf(err))
}

func TestHTTPTransportPut(t *testing.T) {
	payload := strings.Repeat("x", 100<<10)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "video/mp4", r.Header.Get("Content-Type"))

		b, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.Equal(t, len(payload), len(b))
	}))
	defer srv.Close()

	var (
		mu   sync.Mutex
		last float64
	)
	tr := &HTTPTransport{}
	err := tr.Put(context.Background(), srv.URL, strings.NewReader(payload), int64(len(payload)), "video/mp4", func(p float64) {
		mu.Lock()
		defer mu.Unlock()

		assert.GreaterOrEqual(t, p, last)
		last = p
	})
	require.NoError(t, err)

	mu.Lock()
	assert.Equal(t, 1.0, last)
	mu.Unlock()
}

func TestHTTPTransportRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	err := (&HTTPTransport{}).Put(context.Background(), srv.URL, strings.NewReader("abc"), 3, "", nil)
	assert.Equal(t, apperr.KindTransientIO, apperr.KindOf(err))
}
