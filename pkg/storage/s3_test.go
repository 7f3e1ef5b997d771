package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-canvas/pkg/config"
)

type recordedRequest struct {
	method      string
	path        string
	contentType string
	body        []byte
}

func newFakeS3(t *testing.T, status int) (*httptest.Server, func() []recordedRequest) {
	t.Helper()
	var (
		mu       sync.Mutex
		requests []recordedRequest
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		requests = append(requests, recordedRequest{
			method:      r.Method,
			path:        r.URL.Path,
			contentType: r.Header.Get("Content-Type"),
			body:        body,
		})
		mu.Unlock()
		if status >= 400 {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(status)
			_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>AccessDenied</Code><Message>denied</Message></Error>`)
			return
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)

	return server, func() []recordedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedRequest(nil), requests...)
	}
}

func newTestStore(t *testing.T, endpoint string) *S3Store {
	t.Helper()
	store, err := NewS3Store(context.Background(), &config.StorageConfig{
		Region:          "us-east-1",
		Bucket:          "canvas-assets",
		Endpoint:        endpoint,
		UsePathStyle:    true,
		AccessKeyID:     "test",
		SecretAccessKey: "test",
	}, zap.NewNop())
	require.NoError(t, err)
	return store
}

func TestS3Store_Upload(t *testing.T) {
	server, requests := newFakeS3(t, http.StatusOK)
	store := newTestStore(t, server.URL)

	asset, err := store.Upload(context.Background(), "ekaya-canvas/generations", []byte("png-bytes"), "image/png")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(asset.PublicID, "ekaya-canvas/generations/"))
	assert.True(t, strings.HasSuffix(asset.PublicID, ".png"))
	assert.Equal(t, server.URL+"/canvas-assets/"+asset.PublicID, asset.URL)

	got := requests()
	require.Len(t, got, 1)
	assert.Equal(t, http.MethodPut, got[0].method)
	assert.Equal(t, "/canvas-assets/"+asset.PublicID, got[0].path)
	assert.Equal(t, "image/png", got[0].contentType)
	assert.Equal(t, []byte("png-bytes"), got[0].body)
}

func TestS3Store_UploadError(t *testing.T) {
	server, _ := newFakeS3(t, http.StatusForbidden)
	store := newTestStore(t, server.URL)

	_, err := store.Upload(context.Background(), "f", []byte("x"), "image/png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to upload object")
}

func TestS3Store_Destroy(t *testing.T) {
	server, requests := newFakeS3(t, http.StatusNoContent)
	store := newTestStore(t, server.URL)

	require.NoError(t, store.Destroy(context.Background(), "ekaya-canvas/generations/abc.png"))

	got := requests()
	require.Len(t, got, 1)
	assert.Equal(t, http.MethodDelete, got[0].method)
	assert.Equal(t, "/canvas-assets/ekaya-canvas/generations/abc.png", got[0].path)

	assert.Error(t, store.Destroy(context.Background(), ""))
}

func TestObjectKey(t *testing.T) {
	id := uuid.MustParse("6f1c2d0e-8a7b-4c3d-9e2f-0a1b2c3d4e5f")

	assert.Equal(t, "gen/6f1c2d0e-8a7b-4c3d-9e2f-0a1b2c3d4e5f.jpg", ObjectKey("/gen/", id, "image/jpeg"))
	assert.Equal(t, "6f1c2d0e-8a7b-4c3d-9e2f-0a1b2c3d4e5f.webp", ObjectKey("", id, "image/webp"))
	assert.Equal(t, "a/b/6f1c2d0e-8a7b-4c3d-9e2f-0a1b2c3d4e5f.bin", ObjectKey("a/b", id, "application/octet-stream"))
}

func TestPublicBaseURL(t *testing.T) {
	assert.Equal(t, "https://cdn.example.com",
		publicBaseURL(&config.StorageConfig{PublicBaseURL: "https://cdn.example.com/", Bucket: "b"}))
	assert.Equal(t, "https://b.s3.eu-west-1.amazonaws.com",
		publicBaseURL(&config.StorageConfig{Bucket: "b", Region: "eu-west-1"}))
	assert.Equal(t, "http://localhost:9000/b",
		publicBaseURL(&config.StorageConfig{Bucket: "b", Endpoint: "http://localhost:9000"}))
}

func TestSecureURL(t *testing.T) {
	assert.Equal(t, "https://cdn.example.com/a.png", secureURL("http://cdn.example.com/a.png"))
	assert.Equal(t, "https://cdn.example.com/a.png", secureURL("https://cdn.example.com/a.png"))
	assert.Equal(t, "http://127.0.0.1:9000/b/a.png", secureURL("http://127.0.0.1:9000/b/a.png"))
}
