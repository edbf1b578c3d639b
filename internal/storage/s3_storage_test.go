package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	appconfig "github.com/fajargold/fajargold-backend/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.objects[r.URL.Path] = body
	f.types[r.URL.Path] = r.Header.Get("Content-Type")
	f.mu.Unlock()
	w.Header().Set("ETag", `"etag"`)
	w.WriteHeader(http.StatusOK)
}

func newTestStorage(t *testing.T) (*S3Storage, *fakeS3, *httptest.Server) {
	fake := &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	s, err := NewS3Storage(context.Background(), appconfig.S3Config{
		Region:          "ap-southeast-3",
		Bucket:          "fajargold-exports",
		AccessKeyID:     "test",
		SecretAccessKey: "test",
		Endpoint:        server.URL,
		Prefix:          "exports",
	})
	require.NoError(t, err)
	return s, fake, server
}

func TestS3Storage_NewKey(t *testing.T) {
	s, _, _ := newTestStorage(t)

	key := s.NewKey("harga-emas_2025-03-01_2025-03-10.xlsx")
	assert.True(t, strings.HasPrefix(key, "exports/harga-emas_2025-03-01_2025-03-10_"))
	assert.True(t, strings.HasSuffix(key, ".xlsx"))
	assert.NotEqual(t, key, s.NewKey("harga-emas_2025-03-01_2025-03-10.xlsx"))
}

func TestS3Storage_Put(t *testing.T) {
	s, fake, _ := newTestStorage(t)

	err := s.Put(context.Background(), "exports/a.xlsx", []byte("workbook"), "application/octet-stream")
	require.NoError(t, err)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.Contains(t, fake.objects, "/fajargold-exports/exports/a.xlsx")
	assert.Equal(t, "application/octet-stream", fake.types["/fajargold-exports/exports/a.xlsx"])
}

func TestS3Storage_PresignGet(t *testing.T) {
	s, _, server := newTestStorage(t)

	url, err := s.PresignGet(context.Background(), "exports/a.xlsx", 15*time.Minute)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, server.URL+"/fajargold-exports/exports/a.xlsx?"))
	assert.Contains(t, url, "X-Amz-Signature=")
	assert.Contains(t, url, "X-Amz-Expires=900")
}
