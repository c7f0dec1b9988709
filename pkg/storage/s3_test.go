package storage_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/courier/pkg/storage"
)

type fakeObject struct {
	body        string
	contentType string
	// reportedSize overrides Content-Length on HEAD when non-zero.
	reportedSize int
}

func fakeS3(t *testing.T, objects map[string]fakeObject) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(r.URL.Path, "/attachments/")
		obj, ok := objects[key]
		if !ok {
			if r.Method == http.MethodHead {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`))
			return
		}

		if obj.contentType != "" {
			w.Header().Set("Content-Type", obj.contentType)
		}
		size := len(obj.body)
		if r.Method == http.MethodHead && obj.reportedSize > 0 {
			size = obj.reportedSize
		}
		w.Header().Set("Content-Length", strconv.Itoa(size))
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodGet {
			_, _ = w.Write([]byte(obj.body))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newStore(t *testing.T, srv *httptest.Server, maxSize int64) *storage.S3 {
	t.Helper()

	s, err := storage.New(storage.Config{
		Bucket:        "attachments",
		AccessKey:     "key",
		SecretKey:     "secret",
		Endpoint:      srv.URL,
		PathStyle:     true,
		MaxObjectSize: maxSize,
	})
	require.NoError(t, err)
	return s
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	_, err := storage.New(storage.Config{Bucket: "b"})
	require.ErrorIs(t, err, storage.ErrInvalidConfig)
	assert.False(t, storage.Config{}.Enabled())
}

func TestS3_ReadAll(t *testing.T) {
	t.Parallel()

	srv := fakeS3(t, map[string]fakeObject{
		"u1/price.pdf":  {body: "%PDF-1.4 data", contentType: "application/pdf"},
		"u1/notes.txt":  {body: "hello", contentType: "binary/octet-stream"},
		"u1/huge.bin":   {body: strings.Repeat("x", 64)},
		"u1/sneaky.bin": {body: strings.Repeat("x", 64), reportedSize: 8},
	})
	store := newStore(t, srv, 32)
	ctx := context.Background()

	t.Run("reads object with metadata", func(t *testing.T) {
		t.Parallel()

		data, obj, err := store.ReadAll(ctx, "u1/price.pdf")
		require.NoError(t, err)
		assert.Equal(t, "%PDF-1.4 data", string(data))
		assert.Equal(t, "price.pdf", obj.Filename)
		assert.Equal(t, "application/pdf", obj.ContentType)
		assert.Equal(t, int64(len(data)), obj.Size)
	})

	t.Run("guesses content type from extension", func(t *testing.T) {
		t.Parallel()

		_, obj, err := store.ReadAll(ctx, "u1/notes.txt")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(obj.ContentType, "text/plain"))
	})

	t.Run("rejects oversized object before download", func(t *testing.T) {
		t.Parallel()

		_, _, err := store.ReadAll(ctx, "u1/huge.bin")
		require.ErrorIs(t, err, storage.ErrTooLarge)
	})

	t.Run("caps body that outgrew its metadata", func(t *testing.T) {
		t.Parallel()

		_, _, err := store.ReadAll(ctx, "u1/sneaky.bin")
		require.ErrorIs(t, err, storage.ErrTooLarge)
	})

	t.Run("missing object", func(t *testing.T) {
		t.Parallel()

		_, _, err := store.ReadAll(ctx, "u1/nope.pdf")
		require.ErrorIs(t, err, storage.ErrNotFound)
	})
}
