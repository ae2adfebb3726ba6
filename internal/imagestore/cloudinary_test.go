package imagestore

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/owentar/zeta-hackathon/internal/apperr"
)

const testImage = "data:image/png;base64,iVBORw0KGgo="

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := New(resty.New(), Config{
		CloudName: "demo",
		APIKey:    "key",
		APISecret: "secret",
		BaseURL:   srv.URL,
	}, slog.Default())
	c.now = func() time.Time { return time.Unix(1700000000, 0) }
	return c
}

func TestSign(t *testing.T) {
	sum := sha1.Sum([]byte("folder=age-lens&timestamp=1700000000secret"))
	want := hex.EncodeToString(sum[:])

	got := Sign(map[string]string{"timestamp": "1700000000", "folder": "age-lens"}, "secret")
	assert.Equal(t, want, got)
}

func TestUploadImage_SignedForm(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/demo/image/upload", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, testImage, r.PostForm.Get("file"))
		assert.Equal(t, "age-lens", r.PostForm.Get("folder"))
		assert.Equal(t, "1700000000", r.PostForm.Get("timestamp"))
		assert.Equal(t, "key", r.PostForm.Get("api_key"))
		assert.Equal(t, Sign(map[string]string{"folder": "age-lens", "timestamp": "1700000000"}, "secret"),
			r.PostForm.Get("signature"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"public_id":"age-lens/abc123","secure_url":"https://res.cloudinary.com/x.png"}`))
	})

	id, err := c.UploadImage(context.Background(), testImage)
	require.NoError(t, err)
	assert.Equal(t, "age-lens/abc123", id)
}

func TestUploadImage_Rejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid Signature"}}`))
	})

	_, err := c.UploadImage(context.Background(), testImage)
	require.Error(t, err)
	assert.Equal(t, apperr.KindExternalService, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "Invalid Signature")
}

func TestUploadImage_EmptyPublicID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	})

	_, err := c.UploadImage(context.Background(), testImage)
	assert.Equal(t, apperr.KindExternalService, apperr.KindOf(err))
}
