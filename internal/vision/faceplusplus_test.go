package vision

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/owentar/zeta-hackathon/internal/apperr"
)

const testImage = "data:image/jpeg;base64,/9j/4AAQSkZJRg=="

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(resty.New(), Config{APIKey: "key", APISecret: "secret", URL: srv.URL}, slog.Default())
}

func TestEstimateAge_SendsFormAndReturnsAge(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "key", r.PostForm.Get("api_key"))
		assert.Equal(t, "secret", r.PostForm.Get("api_secret"))
		assert.Equal(t, "/9j/4AAQSkZJRg==", r.PostForm.Get("image_base64"))
		assert.Equal(t, "age", r.PostForm.Get("return_attributes"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"faces":[{"face_token":"tok","attributes":{"age":{"value":31}}}]}`))
	})

	age, err := c.EstimateAge(context.Background(), testImage)
	require.NoError(t, err)
	assert.Equal(t, 31, age)
}

func TestEstimateAge_NoFace(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"faces":[]}`))
	})

	_, err := c.EstimateAge(context.Background(), testImage)
	require.ErrorIs(t, err, ErrNoFace)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Equal(t, "No face detected", apperr.PublicMessage(err))
}

func TestEstimateAge_MultipleFaces(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"faces":[
			{"face_token":"a","attributes":{"age":{"value":20}}},
			{"face_token":"b","attributes":{"age":{"value":40}}}
		]}`))
	})

	_, err := c.EstimateAge(context.Background(), testImage)
	require.ErrorIs(t, err, ErrMultipleFaces)
	assert.Equal(t, "Multiple faces detected", apperr.PublicMessage(err))
}

func TestEstimateAge_UpstreamError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error_message":"AUTHENTICATION_ERROR"}`))
	})

	_, err := c.EstimateAge(context.Background(), testImage)
	require.Error(t, err)
	assert.Equal(t, apperr.KindExternalService, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "AUTHENTICATION_ERROR")
}

func TestEstimateAge_InvalidDataURL(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	for _, in := range []string{"", "not-a-data-url", "data:image/png;base64,", "/9j/4AAQ,abc"} {
		_, err := c.EstimateAge(context.Background(), in)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err), in)
	}
}

func TestDetect_RoundsAge(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"faces":[{"face_token":"t","attributes":{"age":{"value":28.6}}}]}`))
	})

	faces, err := c.Detect(context.Background(), testImage)
	require.NoError(t, err)
	require.Len(t, faces, 1)
	assert.Equal(t, Face{Token: "t", Age: 29}, faces[0])
}
