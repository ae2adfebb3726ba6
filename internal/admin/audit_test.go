package admin

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuditHandler(status int) (*bytes.Buffer, http.Handler) {
	var logBuf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logBuf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	return &logBuf, AuditMiddleware(logger, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
}

func TestAuditMiddleware_LogsMutatingRequests(t *testing.T) {
	logBuf, handler := newAuditHandler(http.StatusAccepted)

	body := `{"walletAddress":"0xabc","chainId":7001}`
	req := httptest.NewRequest(http.MethodPost, "/admin/v1/airdrops/requeue", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer s3cret")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	out := logBuf.String()
	assert.Contains(t, out, "admin API audit")
	assert.Contains(t, out, "/admin/v1/airdrops/requeue")
	assert.Contains(t, out, "0xabc")
	assert.Contains(t, out, "token_fingerprint")
	assert.NotContains(t, out, "s3cret")
}

func TestAuditMiddleware_SkipsGETRequests(t *testing.T) {
	logBuf, handler := newAuditHandler(http.StatusOK)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/admin/v1/airdrops", nil))
	assert.Zero(t, logBuf.Len())
}

func TestAuditMiddleware_TruncatesLargeBody(t *testing.T) {
	logBuf, handler := newAuditHandler(http.StatusOK)

	req := httptest.NewRequest(http.MethodPost, "/admin/v1/reconcile", strings.NewReader(strings.Repeat("x", 2000)))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Contains(t, logBuf.String(), "truncated")
}

func TestAuditMiddleware_CapturesResponseStatus(t *testing.T) {
	logBuf, handler := newAuditHandler(http.StatusBadRequest)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/admin/v1/reconcile?chain_id=1", nil))
	assert.Contains(t, logBuf.String(), `"response_status":400`)
}
