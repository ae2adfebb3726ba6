package admin

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const auditBodyLimit = 1024

// tokenFingerprint identifies the caller's bearer token without logging it.
func tokenFingerprint(r *http.Request) string {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || token == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:4])
}

// snapshotBody returns at most auditBodyLimit bytes of the request body and
// leaves the full body readable for the handler.
func snapshotBody(r *http.Request) string {
	if r.Body == nil || r.Body == http.NoBody {
		return ""
	}
	head, err := io.ReadAll(io.LimitReader(r.Body, auditBodyLimit+1))
	if err != nil {
		return ""
	}
	r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(head), r.Body))
	if len(head) > auditBodyLimit {
		return string(head[:auditBodyLimit]) + "...(truncated)"
	}
	return string(head)
}

// AuditMiddleware records every operator write: reconciliations and
// requeues can move funds, so each one gets a request id and a log line.
func AuditMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	log := logger.With("component", "admin_audit")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		requestID := uuid.NewString()
		w.Header().Set("X-Request-ID", requestID)
		body := snapshotBody(r)

		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		log.Info("admin API audit",
			"request_id", requestID,
			"token_fingerprint", tokenFingerprint(r),
			"client_ip", clientIP(r),
			"method", r.Method,
			"path", r.URL.Path,
			"query", r.URL.RawQuery,
			"body_summary", body,
			"response_status", rec.status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.code == 0 {
		s.code = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.code == 0 {
		s.code = http.StatusOK
	}
	return s.ResponseWriter.Write(b)
}

func (s *statusRecorder) status() int {
	if s.code == 0 {
		return http.StatusOK
	}
	return s.code
}
