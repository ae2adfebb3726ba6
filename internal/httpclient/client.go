// Package httpclient builds the resty clients used for outbound calls to
// third-party HTTP services.
package httpclient

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	DefaultTimeout       = 15 * time.Second
	defaultRetryCount    = 2
	defaultRetryInterval = 500 * time.Millisecond
)

// RetryOnErrOr5xx retries transport errors and 5xx responses.
func RetryOnErrOr5xx(r *resty.Response, err error) bool {
	return err != nil || (r != nil && r.StatusCode() >= http.StatusInternalServerError)
}

// New returns a client with a bounded timeout, slog-backed logging and retry
// on transport errors or 5xx. A non-positive timeout selects DefaultTimeout.
func New(logger *slog.Logger, timeout time.Duration) *resty.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return resty.New().
		SetTimeout(timeout).
		SetLogger(RestyAdapter(logger)).
		SetRetryCount(defaultRetryCount).
		SetRetryWaitTime(defaultRetryInterval).
		AddRetryCondition(RetryOnErrOr5xx)
}

type restyAdapter slog.Logger

// RestyAdapter satisfies resty.Logger on top of slog.
func RestyAdapter(logger *slog.Logger) resty.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return (*restyAdapter)(logger.With("component", "resty"))
}

func (l *restyAdapter) Errorf(message string, v ...any) {
	if len(v) > 0 {
		message = fmt.Sprintf(message, v...)
	}
	(*slog.Logger)(l).Error(message)
}

func (l *restyAdapter) Warnf(message string, v ...any) {
	if len(v) > 0 {
		message = fmt.Sprintf(message, v...)
	}
	(*slog.Logger)(l).Warn(message)
}

func (l *restyAdapter) Debugf(message string, v ...any) {
	if len(v) > 0 {
		message = fmt.Sprintf(message, v...)
	}
	(*slog.Logger)(l).Debug(message)
}
