package alert

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/owentar/zeta-hackathon/internal/httpclient"
	"github.com/owentar/zeta-hackathon/internal/metrics"
)

// AlertType categorizes the kind of alert.
type AlertType string

const (
	AlertTypeCriticalInconsistency AlertType = "CRITICAL_INCONSISTENCY"
	AlertTypeAirdropDeadLetter     AlertType = "AIRDROP_DEAD_LETTER"
	AlertTypeReconcileRepair       AlertType = "RECONCILE_REPAIR"
	AlertTypeCircuitOpen           AlertType = "RPC_CIRCUIT_OPEN"
)

// Alert represents a single alert event. Subject narrows the cooldown key,
// e.g. an estimation id or a wallet.
type Alert struct {
	Type    AlertType
	Chain   string
	Subject string
	Title   string
	Message string
	Fields  map[string]string
}

// Alerter is the interface for sending alerts.
type Alerter interface {
	Send(ctx context.Context, alert Alert) error
}

// MultiAlerter fans out alerts to multiple channels.
type MultiAlerter struct {
	alerters []Alerter
	cooldown time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.Mutex
	lastSent map[string]time.Time
}

// NewMultiAlerter creates a new multi-channel alerter with cooldown.
func NewMultiAlerter(cooldown time.Duration, logger *slog.Logger, alerters ...Alerter) *MultiAlerter {
	return &MultiAlerter{
		alerters: alerters,
		cooldown: cooldown,
		logger:   logger.With("component", "alerter"),
		now:      time.Now,
		lastSent: make(map[string]time.Time),
	}
}

func cooldownKey(a Alert) string {
	return fmt.Sprintf("%s:%s:%s", a.Type, a.Chain, a.Subject)
}

// Send dispatches alert to all channels, respecting cooldown.
func (m *MultiAlerter) Send(ctx context.Context, alert Alert) error {
	key := cooldownKey(alert)

	m.mu.Lock()
	now := m.now()
	if last, ok := m.lastSent[key]; ok && now.Sub(last) < m.cooldown {
		m.mu.Unlock()
		m.logger.Debug("alert suppressed by cooldown", "key", key)
		for _, a := range m.alerters {
			metrics.AlertsCooldownSkipped.WithLabelValues(alerterName(a), string(alert.Type)).Inc()
		}
		return nil
	}
	m.lastSent[key] = now
	m.mu.Unlock()

	var firstErr error
	for _, a := range m.alerters {
		if err := a.Send(ctx, alert); err != nil {
			m.logger.Warn("alert send failed",
				"channel", alerterName(a),
				"type", alert.Type,
				"error", err,
			)
			if firstErr == nil {
				firstErr = err
			}
		} else {
			metrics.AlertsSentTotal.WithLabelValues(alerterName(a), string(alert.Type)).Inc()
		}
	}
	return firstErr
}

func alerterName(a Alerter) string {
	switch a.(type) {
	case *SlackAlerter:
		return "slack"
	case *WebhookAlerter:
		return "webhook"
	case *LogAlerter:
		return "log"
	default:
		return "unknown"
	}
}

func newHTTPClient() *resty.Client {
	return httpclient.New(slog.Default().With("component", "alert"), 10*time.Second).
		SetHeader("Content-Type", "application/json")
}

func postJSON(ctx context.Context, client *resty.Client, url string, payload any) error {
	resp, err := client.R().SetContext(ctx).SetBody(payload).Post(url)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("status %d", resp.StatusCode())
	}
	return nil
}

func sortedFields(fields map[string]string) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SlackAlerter sends alerts to a Slack webhook.
type SlackAlerter struct {
	webhookURL string
	client     *resty.Client
}

func NewSlackAlerter(webhookURL string) *SlackAlerter {
	return &SlackAlerter{webhookURL: webhookURL, client: newHTTPClient()}
}

func (s *SlackAlerter) Send(ctx context.Context, alert Alert) error {
	emoji := ":warning:"
	switch alert.Type {
	case AlertTypeCriticalInconsistency:
		emoji = ":rotating_light:"
	case AlertTypeAirdropDeadLetter:
		emoji = ":money_with_wings:"
	case AlertTypeReconcileRepair:
		emoji = ":scales:"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s *[%s]* %s: %s\n%s", emoji, alert.Type, alert.Chain, alert.Title, alert.Message)
	if len(alert.Fields) > 0 {
		b.WriteString("\n")
		for _, k := range sortedFields(alert.Fields) {
			fmt.Fprintf(&b, "- *%s*: %s\n", k, alert.Fields[k])
		}
	}

	if err := postJSON(ctx, s.client, s.webhookURL, map[string]string{"text": b.String()}); err != nil {
		return fmt.Errorf("send slack alert: %w", err)
	}
	return nil
}

// WebhookAlerter sends alerts to a generic HTTP webhook.
type WebhookAlerter struct {
	url    string
	client *resty.Client
}

func NewWebhookAlerter(url string) *WebhookAlerter {
	return &WebhookAlerter{url: url, client: newHTTPClient()}
}

func (w *WebhookAlerter) Send(ctx context.Context, alert Alert) error {
	payload := map[string]any{
		"type":    string(alert.Type),
		"chain":   alert.Chain,
		"subject": alert.Subject,
		"title":   alert.Title,
		"message": alert.Message,
		"fields":  alert.Fields,
		"time":    time.Now().UTC().Format(time.RFC3339),
	}
	if err := postJSON(ctx, w.client, w.url, payload); err != nil {
		return fmt.Errorf("send webhook alert: %w", err)
	}
	return nil
}

// LogAlerter writes alerts to the structured log at ERROR level. It is the
// fallback channel when no webhook is configured.
type LogAlerter struct {
	logger *slog.Logger
}

func NewLogAlerter(logger *slog.Logger) *LogAlerter {
	return &LogAlerter{logger: logger.With("component", "alert")}
}

func (l *LogAlerter) Send(ctx context.Context, alert Alert) error {
	attrs := []any{
		"type", string(alert.Type),
		"chain", alert.Chain,
		"subject", alert.Subject,
		"message", alert.Message,
	}
	for _, k := range sortedFields(alert.Fields) {
		attrs = append(attrs, k, alert.Fields[k])
	}
	l.logger.ErrorContext(ctx, alert.Title, attrs...)
	return nil
}

// NoopAlerter does nothing.
type NoopAlerter struct{}

func (n *NoopAlerter) Send(_ context.Context, _ Alert) error { return nil }
