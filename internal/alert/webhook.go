package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// WebhookNotifier POSTs signed alert payloads to a configured endpoint.
// Delivery failures are logged, never propagated; alerts are advisory.
type WebhookNotifier struct {
	url        string
	secret     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewWebhookNotifier creates a webhook-backed notifier
func NewWebhookNotifier(url, secret string, logger *slog.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		url:        url,
		secret:     secret,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

func (n *WebhookNotifier) HighRisk(ctx context.Context, ev Event) {
	ev.Type = EventHighRisk
	n.deliver(ctx, ev)
}

func (n *WebhookNotifier) FrequentNormal(ctx context.Context, ev Event) {
	ev.Type = EventFrequentNormal
	n.deliver(ctx, ev)
}

func (n *WebhookNotifier) FrequentUnknown(ctx context.Context, ev Event) {
	ev.Type = EventFrequentUnknown
	n.deliver(ctx, ev)
}

func (n *WebhookNotifier) deliver(ctx context.Context, ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		n.logger.Error("marshal alert payload", "error", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		n.logger.Error("build alert request", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Vigia-Signature", Sign(n.secret, payload))
	req.Header.Set("X-Vigia-Event", ev.Type)

	resp, err := n.httpClient.Do(req)
	if err != nil {
		n.logger.Error("deliver alert", "type", ev.Type, "error", err)
		return
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 300 {
		n.logger.Error("alert endpoint rejected delivery",
			"type", ev.Type, "error", fmt.Errorf("status %d", resp.StatusCode))
		return
	}

	n.logger.Debug("alert delivered", "type", ev.Type, "person_id", ev.PersonID)
}

var _ Notifier = (*WebhookNotifier)(nil)
