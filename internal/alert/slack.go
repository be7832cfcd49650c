// Package alert mirrors server-fault errors to a Slack channel through an
// incoming webhook. Notification is strictly best-effort: delivery failures
// are logged and never propagate to the request path.
package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Notifier posts error notifications to a Slack incoming webhook.
// A Notifier with an empty webhook URL is valid and does nothing.
type Notifier struct {
	webhookURL string
	client     *http.Client
	logger     *zap.Logger
}

// NewNotifier returns a Notifier for webhookURL. An empty URL disables
// notification. A nil logger falls back to zap's no-op logger.
func NewNotifier(webhookURL string, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// ServerFault reports an internal failure. Faults are delivered
// asynchronously so the request path never waits on Slack.
func (notifier *Notifier) ServerFault(message string, status int, err error) {
	if notifier.webhookURL == "" {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		detail := ""
		if err != nil {
			detail = err.Error()
		}
		payload := map[string]string{
			"text": fmt.Sprintf(":rotating_light: *Error %d*\n>%s\n```%s```", status, message, detail),
		}

		body, marshalErr := json.Marshal(payload)
		if marshalErr != nil {
			notifier.logger.Warn("failed to encode slack payload", zap.Error(marshalErr))
			return
		}

		req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, notifier.webhookURL, bytes.NewReader(body))
		if reqErr != nil {
			notifier.logger.Warn("failed to build slack request", zap.Error(reqErr))
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, postErr := notifier.client.Do(req)
		if postErr != nil {
			notifier.logger.Warn("slack notification failed", zap.Error(postErr))
			return
		}
		_ = resp.Body.Close()
	}()
}
