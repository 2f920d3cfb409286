package notify

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/HH-Alex-Ma/xarl-email-agent/internal/core"
)

// ModeWebhook posts to a group chat webhook
const ModeWebhook = "webhook"

// WebhookNotifier posts text messages to a group bot webhook
type WebhookNotifier struct {
	httpClient *http.Client
	url        string
	timeout    time.Duration
	logger     *zap.Logger
}

type webhookPayload struct {
	MsgType string   `json:"msgtype"`
	Text    textBody `json:"text"`
}

// NewWebhookNotifier creates a new webhook notifier
func NewWebhookNotifier(httpClient *http.Client, url string, timeout time.Duration, logger *zap.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		httpClient: httpClient,
		url:        url,
		timeout:    timeout,
		logger:     logger,
	}
}

func (n *WebhookNotifier) Mode() string {
	return ModeWebhook
}

// RequiresTarget is false: the group bot has no per-message recipient
func (n *WebhookNotifier) RequiresTarget() bool {
	return false
}

// Notify posts the notification content
func (n *WebhookNotifier) Notify(ctx context.Context, msg core.Notification) (*core.DispatchReport, error) {
	ctx, cancel := withTimeout(ctx, n.timeout)
	defer cancel()

	n.logger.Info("Sending webhook message", zap.Int("length", len(msg.Content)))
	return postJSON(ctx, n.httpClient, n.url, webhookPayload{
		MsgType: "text",
		Text:    textBody{Content: msg.Content},
	})
}
