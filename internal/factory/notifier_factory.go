package factory

import (
	"fmt"

	"github.com/HH-Alex-Ma/xarl-email-agent/internal/adapters/notify"
	"github.com/HH-Alex-Ma/xarl-email-agent/internal/config"
	"github.com/HH-Alex-Ma/xarl-email-agent/internal/core"
	"go.uber.org/zap"
)

// NotifierFactory creates notification dispatchers
type NotifierFactory struct {
	cfg    *config.Config
	http   *HTTPFactory
	logger *zap.Logger
}

// NewNotifierFactory creates a new notifier factory
func NewNotifierFactory(cfg *config.Config, http *HTTPFactory, logger *zap.Logger) *NotifierFactory {
	return &NotifierFactory{
		cfg:    cfg,
		http:   http,
		logger: logger,
	}
}

// CreateNotifier creates the notifier for the configured mode. Mode "none"
// disables dispatch and yields nil.
func (f *NotifierFactory) CreateNotifier() (core.Notifier, error) {
	nc, err := f.cfg.GetNotify()
	if err != nil {
		return nil, fmt.Errorf("invalid notify configuration: %w", err)
	}

	logger := f.logger.Named("notify")
	switch nc.Mode {
	case "none", "":
		f.logger.Info("Notification dispatch disabled")
		return nil, nil
	case notify.ModeWebhook:
		if nc.WebhookURL == "" {
			return nil, fmt.Errorf("notify mode %s requires notify.webhook_url", nc.Mode)
		}
		return notify.NewWebhookNotifier(f.http.CreateClient(0), nc.WebhookURL, nc.Timeout, logger), nil
	case notify.ModeWeCom:
		if nc.WeCom.CorpID == "" || nc.WeCom.CorpSecret == "" || nc.WeCom.AgentID == "" {
			return nil, fmt.Errorf("notify mode %s requires corp_id, corp_secret and agent_id", nc.Mode)
		}
		return notify.NewWeComNotifier(
			f.http.CreateClient(0),
			nc.WeCom.BaseURL,
			nc.WeCom.CorpID,
			nc.WeCom.CorpSecret,
			nc.WeCom.AgentID,
			nc.Timeout,
			logger,
		), nil
	case notify.ModeSMTP:
		return notify.NewSMTPNotifier(nc.SMTP.Address, nc.SMTP.From, nc.SMTP.Subject, logger), nil
	default:
		return nil, fmt.Errorf("unsupported notify mode: %s", nc.Mode)
	}
}
