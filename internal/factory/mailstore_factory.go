package factory

import (
	"context"
	"fmt"

	"github.com/HH-Alex-Ma/xarl-email-agent/internal/adapters/mailstore/gmail"
	"github.com/HH-Alex-Ma/xarl-email-agent/internal/adapters/mailstore/graph"
	"github.com/HH-Alex-Ma/xarl-email-agent/internal/config"
	"github.com/HH-Alex-Ma/xarl-email-agent/internal/core"
	"go.uber.org/zap"
)

// MailStoreFactory creates mailbox clients
type MailStoreFactory struct {
	cfg    *config.Config
	http   *HTTPFactory
	logger *zap.Logger
}

// NewMailStoreFactory creates a new mailbox factory
func NewMailStoreFactory(cfg *config.Config, http *HTTPFactory, logger *zap.Logger) *MailStoreFactory {
	return &MailStoreFactory{
		cfg:    cfg,
		http:   http,
		logger: logger,
	}
}

// CreateMessageStore creates the mailbox client for the configured provider
func (f *MailStoreFactory) CreateMessageStore() (core.MessageStore, error) {
	mc, err := f.cfg.GetMailbox()
	if err != nil {
		return nil, fmt.Errorf("invalid mailbox configuration: %w", err)
	}

	ctx := context.Background()
	client := f.http.CreateMailboxClient(ctx, mc.AccessToken, mc.Timeout)
	logger := f.logger.Named("mailbox").With(zap.String("provider", mc.Provider))

	switch mc.Provider {
	case "graph":
		return graph.NewClient(client, mc.GraphBaseURL, logger), nil
	case "gmail":
		return gmail.NewClient(ctx, client, mc.GmailEndpoint, logger)
	default:
		return nil, fmt.Errorf("unsupported mailbox provider: %s", mc.Provider)
	}
}
