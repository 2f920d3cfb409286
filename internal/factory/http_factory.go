package factory

import (
	"context"
	"net/http"
	"time"

	"github.com/HH-Alex-Ma/xarl-email-agent/internal/config"
	"github.com/HH-Alex-Ma/xarl-email-agent/internal/tracehttp"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// HTTPFactory creates outbound HTTP clients
type HTTPFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewHTTPFactory creates a new HTTP client factory
func NewHTTPFactory(cfg *config.Config, logger *zap.Logger) *HTTPFactory {
	return &HTTPFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateClient creates a plain client. A zero timeout leaves deadlines to
// the caller's context.
func (f *HTTPFactory) CreateClient(timeout time.Duration) *http.Client {
	transport := http.DefaultTransport
	if f.cfg.GetHTTP().Trace {
		transport = tracehttp.Wrap(transport, f.logger.Named("http"))
	}
	return &http.Client{Transport: transport, Timeout: timeout}
}

// CreateMailboxClient creates a client that presents the configured bearer
// token on every request
func (f *HTTPFactory) CreateMailboxClient(ctx context.Context, token string, timeout time.Duration) *http.Client {
	base := f.CreateClient(timeout)
	if token == "" {
		f.logger.Warn("No mailbox access token configured")
		return base
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}))
	client.Timeout = timeout
	return client
}
