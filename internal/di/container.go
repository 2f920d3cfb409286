package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/HH-Alex-Ma/xarl-email-agent/internal/api"
	"github.com/HH-Alex-Ma/xarl-email-agent/internal/config"
	"github.com/HH-Alex-Ma/xarl-email-agent/internal/core"
	"github.com/HH-Alex-Ma/xarl-email-agent/internal/cursor"
	"github.com/HH-Alex-Ma/xarl-email-agent/internal/factory"
	"github.com/HH-Alex-Ma/xarl-email-agent/internal/logging"
	"github.com/HH-Alex-Ma/xarl-email-agent/internal/ports"
	"github.com/HH-Alex-Ma/xarl-email-agent/internal/senderfilter"
	"github.com/HH-Alex-Ma/xarl-email-agent/internal/staging"
)

// BuildContainer creates and configures a dependency injection container
// for the HTTP service
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	if err := provideServices(container); err != nil {
		return nil, err
	}

	// Register HTTP server
	if err := container.Provide(func(
		cfg *config.Config,
		fetch *core.FetchService,
		submit *core.SubmitService,
		pipeline *core.PipelineService,
		logger *zap.Logger,
	) (ports.Server, error) {
		return api.NewServer(cfg, fetch, submit, pipeline, logger)
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// provideServices registers everything below the configuration and the
// logger: factories, adapters and the workflow services
func provideServices(container *dig.Container) error {
	// Register factories
	for _, ctor := range []interface{}{
		factory.NewHTTPFactory,
		factory.NewMailStoreFactory,
		factory.NewNotifierFactory,
		factory.NewLedgerFactory,
		factory.NewWorkflowFactory,
	} {
		if err := container.Provide(ctor); err != nil {
			return err
		}
	}

	// Register adapters
	if err := container.Provide(func(f *factory.MailStoreFactory) (core.MessageStore, error) {
		return f.CreateMessageStore()
	}); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.NotifierFactory) (core.Notifier, error) {
		return f.CreateNotifier()
	}); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.LedgerFactory) (core.SubmissionLedger, error) {
		return f.CreateLedger()
	}); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.WorkflowFactory) (core.WorkflowClient, error) {
		return f.CreateWorkflowClient()
	}); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.WorkflowFactory) core.Renderer {
		return f.CreateRenderer()
	}); err != nil {
		return err
	}

	// Register staging layout and poll cursor
	if err := container.Provide(func(cfg *config.Config) *staging.Layout {
		sc := cfg.GetStaging()
		return staging.NewLayout(sc.DownloadDir, sc.ProcessedDir, sc.ResponsesDir)
	}); err != nil {
		return err
	}
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) core.CursorStore {
		return cursor.NewFileCursor(cfg.GetStaging().CursorFile, logger)
	}); err != nil {
		return err
	}

	// Register ignored senders and poll limits
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) (core.SenderFilter, error) {
		mc, err := cfg.GetMailbox()
		if err != nil {
			return nil, err
		}
		if len(mc.IgnoredDomains) > 0 {
			logger.Info("Loaded ignored sender domains", zap.Strings("domains", mc.IgnoredDomains))
		}
		return senderfilter.NewChecker(mc.IgnoredDomains, logger), nil
	}); err != nil {
		return err
	}
	if err := container.Provide(func(cfg *config.Config) (core.FetchOptions, error) {
		mc, err := cfg.GetMailbox()
		return core.FetchOptions{ListLimit: mc.ListLimit, MaxMessages: mc.MaxMessages}, err
	}); err != nil {
		return err
	}

	// Register workflow services
	if err := container.Provide(core.NewFetchService); err != nil {
		return err
	}
	if err := container.Provide(core.NewSubmitService); err != nil {
		return err
	}
	return container.Provide(core.NewPipelineService)
}
