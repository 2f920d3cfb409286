package factory

import (
	"fmt"

	"github.com/HH-Alex-Ma/xarl-email-agent/internal/adapters/renderer"
	"github.com/HH-Alex-Ma/xarl-email-agent/internal/adapters/workflow"
	"github.com/HH-Alex-Ma/xarl-email-agent/internal/config"
	"github.com/HH-Alex-Ma/xarl-email-agent/internal/core"
	"go.uber.org/zap"
)

// WorkflowFactory creates the workflow engine client and the PDF renderer
type WorkflowFactory struct {
	cfg    *config.Config
	http   *HTTPFactory
	logger *zap.Logger
}

// NewWorkflowFactory creates a new workflow factory
func NewWorkflowFactory(cfg *config.Config, http *HTTPFactory, logger *zap.Logger) *WorkflowFactory {
	return &WorkflowFactory{
		cfg:    cfg,
		http:   http,
		logger: logger,
	}
}

// CreateWorkflowClient creates the Dify workflow client
func (f *WorkflowFactory) CreateWorkflowClient() (core.WorkflowClient, error) {
	wc, err := f.cfg.GetWorkflow()
	if err != nil {
		return nil, fmt.Errorf("invalid workflow configuration: %w", err)
	}
	if wc.BaseURL == "" {
		return nil, fmt.Errorf("workflow.base_url is required")
	}
	if wc.APIKey == "" {
		f.logger.Warn("No workflow API key configured")
	}

	return workflow.NewDifyClient(
		f.http.CreateClient(0),
		wc.BaseURL,
		wc.APIKey,
		wc.User,
		wc.UploadTimeout,
		wc.RunTimeout,
		f.logger.Named("workflow"),
	), nil
}

// CreateRenderer creates the PDF renderer
func (f *WorkflowFactory) CreateRenderer() core.Renderer {
	rc := f.cfg.GetRenderer()
	return renderer.NewPDFRenderer(rc.FontPath, rc.FontFamily, f.logger.Named("renderer"))
}
