package core

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// PipelineService runs a fetch pass followed by a submission of what that
// pass staged
type PipelineService struct {
	fetch  *FetchService
	submit *SubmitService
	logger *zap.Logger
	now    func() time.Time
}

// NewPipelineService creates a new pipeline service
func NewPipelineService(fetch *FetchService, submit *SubmitService, logger *zap.Logger) *PipelineService {
	return &PipelineService{
		fetch:  fetch,
		submit: submit,
		logger: logger,
		now:    time.Now,
	}
}

// Run fetches new mail and submits every folder rendered since the run
// started
func (p *PipelineService) Run(ctx context.Context) (*PipelineResult, error) {
	marker := p.now()

	fetched, err := p.fetch.FetchNew(ctx)
	if err != nil {
		return &PipelineResult{Fetch: fetched, Results: []ProcessResult{}}, err
	}
	p.logger.Info("Fetch stage complete",
		zap.Int("folders", len(fetched.Folders)),
		zap.Int("errors", len(fetched.Errors)))

	results, err := p.submit.ProcessSince(ctx, marker)
	return &PipelineResult{Fetch: fetched, Results: results}, err
}
