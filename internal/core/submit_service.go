package core

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/HH-Alex-Ma/xarl-email-agent/internal/jsonvalue"
	"github.com/HH-Alex-Ma/xarl-email-agent/internal/staging"
)

// SubmitService sends freshly staged folders to the workflow engine and
// relays its verdict to the notifier
type SubmitService struct {
	layout   *staging.Layout
	workflow WorkflowClient
	notifier Notifier
	ledger   SubmissionLedger
	logger   *zap.Logger
	now      func() time.Time
}

// NewSubmitService creates a new submit service. notifier and ledger may
// be nil.
func NewSubmitService(
	layout *staging.Layout,
	workflow WorkflowClient,
	notifier Notifier,
	ledger SubmissionLedger,
	logger *zap.Logger,
) *SubmitService {
	return &SubmitService{
		layout:   layout,
		workflow: workflow,
		notifier: notifier,
		ledger:   ledger,
		logger:   logger,
		now:      time.Now,
	}
}

// ProcessStaged submits folders whose artifacts were written after the
// start of this call
func (s *SubmitService) ProcessStaged(ctx context.Context) ([]ProcessResult, error) {
	return s.ProcessSince(ctx, s.now())
}

// ProcessSince submits every staged folder holding a PDF modified strictly
// after marker. Per-folder failures become error results.
func (s *SubmitService) ProcessSince(ctx context.Context, marker time.Time) ([]ProcessResult, error) {
	groups, err := s.layout.Scan(marker)
	if err != nil {
		s.logger.Warn("Problems while scanning staged folders", zap.Error(err))
	}
	s.logger.Info("Submitting staged folders",
		zap.Int("folders", len(groups)),
		zap.Time("marker", marker))

	results := make([]ProcessResult, 0, len(groups))
	for _, group := range groups {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		results = append(results, s.submit(ctx, group))
	}
	return results, nil
}

func (s *SubmitService) submit(ctx context.Context, group staging.Group) ProcessResult {
	record := &SubmissionRecord{FolderName: group.FolderName}
	defer s.record(ctx, record)

	email := s.upload(ctx, group.EmailPath)
	if email != nil {
		record.EmailUploadID = email.UploadFileID
	}

	attachments := make([]InputFile, 0, len(group.Attachments))
	for _, path := range group.Attachments {
		if input := s.upload(ctx, path); input != nil {
			attachments = append(attachments, *input)
		}
	}
	record.AttachmentUploads = len(attachments)

	resp, err := s.workflow.Run(ctx, &RunRequest{Email: email, Attachments: attachments})
	if err != nil {
		s.logger.Error("Workflow run failed",
			zap.String("folder", group.FolderName),
			zap.Error(err))
		record.Error = err.Error()
		return ProcessResult{
			FolderName:       group.FolderName,
			WorkflowStatus:   0,
			WorkflowResponse: jsonvalue.EmptyObject(),
			Error:            err.Error(),
		}
	}
	record.WorkflowStatus = resp.StatusCode

	result := ProcessResult{
		FolderName:       group.FolderName,
		WorkflowStatus:   resp.StatusCode,
		WorkflowResponse: resp.Body,
	}

	if _, err := s.layout.WriteResponse(group.FolderName, resp.Record()); err != nil {
		s.logger.Error("Failed to save workflow response",
			zap.String("folder", group.FolderName),
			zap.Error(err))
		result.Error = err.Error()
		record.Error = err.Error()
	}

	record.Dispatched = s.dispatch(ctx, resp.Body, &result)
	return result
}

func (s *SubmitService) upload(ctx context.Context, path string) *InputFile {
	id, err := s.workflow.Upload(ctx, path)
	if err != nil {
		s.logger.Error("Failed to upload file", zap.String("path", path), zap.Error(err))
		return nil
	}
	if id == "" {
		s.logger.Error("Upload returned no file id", zap.String("path", path))
		return nil
	}
	return &InputFile{
		TransferMethod: "local_file",
		UploadFileID:   id,
		Type:           ClassifyFile(path),
		SourcePath:     path,
	}
}

func (s *SubmitService) dispatch(ctx context.Context, body jsonvalue.Value, result *ProcessResult) bool {
	if s.notifier == nil {
		return false
	}

	n := ComposeNotification(body)
	if n.Content == "" {
		s.logger.Debug("Workflow produced nothing to notify",
			zap.String("folder", result.FolderName))
		return false
	}
	if s.notifier.RequiresTarget() && n.Target == "" {
		s.logger.Info("Skipping notification without recipient",
			zap.String("folder", result.FolderName),
			zap.String("mode", s.notifier.Mode()))
		return false
	}

	report, err := s.notifier.Notify(ctx, n)
	if err != nil {
		s.logger.Error("Failed to send notification",
			zap.String("folder", result.FolderName),
			zap.String("mode", s.notifier.Mode()),
			zap.Error(err))
		failure := jsonvalue.ObjectOf(jsonvalue.Member{Key: "error", Value: jsonvalue.StringOf(err.Error())})
		result.WebhookResponse = &failure
		return false
	}

	status := report.StatusCode
	response := report.Response
	result.WebhookStatus = &status
	result.WebhookResponse = &response
	s.logger.Info("Notification sent",
		zap.String("folder", result.FolderName),
		zap.String("mode", s.notifier.Mode()),
		zap.Int("status", status))
	return true
}

func (s *SubmitService) record(ctx context.Context, rec *SubmissionRecord) {
	if s.ledger == nil {
		return
	}
	rec.SubmittedAt = s.now()
	if err := s.ledger.Record(ctx, rec); err != nil {
		s.logger.Error("Failed to record submission",
			zap.String("folder", rec.FolderName),
			zap.Error(err))
	}
}

// History returns recent submission attempts, newest first
func (s *SubmitService) History(ctx context.Context, limit int) ([]SubmissionRecord, error) {
	if s.ledger == nil {
		return []SubmissionRecord{}, nil
	}
	return s.ledger.List(ctx, limit)
}
