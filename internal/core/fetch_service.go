package core

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/HH-Alex-Ma/xarl-email-agent/internal/mailparse"
	"github.com/HH-Alex-Ma/xarl-email-agent/internal/staging"
)

// NoNewMessages is the fetch message when the cursor filter leaves nothing
const NoNewMessages = "No new emails since last run or error fetching emails."

// FetchOptions bounds a fetch pass
type FetchOptions struct {
	ListLimit   int
	MaxMessages int
}

// FetchService polls the mailbox and stages new messages as PDFs
type FetchService struct {
	store    MessageStore
	cursor   CursorStore
	renderer Renderer
	layout   *staging.Layout
	senders  SenderFilter
	logger   *zap.Logger
	opts     FetchOptions
	now      func() time.Time
}

// NewFetchService creates a new fetch service
func NewFetchService(
	store MessageStore,
	cursor CursorStore,
	renderer Renderer,
	layout *staging.Layout,
	senders SenderFilter,
	logger *zap.Logger,
	opts FetchOptions,
) *FetchService {
	if opts.ListLimit <= 0 {
		opts.ListLimit = 50
	}
	return &FetchService{
		store:    store,
		cursor:   cursor,
		renderer: renderer,
		layout:   layout,
		senders:  senders,
		logger:   logger,
		opts:     opts,
		now:      time.Now,
	}
}

// FetchNew lists recent messages, keeps those received after the cursor
// and stages each one: raw document, attachments and rendered PDF. A
// failure on one message is reported and does not stop its siblings.
func (s *FetchService) FetchNew(ctx context.Context) (*FetchResult, error) {
	since, hasCursor := s.cursor.Read()
	if hasCursor {
		s.logger.Info("Polling mailbox", zap.Time("since", since))
	} else {
		s.logger.Info("Polling mailbox without cursor")
	}

	summaries, err := s.store.ListRecent(ctx, s.opts.ListLimit)
	if err != nil {
		s.logger.Error("Failed to list messages", zap.Error(err))
		summaries = nil
	}

	fresh := s.selectNew(summaries, since, hasCursor)
	if len(fresh) == 0 {
		return &FetchResult{Message: NoNewMessages, Folders: []string{}}, nil
	}

	if err := s.cursor.Write(s.now()); err != nil {
		s.logger.Error("Failed to update poll cursor", zap.Error(err))
	}

	if s.opts.MaxMessages > 0 && len(fresh) > s.opts.MaxMessages {
		s.logger.Info("Limiting fetch pass",
			zap.Int("new", len(fresh)),
			zap.Int("max", s.opts.MaxMessages))
		fresh = fresh[:s.opts.MaxMessages]
	}

	result := &FetchResult{Folders: []string{}}
	namer := staging.NewNamer()
	for _, summary := range fresh {
		if err := ctx.Err(); err != nil {
			result.Message = processedMessage(len(result.Folders))
			return result, err
		}

		folder, err := s.stage(ctx, summary, namer)
		if err != nil {
			s.logger.Error("Failed to stage message",
				zap.String("id", summary.ID),
				zap.String("subject", summary.Subject),
				zap.Error(err))
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", summary.ID, err))
			continue
		}

		s.logger.Info("Staged message",
			zap.String("id", summary.ID),
			zap.String("folder", folder))
		result.Folders = append(result.Folders, folder)
	}

	result.Message = processedMessage(len(result.Folders))
	return result, nil
}

func processedMessage(n int) string {
	return fmt.Sprintf("Processed %d new emails.", n)
}

func (s *FetchService) selectNew(summaries []MessageSummary, since time.Time, hasCursor bool) []MessageSummary {
	fresh := make([]MessageSummary, 0, len(summaries))
	for _, summary := range summaries {
		if hasCursor && !summary.ReceivedAt.IsZero() && !summary.ReceivedAt.After(since) {
			continue
		}
		if s.senders != nil && s.senders.IsIgnored(summary.From) {
			s.logger.Info("Skipping message from ignored sender",
				zap.String("id", summary.ID),
				zap.String("sender", summary.From))
			continue
		}
		fresh = append(fresh, summary)
	}
	return fresh
}

func (s *FetchService) stage(ctx context.Context, summary MessageSummary, namer *staging.Namer) (string, error) {
	raw, err := s.store.FetchRaw(ctx, summary.ID)
	if err != nil {
		return "", fmt.Errorf("failed to download message: %w", err)
	}

	mail := mailparse.Parse(raw)
	name := namer.Allocate(staging.FolderName(
		mail.Get("Date"), mail.Get("From"), mail.Get("To"), mail.Get("Subject")))

	if err := s.layout.Prepare(name); err != nil {
		return "", err
	}
	if _, err := s.layout.WriteEML(name, raw); err != nil {
		return "", err
	}

	attachments, err := s.store.FetchAttachments(ctx, summary.ID)
	if err != nil {
		s.logger.Warn("Failed to list attachments",
			zap.String("id", summary.ID),
			zap.Error(err))
		attachments = nil
	}

	names := make([]string, 0, len(attachments))
	for _, att := range attachments {
		names = append(names, att.Name)
		if !att.Fetched {
			s.logger.Warn("Attachment content unavailable",
				zap.String("id", summary.ID),
				zap.String("attachment", att.Name))
			continue
		}
		if _, err := s.layout.WriteAttachment(name, att.Name, att.Data); err != nil {
			s.logger.Error("Failed to save attachment",
				zap.String("attachment", att.Name),
				zap.Error(err))
		}
	}

	if err := s.renderer.Render(raw, names, s.layout.PDFPath(name)); err != nil {
		return "", fmt.Errorf("failed to render PDF: %w", err)
	}
	return name, nil
}
