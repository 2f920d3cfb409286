package core

import (
	"context"
	"time"
)

// MessageStore is the remote mailbox
type MessageStore interface {
	// ListRecent returns up to limit messages, newest first
	ListRecent(ctx context.Context, limit int) ([]MessageSummary, error)

	// FetchRaw returns the complete raw RFC 5322 document
	FetchRaw(ctx context.Context, id string) ([]byte, error)

	// FetchAttachments returns every attachment of a message
	FetchAttachments(ctx context.Context, id string) ([]Attachment, error)
}

// CursorStore persists the instant of the last successful poll
type CursorStore interface {
	Read() (time.Time, bool)
	Write(now time.Time) error
}

// Renderer turns a raw mail document into a PDF file
type Renderer interface {
	Render(raw []byte, attachmentNames []string, outPath string) error
}

// WorkflowClient talks to the workflow engine
type WorkflowClient interface {
	// Upload sends a local file and returns its upload id
	Upload(ctx context.Context, path string) (string, error)

	// Run triggers a blocking workflow run
	Run(ctx context.Context, req *RunRequest) (*WorkflowResponse, error)
}

// Notifier delivers composed notifications to a chat endpoint
type Notifier interface {
	// Mode names the delivery mode
	Mode() string

	// RequiresTarget reports whether a notification without a resolved
	// recipient must be dropped
	RequiresTarget() bool

	// Notify delivers one notification
	Notify(ctx context.Context, n Notification) (*DispatchReport, error)
}

// SubmissionLedger keeps a history of submission attempts
type SubmissionLedger interface {
	// Record stores a submission attempt
	Record(ctx context.Context, rec *SubmissionRecord) error

	// List returns the most recent attempts, newest first
	List(ctx context.Context, limit int) ([]SubmissionRecord, error)

	// Cleanup removes entries past the retention window
	Cleanup(ctx context.Context) error
}

// SenderFilter decides which senders are left untouched in the mailbox
type SenderFilter interface {
	IsIgnored(from string) bool
}
