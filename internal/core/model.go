package core

import (
	"time"

	"github.com/HH-Alex-Ma/xarl-email-agent/internal/jsonvalue"
)

// MessageSummary is the listing entry of a remote message
type MessageSummary struct {
	ID         string
	Subject    string
	From       string
	ReceivedAt time.Time
}

// Attachment is one attachment of a remote message. Fetched is false when
// the bytes could not be retrieved; the name still counts as an attachment.
type Attachment struct {
	Name    string
	Data    []byte
	Fetched bool
}

// FetchResult is the outcome of one fetch-and-render pass
type FetchResult struct {
	Message string   `json:"message"`
	Folders []string `json:"folders"`
	Errors  []string `json:"errors,omitempty"`
}

// InputFile references an uploaded file in a workflow run
type InputFile struct {
	TransferMethod string   `json:"transfer_method"`
	UploadFileID   string   `json:"upload_file_id"`
	Type           FileKind `json:"type"`
	SourcePath     string   `json:"source_path"`
}

// RunRequest carries the uploaded files of one staged folder
type RunRequest struct {
	Email       *InputFile
	Attachments []InputFile
}

// WorkflowResponse is the answer of a blocking workflow run
type WorkflowResponse struct {
	StatusCode int
	Body       jsonvalue.Value
	Raw        []byte
	JSON       bool
}

// Record returns the bytes persisted as the submission record: indented
// JSON for JSON answers, the raw body otherwise
func (r *WorkflowResponse) Record() []byte {
	if r.JSON {
		return []byte(r.Body.Pretty())
	}
	return r.Raw
}

// Notification is the chat message composed from workflow outputs
type Notification struct {
	Target  string
	Content string
}

// DispatchReport is what the chat endpoint answered
type DispatchReport struct {
	StatusCode int
	Response   jsonvalue.Value
}

// ProcessResult is the per-folder result of a submission pass
type ProcessResult struct {
	FolderName       string           `json:"folder_name"`
	WorkflowStatus   int              `json:"workflow_status"`
	WorkflowResponse jsonvalue.Value  `json:"workflow_response"`
	WebhookStatus    *int             `json:"webhook_status,omitempty"`
	WebhookResponse  *jsonvalue.Value `json:"webhook_response,omitempty"`
	Error            string           `json:"error,omitempty"`
}

// PipelineResult combines a fetch pass with the submission that followed it
type PipelineResult struct {
	Fetch   *FetchResult    `json:"fetch"`
	Results []ProcessResult `json:"results"`
}

// SubmissionRecord is a ledger entry for one submission attempt
type SubmissionRecord struct {
	FolderName        string    `json:"folder_name"`
	WorkflowStatus    int       `json:"workflow_status"`
	EmailUploadID     string    `json:"email_upload_id,omitempty"`
	AttachmentUploads int       `json:"attachment_uploads"`
	Dispatched        bool      `json:"dispatched"`
	Error             string    `json:"error,omitempty"`
	SubmittedAt       time.Time `json:"submitted_at"`
}
