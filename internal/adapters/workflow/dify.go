package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/HH-Alex-Ma/xarl-email-agent/internal/core"
	"github.com/HH-Alex-Ma/xarl-email-agent/internal/jsonvalue"
)

// DifyClient is a Dify implementation of the WorkflowClient interface
type DifyClient struct {
	httpClient    *http.Client
	baseURL       string
	apiKey        string
	user          string
	uploadTimeout time.Duration
	runTimeout    time.Duration
	logger        *zap.Logger
}

// NewDifyClient creates a new Dify workflow client
func NewDifyClient(
	httpClient *http.Client,
	baseURL string,
	apiKey string,
	user string,
	uploadTimeout time.Duration,
	runTimeout time.Duration,
	logger *zap.Logger,
) *DifyClient {
	return &DifyClient{
		httpClient:    httpClient,
		baseURL:       strings.TrimRight(baseURL, "/"),
		apiKey:        apiKey,
		user:          user,
		uploadTimeout: uploadTimeout,
		runTimeout:    runTimeout,
		logger:        logger,
	}
}

type runInputs struct {
	Email       *core.InputFile  `json:"email"`
	Attachments []core.InputFile `json:"attachments"`
}

type runPayload struct {
	Inputs       runInputs `json:"inputs"`
	ResponseMode string    `json:"response_mode"`
	User         string    `json:"user"`
}

// Upload sends a local file as multipart form data and returns the id the
// engine assigned to it. Only a 201 answer counts as accepted.
func (c *DifyClient) Upload(ctx context.Context, path string) (string, error) {
	body, contentType, err := uploadForm(path, c.user)
	if err != nil {
		return "", &core.UploadError{Path: path, Err: err}
	}

	ctx, cancel := withTimeout(ctx, c.uploadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/files/upload", body)
	if err != nil {
		return "", &core.UploadError{Path: path, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &core.UploadError{Path: path, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &core.UploadError{Path: path, Err: fmt.Errorf("failed to read response: %w", err)}
	}
	if resp.StatusCode != http.StatusCreated {
		return "", &core.UploadError{Path: path, StatusCode: resp.StatusCode, Body: string(raw)}
	}

	parsed, err := jsonvalue.Parse(raw)
	if err != nil {
		return "", &core.UploadError{Path: path, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	id := parsed.Get("id").Text()
	if id == "" {
		id = parsed.Get("file_id").Text()
	}
	if id == "" {
		return "", &core.UploadError{Path: path, StatusCode: resp.StatusCode, Body: string(raw)}
	}

	c.logger.Debug("Uploaded file", zap.String("path", path), zap.String("upload_id", id))
	return id, nil
}

// Run triggers a blocking workflow run. Any HTTP answer is returned; only
// transport failures are errors.
func (c *DifyClient) Run(ctx context.Context, runReq *core.RunRequest) (*core.WorkflowResponse, error) {
	attachments := runReq.Attachments
	if attachments == nil {
		attachments = []core.InputFile{}
	}
	payload, err := json.Marshal(runPayload{
		Inputs:       runInputs{Email: runReq.Email, Attachments: attachments},
		ResponseMode: "blocking",
		User:         c.user,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode workflow request: %w", err)
	}

	ctx, cancel := withTimeout(ctx, c.runTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/workflows/run", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build workflow request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("workflow run failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow response: %w", err)
	}

	c.logger.Info("Workflow run finished", zap.Int("status", resp.StatusCode))
	return DecodeResponse(resp.StatusCode, resp.Header.Get("Content-Type"), raw), nil
}

// DecodeResponse interprets an HTTP answer: JSON bodies are parsed, any
// other body is wrapped as {"text": raw}
func DecodeResponse(status int, contentType string, raw []byte) *core.WorkflowResponse {
	out := &core.WorkflowResponse{StatusCode: status, Raw: raw}
	if strings.HasPrefix(strings.ToLower(contentType), "application/json") {
		if parsed, err := jsonvalue.Parse(raw); err == nil {
			out.Body, out.JSON = parsed, true
			return out
		}
	}
	out.Body = jsonvalue.ObjectOf(jsonvalue.Member{Key: "text", Value: jsonvalue.StringOf(string(raw))})
	return out
}

func uploadForm(path, user string) (*bytes.Buffer, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	name := filepath.Base(path)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(name)))
	header.Set("Content-Type", guessMIMEType(name))
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("user", user); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &body, w.FormDataContentType(), nil
}

func guessMIMEType(name string) string {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
