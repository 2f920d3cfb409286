package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/HH-Alex-Ma/xarl-email-agent/internal/jsonvalue"
)

type fakeStore struct {
	summaries   []MessageSummary
	raw         map[string][]byte
	attachments map[string][]Attachment
	listErr     error
	fetched     []string
}

func (f *fakeStore) ListRecent(ctx context.Context, limit int) ([]MessageSummary, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	if len(f.summaries) > limit {
		return f.summaries[:limit], nil
	}
	return f.summaries, nil
}

func (f *fakeStore) FetchRaw(ctx context.Context, id string) ([]byte, error) {
	f.fetched = append(f.fetched, id)
	raw, ok := f.raw[id]
	if !ok {
		return nil, fmt.Errorf("message %s not found", id)
	}
	return raw, nil
}

func (f *fakeStore) FetchAttachments(ctx context.Context, id string) ([]Attachment, error) {
	return f.attachments[id], nil
}

type fakeCursor struct {
	at      time.Time
	set     bool
	written []time.Time
}

func (c *fakeCursor) Read() (time.Time, bool) {
	return c.at, c.set
}

func (c *fakeCursor) Write(now time.Time) error {
	c.written = append(c.written, now)
	c.at, c.set = now, true
	return nil
}

type fakeRenderer struct {
	names map[string][]string
}

func (r *fakeRenderer) Render(raw []byte, attachmentNames []string, outPath string) error {
	if r.names == nil {
		r.names = map[string][]string{}
	}
	r.names[filepath.Base(outPath)] = attachmentNames
	return os.WriteFile(outPath, []byte("%PDF-1.3 fake"), 0o644)
}

type fakeWorkflow struct {
	mu        sync.Mutex
	uploads   []string
	rejected  map[string]bool
	runs      []*RunRequest
	response  *WorkflowResponse
	runErr    error
	uploadSeq int
}

func (w *fakeWorkflow) Upload(ctx context.Context, path string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.uploads = append(w.uploads, path)
	if w.rejected[filepath.Base(path)] {
		return "", &UploadError{Path: path, StatusCode: 400, Body: "rejected"}
	}
	w.uploadSeq++
	return fmt.Sprintf("file-%d", w.uploadSeq), nil
}

func (w *fakeWorkflow) Run(ctx context.Context, req *RunRequest) (*WorkflowResponse, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.runs = append(w.runs, req)
	if w.runErr != nil {
		return nil, w.runErr
	}
	return w.response, nil
}

type fakeNotifier struct {
	requiresTarget bool
	err            error
	sent           []Notification
}

func (n *fakeNotifier) Mode() string {
	if n.requiresTarget {
		return "wecom"
	}
	return "webhook"
}

func (n *fakeNotifier) RequiresTarget() bool {
	return n.requiresTarget
}

func (n *fakeNotifier) Notify(ctx context.Context, msg Notification) (*DispatchReport, error) {
	if n.err != nil {
		return nil, n.err
	}
	n.sent = append(n.sent, msg)
	return &DispatchReport{
		StatusCode: 200,
		Response:   jsonvalue.ObjectOf(jsonvalue.Member{Key: "errcode", Value: mustParse("0")}),
	}, nil
}

type fakeLedger struct {
	records []SubmissionRecord
}

func (l *fakeLedger) Record(ctx context.Context, rec *SubmissionRecord) error {
	l.records = append(l.records, *rec)
	return nil
}

func (l *fakeLedger) List(ctx context.Context, limit int) ([]SubmissionRecord, error) {
	return l.records, nil
}

func (l *fakeLedger) Cleanup(ctx context.Context) error {
	return nil
}

func mustParse(s string) jsonvalue.Value {
	v, err := jsonvalue.Parse([]byte(s))
	if err != nil {
		panic(err)
	}
	return v
}

func rawMail(date, from, to, subject, body string) []byte {
	lines := []string{
		"Date: " + date,
		"From: " + from,
		"To: " + to,
		"Subject: " + subject,
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}
	return []byte(strings.Join(lines, "\r\n"))
}
