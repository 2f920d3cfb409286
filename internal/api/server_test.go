package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/HH-Alex-Ma/xarl-email-agent/internal/adapters/ledger"
	"github.com/HH-Alex-Ma/xarl-email-agent/internal/adapters/notify"
	"github.com/HH-Alex-Ma/xarl-email-agent/internal/adapters/renderer"
	"github.com/HH-Alex-Ma/xarl-email-agent/internal/adapters/workflow"
	"github.com/HH-Alex-Ma/xarl-email-agent/internal/config"
	"github.com/HH-Alex-Ma/xarl-email-agent/internal/core"
	"github.com/HH-Alex-Ma/xarl-email-agent/internal/cursor"
	"github.com/HH-Alex-Ma/xarl-email-agent/internal/staging"
	"go.uber.org/zap"
)

type stubStore struct {
	summaries []core.MessageSummary
	raw       map[string][]byte
}

func (s *stubStore) ListRecent(ctx context.Context, limit int) ([]core.MessageSummary, error) {
	return s.summaries, nil
}

func (s *stubStore) FetchRaw(ctx context.Context, id string) ([]byte, error) {
	raw, ok := s.raw[id]
	if !ok {
		return nil, fmt.Errorf("no message %s", id)
	}
	return raw, nil
}

func (s *stubStore) FetchAttachments(ctx context.Context, id string) ([]core.Attachment, error) {
	return nil, nil
}

type harness struct {
	server   *Server
	mu       sync.Mutex
	notified []string
}

func (h *harness) notifications() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.notified...)
}

func newHarness(t *testing.T, store core.MessageStore) *harness {
	t.Helper()
	logger := zap.NewNop()
	h := &harness{}

	engine := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/files/upload":
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			fmt.Fprint(w, `{"id":"file-1"}`)
		case "/v1/workflows/run":
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"data":{"outputs":{"notification":"Invoice received","result":"approved"}}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(engine.Close)

	chat := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Text struct {
				Content string `json:"content"`
			} `json:"text"`
		}
		_ = json.NewDecoder(r.Body).Decode(&payload)
		h.mu.Lock()
		h.notified = append(h.notified, payload.Text.Content)
		h.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"errcode":0,"errmsg":"ok"}`)
	}))
	t.Cleanup(chat.Close)

	root := t.TempDir()
	layout := staging.NewLayout(
		filepath.Join(root, "downloaded_emails"),
		filepath.Join(root, "processed_emails"),
		filepath.Join(root, "workflow_responses"),
	)
	ledg := ledger.NewMemoryLedger(logger, time.Hour, time.Hour)
	t.Cleanup(ledg.Stop)

	fetch := core.NewFetchService(
		store,
		cursor.NewFileCursor(filepath.Join(root, "run_log.txt"), logger),
		renderer.NewPDFRenderer(filepath.Join(root, "missing.ttf"), "DejaVu", logger),
		layout,
		nil,
		logger,
		core.FetchOptions{ListLimit: 50, MaxMessages: 10},
	)
	submit := core.NewSubmitService(
		layout,
		workflow.NewDifyClient(engine.Client(), engine.URL+"/v1", "app-key", "tester", time.Second, time.Second, logger),
		notify.NewWebhookNotifier(chat.Client(), chat.URL, time.Second, logger),
		ledg,
		logger,
	)

	cfg := config.NewFromViper(config.NewEmptyViper())
	cfg.Set("server.listen_address", "127.0.0.1:0")
	server, err := NewServer(cfg, fetch, submit, core.NewPipelineService(fetch, submit, logger), logger)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	h.server = server
	return h
}

func (h *harness) do(t *testing.T, method, path string, out interface{}) int {
	t.Helper()
	rec := httptest.NewRecorder()
	h.server.Handler().ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	if out != nil {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("%s %s: decoding %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec.Code
}

func invoiceStore() *stubStore {
	raw := strings.Join([]string{
		"Date: Mon, 2 Jun 2025 09:30:00 +0800",
		"From: Billing <billing@vendor.example>",
		"To: ap@corp.example",
		"Subject: Invoice 42",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"Please find the invoice details below.",
	}, "\r\n")
	return &stubStore{
		summaries: []core.MessageSummary{{
			ID:         "m1",
			Subject:    "Invoice 42",
			From:       "billing@vendor.example",
			ReceivedAt: time.Now(),
		}},
		raw: map[string][]byte{"m1": []byte(raw)},
	}
}

func TestHealth(t *testing.T) {
	h := newHarness(t, &stubStore{})
	var body map[string]string
	if code := h.do(t, http.MethodGet, "/health", &body); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestGetEmailsWithNothingNew(t *testing.T) {
	h := newHarness(t, &stubStore{})
	var result core.FetchResult
	if code := h.do(t, http.MethodPost, "/get_emails", &result); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if result.Message != core.NoNewMessages || len(result.Folders) != 0 {
		t.Errorf("unexpected result %+v", result)
	}
}

func TestProcessEmailsRoutes(t *testing.T) {
	h := newHarness(t, &stubStore{})
	for _, path := range []string{"/process_emails", "/process-emails"} {
		var results []map[string]interface{}
		if code := h.do(t, http.MethodPost, path, &results); code != http.StatusOK {
			t.Fatalf("%s: status = %d", path, code)
		}
		if results == nil || len(results) != 0 {
			t.Errorf("%s: want an empty list, got %v", path, results)
		}
	}
}

func TestRunFetchesSubmitsAndNotifies(t *testing.T) {
	h := newHarness(t, invoiceStore())

	var result struct {
		Fetch   core.FetchResult         `json:"fetch"`
		Results []map[string]interface{} `json:"results"`
	}
	if code := h.do(t, http.MethodPost, "/run", &result); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}

	if len(result.Fetch.Folders) != 1 {
		t.Fatalf("folders = %v", result.Fetch.Folders)
	}
	if len(result.Results) != 1 {
		t.Fatalf("results = %v", result.Results)
	}
	item := result.Results[0]
	if item["folder_name"] != result.Fetch.Folders[0] {
		t.Errorf("folder_name = %v, want %s", item["folder_name"], result.Fetch.Folders[0])
	}
	if item["workflow_status"] != float64(200) || item["webhook_status"] != float64(200) {
		t.Errorf("unexpected statuses in %v", item)
	}

	got := h.notifications()
	if len(got) != 1 || got[0] != "Invoice received\n\napproved" {
		t.Errorf("notifications = %q", got)
	}

	var history []core.SubmissionRecord
	if code := h.do(t, http.MethodGet, "/submissions?limit=5", &history); code != http.StatusOK {
		t.Fatalf("submissions status = %d", code)
	}
	if len(history) != 1 || !history[0].Dispatched || history[0].EmailUploadID != "file-1" {
		t.Errorf("history = %+v", history)
	}
}

func TestSubmissionsRejectsBadLimit(t *testing.T) {
	h := newHarness(t, &stubStore{})
	for _, limit := range []string{"zero", "0", "-3"} {
		if code := h.do(t, http.MethodGet, "/submissions?limit="+limit, nil); code != http.StatusBadRequest {
			t.Errorf("limit %q: status = %d", limit, code)
		}
	}
}

func TestStartAndStop(t *testing.T) {
	h := newHarness(t, &stubStore{})
	if err := h.server.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	resp, err := http.Get("http://" + h.server.Addr() + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}

	if err := h.server.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if _, err := http.Get("http://" + h.server.Addr() + "/health"); err == nil {
		t.Error("expected the server to refuse connections after Stop")
	}
}
