package graph

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"

	"github.com/HH-Alex-Ma/xarl-email-agent/internal/core"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.Client(), server.URL+"/v1.0", zap.NewNop())
}

func TestListRecent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1.0/me/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("$top"); got != "50" {
			t.Errorf("$top = %q", got)
		}
		if got := r.URL.Query().Get("$orderby"); got != "receivedDateTime desc" {
			t.Errorf("$orderby = %q", got)
		}
		io.WriteString(w, `{"value":[
			{"id":"AAMk1","subject":"Invoice","receivedDateTime":"2024-06-03T10:15:00Z",
			 "from":{"emailAddress":{"name":"Alice","address":"alice@example.com"}}},
			{"id":"AAMk2","subject":"No date"}
		]}`)
	})

	got, err := client.ListRecent(context.Background(), 50)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	want := []core.MessageSummary{
		{ID: "AAMk1", Subject: "Invoice", From: "alice@example.com",
			ReceivedAt: time.Date(2024, 6, 3, 10, 15, 0, 0, time.UTC)},
		{ID: "AAMk2", Subject: "No date"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ListRecent mismatch (-want +got):\n%s", diff)
	}
}

func TestListRecentNonSuccess(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":"InvalidAuthenticationToken"}}`, http.StatusUnauthorized)
	})

	_, err := client.ListRecent(context.Background(), 50)
	var transportErr *core.TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if transportErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d", transportErr.StatusCode)
	}
}

func TestFetchRaw(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1.0/me/messages/AAMk1/$value" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		io.WriteString(w, "Subject: hi\r\n\r\nbody")
	})

	raw, err := client.FetchRaw(context.Background(), "AAMk1")
	if err != nil {
		t.Fatalf("FetchRaw: %v", err)
	}
	if string(raw) != "Subject: hi\r\n\r\nbody" {
		t.Errorf("raw = %q", raw)
	}
}

func TestFetchAttachments(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1.0/me/messages/m1/attachments":
			io.WriteString(w, `{"value":[
				{"id":"a1","name":"report.pdf","@odata.mediaContentType":"application/pdf"},
				{"id":"a2","name":"note.txt","contentBytes":"aGVsbG8="},
				{"id":"a3","name":"meeting","@odata.type":"#microsoft.graph.itemAttachment"},
				{"id":"a4","name":"gone.bin","@odata.mediaContentType":"application/octet-stream"}
			]}`)
		case "/v1.0/me/messages/m1/attachments/a1/$value":
			io.WriteString(w, "%PDF-1.4")
		case "/v1.0/me/messages/m1/attachments/a4/$value":
			http.NotFound(w, r)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
		}
	})

	got, err := client.FetchAttachments(context.Background(), "m1")
	if err != nil {
		t.Fatalf("FetchAttachments: %v", err)
	}
	want := []core.Attachment{
		{Name: "report.pdf", Data: []byte("%PDF-1.4"), Fetched: true},
		{Name: "note.txt", Data: []byte("hello"), Fetched: true},
		{Name: "meeting"},
		{Name: "gone.bin"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FetchAttachments mismatch (-want +got):\n%s", diff)
	}
}
