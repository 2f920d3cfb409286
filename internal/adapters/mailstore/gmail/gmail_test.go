package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"

	"github.com/HH-Alex-Ma/xarl-email-agent/internal/core"
)

func newTestClient(t *testing.T, routes map[string]interface{}) *Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Path
		if format := r.URL.Query().Get("format"); format != "" {
			key += "?format=" + format
		}
		body, ok := routes[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error": map[string]interface{}{"code": 404, "message": "Requested entity was not found."},
			})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(context.Background(), server.Client(), server.URL+"/", zap.NewNop())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func b64(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func TestListRecentOrdersNewestFirst(t *testing.T) {
	client := newTestClient(t, map[string]interface{}{
		"/gmail/v1/users/me/messages": map[string]interface{}{
			"messages": []map[string]string{{"id": "old"}, {"id": "new"}},
		},
		"/gmail/v1/users/me/messages/old?format=metadata": map[string]interface{}{
			"id": "old", "internalDate": "1717405200000",
			"payload": map[string]interface{}{"headers": []map[string]string{
				{"name": "Subject", "value": "Older"}, {"name": "From", "value": "a@example.com"},
			}},
		},
		"/gmail/v1/users/me/messages/new?format=metadata": map[string]interface{}{
			"id": "new", "internalDate": "1717408800000",
			"payload": map[string]interface{}{"headers": []map[string]string{
				{"name": "subject", "value": "Newer"}, {"name": "from", "value": "b@example.com"},
			}},
		},
	})

	got, err := client.ListRecent(context.Background(), 50)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	want := []core.MessageSummary{
		{ID: "new", Subject: "Newer", From: "b@example.com", ReceivedAt: time.UnixMilli(1717408800000).UTC()},
		{ID: "old", Subject: "Older", From: "a@example.com", ReceivedAt: time.UnixMilli(1717405200000).UTC()},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ListRecent mismatch (-want +got):\n%s", diff)
	}
}

func TestFetchRaw(t *testing.T) {
	client := newTestClient(t, map[string]interface{}{
		"/gmail/v1/users/me/messages/m1?format=raw": map[string]string{
			"id": "m1", "raw": b64("Subject: hi\r\n\r\nbody?>"),
		},
	})

	raw, err := client.FetchRaw(context.Background(), "m1")
	if err != nil {
		t.Fatalf("FetchRaw: %v", err)
	}
	if string(raw) != "Subject: hi\r\n\r\nbody?>" {
		t.Errorf("raw = %q", raw)
	}
}

func TestFetchRawNotFound(t *testing.T) {
	client := newTestClient(t, map[string]interface{}{})

	_, err := client.FetchRaw(context.Background(), "missing")
	var transportErr *core.TransportError
	if !errors.As(err, &transportErr) || transportErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 TransportError, got %v", err)
	}
}

func TestFetchAttachments(t *testing.T) {
	client := newTestClient(t, map[string]interface{}{
		"/gmail/v1/users/me/messages/m1?format=full": map[string]interface{}{
			"id": "m1",
			"payload": map[string]interface{}{
				"mimeType": "multipart/mixed",
				"parts": []map[string]interface{}{
					{"mimeType": "text/plain", "body": map[string]string{"data": b64("hello")}},
					{"filename": "inline.txt", "body": map[string]string{"data": b64("inline")}},
					{"filename": "big.pdf", "body": map[string]string{"attachmentId": "att1"}},
					{"filename": "lost.bin", "body": map[string]string{"attachmentId": "att2"}},
				},
			},
		},
		"/gmail/v1/users/me/messages/m1/attachments/att1": map[string]string{"data": b64("%PDF-1.7")},
	})

	got, err := client.FetchAttachments(context.Background(), "m1")
	if err != nil {
		t.Fatalf("FetchAttachments: %v", err)
	}
	want := []core.Attachment{
		{Name: "inline.txt", Data: []byte("inline"), Fetched: true},
		{Name: "big.pdf", Data: []byte("%PDF-1.7"), Fetched: true},
		{Name: "lost.bin"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FetchAttachments mismatch (-want +got):\n%s", diff)
	}
}

func TestListRecentSkipsMessagesWithoutMetadata(t *testing.T) {
	client := newTestClient(t, map[string]interface{}{
		"/gmail/v1/users/me/messages": map[string]interface{}{
			"messages": []map[string]string{{"id": "good"}, {"id": "gone"}},
		},
		"/gmail/v1/users/me/messages/good?format=metadata": map[string]interface{}{
			"id": "good", "internalDate": "1717405200000",
			"payload": map[string]interface{}{"headers": []map[string]string{
				{"name": "Subject", "value": "Still here"},
			}},
		},
	})

	got, err := client.ListRecent(context.Background(), 50)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	want := []core.MessageSummary{
		{ID: "good", Subject: "Still here", ReceivedAt: time.UnixMilli(1717405200000).UTC()},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ListRecent mismatch (-want +got):\n%s", diff)
	}
}

func TestFetchRawQuotaExceededFailsOnce(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]interface{}{"code": 429, "message": "Quota exceeded"},
		})
	}))
	defer server.Close()

	client, err := NewClient(context.Background(), server.Client(), server.URL+"/", zap.NewNop())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = client.FetchRaw(ctx, "m1")

	var transportErr *core.TransportError
	if !errors.As(err, &transportErr) || transportErr.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429 TransportError, got %v", err)
	}
	if n := requests.Load(); n != 1 {
		t.Errorf("requests = %d, want 1", n)
	}
}
