package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/HH-Alex-Ma/xarl-email-agent/internal/core"
	"github.com/HH-Alex-Ma/xarl-email-agent/internal/jsonvalue"
)

// withTimeout bounds ctx by d; a zero or negative d adds no deadline
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

type textBody struct {
	Content string `json:"content"`
}

// postJSON sends payload and reports whatever the endpoint answered. A
// body that is not JSON is wrapped as {"text": raw}.
func postJSON(ctx context.Context, client *http.Client, url string, payload interface{}) (*core.DispatchReport, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return &core.DispatchReport{StatusCode: resp.StatusCode, Response: parseOrText(raw)}, nil
}

func parseOrText(raw []byte) jsonvalue.Value {
	if parsed, err := jsonvalue.Parse(raw); err == nil {
		return parsed
	}
	return jsonvalue.ObjectOf(jsonvalue.Member{Key: "text", Value: jsonvalue.StringOf(string(raw))})
}
