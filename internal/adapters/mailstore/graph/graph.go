package graph

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/HH-Alex-Ma/xarl-email-agent/internal/core"
)

// DefaultBaseURL is the Microsoft Graph v1.0 endpoint
const DefaultBaseURL = "https://graph.microsoft.com/v1.0"

// Client is a Microsoft Graph implementation of the MessageStore interface.
// Authentication is the job of the supplied http.Client's transport.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *zap.Logger
}

// NewClient creates a new Graph mailbox client
func NewClient(httpClient *http.Client, baseURL string, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger,
	}
}

type messageList struct {
	Value []struct {
		ID               string `json:"id"`
		Subject          string `json:"subject"`
		ReceivedDateTime string `json:"receivedDateTime"`
		From             struct {
			EmailAddress struct {
				Address string `json:"address"`
			} `json:"emailAddress"`
		} `json:"from"`
	} `json:"value"`
}

type attachmentList struct {
	Value []struct {
		ID               string  `json:"id"`
		Name             string  `json:"name"`
		MediaContentType string  `json:"@odata.mediaContentType"`
		ContentBytes     *string `json:"contentBytes"`
	} `json:"value"`
}

// ListRecent returns up to limit messages ordered by received time, newest first
func (c *Client) ListRecent(ctx context.Context, limit int) ([]core.MessageSummary, error) {
	query := "$top=" + strconv.Itoa(limit) + "&$orderby=" + url.QueryEscape("receivedDateTime desc")

	var list messageList
	if err := c.getJSON(ctx, "list messages", "/me/messages?"+query, &list); err != nil {
		return nil, err
	}

	summaries := make([]core.MessageSummary, 0, len(list.Value))
	for _, msg := range list.Value {
		summary := core.MessageSummary{
			ID:      msg.ID,
			Subject: msg.Subject,
			From:    msg.From.EmailAddress.Address,
		}
		if msg.ReceivedDateTime != "" {
			received, err := time.Parse(time.RFC3339, msg.ReceivedDateTime)
			if err != nil {
				c.logger.Debug("Unparseable receivedDateTime",
					zap.String("id", msg.ID),
					zap.String("value", msg.ReceivedDateTime))
			} else {
				summary.ReceivedAt = received
			}
		}
		summaries = append(summaries, summary)
	}

	c.logger.Debug("Listed messages", zap.Int("count", len(summaries)))
	return summaries, nil
}

// FetchRaw downloads the MIME content of a message
func (c *Client) FetchRaw(ctx context.Context, id string) ([]byte, error) {
	return c.getBytes(ctx, "download message", "/me/messages/"+url.PathEscape(id)+"/$value")
}

// FetchAttachments lists the attachments of a message and retrieves the
// content of each one. File attachments are downloaded through their
// $value endpoint, others are decoded from inline contentBytes.
func (c *Client) FetchAttachments(ctx context.Context, id string) ([]core.Attachment, error) {
	base := "/me/messages/" + url.PathEscape(id) + "/attachments"

	var list attachmentList
	if err := c.getJSON(ctx, "list attachments", base, &list); err != nil {
		return nil, err
	}

	attachments := make([]core.Attachment, 0, len(list.Value))
	for _, desc := range list.Value {
		att := core.Attachment{Name: desc.Name}

		switch {
		case desc.MediaContentType != "":
			data, err := c.getBytes(ctx, "download attachment", base+"/"+url.PathEscape(desc.ID)+"/$value")
			if err != nil {
				c.logger.Warn("Failed to download attachment",
					zap.String("message_id", id),
					zap.String("attachment", desc.Name),
					zap.Error(err))
			} else {
				att.Data, att.Fetched = data, true
			}
		case desc.ContentBytes != nil:
			data, err := base64.StdEncoding.DecodeString(*desc.ContentBytes)
			if err != nil {
				c.logger.Warn("Invalid attachment contentBytes",
					zap.String("message_id", id),
					zap.String("attachment", desc.Name),
					zap.Error(err))
			} else {
				att.Data, att.Fetched = data, true
			}
		default:
			c.logger.Warn("Unknown attachment type",
				zap.String("message_id", id),
				zap.String("attachment", desc.Name))
		}

		attachments = append(attachments, att)
	}
	return attachments, nil
}

func (c *Client) getJSON(ctx context.Context, op, path string, out interface{}) error {
	body, err := c.getBytes(ctx, op, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: failed to decode response: %w", op, err)
	}
	return nil
}

func (c *Client) getBytes(ctx context.Context, op, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build request: %w", op, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, core.NewTransportError(op, resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read response: %w", op, err)
	}
	return body, nil
}
