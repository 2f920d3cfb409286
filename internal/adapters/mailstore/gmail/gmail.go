package gmail

import (
	"context"
	"encoding/base64"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/HH-Alex-Ma/xarl-email-agent/internal/core"
)

const (
	// ReadonlyScope is the OAuth scope the mailbox token needs
	ReadonlyScope = gmailapi.GmailReadonlyScope

	// See https://developers.google.com/gmail/api/reference/quota
	quotaUnitsMessagesGet     = 5
	quotaUnitsAttachmentsGet  = 5
	quotaUnitsPerMessagesList = 5

	quotaUnitsPerSecond = 250
	rateLimitPerSecond  = quotaUnitsPerSecond * 0.8
	rateLimitBurst      = quotaUnitsPerSecond

	user = "me"
)

// Client is a Gmail implementation of the MessageStore interface
type Client struct {
	service *gmailapi.Service
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewClient creates a new Gmail mailbox client. Authentication is the job
// of the supplied http.Client's transport; endpoint overrides the API base
// URL when not empty.
func NewClient(ctx context.Context, httpClient *http.Client, endpoint string, logger *zap.Logger) (*Client, error) {
	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}

	service, err := gmailapi.NewService(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "creating gmail service")
	}

	return &Client{
		service: service,
		limiter: rate.NewLimiter(rateLimitPerSecond, rateLimitBurst),
		logger:  logger,
	}, nil
}

// ListRecent lists up to limit inbox messages and resolves their subject,
// sender and received time, newest first
func (c *Client) ListRecent(ctx context.Context, limit int) ([]core.MessageSummary, error) {
	if err := c.limiter.WaitN(ctx, quotaUnitsPerMessagesList); err != nil {
		return nil, err
	}

	list, err := c.service.Users.Messages.List(user).
		LabelIds("INBOX").
		MaxResults(int64(limit)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, transportError("list messages", err)
	}

	summaries := make([]core.MessageSummary, 0, len(list.Messages))
	for _, ref := range list.Messages {
		msg, err := c.getMessage(ctx, c.service.Users.Messages.Get(user, ref.Id).
			Format("metadata").
			MetadataHeaders("Subject", "From"))
		if err != nil {
			c.logger.Warn("Skipping message without metadata",
				zap.String("message_id", ref.Id),
				zap.Error(err))
			continue
		}

		summary := core.MessageSummary{ID: msg.Id}
		if msg.InternalDate > 0 {
			summary.ReceivedAt = time.UnixMilli(msg.InternalDate).UTC()
		}
		if msg.Payload != nil {
			for _, h := range msg.Payload.Headers {
				switch strings.ToLower(h.Name) {
				case "subject":
					summary.Subject = h.Value
				case "from":
					summary.From = h.Value
				}
			}
		}
		summaries = append(summaries, summary)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].ReceivedAt.After(summaries[j].ReceivedAt)
	})

	c.logger.Debug("Listed Gmail messages", zap.Int("count", len(summaries)))
	return summaries, nil
}

// FetchRaw downloads the RFC 5322 source of a message
func (c *Client) FetchRaw(ctx context.Context, id string) ([]byte, error) {
	msg, err := c.getMessage(ctx, c.service.Users.Messages.Get(user, id).Format("raw"))
	if err != nil {
		return nil, errors.Wrapf(err, "getting message %v from gmail", id)
	}

	raw, err := decodeBase64URL(msg.Raw)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding message %v", id)
	}
	return raw, nil
}

// FetchAttachments walks the message's MIME tree and retrieves every part
// that carries a file name
func (c *Client) FetchAttachments(ctx context.Context, id string) ([]core.Attachment, error) {
	msg, err := c.getMessage(ctx, c.service.Users.Messages.Get(user, id).Format("full"))
	if err != nil {
		return nil, errors.Wrapf(err, "getting structure of message %v", id)
	}

	var attachments []core.Attachment
	var walk func(part *gmailapi.MessagePart)
	walk = func(part *gmailapi.MessagePart) {
		if part == nil {
			return
		}
		if part.Filename != "" {
			attachments = append(attachments, c.fetchPart(ctx, id, part))
		}
		for _, child := range part.Parts {
			walk(child)
		}
	}
	walk(msg.Payload)

	return attachments, nil
}

func (c *Client) fetchPart(ctx context.Context, id string, part *gmailapi.MessagePart) core.Attachment {
	att := core.Attachment{Name: part.Filename}
	if part.Body == nil {
		c.logger.Warn("Attachment without body", zap.String("message_id", id), zap.String("attachment", part.Filename))
		return att
	}

	encoded := part.Body.Data
	if encoded == "" && part.Body.AttachmentId != "" {
		if err := c.limiter.WaitN(ctx, quotaUnitsAttachmentsGet); err != nil {
			c.logger.Warn("Attachment fetch cancelled", zap.String("attachment", part.Filename), zap.Error(err))
			return att
		}
		body, err := c.service.Users.Messages.Attachments.Get(user, id, part.Body.AttachmentId).Context(ctx).Do()
		if err != nil {
			c.logger.Warn("Failed to download attachment",
				zap.String("message_id", id),
				zap.String("attachment", part.Filename),
				zap.Error(transportError("download attachment", err)))
			return att
		}
		encoded = body.Data
	}

	if encoded == "" {
		c.logger.Warn("Attachment content unavailable", zap.String("message_id", id), zap.String("attachment", part.Filename))
		return att
	}

	data, err := decodeBase64URL(encoded)
	if err != nil {
		c.logger.Warn("Invalid attachment data",
			zap.String("message_id", id),
			zap.String("attachment", part.Filename),
			zap.Error(err))
		return att
	}
	att.Data, att.Fetched = data, true
	return att
}

// getMessage performs one paced request; a refused request, quota
// errors included, fails the current item
func (c *Client) getMessage(ctx context.Context, call *gmailapi.UsersMessagesGetCall) (*gmailapi.Message, error) {
	if err := c.limiter.WaitN(ctx, quotaUnitsMessagesGet); err != nil {
		return nil, err
	}
	msg, err := call.Context(ctx).Do()
	if err != nil {
		return nil, transportError("get message", err)
	}
	return msg, nil
}

// transportError turns a non-success API answer into a core.TransportError
func transportError(op string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return &core.TransportError{Op: op, StatusCode: apiErr.Code, Body: apiErr.Message}
	}
	return errors.Wrap(err, op)
}

func decodeBase64URL(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
}
