package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-smtp"
	"go.uber.org/zap"

	"github.com/HH-Alex-Ma/xarl-email-agent/internal/core"
	"github.com/HH-Alex-Ma/xarl-email-agent/internal/jsonvalue"
)

// ModeSMTP relays notifications as plain-text mail
const ModeSMTP = "smtp"

const defaultSMTPTimeout = 30 * time.Second

// SMTPNotifier mails the notification content to the resolved recipient
type SMTPNotifier struct {
	address string
	from    string
	subject string
	logger  *zap.Logger
	now     func() time.Time
}

// NewSMTPNotifier creates a new SMTP notifier relaying through address
func NewSMTPNotifier(address, from, subject string, logger *zap.Logger) *SMTPNotifier {
	return &SMTPNotifier{
		address: address,
		from:    from,
		subject: subject,
		logger:  logger,
		now:     time.Now,
	}
}

func (n *SMTPNotifier) Mode() string {
	return ModeSMTP
}

// RequiresTarget is true: the recipient becomes the envelope recipient
func (n *SMTPNotifier) RequiresTarget() bool {
	return true
}

// Notify relays the content to msg.Target. The report carries the SMTP
// reply code 250 on success.
func (n *SMTPNotifier) Notify(ctx context.Context, msg core.Notification) (*core.DispatchReport, error) {
	var buf bytes.Buffer
	if err := n.compose(&buf, msg); err != nil {
		return nil, fmt.Errorf("failed to compose mail: %w", err)
	}

	if err := n.relay(ctx, msg.Target, buf.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to relay mail: %w", err)
	}

	n.logger.Info("Relayed notification mail", zap.String("to", msg.Target))
	return &core.DispatchReport{
		StatusCode: 250,
		Response:   jsonvalue.ObjectOf(jsonvalue.Member{Key: "to", Value: jsonvalue.StringOf(msg.Target)}),
	}, nil
}

// relay speaks SMTP to the configured server. TLS is negotiated only when
// the server advertises STARTTLS.
func (n *SMTPNotifier) relay(ctx context.Context, recipient string, data []byte) error {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = n.now().Add(defaultSMTPTimeout)
	}

	var dialer net.Dialer
	dialCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()
	conn, err := dialer.DialContext(dialCtx, "tcp", n.address)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", n.address, err)
	}

	if err := conn.SetDeadline(deadline); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set connection deadline: %w", err)
	}

	c := smtp.NewClient(conn)
	defer c.Close()

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}
	if err := c.Hello(hostname); err != nil {
		return fmt.Errorf("EHLO failed: %w", err)
	}

	if ok, _ := c.Extension("STARTTLS"); ok {
		host, _, err := net.SplitHostPort(n.address)
		if err != nil {
			host = n.address
		}
		if err := c.StartTLS(&tls.Config{ServerName: host}); err != nil {
			return fmt.Errorf("STARTTLS failed: %w", err)
		}
	}

	if err := c.Mail(n.from, nil); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}
	if err := c.Rcpt(recipient, nil); err != nil {
		return fmt.Errorf("RCPT TO failed: %w", err)
	}

	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}
	if _, err := wc.Write(data); err != nil {
		wc.Close()
		return fmt.Errorf("failed to send mail data: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	return c.Quit()
}

func (n *SMTPNotifier) compose(w io.Writer, msg core.Notification) error {
	var h mail.Header
	h.SetDate(n.now())
	h.SetSubject(n.subject)
	h.SetAddressList("From", []*mail.Address{{Address: n.from}})
	h.SetAddressList("To", []*mail.Address{{Address: msg.Target}})
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})

	body, err := mail.CreateSingleInlineWriter(w, h)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(body, msg.Content); err != nil {
		body.Close()
		return err
	}
	return body.Close()
}
