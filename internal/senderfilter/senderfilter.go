package senderfilter

import (
	"net/mail"
	"strings"

	"go.uber.org/zap"
)

// Checker decides whether mail from a sender should be left in the mailbox
type Checker struct {
	domains []string
	logger  *zap.Logger
}

// NewChecker creates a new ignored sender checker
func NewChecker(domains []string, logger *zap.Logger) *Checker {
	normalized := make([]string, 0, len(domains))
	for _, domain := range domains {
		domain = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(domain)), "@")
		if domain != "" {
			normalized = append(normalized, domain)
		}
	}

	if len(normalized) > 0 && logger != nil {
		logger.Info("Initialized ignored sender checker", zap.Strings("domains", normalized))
	}

	return &Checker{
		domains: normalized,
		logger:  logger,
	}
}

// IsIgnored reports whether the sender's domain, or a parent of it, is on
// the ignore list. from may be a bare address or a display form.
func (c *Checker) IsIgnored(from string) bool {
	if c == nil || len(c.domains) == 0 {
		return false
	}

	domain := senderDomain(from)
	if domain == "" {
		return false
	}

	for _, ignored := range c.domains {
		if domain == ignored || strings.HasSuffix(domain, "."+ignored) {
			if c.logger != nil {
				c.logger.Debug("Sender domain is ignored",
					zap.String("domain", domain),
					zap.String("sender", from))
			}
			return true
		}
	}

	return false
}

func senderDomain(from string) string {
	address := strings.TrimSpace(from)
	if parsed, err := mail.ParseAddress(address); err == nil {
		address = parsed.Address
	}

	at := strings.LastIndex(address, "@")
	if at < 0 || at == len(address)-1 {
		return ""
	}
	return strings.ToLower(strings.Trim(address[at+1:], "> "))
}
