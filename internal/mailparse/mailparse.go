package mailparse

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-message"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"

	"github.com/HH-Alex-Ma/xarl-email-agent/internal/utils"
)

const (
	TypePlain = "text/plain"
	TypeHTML  = "text/html"

	typeMessage = "message/rfc822"
)

// RenderedHeaders lists the header fields shown on the rendered page, in order
var RenderedHeaders = []string{"From", "To", "Subject", "Date", "Cc", "Bcc", "Message-ID"}

func init() {
	message.CharsetReader = decodeCharset
}

// Field is a decoded header field
type Field struct {
	Name  string
	Value string
}

// Mail is the parsed form of a raw RFC 5322 document
type Mail struct {
	Headers  []Field
	Body     string
	BodyType string
}

// Get returns the decoded value of a rendered header, or ""
func (m *Mail) Get(name string) string {
	for _, f := range m.Headers {
		if strings.EqualFold(f.Name, name) {
			return f.Value
		}
	}
	return ""
}

// HasBody reports whether a text or HTML body was selected
func (m *Mail) HasBody() bool {
	return m.Body != ""
}

// Parse turns a raw mail document into headers and a selected body.
// It never fails: unreadable headers come back empty and an unreadable
// body is reported as absent.
func Parse(raw []byte) *Mail {
	m := &Mail{Headers: make([]Field, 0, len(RenderedHeaders))}

	entity, err := message.Read(bytes.NewReader(raw))
	if entity == nil || (err != nil && !recoverable(err)) {
		for _, name := range RenderedHeaders {
			m.Headers = append(m.Headers, Field{Name: name})
		}
		return m
	}

	for _, name := range RenderedHeaders {
		m.Headers = append(m.Headers, Field{Name: name, Value: headerText(entity.Header, name)})
	}

	mr := entity.MultipartReader()
	if mr == nil {
		// Single-part document: its own payload is the body when textual
		switch ct := contentType(entity.Header); ct {
		case TypePlain, TypeHTML:
			if text := readText(entity.Body); text != "" {
				m.Body = text
				m.BodyType = ct
			}
		}
		return m
	}

	var html string
	walkParts(mr, func(part *message.Entity) bool {
		if part.Header.Get("Content-Disposition") != "" {
			return true
		}
		switch contentType(part.Header) {
		case TypePlain:
			if text := readText(part.Body); text != "" {
				m.Body = text
				m.BodyType = TypePlain
				return false
			}
		case TypeHTML:
			if html == "" {
				html = readText(part.Body)
			}
		}
		return true
	})

	if m.Body == "" && html != "" {
		m.Body = html
		m.BodyType = TypeHTML
	}
	return m
}

// walkParts visits leaf parts depth-first in document order until visit
// returns false
func walkParts(mr message.MultipartReader, visit func(*message.Entity) bool) bool {
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return true
		}
		if part == nil || (err != nil && !recoverable(err)) {
			// Truncated or malformed multipart: keep what was found so far
			return true
		}
		if nested := part.MultipartReader(); nested != nil {
			if !walkParts(nested, visit) {
				return false
			}
			continue
		}
		if contentType(part.Header) == typeMessage {
			if !walkMessage(part.Body, visit) {
				return false
			}
			continue
		}
		if !visit(part) {
			return false
		}
	}
}

// walkMessage visits the parts of an encapsulated message the same way
// walkParts visits a multipart body
func walkMessage(r io.Reader, visit func(*message.Entity) bool) bool {
	inner, err := message.Read(r)
	if inner == nil || (err != nil && !recoverable(err)) {
		return true
	}
	if mr := inner.MultipartReader(); mr != nil {
		return walkParts(mr, visit)
	}
	return visit(inner)
}

func recoverable(err error) bool {
	return message.IsUnknownCharset(err) || message.IsUnknownEncoding(err)
}

func contentType(h message.Header) string {
	t, _, err := h.ContentType()
	if err != nil || t == "" {
		return TypePlain
	}
	return strings.ToLower(t)
}

func headerText(h message.Header, name string) string {
	value, err := h.Text(name)
	if err != nil {
		value = h.Get(name)
	}
	return utils.UnfoldHeader(utils.SanitizeUTF8(value))
}

func readText(body io.Reader) string {
	// A decoding error mid-stream still leaves the bytes read so far
	data, _ := io.ReadAll(body)
	return utils.SanitizeUTF8(string(data))
}

// decodeCharset converts a declared charset to UTF-8. Undecodable input
// is replaced with U+FFFD by the x/text decoders.
func decodeCharset(label string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(label)
	if err != nil || enc == nil {
		enc, err = ianaindex.MIME.Encoding(label)
	}
	if err != nil || enc == nil {
		return nil, fmt.Errorf("unsupported charset %q", label)
	}
	return enc.NewDecoder().Reader(input), nil
}
