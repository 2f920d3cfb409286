package mailparse

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func crlf(s string) []byte {
	return []byte(strings.ReplaceAll(s, "\n", "\r\n"))
}

func TestParseSinglePartPlainBodyIsPayload(t *testing.T) {
	payload := "Hello Alex,\n\nThe report is attached.\nRegards"
	raw := crlf("From: Jane Doe <jane@example.com>\n" +
		"To: Alex <alex@example.com>\n" +
		"Subject: Quarterly report\n" +
		"Date: Mon, 3 Jun 2024 10:15:00 +0000\n" +
		"Message-ID: <abc@example.com>\n" +
		"Content-Type: text/plain; charset=utf-8\n" +
		"\n" + payload)

	first := Parse(raw)
	if got, want := first.Body, strings.ReplaceAll(payload, "\n", "\r\n"); got != want {
		t.Errorf("Body = %q, want %q", got, want)
	}
	if first.BodyType != TypePlain {
		t.Errorf("BodyType = %q, want %q", first.BodyType, TypePlain)
	}

	second := Parse(raw)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("re-parse mismatch (-first +second):\n%s", diff)
	}

	wantHeaders := []Field{
		{"From", "Jane Doe <jane@example.com>"},
		{"To", "Alex <alex@example.com>"},
		{"Subject", "Quarterly report"},
		{"Date", "Mon, 3 Jun 2024 10:15:00 +0000"},
		{"Cc", ""},
		{"Bcc", ""},
		{"Message-ID", "<abc@example.com>"},
	}
	if diff := cmp.Diff(wantHeaders, first.Headers); diff != "" {
		t.Errorf("Headers mismatch (-want +got):\n%s", diff)
	}
}

func TestParsePrefersPlainOverHTMLRegardlessOfOrder(t *testing.T) {
	raw := crlf("From: a@example.com\n" +
		"Content-Type: multipart/alternative; boundary=XX\n" +
		"\n" +
		"--XX\n" +
		"Content-Type: text/html; charset=utf-8\n" +
		"\n" +
		"<p>html body</p>\n" +
		"--XX\n" +
		"Content-Type: text/plain; charset=utf-8\n" +
		"\n" +
		"plain body\n" +
		"--XX--\n")

	m := Parse(raw)
	if m.Body != "plain body" {
		t.Errorf("Body = %q, want %q", m.Body, "plain body")
	}
	if m.BodyType != TypePlain {
		t.Errorf("BodyType = %q, want %q", m.BodyType, TypePlain)
	}
}

func TestParseFallsBackToFirstHTML(t *testing.T) {
	raw := crlf("Content-Type: multipart/mixed; boundary=OUT\n" +
		"\n" +
		"--OUT\n" +
		"Content-Type: multipart/alternative; boundary=IN\n" +
		"\n" +
		"--IN\n" +
		"Content-Type: text/html\n" +
		"\n" +
		"<b>first</b>\n" +
		"--IN\n" +
		"Content-Type: text/html\n" +
		"\n" +
		"<b>second</b>\n" +
		"--IN--\n" +
		"--OUT\n" +
		"Content-Type: text/plain\n" +
		"Content-Disposition: attachment; filename=notes.txt\n" +
		"\n" +
		"attached text\n" +
		"--OUT--\n")

	m := Parse(raw)
	if m.Body != "<b>first</b>" {
		t.Errorf("Body = %q, want %q", m.Body, "<b>first</b>")
	}
	if m.BodyType != TypeHTML {
		t.Errorf("BodyType = %q, want %q", m.BodyType, TypeHTML)
	}
}

func TestParseSkipsPartsWithDisposition(t *testing.T) {
	raw := crlf("Content-Type: multipart/mixed; boundary=B\n" +
		"\n" +
		"--B\n" +
		"Content-Type: text/plain\n" +
		"Content-Disposition: inline\n" +
		"\n" +
		"inline text\n" +
		"--B--\n")

	if m := Parse(raw); m.HasBody() {
		t.Errorf("Body = %q, want none", m.Body)
	}
}

func TestParseDecodesCharsetAndTransferEncoding(t *testing.T) {
	raw := crlf("Subject: =?UTF-8?B?5L2g5aW9?=\n" +
		"Content-Type: text/plain; charset=iso-8859-1\n" +
		"Content-Transfer-Encoding: quoted-printable\n" +
		"\n" +
		"Gr=FC=DFe")

	m := Parse(raw)
	if m.Body != "Grüße" {
		t.Errorf("Body = %q, want %q", m.Body, "Grüße")
	}
	if got := m.Get("subject"); got != "你好" {
		t.Errorf("Subject = %q, want %q", got, "你好")
	}
}

func TestParseReplacesUndecodableBytes(t *testing.T) {
	raw := append(crlf("Content-Type: text/plain; charset=utf-8\n\nok "), 0xff, 'x')

	m := Parse(raw)
	if m.Body != "ok �x" {
		t.Errorf("Body = %q, want %q", m.Body, "ok �x")
	}
}

func TestParseUnknownCharsetFallsBackToUTF8(t *testing.T) {
	raw := crlf("Content-Type: text/plain; charset=x-made-up\n\nstill readable")

	m := Parse(raw)
	if m.Body != "still readable" {
		t.Errorf("Body = %q, want %q", m.Body, "still readable")
	}
}

func TestParseNonTextSinglePartHasNoBody(t *testing.T) {
	raw := crlf("Content-Type: application/pdf\n\n%PDF-1.4")

	if m := Parse(raw); m.HasBody() {
		t.Errorf("Body = %q, want none", m.Body)
	}
}

func TestParseMalformedDocumentNeverFails(t *testing.T) {
	m := Parse([]byte("this is not\x00 a mail header\r\nwithout separator"))
	if m.HasBody() {
		t.Errorf("Body = %q, want none", m.Body)
	}
	if len(m.Headers) != len(RenderedHeaders) {
		t.Errorf("len(Headers) = %d, want %d", len(m.Headers), len(RenderedHeaders))
	}
}

func TestParseReadsBodyOfForwardedMessage(t *testing.T) {
	raw := crlf("From: Jane <jane@example.com>\n" +
		"Subject: Fwd: invoice\n" +
		"Content-Type: multipart/mixed; boundary=outer\n" +
		"\n" +
		"--outer\n" +
		"Content-Type: message/rfc822\n" +
		"\n" +
		"From: Vendor <billing@vendor.example>\n" +
		"Subject: invoice\n" +
		"Content-Type: multipart/alternative; boundary=inner\n" +
		"\n" +
		"--inner\n" +
		"Content-Type: text/plain; charset=utf-8\n" +
		"\n" +
		"inner body\n" +
		"--inner--\n" +
		"\n" +
		"--outer--\n")

	m := Parse(raw)
	if got := strings.TrimSpace(m.Body); got != "inner body" {
		t.Errorf("Body = %q, want the forwarded message's text", m.Body)
	}
	if m.BodyType != TypePlain {
		t.Errorf("BodyType = %q", m.BodyType)
	}
	if got := m.Get("Subject"); got != "Fwd: invoice" {
		t.Errorf("Subject = %q, want the outer header", got)
	}
}

func TestParseOuterTextWinsOverForwardedMessage(t *testing.T) {
	raw := crlf("Subject: Fwd\n" +
		"Content-Type: multipart/mixed; boundary=outer\n" +
		"\n" +
		"--outer\n" +
		"Content-Type: text/plain\n" +
		"\n" +
		"see below\n" +
		"--outer\n" +
		"Content-Type: message/rfc822\n" +
		"\n" +
		"Subject: original\n" +
		"Content-Type: text/plain\n" +
		"\n" +
		"inner body\n" +
		"--outer--\n")

	if got := strings.TrimSpace(Parse(raw).Body); got != "see below" {
		t.Errorf("Body = %q", got)
	}
}
