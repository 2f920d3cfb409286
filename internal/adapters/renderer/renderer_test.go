package renderer

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-pdf/fpdf"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/HH-Alex-Ma/xarl-email-agent/internal/mailparse"
)

func TestBuildDocument(t *testing.T) {
	mail := &mailparse.Mail{
		Headers: []mailparse.Field{
			{Name: "From", Value: "Alice <alice@example.com>"},
			{Name: "To", Value: "bob@example.com"},
			{Name: "Subject", Value: "Quarterly report"},
			{Name: "Date", Value: ""},
			{Name: "Cc", Value: ""},
		},
		Body: "Hello Bob",
	}

	doc := BuildDocument(mail, []string{"a.pdf", "b.png"})
	want := []string{
		"Email Details",
		"From:", "Alice <alice@example.com>",
		"To:", "bob@example.com",
		"Subject:", "Quarterly report",
		"Body:", "Hello Bob",
		"Attachments:", "1. a.pdf", "2. b.png",
	}
	if diff := cmp.Diff(want, doc.Texts()); diff != "" {
		t.Errorf("document mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildDocumentPlaceholders(t *testing.T) {
	doc := BuildDocument(&mailparse.Mail{}, nil)
	want := []string{"Email Details", "Body:", NoBody, "Attachments:", NoAttachments}
	if diff := cmp.Diff(want, doc.Texts()); diff != "" {
		t.Errorf("document mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderFallsBackWithoutFont(t *testing.T) {
	r := NewPDFRenderer(filepath.Join(t.TempDir(), "missing.ttf"), "DejaVu", zap.NewNop())
	raw := []byte("From: =?UTF-8?B?5byg5LiJ?= <zhang@example.com>\r\n" +
		"Subject: Caf\xc3\xa9 menu\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n\r\n" +
		"Line one\r\n\tindented\r\n")

	out := filepath.Join(t.TempDir(), "nested", "mail.pdf")
	if err := r.Render(raw, []string{"menu.pdf"}, out); err != nil {
		t.Fatalf("Render: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Errorf("output does not look like a PDF: %q", data[:min(len(data), 16)])
	}
}

func TestRenderLongBodyPaginates(t *testing.T) {
	r := NewPDFRenderer("", "", zap.NewNop())
	mail := &mailparse.Mail{Body: string(bytes.Repeat([]byte("a fairly long line of text\n"), 400))}

	pdf := r.layout(mail, nil)
	if err := pdf.Error(); err != nil {
		t.Fatalf("layout: %v", err)
	}
	if pdf.PageCount() < 2 {
		t.Errorf("pages = %d, want the body to overflow onto more pages", pdf.PageCount())
	}
}

func TestFallbackTranslatesToWindows1252(t *testing.T) {
	r := NewPDFRenderer("", "", zap.NewNop())
	family, tr := r.setupFont(fpdf.New("P", "mm", "A4", ""))
	if family != fallbackFamily {
		t.Fatalf("family = %q", family)
	}
	if got := tr("Caf\u00e9\t\u20ac\r\nok"); got != "Caf\xe9    \x80\nok" {
		t.Errorf("translated = %q", got)
	}
}

func TestRenderWithTrueTypeFont(t *testing.T) {
	fontPath := filepath.Join(t.TempDir(), "goregular.ttf")
	if err := os.WriteFile(fontPath, goregular.TTF, 0o644); err != nil {
		t.Fatal(err)
	}
	r := NewPDFRenderer(fontPath, "GoRegular", zap.NewNop())

	raw := []byte("From: =?UTF-8?B?5byg5LiJ?= <zhang@example.com>\r\n" +
		"To: =?UTF-8?B?5p2O5Zub?= <li@example.com>\r\n" +
		"Subject: =?UTF-8?B?5a2j5bqm5oql5ZGK?=\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n\r\n" +
		strings.Repeat("Résumé line with accents and a euro sign €\r\n", 300))

	out := filepath.Join(t.TempDir(), "mail.pdf")
	if err := r.Render(raw, []string{"报告.xlsx"}, out); err != nil {
		t.Fatalf("Render: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Errorf("output does not look like a PDF: %q", data[:min(len(data), 16)])
	}

	pdf := r.layout(mailparse.Parse(raw), nil)
	if err := pdf.Error(); err != nil {
		t.Fatalf("layout: %v", err)
	}
	if pdf.PageCount() < 2 {
		t.Errorf("pages = %d, want a multi-page document", pdf.PageCount())
	}
}
