package renderer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-pdf/fpdf"
	"go.uber.org/zap"

	"github.com/HH-Alex-Ma/xarl-email-agent/internal/mailparse"
)

const (
	fallbackFamily = "Helvetica"
	titleSize      = 12
	textSize       = 10
	labelWidth     = 25
	pageMargin     = 15
)

// PDFRenderer renders mail documents to PDF with fpdf
type PDFRenderer struct {
	fontPath   string
	fontFamily string
	logger     *zap.Logger

	once     sync.Once
	fontData []byte
}

// NewPDFRenderer creates a new PDF renderer. The TrueType font at fontPath
// is loaded on first use; without it the built-in Helvetica face is used.
func NewPDFRenderer(fontPath, fontFamily string, logger *zap.Logger) *PDFRenderer {
	if fontFamily == "" {
		fontFamily = "DejaVu"
	}
	return &PDFRenderer{
		fontPath:   fontPath,
		fontFamily: fontFamily,
		logger:     logger,
	}
}

// Render parses raw and writes its PDF rendition to outPath
func (r *PDFRenderer) Render(raw []byte, attachmentNames []string, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return fmt.Errorf("failed to create PDF directory: %w", err)
	}

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", outPath, err)
	}
	if err := r.Write(f, mailparse.Parse(raw), attachmentNames); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", outPath, err)
	}

	r.logger.Debug("Rendered PDF", zap.String("path", outPath))
	return nil
}

// Write renders a parsed mail as PDF into w
func (r *PDFRenderer) Write(w io.Writer, mail *mailparse.Mail, attachmentNames []string) error {
	if err := r.layout(mail, attachmentNames).Output(w); err != nil {
		return fmt.Errorf("failed to render PDF: %w", err)
	}
	return nil
}

// layout lays the document out on A4 pages; errors are latched in the
// returned document
func (r *PDFRenderer) layout(mail *mailparse.Mail, attachmentNames []string) *fpdf.Fpdf {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, pageMargin)

	family, tr := r.setupFont(pdf)
	pdf.AddPage()

	for _, block := range BuildDocument(mail, attachmentNames).Blocks {
		switch block.Kind {
		case BlockTitle:
			pdf.SetFont(family, "", titleSize)
			pdf.CellFormat(0, 10, tr(block.Text), "", 1, "C", false, 0, "")
		case BlockHeader:
			pdf.SetFont(family, "", textSize)
			pdf.CellFormat(labelWidth, 8, tr(block.Label), "", 0, "L", false, 0, "")
			pdf.MultiCell(0, 8, tr(block.Text), "", "L", false)
		case BlockSpacer:
			pdf.Ln(5)
		case BlockHeading:
			pdf.SetFont(family, "", titleSize)
			pdf.CellFormat(0, 10, tr(block.Text), "", 1, "L", false, 0, "")
		case BlockText:
			pdf.SetFont(family, "", textSize)
			pdf.MultiCell(0, 8, tr(block.Text), "", "L", false)
		case BlockLine:
			pdf.SetFont(family, "", textSize)
			pdf.CellFormat(0, 8, tr(block.Text), "", 1, "L", false, 0, "")
		}
	}

	return pdf
}

// setupFont registers the configured face, or falls back to Helvetica with
// text folded to Windows-1252 by fpdf's translator
func (r *PDFRenderer) setupFont(pdf *fpdf.Fpdf) (string, func(string) string) {
	r.once.Do(r.loadFont)

	if r.fontData == nil {
		toCP1252 := pdf.UnicodeTranslatorFromDescriptor("")
		return fallbackFamily, func(s string) string { return toCP1252(normalize(s)) }
	}

	pdf.AddUTF8FontFromBytes(r.fontFamily, "", r.fontData)
	return r.fontFamily, normalize
}

func (r *PDFRenderer) loadFont() {
	if r.fontPath == "" {
		r.logger.Warn("No PDF font configured, using Helvetica")
		return
	}
	data, err := os.ReadFile(r.fontPath)
	if err != nil {
		r.logger.Warn("Failed to load PDF font, using Helvetica",
			zap.String("path", r.fontPath),
			zap.Error(err))
		return
	}
	r.fontData = data
}

func normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.ReplaceAll(s, "\t", "    ")
}
