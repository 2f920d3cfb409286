package renderer

import (
	"fmt"

	"github.com/HH-Alex-Ma/xarl-email-agent/internal/mailparse"
)

// BlockKind tells the renderer how to lay out a block
type BlockKind int

const (
	BlockTitle BlockKind = iota
	BlockHeader
	BlockSpacer
	BlockHeading
	BlockText
	BlockLine
)

const (
	Title            = "Email Details"
	BodyHeading      = "Body:"
	AttachmentsTitle = "Attachments:"
	NoBody           = "[No plain text or html body found]"
	NoAttachments    = "No attachments."
)

// Block is one element of the rendered document
type Block struct {
	Kind  BlockKind
	Label string
	Text  string
}

// Document is the ordered list of blocks a mail renders to
type Document struct {
	Blocks []Block
}

// Texts returns the visible text of every block, header labels included
func (d Document) Texts() []string {
	var out []string
	for _, b := range d.Blocks {
		if b.Label != "" {
			out = append(out, b.Label)
		}
		if b.Text != "" {
			out = append(out, b.Text)
		}
	}
	return out
}

// BuildDocument lays out a parsed mail: title, non-empty header rows, body
// and the numbered attachment names
func BuildDocument(mail *mailparse.Mail, attachmentNames []string) Document {
	doc := Document{Blocks: []Block{
		{Kind: BlockTitle, Text: Title},
		{Kind: BlockSpacer},
	}}

	for _, h := range mail.Headers {
		if h.Value == "" {
			continue
		}
		doc.Blocks = append(doc.Blocks, Block{Kind: BlockHeader, Label: h.Name + ":", Text: h.Value})
	}
	doc.Blocks = append(doc.Blocks, Block{Kind: BlockSpacer})

	body := mail.Body
	if !mail.HasBody() {
		body = NoBody
	}
	doc.Blocks = append(doc.Blocks,
		Block{Kind: BlockHeading, Text: BodyHeading},
		Block{Kind: BlockText, Text: body},
		Block{Kind: BlockSpacer},
		Block{Kind: BlockHeading, Text: AttachmentsTitle},
	)

	if len(attachmentNames) == 0 {
		doc.Blocks = append(doc.Blocks, Block{Kind: BlockLine, Text: NoAttachments})
		return doc
	}
	for i, name := range attachmentNames {
		doc.Blocks = append(doc.Blocks, Block{Kind: BlockLine, Text: fmt.Sprintf("%d. %s", i+1, name)})
	}
	return doc
}
