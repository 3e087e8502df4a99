package ingest

import (
	"archive/zip"
	"bytes"
	"regexp"
	"strings"

	"github.com/lu4p/cat"
)

// wtTag matches <w:t>text</w:t> with or without attributes. Fallback for
// documents where cat's paragraph matcher yields nothing (real-world .docx
// paragraphs often carry attributes like <w:p w:rsidR="...">).
var wtTag = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)

// WordParser extracts best-effort text from Word-family buffers
// (.docx, .odt, .rtf). Failures produce an empty, low-quality document.
type WordParser struct{}

func (p *WordParser) Name() string { return "word" }

func (p *WordParser) CanParse(contentType, filename string) bool {
	return hasContentType(contentType,
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"application/vnd.oasis.opendocument.text",
		"application/rtf") ||
		hasExt(filename, ".docx", ".odt", ".rtf")
}

func (p *WordParser) Parse(data []byte) (*ParseResult, error) {
	text, err := cat.FromBytes(data)
	if err == nil && strings.TrimSpace(text) != "" {
		return &ParseResult{Content: text}, nil
	}
	if docx := extractDocxTextNodes(data); docx != "" {
		return &ParseResult{Content: docx}, nil
	}
	note := "no text extracted"
	if err != nil {
		note = "extract word document: " + err.Error()
	}
	return &ParseResult{ErrorNote: note}, nil
}

// extractDocxTextNodes pulls all <w:t> text nodes out of a .docx zip.
func extractDocxTextNodes(data []byte) string {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return ""
	}
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return ""
		}
		var buf bytes.Buffer
		_, err = buf.ReadFrom(rc)
		_ = rc.Close()
		if err != nil {
			return ""
		}
		parts := wtTag.FindAllStringSubmatch(buf.String(), -1)
		var b strings.Builder
		for i, part := range parts {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(strings.TrimSpace(part[1]))
		}
		return strings.TrimSpace(b.String())
	}
	return ""
}
