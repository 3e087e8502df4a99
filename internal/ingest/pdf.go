package ingest

import (
	"bytes"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFParser extracts best-effort text from PDF buffers. Extraction failures
// never abort ingestion; they produce an empty, low-quality document.
type PDFParser struct{}

func (p *PDFParser) Name() string { return "pdf" }

func (p *PDFParser) CanParse(contentType, filename string) bool {
	return hasContentType(contentType, "application/pdf") || hasExt(filename, ".pdf")
}

func (p *PDFParser) Parse(data []byte) (*ParseResult, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return &ParseResult{ErrorNote: "open PDF: " + err.Error()}, nil
	}
	var buf strings.Builder
	numPages := r.NumPage()
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return &ParseResult{ErrorNote: "extract PDF page: " + err.Error()}, nil
		}
		buf.WriteString(text)
		if i < numPages {
			buf.WriteByte('\n')
		}
	}
	return &ParseResult{Content: buf.String()}, nil
}
