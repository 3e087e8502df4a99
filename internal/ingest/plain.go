package ingest

import (
	"encoding/json"
	"strings"
	"unicode/utf8"
)

// PlainParser handles plain text, markdown, JSON, and HTML buffers.
// JSON inputs are pretty-printed as the canonical content and the parsed
// value is kept as structured data.
type PlainParser struct{}

func (p *PlainParser) Name() string { return "plain" }

func (p *PlainParser) CanParse(contentType, filename string) bool {
	if hasContentType(contentType, "text/plain", "text/markdown", "text/html", "application/json") {
		return true
	}
	return hasExt(filename, ".txt", ".md", ".rst", ".json", ".html", ".htm")
}

func (p *PlainParser) Parse(data []byte) (*ParseResult, error) {
	if !utf8.Valid(data) {
		data = []byte(strings.ToValidUTF8(string(data), "�"))
	}
	content := string(data)

	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		var parsed any
		if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil {
			pretty, err := json.MarshalIndent(parsed, "", "  ")
			if err == nil {
				return &ParseResult{Content: string(pretty), Structured: parsed}, nil
			}
		}
	}
	return &ParseResult{Content: content}, nil
}
