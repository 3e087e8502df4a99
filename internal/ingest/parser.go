// Package ingest normalizes heterogeneous file buffers into Documents:
// format parsing, quality scoring, and content-hash deduplication.
package ingest

import (
	"path/filepath"
	"strings"

	"github.com/nzila/unionkb/internal/models"
)

// ParseResult is the raw output of a single parser.
type ParseResult struct {
	Content    string
	Structured any
	Tables     []models.Table
	// ErrorNote is set by best-effort binary parsers when extraction failed;
	// the document is still ingested as empty, low-quality content.
	ErrorNote string
}

// Parser converts one family of input formats to plain text.
// Selection is capability-based: the first parser whose CanParse returns
// true wins, in the fixed order the Ingestor registers them.
type Parser interface {
	Name() string
	CanParse(contentType, filename string) bool
	Parse(data []byte) (*ParseResult, error)
}

func hasExt(filename string, exts ...string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

func hasContentType(contentType string, types ...string) bool {
	base := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	for _, t := range types {
		if base == t {
			return true
		}
	}
	return false
}
