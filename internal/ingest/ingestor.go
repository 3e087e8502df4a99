package ingest

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nzila/unionkb/internal/errs"
	"github.com/nzila/unionkb/internal/models"
)

// Ingestor normalizes raw buffers into Documents: parser selection, quality
// scoring, and content-hash dedup.
type Ingestor struct {
	parsers []Parser
	deduper *Deduper
	logger  *zap.Logger // optional; when set, logs debug events
}

// IngestorOption configures an Ingestor.
type IngestorOption func(*Ingestor)

// WithLogger sets a logger for debug output (parser chosen, duplicate seen, etc.).
func WithLogger(l *zap.Logger) IngestorOption {
	return func(ing *Ingestor) { ing.logger = l }
}

// NewIngestor creates an ingestor with the default parser chain. The chain
// order is fixed: plain/JSON/HTML, CSV, spreadsheet, PDF, Word, email.
// hashStore may be nil for in-memory-only dedup.
func NewIngestor(hashStore HashStore, opts ...IngestorOption) *Ingestor {
	ing := &Ingestor{
		parsers: []Parser{
			&PlainParser{},
			&CSVParser{},
			&SpreadsheetParser{},
			&PDFParser{},
			&WordParser{},
			&EmailParser{},
		},
		deduper: NewDeduper(hashStore),
	}
	for _, opt := range opts {
		opt(ing)
	}
	return ing
}

// Ingest parses data into a normalized Document. It fails with
// errs.ErrUnsupportedFormat when no parser claims the input and
// errs.ErrEmptyContent when a text parser yields only whitespace. Binary
// extraction failures are swallowed into an empty, low-quality document so
// one bad file never aborts a batch.
func (ing *Ingestor) Ingest(ctx context.Context, data []byte, contentType, filename string, meta models.DocumentMetadata) (*models.Document, error) {
	parser := ing.selectParser(contentType, filename)
	if parser == nil {
		return nil, errs.ErrUnsupportedFormat
	}
	if ing.logger != nil {
		ing.logger.Debug("ingest parsing",
			zap.String("parser", parser.Name()),
			zap.String("filename", filename),
			zap.String("content_type", contentType))
	}

	result, err := parser.Parse(data)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(result.Content) == "" && result.ErrorNote == "" {
		return nil, errs.ErrEmptyContent
	}

	now := time.Now().UTC()
	meta.CreatedAt = now
	meta.UpdatedAt = now
	if meta.OriginalFilename == "" {
		meta.OriginalFilename = filename
	}

	doc := &models.Document{
		ID:          uuid.New().String(),
		Content:     result.Content,
		ContentHash: ContentHash(result.Content),
		Metadata:    meta,
		Structured:  result.Structured,
		Tables:      result.Tables,
		Quality:     ScoreQuality(result.Content, meta, result.ErrorNote),
	}

	if strings.TrimSpace(result.Content) == "" {
		// Nothing extractable; dedup on an empty hash would collapse every
		// failed extraction into one canonical document.
		return doc, nil
	}

	dup, err := ing.deduper.CheckAndRecord(ctx, doc.ContentHash, doc.ID)
	if err != nil {
		// Dedup degrades rather than blocking ingestion.
		if ing.logger != nil {
			ing.logger.Warn("dedup store error, continuing without persistent dedup", zap.Error(err))
		}
	}
	doc.IsDuplicate = dup
	if dup && ing.logger != nil {
		ing.logger.Debug("ingest duplicate content",
			zap.String("doc_id", doc.ID),
			zap.String("content_hash", doc.ContentHash))
	}
	return doc, nil
}

func (ing *Ingestor) selectParser(contentType, filename string) Parser {
	for _, p := range ing.parsers {
		if p.CanParse(contentType, filename) {
			return p
		}
	}
	return nil
}
