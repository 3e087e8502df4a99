// Package models defines core data structures for documents, chunks, queries,
// prompt templates, and usage metering.
package models

import "time"

// DocumentMetadata describes where a document came from and how it is scoped.
// Jurisdiction and tags drive retrieval-time filtering.
type DocumentMetadata struct {
	Source           string    `json:"source" db:"source"`
	Type             string    `json:"type" db:"type"`
	Jurisdiction     string    `json:"jurisdiction,omitempty" db:"jurisdiction"`
	Tags             []string  `json:"tags,omitempty" db:"-"`
	UploadedBy       string    `json:"uploaded_by,omitempty" db:"uploaded_by"`
	OrganizationID   string    `json:"organization_id" db:"organization_id"`
	OriginalFilename string    `json:"original_filename,omitempty" db:"original_filename"`
	DocumentDate     string    `json:"document_date,omitempty" db:"document_date"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// Document is a normalized, ingested document. Immutable once chunked;
// re-ingestion with different content mints a new document id.
type Document struct {
	ID          string           `json:"id" db:"id"`
	Content     string           `json:"content" db:"content"`
	ContentHash string           `json:"content_hash" db:"content_hash"`
	Metadata    DocumentMetadata `json:"metadata"`
	Structured  any              `json:"structured,omitempty" db:"-"`
	Tables      []Table          `json:"tables,omitempty" db:"-"`
	Quality     *QualityReport   `json:"quality,omitempty" db:"-"`
	IsDuplicate bool             `json:"is_duplicate,omitempty" db:"-"`
}

// Table is a structured table extracted during ingestion (CSV, spreadsheets).
type Table struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// TextChunk is a bounded substring of a Document, the unit of retrieval.
// Chunks never outlive their Document.
type TextChunk struct {
	ID         string    `json:"id" db:"id"`
	DocumentID string    `json:"document_id" db:"document_id"`
	Content    string    `json:"content" db:"content"`
	StartIndex int       `json:"start_index" db:"start_index"`
	EndIndex   int       `json:"end_index" db:"end_index"`
	Embedding  []float32 `json:"-" db:"-"`
	// Metadata inherited from the owning Document at chunk time so the
	// retriever can filter without a storage round trip.
	Jurisdiction string    `json:"jurisdiction,omitempty" db:"jurisdiction"`
	Type         string    `json:"type,omitempty" db:"type"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// QualityIssue is an informational finding from quality scoring. Never blocking.
type QualityIssue struct {
	Code     string `json:"code"`
	Severity string `json:"severity"` // "low", "medium", "high"
	Message  string `json:"message"`
}

// QualityReport scores an ingested document. Recomputed only on re-ingestion.
type QualityReport struct {
	Score        float64        `json:"score"`        // 0-100, equal blend of the three signals
	Completeness float64        `json:"completeness"` // 0-100
	Validity     float64        `json:"validity"`     // 0 or 100
	Issues       []QualityIssue `json:"issues,omitempty"`
}
