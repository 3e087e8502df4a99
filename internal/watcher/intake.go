package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/nzila/unionkb/internal/errs"
	"github.com/nzila/unionkb/internal/index"
	"github.com/nzila/unionkb/internal/ingest"
	"github.com/nzila/unionkb/internal/models"
)

// Intake turns watcher file events into ingest and index operations. It
// remembers which document each path produced so a re-drop replaces the old
// version and a deletion removes it from the index.
type Intake struct {
	ingestor       *ingest.Ingestor
	indexer        *index.Indexer
	organizationID string
	logger         *zap.Logger // optional

	mu   sync.Mutex
	docs map[string]string // path -> document id
}

// NewIntake creates an intake that stamps ingested documents with
// organizationID.
func NewIntake(ingestor *ingest.Ingestor, indexer *index.Indexer, organizationID string, logger *zap.Logger) *Intake {
	return &Intake{
		ingestor:       ingestor,
		indexer:        indexer,
		organizationID: organizationID,
		logger:         logger,
		docs:           make(map[string]string),
	}
}

// HandleFile ingests and indexes the file at path. Unsupported formats and
// duplicates are skipped quietly; they are routine in a drop directory.
func (in *Intake) HandleFile(path string) {
	ctx := context.Background()
	data, err := os.ReadFile(path)
	if err != nil {
		in.warn("failed to read dropped file", path, err)
		return
	}

	in.mu.Lock()
	oldID, replacing := in.docs[path]
	in.mu.Unlock()
	if replacing {
		if _, err := in.indexer.DeleteDocuments(ctx, []string{oldID}); err != nil {
			in.warn("failed to replace dropped file", path, err)
		}
	}

	doc, err := in.ingestor.Ingest(ctx, data, "", filepath.Base(path), models.DocumentMetadata{
		Source:         "watch:" + filepath.Dir(path),
		OrganizationID: in.organizationID,
	})
	if err != nil {
		if errors.Is(err, errs.ErrUnsupportedFormat) || errors.Is(err, errs.ErrEmptyContent) {
			return
		}
		in.warn("failed to ingest dropped file", path, err)
		return
	}
	if doc.IsDuplicate {
		if in.logger != nil {
			in.logger.Debug("skipping duplicate dropped file", zap.String("path", path))
		}
		return
	}
	if _, err := in.indexer.AddDocuments(ctx, []*models.Document{doc}); err != nil {
		in.warn("failed to index dropped file", path, err)
		return
	}

	in.mu.Lock()
	in.docs[path] = doc.ID
	in.mu.Unlock()
	if in.logger != nil {
		in.logger.Info("ingested dropped file",
			zap.String("path", path),
			zap.String("document_id", doc.ID))
	}
}

// HandleRemove deletes the document previously ingested from path, if any.
func (in *Intake) HandleRemove(path string) {
	in.mu.Lock()
	id, ok := in.docs[path]
	if ok {
		delete(in.docs, path)
	}
	in.mu.Unlock()
	if !ok {
		return
	}
	if _, err := in.indexer.DeleteDocuments(context.Background(), []string{id}); err != nil {
		in.warn("failed to delete removed file's document", path, err)
		return
	}
	if in.logger != nil {
		in.logger.Info("removed document for deleted file",
			zap.String("path", path),
			zap.String("document_id", id))
	}
}

func (in *Intake) warn(msg, path string, err error) {
	if in.logger != nil {
		in.logger.Warn(msg, zap.String("path", path), zap.Error(err))
	}
}
