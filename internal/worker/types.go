package worker

import (
	"context"
	"io"

	"docrag/internal/docstore"
)

// IngestTaskPayload is the message queued when a document is uploaded or
// reprocessed.
type IngestTaskPayload struct {
	DocumentID    string `json:"document_id"`
	Path          string `json:"path"`
	FileName      string `json:"file_name"`
	ContentType   string `json:"content_type"`
	FileSize      int64  `json:"file_size"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// Pipeline runs the full ingestion for one document.
type Pipeline interface {
	ProcessDocument(ctx context.Context, doc *docstore.Document, r io.Reader) (docstore.Status, error)
}

// DocumentUpdater records lifecycle transitions on the document registry.
type DocumentUpdater interface {
	UpdateStatus(ctx context.Context, id, status, errMsg string) error
}
