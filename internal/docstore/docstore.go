package docstore

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Status is the ingestion lifecycle state of a document. It only ever moves
// forward: pending -> processing -> one of the terminal states.
type Status string

const (
	StatusPending             Status = "pending"
	StatusProcessing          Status = "processing"
	StatusCompleted           Status = "completed"
	StatusCompletedNoIndexing Status = "completed_no_indexing"
	StatusFailed              Status = "failed"
)

// Document is one ingested source file together with its chunks.
type Document struct {
	ID          string    `json:"id"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	FileSize    int64     `json:"file_size"`
	UploadedAt  time.Time `json:"uploaded_at"`
	Status      Status    `json:"status"`
	Chunks      []Chunk   `json:"chunks,omitempty"`
}

// Chunk is the retrievable unit of a document. ChunkIndex is page-local,
// starting at 0 on every page. Embedding stays nil until the embedding
// stage has run.
type Chunk struct {
	ID         string         `json:"id"`
	DocumentID string         `json:"document_id"`
	Text       string         `json:"text"`
	ChunkIndex int            `json:"chunk_index"`
	PageNumber int            `json:"page_number"`
	Embedding  []float32      `json:"-"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// SearchResult pairs a chunk with its similarity score. Higher means more
// similar. Results are never persisted.
type SearchResult struct {
	Chunk Chunk   `json:"chunk"`
	Score float32 `json:"score"`
}

// Store is the persistence contract for chunks. The store is the system of
// record; documents are reconstructed by grouping chunks by document id.
//
// SaveChunks is all-or-nothing from the caller's point of view: an error means
// the whole ingestion failed and must be re-attempted from scratch. There is
// no partial-success signal (chunks written before a mid-batch failure are not
// rolled back).
type Store interface {
	SaveChunks(ctx context.Context, doc *Document) error
	DeleteDocument(ctx context.Context, documentID string) error

	// GetDocument returns (nil, nil) when no chunks match: absence is a
	// normal outcome, not an error.
	GetDocument(ctx context.Context, documentID string) (*Document, error)
	GetAllDocuments(ctx context.Context) ([]Document, error)

	// Search returns up to topK chunks ordered by descending score, all with
	// score >= minScore. An empty result is not an error.
	Search(ctx context.Context, vector []float32, topK int, minScore float32) ([]SearchResult, error)

	CountChunks(ctx context.Context) (int, error)
}

// NewDocument creates a Document in the pending state with a fresh id.
func NewDocument(fileName, contentType string, fileSize int64) *Document {
	return &Document{
		ID:          uuid.New().String(),
		FileName:    fileName,
		ContentType: contentType,
		FileSize:    fileSize,
		UploadedAt:  time.Now().UTC(),
		Status:      StatusPending,
	}
}
