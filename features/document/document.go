package document

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"docrag/internal/docstore"
	"docrag/internal/middleware"
)

// Document is the registry row tracking an uploaded file through ingestion.
// Chunk content lives in the vector store; this record carries lifecycle
// state and provenance.
// ErrDuplicate is returned by Upload when a file with the same content hash
// already exists.
var ErrDuplicate = errors.New("duplicate document")

type Document struct {
	ID          string    `json:"id"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	FileSize    int64     `json:"file_size"`
	Path        string    `json:"-"`
	ContentHash string    `json:"-"`
	Status      string    `json:"status"`
	Error       string    `json:"error,omitempty"`
	UploadedAt  time.Time `json:"uploaded_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Repository interface {
	Save(ctx context.Context, doc *Document) error
	ExistsByHash(ctx context.Context, hash string) (bool, error)
	Get(ctx context.Context, id string) (*Document, error)
	List(ctx context.Context) ([]Document, error)
	UpdateStatus(ctx context.Context, id, status, errMsg string) error
	SoftDelete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

// ChunkStore is the slice of the vector store the feature needs.
type ChunkStore interface {
	GetDocument(ctx context.Context, documentID string) (*docstore.Document, error)
	DeleteDocument(ctx context.Context, documentID string) error
}

type EventPublisher interface {
	Publish(topic string, body []byte) error
}

type Service struct {
	repo       Repository
	pub        EventPublisher
	chunkStore ChunkStore
	topic      string
}

func NewService(repo Repository, pub EventPublisher, chunkStore ChunkStore, topic string) *Service {
	return &Service{repo: repo, pub: pub, chunkStore: chunkStore, topic: topic}
}

// Upload registers the stored file and queues it for ingestion. The document
// starts as pending; the worker owns every later status transition.
func (s *Service) Upload(ctx context.Context, path, hash, fileName, contentType string, size int64) (*Document, error) {
	exists, err := s.repo.ExistsByHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicate
	}

	doc := &Document{
		FileName:    fileName,
		ContentType: contentType,
		FileSize:    size,
		Path:        path,
		ContentHash: hash,
		Status:      string(docstore.StatusPending),
	}
	if err := s.repo.Save(ctx, doc); err != nil {
		return nil, err
	}

	s.publishIngestTask(ctx, doc)
	return doc, nil
}

func (s *Service) publishIngestTask(ctx context.Context, doc *Document) {
	payload, _ := json.Marshal(map[string]interface{}{
		"document_id":    doc.ID,
		"path":           doc.Path,
		"file_name":      doc.FileName,
		"content_type":   doc.ContentType,
		"file_size":      doc.FileSize,
		"correlation_id": middleware.GetCorrelationID(ctx),
	})
	if err := s.pub.Publish(s.topic, payload); err != nil {
		slog.Error("failed to publish ingest task", "error", err, "document_id", doc.ID)
	} else {
		slog.Info("published ingest task", "document_id", doc.ID, "file_name", doc.FileName)
	}
}

type DocumentDetail struct {
	Document
	Chunks      []docstore.Chunk `json:"chunks"`
	TotalChunks int              `json:"total_chunks"`
}

func (s *Service) Get(ctx context.Context, id string, includeChunks bool) (*DocumentDetail, error) {
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &DocumentDetail{Document: *doc, Chunks: []docstore.Chunk{}}
	if !includeChunks {
		return detail, nil
	}

	stored, err := s.chunkStore.GetDocument(ctx, id)
	if err != nil {
		slog.Warn("failed to fetch chunks", "error", err, "document_id", id)
		return detail, nil
	}
	if stored != nil {
		detail.Chunks = stored.Chunks
		detail.TotalChunks = len(stored.Chunks)
	}
	return detail, nil
}

func (s *Service) List(ctx context.Context) ([]Document, error) {
	return s.repo.List(ctx)
}

// Delete removes indexed chunks first, then soft deletes the registry row.
// Chunk deletion on a never-indexed document is a no-op.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}
	if err := s.chunkStore.DeleteDocument(ctx, id); err != nil {
		return err
	}
	return s.repo.SoftDelete(ctx, id)
}

// Reprocess re-queues an existing document through the full pipeline,
// resetting it to pending first.
func (s *Service) Reprocess(ctx context.Context, id string) error {
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.UpdateStatus(ctx, id, string(docstore.StatusPending), ""); err != nil {
		return err
	}
	doc.Status = string(docstore.StatusPending)
	s.publishIngestTask(ctx, doc)
	return nil
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}
