package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/nsqio/go-nsq"

	"docrag/features/job"
	"docrag/internal/docstore"
	"docrag/internal/middleware"
)

// processTimeout bounds one document end to end, including embedding calls.
const processTimeout = 5 * time.Minute

// IngestConsumer drives uploaded files through the pipeline. Failures are
// terminal for the message: the document is marked failed and a retryable
// job is recorded, rather than letting NSQ requeue blindly.
type IngestConsumer struct {
	pipeline Pipeline
	docs     DocumentUpdater
	jobRepo  job.Repository
}

func NewIngestConsumer(p Pipeline, docs DocumentUpdater, jobRepo job.Repository) *IngestConsumer {
	return &IngestConsumer{pipeline: p, docs: docs, jobRepo: jobRepo}
}

func (h *IngestConsumer) HandleMessage(m *nsq.Message) error {
	if len(m.Body) == 0 {
		return nil
	}

	var payload IngestTaskPayload
	if err := json.Unmarshal(m.Body, &payload); err != nil {
		// Poison Pill: Invalid JSON, don't retry
		slog.Error("poison pill: invalid json", "error", err)
		return nil
	}

	ctx := context.Background()
	if payload.CorrelationID != "" {
		ctx = middleware.WithCorrelationID(ctx, payload.CorrelationID)
	}

	if payload.DocumentID == "" || payload.Path == "" {
		slog.ErrorContext(ctx, "missing required fields, dropping",
			"document_id", payload.DocumentID, "path", payload.Path)
		return nil
	}

	if err := h.docs.UpdateStatus(ctx, payload.DocumentID, string(docstore.StatusProcessing), ""); err != nil {
		slog.ErrorContext(ctx, "failed to mark document processing", "error", err, "document_id", payload.DocumentID)
		return err // Transient DB issue, let NSQ retry
	}

	f, err := os.Open(filepath.Clean(payload.Path)) // #nosec G304 -- path originates from our own upload handler
	if err != nil {
		h.fail(ctx, m.Body, payload, fmt.Errorf("open uploaded file: %w", err))
		return nil
	}
	defer f.Close()

	doc := &docstore.Document{
		ID:          payload.DocumentID,
		FileName:    payload.FileName,
		ContentType: payload.ContentType,
		FileSize:    payload.FileSize,
		UploadedAt:  time.Now().UTC(),
		Status:      docstore.StatusProcessing,
	}

	procCtx, cancel := context.WithTimeout(ctx, processTimeout)
	defer cancel()

	status, err := h.pipeline.ProcessDocument(procCtx, doc, f)
	if err != nil {
		h.fail(ctx, m.Body, payload, err)
		return nil
	}

	if err := h.docs.UpdateStatus(ctx, payload.DocumentID, string(status), ""); err != nil {
		slog.ErrorContext(ctx, "failed to record terminal status", "error", err, "document_id", payload.DocumentID)
		return err
	}

	slog.InfoContext(ctx, "document ingested",
		"document_id", payload.DocumentID,
		"status", string(status),
		"chunks", len(doc.Chunks))
	return nil
}

// fail records the failure on the document and files a job for operator
// retry. The message itself is never requeued.
func (h *IngestConsumer) fail(ctx context.Context, body []byte, payload IngestTaskPayload, cause error) {
	slog.ErrorContext(ctx, "ingestion failed",
		"error", cause, "document_id", payload.DocumentID, "file_name", payload.FileName)

	if err := h.docs.UpdateStatus(ctx, payload.DocumentID, string(docstore.StatusFailed), cause.Error()); err != nil {
		slog.ErrorContext(ctx, "failed to mark document failed", "error", err, "document_id", payload.DocumentID)
	}

	failedJob := &job.Job{
		DocumentID: payload.DocumentID,
		Handler:    "ingest-worker",
		Payload:    json.RawMessage(body),
		Error:      cause.Error(),
	}
	if err := h.jobRepo.Save(ctx, failedJob); err != nil {
		slog.ErrorContext(ctx, "failed to save failed job", "error", err)
	} else {
		slog.InfoContext(ctx, "saved failed job for retry", "job_id", failedJob.ID)
	}
}
