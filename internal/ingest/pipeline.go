package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"docrag/internal/docstore"
	"docrag/internal/extract"
	"docrag/internal/llm"
	"docrag/internal/settings"
	"docrag/internal/text"
)

var (
	// ErrExtraction marks failures while reading the raw file. Documents
	// hitting it cannot produce chunks at all.
	ErrExtraction = errors.New("content extraction failed")

	// ErrPipeline marks failures past extraction (chunking config, embedding,
	// indexing). The document content itself was readable.
	ErrPipeline = errors.New("ingestion pipeline failed")
)

// Stages selects which optional phases of the pipeline run. Extraction and
// chunking always run. With StageEmbed or StageIndex off nothing reaches the
// vector store: chunks without embeddings are never persisted and the
// document ends completed_no_indexing.
type Stages uint8

const (
	StageEmbed Stages = 1 << iota
	StageIndex
)

const StagesAll = StageEmbed | StageIndex

// Embedder produces one vector per input text, in input order.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Pipeline turns an uploaded file into indexed chunks:
// extract pages, chunk each page, embed the chunks, persist to the store.
type Pipeline struct {
	settings *settings.Service
	embedder Embedder
	store    docstore.Store
	stages   Stages
	logger   *slog.Logger
}

func NewPipeline(settingsSvc *settings.Service, embedder Embedder, store docstore.Store, stages Stages, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		settings: settingsSvc,
		embedder: embedder,
		store:    store,
		stages:   stages,
		logger:   logger,
	}
}

// ProcessDocument runs the pipeline for doc, reading the raw content from r.
// On success it fills doc.Chunks and returns the terminal status:
// StatusCompleted when chunks were embedded and indexed, or
// StatusCompletedNoIndexing when no embedding key is configured. Any error
// wraps ErrExtraction or ErrPipeline and the caller should record
// StatusFailed.
func (p *Pipeline) ProcessDocument(ctx context.Context, doc *docstore.Document, r io.Reader) (docstore.Status, error) {
	extractor := extract.ForContentType(doc.ContentType)
	pages, err := extractor.ExtractPages(r)
	if err != nil {
		return docstore.StatusFailed, fmt.Errorf("%w: %w", ErrExtraction, err)
	}

	chunker, err := p.newChunker(ctx)
	if err != nil {
		return docstore.StatusFailed, fmt.Errorf("%w: %w", ErrPipeline, err)
	}

	var chunks []docstore.Chunk
	for _, page := range pages {
		chunks = append(chunks, chunker.ChunkText(page.Text, doc.ID, page.PageNumber)...)
	}
	if len(chunks) == 0 {
		return docstore.StatusFailed, fmt.Errorf("%w: document produced no chunks", ErrExtraction)
	}
	doc.Chunks = chunks

	p.logger.InfoContext(ctx, "document chunked",
		"document_id", doc.ID,
		"pages", len(pages),
		"chunks", len(chunks))

	if p.stages&StageEmbed == 0 {
		return docstore.StatusCompletedNoIndexing, nil
	}

	if err := p.embedChunks(ctx, doc); err != nil {
		if errors.Is(err, llm.ErrNotConfigured) {
			p.logger.WarnContext(ctx, "embedding not configured, skipping indexing",
				"document_id", doc.ID)
			return docstore.StatusCompletedNoIndexing, nil
		}
		return docstore.StatusFailed, fmt.Errorf("%w: %w", ErrPipeline, err)
	}

	if p.stages&StageIndex == 0 {
		return docstore.StatusCompletedNoIndexing, nil
	}

	// Drop chunks from any earlier run first, so reprocessing and retries
	// replace the document's chunks instead of appending a second generation.
	if err := p.store.DeleteDocument(ctx, doc.ID); err != nil {
		return docstore.StatusFailed, fmt.Errorf("%w: %w", ErrPipeline, err)
	}

	if err := p.store.SaveChunks(ctx, doc); err != nil {
		return docstore.StatusFailed, fmt.Errorf("%w: %w", ErrPipeline, err)
	}

	p.logger.InfoContext(ctx, "document indexed",
		"document_id", doc.ID,
		"chunks", len(doc.Chunks))
	return docstore.StatusCompleted, nil
}

func (p *Pipeline) newChunker(ctx context.Context) (*text.Chunker, error) {
	size, overlap := text.DefaultChunkSize, text.DefaultOverlap
	if p.settings != nil {
		s, err := p.settings.Get(ctx)
		if err != nil {
			return nil, fmt.Errorf("load chunking settings: %w", err)
		}
		if s.ChunkSize > 0 {
			size = s.ChunkSize
		}
		if s.ChunkOverlap >= 0 {
			overlap = s.ChunkOverlap
		}
	}
	return text.NewChunker(size, overlap)
}

func (p *Pipeline) embedChunks(ctx context.Context, doc *docstore.Document) error {
	texts := make([]string, len(doc.Chunks))
	for i, c := range doc.Chunks {
		texts[i] = c.Text
	}

	vectors, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return err
	}
	if len(vectors) != len(doc.Chunks) {
		return fmt.Errorf("embedding count mismatch: got %d vectors for %d chunks", len(vectors), len(doc.Chunks))
	}
	for i := range doc.Chunks {
		doc.Chunks[i].Embedding = vectors[i]
	}
	return nil
}
