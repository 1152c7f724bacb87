package rag

import (
	"context"
	"time"

	"docrag/internal/docstore"
	"docrag/internal/settings"
)

// SourceChunk is one retrieved chunk as cited in an answer. Index matches the
// [Source N] markers the model is instructed to emit.
type SourceChunk struct {
	Index      int     `json:"index"`
	DocumentID string  `json:"document_id"`
	FileName   string  `json:"file_name,omitempty"`
	Text       string  `json:"text"`
	PageNumber int     `json:"page_number"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float32 `json:"score"`
}

// Response is the full result of an answered question.
type Response struct {
	Question   string        `json:"question"`
	Answer     string        `json:"answer"`
	Sources    []SourceChunk `json:"sources"`
	TokensUsed int           `json:"tokens_used"`
}

// SearchOptions override the stored retrieval defaults per request.
type SearchOptions struct {
	TopK     *int
	MinScore *float32
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, int, error)
}

type VectorSearcher interface {
	Search(ctx context.Context, vector []float32, topK int, minScore float32) ([]docstore.SearchResult, error)
}

// NoAnswerMessage is returned verbatim when retrieval finds nothing above the
// score floor. No generation call is made in that case.
const NoAnswerMessage = "I couldn't find any relevant information in the documents to answer your question."

type Service struct {
	embedder  Embedder
	generator Generator
	store     VectorSearcher
	settings  *settings.Service
	logger    *QueryLogger
}

func NewService(e Embedder, g Generator, store VectorSearcher, set *settings.Service, l *QueryLogger) *Service {
	return &Service{embedder: e, generator: g, store: store, settings: set, logger: l}
}

// Search embeds the query and returns the store's hits unchanged, ordered by
// descending score. An empty result is not an error.
func (s *Service) Search(ctx context.Context, query string, opts *SearchOptions) ([]docstore.SearchResult, error) {
	start := time.Now()

	topK, minScore := s.resolveParams(ctx, opts)

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	results, err := s.store.Search(ctx, vec, topK, minScore)
	if err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Log(QueryLogEntry{
			Query:      query,
			NumResults: len(results),
			Duration:   time.Since(start),
		})
	}
	return results, nil
}

// Answer retrieves context for the question and asks the generator to answer
// from it alone. When nothing relevant is found it short-circuits with
// NoAnswerMessage and zero token usage.
func (s *Service) Answer(ctx context.Context, question string, opts *SearchOptions) (*Response, error) {
	start := time.Now()

	results, err := s.Search(ctx, question, opts)
	if err != nil {
		return nil, err
	}

	if len(results) == 0 {
		return &Response{
			Question:   question,
			Answer:     NoAnswerMessage,
			Sources:    []SourceChunk{},
			TokensUsed: 0,
		}, nil
	}

	answer, tokens, err := s.generator.Generate(ctx, systemPrompt, buildUserPrompt(question, results))
	if err != nil {
		return nil, err
	}

	sources := make([]SourceChunk, len(results))
	for i, r := range results {
		sources[i] = SourceChunk{
			Index:      i + 1,
			DocumentID: r.Chunk.DocumentID,
			Text:       r.Chunk.Text,
			PageNumber: r.Chunk.PageNumber,
			ChunkIndex: r.Chunk.ChunkIndex,
			Score:      r.Score,
		}
	}

	if s.logger != nil {
		s.logger.Log(QueryLogEntry{
			Query:      question,
			NumResults: len(results),
			TokensUsed: tokens,
			Duration:   time.Since(start),
		})
	}

	return &Response{
		Question:   question,
		Answer:     answer,
		Sources:    sources,
		TokensUsed: tokens,
	}, nil
}

func (s *Service) resolveParams(ctx context.Context, opts *SearchOptions) (int, float32) {
	topK := settings.DefaultSearchTopK
	minScore := settings.DefaultSearchMinScore

	if cfg, err := s.settings.Get(ctx); err == nil {
		if cfg.SearchTopK > 0 {
			topK = cfg.SearchTopK
		}
		if cfg.SearchMinScore > 0 {
			minScore = cfg.SearchMinScore
		}
	}

	if opts != nil {
		if opts.TopK != nil && *opts.TopK > 0 {
			topK = *opts.TopK
		}
		if opts.MinScore != nil {
			minScore = *opts.MinScore
		}
	}
	return topK, minScore
}
