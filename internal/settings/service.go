package settings

import (
	"context"
)

// Retrieval defaults used when no stored value applies.
const (
	DefaultSearchTopK     = 5
	DefaultSearchMinScore = float32(0.7)
)

type Settings struct {
	ID             int     `json:"-"`
	GeminiAPIKey   string  `json:"gemini_api_key"`
	SearchTopK     int     `json:"search_top_k"`
	SearchMinScore float32 `json:"search_min_score"`
	ChunkSize      int     `json:"chunk_size"`
	ChunkOverlap   int     `json:"chunk_overlap"`
}

type Repository interface {
	Get(ctx context.Context) (*Settings, error)
	Update(ctx context.Context, s *Settings) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Get(ctx context.Context) (*Settings, error) {
	return s.repo.Get(ctx)
}

func (s *Service) Update(ctx context.Context, set *Settings) error {
	return s.repo.Update(ctx, set)
}
