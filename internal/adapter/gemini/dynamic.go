package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"docrag/internal/llm"
	"docrag/internal/settings"
)

// clientCache holds one genai client keyed by the API key it was built with,
// so a key change through the settings API takes effect without a restart.
type clientCache struct {
	client     *genai.Client
	currentKey string
	mu         sync.RWMutex
	opts       []option.ClientOption
}

func (c *clientCache) get(ctx context.Context, key string) (*genai.Client, error) {
	c.mu.RLock()
	if c.client != nil && c.currentKey == key {
		defer c.mu.RUnlock()
		return c.client, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Double check
	if c.client != nil && c.currentKey == key {
		return c.client, nil
	}

	if c.client != nil {
		if err := c.client.Close(); err != nil {
			slog.Warn("failed to close previous genai client", "error", err)
		}
	}

	opts := append(c.opts, option.WithAPIKey(key))
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}

	c.client = client
	c.currentKey = key
	return client, nil
}

// DynamicEmbedder reads the Gemini API key from runtime settings on every
// call. A missing key surfaces as llm.ErrNotConfigured.
type DynamicEmbedder struct {
	settingsSvc *settings.Service
	model       string
	cache       clientCache
}

func NewDynamicEmbedder(svc *settings.Service, model string, opts ...option.ClientOption) *DynamicEmbedder {
	return &DynamicEmbedder{
		settingsSvc: svc,
		model:       model,
		cache:       clientCache{opts: opts},
	}
}

func (e *DynamicEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	client, err := e.resolve(ctx)
	if err != nil {
		return nil, err
	}
	em := client.EmbeddingModel(e.model)
	res, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", llm.ErrUnavailable, err)
	}
	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, fmt.Errorf("%w: empty embedding received", llm.ErrUnavailable)
	}
	return res.Embedding.Values, nil
}

func (e *DynamicEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	client, err := e.resolve(ctx)
	if err != nil {
		return nil, err
	}

	em := client.EmbeddingModel(e.model)
	batch := em.NewBatch()
	for _, t := range texts {
		batch = batch.AddContent(genai.Text(t))
	}
	res, err := em.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", llm.ErrUnavailable, err)
	}
	if len(res.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", llm.ErrUnavailable, len(res.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(res.Embeddings))
	for i, emb := range res.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, fmt.Errorf("%w: empty embedding at position %d", llm.ErrUnavailable, i)
		}
		vectors[i] = emb.Values
	}
	return vectors, nil
}

func (e *DynamicEmbedder) resolve(ctx context.Context) (*genai.Client, error) {
	s, err := e.settingsSvc.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	if s.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini api key not configured", llm.ErrNotConfigured)
	}
	return e.cache.get(ctx, s.GeminiAPIKey)
}

// DynamicGenerator is the generation-side counterpart of DynamicEmbedder.
type DynamicGenerator struct {
	settingsSvc *settings.Service
	model       string
	temperature float32
	maxTokens   int32
	cache       clientCache
}

func NewDynamicGenerator(svc *settings.Service, model string, temperature float32, maxTokens int32, opts ...option.ClientOption) *DynamicGenerator {
	return &DynamicGenerator{
		settingsSvc: svc,
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		cache:       clientCache{opts: opts},
	}
}

func (g *DynamicGenerator) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, int, error) {
	s, err := g.settingsSvc.Get(ctx)
	if err != nil {
		return "", 0, fmt.Errorf("failed to get settings: %w", err)
	}
	if s.GeminiAPIKey == "" {
		return "", 0, fmt.Errorf("%w: gemini api key not configured", llm.ErrNotConfigured)
	}
	client, err := g.cache.get(ctx, s.GeminiAPIKey)
	if err != nil {
		return "", 0, err
	}

	gm := client.GenerativeModel(g.model)
	gm.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemPrompt)}}
	gm.SetTemperature(g.temperature)
	gm.SetMaxOutputTokens(g.maxTokens)

	resp, err := gm.GenerateContent(ctx, genai.Text(userPrompt))
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", llm.ErrUnavailable, err)
	}

	answer := collectText(resp)
	if answer == "" {
		return "", 0, fmt.Errorf("%w: empty completion received", llm.ErrUnavailable)
	}

	tokens := 0
	if resp.UsageMetadata != nil {
		tokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	return answer, tokens, nil
}
