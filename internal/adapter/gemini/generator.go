package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"docrag/internal/llm"
)

// Generator produces grounded answers with a Gemini chat model. Temperature
// and the output token budget are fixed at construction.
type Generator struct {
	client      *genai.Client
	model       string
	temperature float32
	maxTokens   int32
}

func NewGenerator(ctx context.Context, apiKey, model string, temperature float32, maxTokens int32) (*Generator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: gemini api key not set", llm.ErrNotConfigured)
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &Generator{client: client, model: model, temperature: temperature, maxTokens: maxTokens}, nil
}

// Generate runs one completion with the given system instruction and user
// prompt. Returns the answer text and the total token count reported by the
// backend.
func (g *Generator) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, int, error) {
	slog.DebugContext(ctx, "generating completion", "model", g.model, "prompt_length", len(userPrompt))

	gm := g.client.GenerativeModel(g.model)
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

func (g *Generator) Close() error {
	return g.client.Close()
}

func collectText(resp *genai.GenerateContentResponse) string {
	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				sb.WriteString(string(t))
			}
		}
	}
	return strings.TrimSpace(sb.String())
}
