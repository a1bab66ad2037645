package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/coursepilot-ai/coursepilot/internal/core"
)

var _ core.LLMProvider = (*GeminiLLM)(nil)

// GenerationSettings carries the tunable decoding parameters applied to every
// request. Zero values leave the model default in place.
type GenerationSettings struct {
	Temperature     float32
	MaxOutputTokens int32
}

func (s GenerationSettings) apply(m *genai.GenerativeModel) {
	m.SetCandidateCount(1)
	if s.Temperature > 0 {
		m.SetTemperature(s.Temperature)
	}
	if s.MaxOutputTokens > 0 {
		m.SetMaxOutputTokens(s.MaxOutputTokens)
	}
}

// GeminiLLM generates completions with a Gemini chat model.
type GeminiLLM struct {
	client    *genai.Client
	modelName string
	settings  GenerationSettings
}

func NewGeminiLLM(ctx context.Context, apiKey, modelName string, settings GenerationSettings) (*GeminiLLM, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}
	return &GeminiLLM{client: cl, modelName: modelName, settings: settings}, nil
}

func (g *GeminiLLM) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func (g *GeminiLLM) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	m := g.client.GenerativeModel(g.modelName)
	g.settings.apply(m)
	if systemPrompt != "" {
		m.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(systemPrompt)},
		}
	}

	resp, err := m.GenerateContent(ctx, genai.Text(userPrompt))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", nil
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String(), nil
}
