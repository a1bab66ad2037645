package core

import "context"

// EmbeddingProvider maps texts to fixed-dimensionality vectors. The same
// provider must embed chunk content at ingestion time and query text at
// retrieval time; vectors from different configurations are not comparable.
type EmbeddingProvider interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// LLMProvider generates a completion for a system/user prompt pair.
type LLMProvider interface {
	Generate(ctx context.Context, systemPrompt string, userPrompt string) (string, error)
}
