package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursepilot-ai/coursepilot/internal/core"
	"github.com/coursepilot-ai/coursepilot/internal/models"
)

// scriptedLLM fails the first failures calls, then answers.
type scriptedLLM struct {
	failures   int
	calls      int
	lastSystem string
	lastUser   string
}

func (s *scriptedLLM) Generate(_ context.Context, systemPrompt, userPrompt string) (string, error) {
	s.calls++
	s.lastSystem = systemPrompt
	s.lastUser = userPrompt
	if s.calls <= s.failures {
		return "", fmt.Errorf("model overloaded")
	}
	return "grounded answer", nil
}

func TestAnswerSuccess(t *testing.T) {
	llm := &scriptedLLM{}
	c := NewComposer(llm, 2)
	result := &Result{Chunks: []models.ScoredDocument{
		{IngestedDocument: models.IngestedDocument{Filename: "w1.pdf", Content: "Graphs are sets of vertices and edges."}},
	}}

	answer, err := c.Answer(context.Background(), "What is a graph?", result)
	require.NoError(t, err)
	assert.Equal(t, "grounded answer", answer)
	assert.Equal(t, 1, llm.calls)
	assert.Contains(t, llm.lastUser, "Graphs are sets of vertices and edges.")
	assert.Contains(t, llm.lastUser, "Question: What is a graph?")
	assert.Contains(t, llm.lastSystem, "course assistant")
}

func TestAnswerRetriesThenSucceeds(t *testing.T) {
	llm := &scriptedLLM{failures: 2}
	c := NewComposer(llm, 2)

	answer, err := c.Answer(context.Background(), "q", &Result{})
	require.NoError(t, err)
	assert.Equal(t, "grounded answer", answer)
	assert.Equal(t, 3, llm.calls)
}

func TestAnswerExhaustsRetries(t *testing.T) {
	llm := &scriptedLLM{failures: 10}
	c := NewComposer(llm, 2)

	_, err := c.Answer(context.Background(), "q", &Result{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrAnswerGeneration))
	assert.Equal(t, 3, llm.calls, "one attempt plus two retries")
}

func TestAnswerEmptyResultUsesSentinel(t *testing.T) {
	llm := &scriptedLLM{}
	c := NewComposer(llm, 0)

	_, err := c.Answer(context.Background(), "q", &Result{})
	require.NoError(t, err)
	assert.True(t, strings.Contains(llm.lastUser, NoRelevantDocumentation),
		"the model must be told nothing was found")
}

func TestAnswerStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	llm := &scriptedLLM{failures: 10}
	c := NewComposer(llm, 5)

	_, err := c.Answer(ctx, "q", &Result{})
	require.Error(t, err)
	assert.Equal(t, 1, llm.calls, "no retries once the context is gone")
}
