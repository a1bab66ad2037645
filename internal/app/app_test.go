package app

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/coursepilot-ai/coursepilot/internal/core"
	"github.com/coursepilot-ai/coursepilot/internal/core/llm"
)

type closeRecorder struct {
	core.DbClient
	closed bool
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return nil
}

func TestAppCloseClosesClients(t *testing.T) {
	dbc := &closeRecorder{}
	a := &App{
		DBClient: dbc,
		Embedder: &llm.GeminiEmbedder{},
		LLM:      &llm.GeminiLLM{},
	}

	assert.NotPanics(t, a.Close)
	assert.True(t, dbc.closed)
}

func TestAppCloseNilSafe(t *testing.T) {
	a := &App{}
	assert.NotPanics(t, a.Close)
}
