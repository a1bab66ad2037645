package retrieval

import (
	"context"
	"fmt"
	"log"

	"github.com/coursepilot-ai/coursepilot/internal/core"
)

// DefaultLLMRetries is how many extra attempts the composer makes after a
// failed model call.
const DefaultLLMRetries = 2

const systemPrompt = `You are an expert course assistant with access to the full set of uploaded course materials, including lecture notes, slides and assignments.

Your only job is to help with this course material; for anything else, describe what you are able to do instead.

Always ground your answer in the provided documentation context before answering. Always let the user know when you didn't find the answer in the documentation - be honest.`

// Composer assembles retrieved chunks into a grounding context and invokes
// the language model under a fixed assistant persona. It performs no storage
// access of its own.
type Composer struct {
	llm     core.LLMProvider
	retries int
}

func NewComposer(llm core.LLMProvider, retries int) *Composer {
	if retries < 0 {
		retries = DefaultLLMRetries
	}
	return &Composer{llm: llm, retries: retries}
}

// Answer generates a response for query grounded on the retrieval result.
// When the result is empty the model is told so, which makes the assistant
// disclose that nothing relevant was found instead of fabricating an answer.
// Transient model failures are retried up to the configured count; after that
// the failure surfaces as ErrAnswerGeneration.
func (c *Composer) Answer(ctx context.Context, query string, result *Result) (string, error) {
	userPrompt := fmt.Sprintf("Documentation context:\n%s\n\nQuestion: %s", result.Context(), query)

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		answer, err := c.llm.Generate(ctx, systemPrompt, userPrompt)
		if err == nil {
			return answer, nil
		}
		lastErr = err
		log.Printf("answer generation attempt %d/%d failed: %v", attempt+1, c.retries+1, err)
		if ctx.Err() != nil {
			break
		}
	}
	return "", fmt.Errorf("%w after %d attempt(s): %v", core.ErrAnswerGeneration, c.retries+1, lastErr)
}
