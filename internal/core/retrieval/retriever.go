package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/coursepilot-ai/coursepilot/internal/core"
	"github.com/coursepilot-ai/coursepilot/internal/models"
)

// NoRelevantDocumentation is the sentinel surfaced when a search completes
// but matches nothing. A normal outcome, not an error.
const NoRelevantDocumentation = "No relevant documentation found."

// DefaultTopK is the number of chunks retrieved per query.
const DefaultTopK = 5

// CourseScope restricts a retrieval to one course. CourseID is preferred;
// CourseCode is used when the caller has not resolved the code yet. Zero
// value means an unscoped search.
type CourseScope struct {
	CourseID   string
	CourseCode string
}

// Result holds the ranked chunks for one query, ordered by descending
// similarity. Empty means no relevant material was found.
type Result struct {
	Chunks []models.ScoredDocument
}

// Empty reports whether the search matched nothing.
func (r *Result) Empty() bool {
	return r == nil || len(r.Chunks) == 0
}

// Context assembles the grounding context block handed to the language
// model: each chunk under its source filename, separated by rules.
func (r *Result) Context() string {
	if r.Empty() {
		return NoRelevantDocumentation
	}
	parts := make([]string, 0, len(r.Chunks))
	for _, ch := range r.Chunks {
		parts = append(parts, fmt.Sprintf("# %s\n%s", ch.Filename, ch.Content))
	}
	return strings.Join(parts, "\n\n---\n\n")
}

// Contents returns the raw chunk contents in rank order.
func (r *Result) Contents() []string {
	out := make([]string, 0, len(r.Chunks))
	for _, ch := range r.Chunks {
		out = append(out, ch.Content)
	}
	return out
}

// Retriever embeds a query and runs a scoped nearest-neighbor search over the
// vector store. The embedder must be the same one used at ingestion time.
type Retriever struct {
	embedder core.EmbeddingProvider
	store    core.VectorSearcher
	topK     int
}

func NewRetriever(embedder core.EmbeddingProvider, store core.VectorSearcher, topK int) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{embedder: embedder, store: store, topK: topK}
}

// Retrieve returns the top-k chunks for query within scope. An embedding or
// search failure fails the whole call; there is no partial retrieval. An
// empty result is returned as a Result, never as an error.
func (r *Retriever) Retrieve(ctx context.Context, query string, scope CourseScope) (*Result, error) {
	vecs, err := r.embedder.EmbedTexts(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("%w: expected one query embedding, got %d", core.ErrEmbedding, len(vecs))
	}

	docs, err := r.store.SearchIngestedDocuments(ctx, models.SearchQuery{
		Embedding:  vecs[0],
		Limit:      r.topK,
		CourseID:   scope.CourseID,
		CourseCode: scope.CourseCode,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: search: %v", core.ErrStorage, err)
	}

	return &Result{Chunks: docs}, nil
}
