package ingestion

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChunkerDefaults(t *testing.T) {
	c := NewChunker(0, -1)
	assert.Equal(t, DefaultChunkSize, c.size)
	assert.Equal(t, 0, c.overlap)

	// overlap >= size is clamped so the chunker always makes progress
	c = NewChunker(100, 100)
	assert.Equal(t, 25, c.overlap)
}

func TestSplitEmpty(t *testing.T) {
	c := NewChunker(100, 10)
	assert.Nil(t, c.Split(""))
}

func TestSplitShortInput(t *testing.T) {
	c := NewChunker(100, 10)
	chunks := c.Split("a short paragraph")
	require.Len(t, chunks, 1)
	assert.Equal(t, "a short paragraph", chunks[0].Content)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, 1, chunks[0].Total)
}

func TestSplitSizeBound(t *testing.T) {
	c := NewChunker(50, 10)
	text := strings.Repeat("lecture notes on graph theory. ", 40)
	chunks := c.Split(text)
	require.Greater(t, len(chunks), 1)
	for _, ch := range chunks {
		assert.LessOrEqual(t, len(ch.Content), 50, "chunk %d over size", ch.Index)
	}
}

func TestSplitIndexAndTotal(t *testing.T) {
	c := NewChunker(40, 8)
	chunks := c.Split(strings.Repeat("term definition example. ", 20))
	require.NotEmpty(t, chunks)
	for i, ch := range chunks {
		assert.Equal(t, i, ch.Index)
		assert.Equal(t, len(chunks), ch.Total)
	}
}

// reassemble rebuilds the input from chunks by stripping each chunk's carried
// overlap. The carried overlap is at most the configured overlap but can be a
// few bytes shorter where a chunk start was moved onto a rune boundary, so it
// is recovered against the original text rather than assumed fixed.
func reassemble(t *testing.T, text string, chunks []Chunk, overlap int) string {
	t.Helper()
	var sb strings.Builder
	sb.WriteString(chunks[0].Content)
	for _, ch := range chunks[1:] {
		matched := false
		for k := overlap; k >= 0; k-- {
			if k > len(ch.Content) || k > sb.Len() {
				continue
			}
			if strings.HasPrefix(text[sb.Len()-k:], ch.Content) {
				sb.WriteString(ch.Content[k:])
				matched = true
				break
			}
		}
		require.True(t, matched, "chunk %d does not continue the text", ch.Index)
	}
	return sb.String()
}

// Concatenating chunk 0 with every later chunk minus its carried overlap must
// reproduce the input byte for byte.
func TestSplitReconstruction(t *testing.T) {
	cases := map[string]string{
		"paragraphs": strings.Repeat("First point about the topic.\n\nSecond point with more detail.\n", 30),
		"sentences":  strings.Repeat("The midterm covers chapters one through five. Bring a calculator. ", 25),
		"words":      strings.Repeat("alpha beta gamma delta epsilon ", 60),
		"unbroken":   strings.Repeat("x", 1500),
	}

	c := NewChunker(100, 20)
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			chunks := c.Split(text)
			require.NotEmpty(t, chunks)
			assert.Equal(t, text, reassemble(t, text, chunks, 20))
		})
	}
}

func TestSplitOverlapCarried(t *testing.T) {
	c := NewChunker(80, 15)
	text := strings.Repeat("Each section builds on the previous one. ", 30)
	chunks := c.Split(text)
	require.Greater(t, len(chunks), 1)

	for i := 1; i < len(chunks); i++ {
		prev := chunks[i-1].Content
		assert.Equal(t, prev[len(prev)-15:], chunks[i].Content[:15])
	}
}

func TestSplitDeterministic(t *testing.T) {
	c := NewChunker(64, 12)
	text := strings.Repeat("Deterministic inputs must give deterministic chunks. ", 20)
	first := c.Split(text)
	second := c.Split(text)
	assert.Equal(t, first, second)
}

func TestSplitPrefersSemanticBoundaries(t *testing.T) {
	c := NewChunker(60, 10)
	text := "Intro paragraph about the course.\n\nSecond paragraph going deeper into the material and running longer than one chunk allows."
	chunks := c.Split(text)
	require.Greater(t, len(chunks), 1)
	assert.True(t, strings.HasSuffix(chunks[0].Content, "\n\n"), "first cut should land on the paragraph break")
}

// Hard cuts and overlap starts both land on rune boundaries, so every chunk
// is valid UTF-8 on its own and the reconstruction is exact.
func TestSplitHardCutsOnRuneBoundaries(t *testing.T) {
	c := NewChunker(32, 4)
	text := strings.Repeat("数学の講義ノートです", 40)
	chunks := c.Split(text)
	require.Greater(t, len(chunks), 1)

	for _, ch := range chunks {
		assert.True(t, utf8.ValidString(ch.Content), "chunk %d is not valid UTF-8", ch.Index)
	}
	assert.Equal(t, text, reassemble(t, text, chunks, 4))
}

// Every chunk of a non-Latin document must be independently valid UTF-8: the
// chunks go on to the embedding RPC and a Postgres text column, both of which
// reject invalid byte sequences.
func TestSplitMultibyteChunksValidUTF8(t *testing.T) {
	c := NewChunker(DefaultChunkSize, DefaultChunkOverlap)
	cases := map[string]string{
		"mixed lines": strings.Repeat("数学の講義ノートですa\n", 200),
		"unbroken":    strings.Repeat("数", 2000),
	}
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			chunks := c.Split(text)
			require.Greater(t, len(chunks), 1)
			for _, ch := range chunks {
				assert.True(t, utf8.ValidString(ch.Content), "chunk %d is not valid UTF-8", ch.Index)
			}
			assert.Equal(t, text, reassemble(t, text, chunks, DefaultChunkOverlap))
		})
	}
}
