package ingestion

import (
	"strings"
	"unicode/utf8"
)

// DefaultChunkSize is the target number of characters per chunk.
const DefaultChunkSize = 690

// DefaultChunkOverlap is the number of trailing characters each chunk
// repeats from its predecessor.
const DefaultChunkOverlap = 100

// Chunk is one bounded-length slice of extracted document text, the unit of
// embedding and retrieval.
type Chunk struct {
	Content string
	Index   int
	Total   int
}

// Chunker splits normalized text into overlapping, bounded-size chunks in
// document order. It is stateless; the same input always yields the same
// sequence.
type Chunker struct {
	size    int
	overlap int
}

func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 4
	}
	return &Chunker{size: size, overlap: overlap}
}

// separators, in preference order: paragraph, line, sentence, word.
var separators = []string{"\n\n", "\n", ". ", " "}

// Split cuts text into chunks of at most the configured size. Every chunk
// after the first begins with the trailing overlap of its predecessor, so
// concatenating the first chunk with each subsequent chunk minus its carried
// overlap reproduces the input exactly. Both chunk ends and chunk starts land
// on rune boundaries, which can shorten the carried overlap by up to three
// bytes around multi-byte characters.
func (c *Chunker) Split(text string) []Chunk {
	if text == "" {
		return nil
	}
	if len(text) <= c.size {
		return []Chunk{{Content: text, Index: 0, Total: 1}}
	}

	var chunks []Chunk
	start := 0
	for {
		if start+c.size >= len(text) {
			chunks = append(chunks, Chunk{Content: text[start:], Index: len(chunks)})
			break
		}
		end := c.cutPoint(text, start)
		chunks = append(chunks, Chunk{Content: text[start:end], Index: len(chunks)})
		start = end - c.overlap
		// The carried overlap must begin on a rune boundary too; walk
		// forward so a multi-byte character is never split at a chunk start.
		for start < len(text) && !utf8.RuneStart(text[start]) {
			start++
		}
	}
	for i := range chunks {
		chunks[i].Total = len(chunks)
	}
	return chunks
}

// cutPoint chooses where the chunk beginning at start ends. It takes the last
// separator occurrence inside the size window, most semantic first, and falls
// back to a hard cut at the limit. A cut must land beyond the carried overlap
// so each chunk makes forward progress.
func (c *Chunker) cutPoint(text string, start int) int {
	limit := start + c.size
	window := text[start:limit]
	for _, sep := range separators {
		if idx := strings.LastIndex(window, sep); idx >= 0 {
			cut := idx + len(sep)
			if cut > c.overlap {
				return start + cut
			}
		}
	}
	// Hard cut. Back off to a rune boundary so multi-byte characters are
	// never split.
	for limit > start && !utf8.RuneStart(text[limit]) {
		limit--
	}
	return limit
}
