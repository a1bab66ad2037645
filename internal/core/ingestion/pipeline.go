package ingestion

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/coursepilot-ai/coursepilot/internal/core"
	"github.com/coursepilot-ai/coursepilot/internal/models"
)

// Config tunes the ingestion pipeline.
//
// ChunkSize / ChunkOverlap: character bounds for the chunker.
// MaxFileBytes:             per-file size cap; larger files are rejected.
// BatchSize:                chunks embedded and written per batch.
type Config struct {
	ChunkSize    int
	ChunkOverlap int
	MaxFileBytes int64
	BatchSize    int
}

// Options carries the optional linkage threaded through one ingestion run.
// CourseFileIDs maps filename to its course_files row so each chunk can point
// back at its source file.
type Options struct {
	CourseID            string
	CourseFileIDs       map[string]string
	CollectFileContents bool
}

// FileError is one per-file or per-chunk failure captured in the summary.
type FileError struct {
	Filename string `json:"filename"`
	Message  string `json:"message"`
}

// Summary aggregates the outcome of one ingestion run. It is returned even
// when every file failed; only directory-level problems surface as errors.
type Summary struct {
	ChunksIngested int               `json:"chunks_ingested"`
	FilesProcessed int               `json:"files_processed"`
	ElapsedSeconds float64           `json:"elapsed_seconds"`
	FileContents   map[string]string `json:"file_contents,omitempty"`
	Errors         []FileError       `json:"errors"`
}

// Pipeline drives extract -> chunk -> embed -> write across a directory of
// uploaded files. All collaborators are injected; the pipeline keeps no state
// between runs.
type Pipeline struct {
	extractor core.DocumentExtractor
	embedder  core.EmbeddingProvider
	store     core.VectorWriter
	chunker   *Chunker
	maxBytes  int64
	batchSize int
}

func NewPipeline(extractor core.DocumentExtractor, embedder core.EmbeddingProvider, store core.VectorWriter, cfg *Config) *Pipeline {
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 16
	}
	maxBytes := cfg.MaxFileBytes
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	return &Pipeline{
		extractor: extractor,
		embedder:  embedder,
		store:     store,
		chunker:   NewChunker(cfg.ChunkSize, cfg.ChunkOverlap),
		maxBytes:  maxBytes,
		batchSize: batch,
	}
}

// IngestDirectory processes every regular file directly under dir
// (non-recursive). Failures on one file are recorded in the summary and
// processing continues with the next; batch-level atomicity is not provided.
// Only a directory-level error (dir unreadable) returns a non-nil error.
func (p *Pipeline) IngestDirectory(ctx context.Context, dir string, opts Options) (*Summary, error) {
	start := time.Now()

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", dir, err)
	}

	summary := &Summary{Errors: []FileError{}}
	if opts.CollectFileContents {
		summary.FileContents = make(map[string]string)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()

		if !SupportedFile(name) {
			summary.Errors = append(summary.Errors, FileError{
				Filename: name,
				Message:  fmt.Sprintf("%v: supported types are %s", core.ErrUnsupportedFormat, SupportedExtensions()),
			})
			continue
		}

		info, err := entry.Info()
		if err != nil {
			summary.Errors = append(summary.Errors, FileError{Filename: name, Message: err.Error()})
			continue
		}
		if info.Size() > p.maxBytes {
			summary.Errors = append(summary.Errors, FileError{
				Filename: name,
				Message:  fmt.Sprintf("%v: %d bytes exceeds the %d byte limit", core.ErrFileTooLarge, info.Size(), p.maxBytes),
			})
			continue
		}

		if err := p.ingestFile(ctx, filepath.Join(dir, name), name, opts, summary); err != nil {
			summary.Errors = append(summary.Errors, FileError{Filename: name, Message: err.Error()})
			continue
		}
		summary.FilesProcessed++
	}

	summary.ElapsedSeconds = time.Since(start).Seconds()
	log.Printf("ingestion: %d chunks from %d file(s) in %.3fs (%d error(s))",
		summary.ChunksIngested, summary.FilesProcessed, summary.ElapsedSeconds, len(summary.Errors))
	return summary, nil
}

// ingestFile runs one file through the full pipeline. Embedding or storage
// failures on individual chunks are skipped and reported without failing the
// file; an extraction failure fails the file.
func (p *Pipeline) ingestFile(ctx context.Context, path, name string, opts Options, summary *Summary) error {
	text, err := p.extractor.ExtractFile(ctx, path)
	if err != nil {
		return err
	}
	if summary.FileContents != nil {
		summary.FileContents[name] = text
	}

	chunks := p.chunker.Split(text)
	if len(chunks) == 0 {
		return nil
	}

	for off := 0; off < len(chunks); off += p.batchSize {
		end := off + p.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		p.embedAndWrite(ctx, name, opts, chunks[off:end], summary)
	}
	return nil
}

// embedAndWrite embeds one batch of chunks and persists the records. A batch
// embedding failure degrades to per-chunk embedding so a single bad chunk
// cannot sink its neighbours; the same applies to the write.
func (p *Pipeline) embedAndWrite(ctx context.Context, filename string, opts Options, chunks []Chunk, summary *Summary) {
	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Content
	}

	vecs, err := p.embedder.EmbedTexts(ctx, texts)
	if err != nil || len(vecs) != len(chunks) {
		vecs = p.embedOneByOne(ctx, filename, chunks, summary)
	}

	var records []models.IngestedDocument
	for i, vec := range vecs {
		if vec == nil {
			continue
		}
		records = append(records, models.IngestedDocument{
			ID:           uuid.NewString(),
			Content:      chunks[i].Content,
			Embedding:    vec,
			CourseID:     opts.CourseID,
			CourseFileID: opts.CourseFileIDs[filename],
			Filename:     filename,
			ChunkIndex:   chunks[i].Index,
			TotalChunks:  chunks[i].Total,
		})
	}
	if len(records) == 0 {
		return
	}

	if err := p.store.InsertIngestedDocuments(ctx, records); err != nil {
		// Retry individually so one bad record is isolated.
		for _, rec := range records {
			if err := p.store.InsertIngestedDocuments(ctx, []models.IngestedDocument{rec}); err != nil {
				summary.Errors = append(summary.Errors, FileError{
					Filename: filename,
					Message:  fmt.Sprintf("chunk %d: %v: %v", rec.ChunkIndex, core.ErrStorage, err),
				})
				continue
			}
			summary.ChunksIngested++
		}
		return
	}
	summary.ChunksIngested += len(records)
}

// embedOneByOne is the fallback after a failed batch embed. Failed chunks come
// back as nil vectors and are reported in the summary.
func (p *Pipeline) embedOneByOne(ctx context.Context, filename string, chunks []Chunk, summary *Summary) [][]float32 {
	vecs := make([][]float32, len(chunks))
	for i := range chunks {
		out, err := p.embedder.EmbedTexts(ctx, []string{chunks[i].Content})
		if err == nil && len(out) != 1 {
			err = fmt.Errorf("%d embeddings returned for one text", len(out))
		}
		if err != nil {
			summary.Errors = append(summary.Errors, FileError{
				Filename: filename,
				Message:  fmt.Sprintf("chunk %d: %v: %v", chunks[i].Index, core.ErrEmbedding, err),
			})
			continue
		}
		vecs[i] = out[0]
	}
	return vecs
}
