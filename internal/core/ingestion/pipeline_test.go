package ingestion

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursepilot-ai/coursepilot/internal/models"
)

// fakeExtractor reads the staged file straight from disk so tests control the
// text without involving docconv.
type fakeExtractor struct {
	failFor map[string]bool
}

func (f *fakeExtractor) ExtractFile(_ context.Context, path string) (string, error) {
	if f.failFor[filepath.Base(path)] {
		return "", fmt.Errorf("extraction blew up")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// fakeEmbedder returns a constant-dimension vector per text. Texts listed in
// failTexts fail every call; failBatches fails any call carrying more than
// one text, exercising the per-chunk fallback.
type fakeEmbedder struct {
	failTexts   map[string]bool
	failBatches bool
	returnEmpty bool
	calls       int
}

func (f *fakeEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.returnEmpty {
		return [][]float32{}, nil
	}
	if f.failBatches && len(texts) > 1 {
		return nil, fmt.Errorf("batch too large")
	}
	out := make([][]float32, len(texts))
	for i, txt := range texts {
		if f.failTexts[txt] {
			return nil, fmt.Errorf("unembeddable text")
		}
		out[i] = []float32{float32(len(txt)), 1, 0}
	}
	return out, nil
}

// fakeWriter records inserted documents; failOnce fails the first call only.
type fakeWriter struct {
	docs     []models.IngestedDocument
	failOnce bool
}

func (f *fakeWriter) InsertIngestedDocuments(_ context.Context, docs []models.IngestedDocument) error {
	if f.failOnce {
		f.failOnce = false
		return fmt.Errorf("connection reset")
	}
	f.docs = append(f.docs, docs...)
	return nil
}

func stage(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func newTestPipeline(extractor *fakeExtractor, embedder *fakeEmbedder, writer *fakeWriter) *Pipeline {
	return NewPipeline(extractor, embedder, writer, &Config{
		ChunkSize:    120,
		ChunkOverlap: 20,
		MaxFileBytes: 1 << 20,
		BatchSize:    4,
	})
}

func TestIngestDirectoryEmpty(t *testing.T) {
	dir := t.TempDir()
	p := newTestPipeline(&fakeExtractor{}, &fakeEmbedder{}, &fakeWriter{})

	summary, err := p.IngestDirectory(context.Background(), dir, Options{})
	require.NoError(t, err)
	assert.Zero(t, summary.FilesProcessed)
	assert.Zero(t, summary.ChunksIngested)
	assert.Empty(t, summary.Errors)
}

func TestIngestDirectoryMissing(t *testing.T) {
	p := newTestPipeline(&fakeExtractor{}, &fakeEmbedder{}, &fakeWriter{})
	_, err := p.IngestDirectory(context.Background(), "/nonexistent/upload/batch", Options{})
	assert.Error(t, err)
}

func TestIngestDirectoryHappyPath(t *testing.T) {
	dir := t.TempDir()
	stage(t, dir, "notes.txt", strings.Repeat("Lecture one covers sets and relations. ", 20))
	writer := &fakeWriter{}
	p := newTestPipeline(&fakeExtractor{}, &fakeEmbedder{}, writer)

	summary, err := p.IngestDirectory(context.Background(), dir, Options{
		CourseID:      "course-1",
		CourseFileIDs: map[string]string{"notes.txt": "file-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.FilesProcessed)
	assert.Empty(t, summary.Errors)
	assert.Equal(t, summary.ChunksIngested, len(writer.docs))
	require.NotEmpty(t, writer.docs)

	for _, doc := range writer.docs {
		assert.Equal(t, "course-1", doc.CourseID)
		assert.Equal(t, "file-1", doc.CourseFileID)
		assert.Equal(t, "notes.txt", doc.Filename)
		assert.NotEmpty(t, doc.ID)
		assert.Len(t, doc.Embedding, 3)
	}
}

// One bad file out of three: the other two land, the failure is reported, and
// files_processed counts only the successes.
func TestIngestDirectoryPartialFailure(t *testing.T) {
	dir := t.TempDir()
	stage(t, dir, "a.txt", "chapter one summary")
	stage(t, dir, "b.exe", "not a document at all")
	stage(t, dir, "c.txt", "chapter two summary")
	writer := &fakeWriter{}
	p := newTestPipeline(&fakeExtractor{}, &fakeEmbedder{}, writer)

	summary, err := p.IngestDirectory(context.Background(), dir, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.FilesProcessed)
	require.Len(t, summary.Errors, 1)
	assert.Equal(t, "b.exe", summary.Errors[0].Filename)
	assert.Contains(t, summary.Errors[0].Message, "unsupported")
	assert.Len(t, writer.docs, 2)
}

func TestIngestDirectoryExtractionFailure(t *testing.T) {
	dir := t.TempDir()
	stage(t, dir, "broken.pdf", "pretend pdf bytes")
	stage(t, dir, "fine.txt", "readable text")
	writer := &fakeWriter{}
	p := newTestPipeline(&fakeExtractor{failFor: map[string]bool{"broken.pdf": true}}, &fakeEmbedder{}, writer)

	summary, err := p.IngestDirectory(context.Background(), dir, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.FilesProcessed)
	require.Len(t, summary.Errors, 1)
	assert.Equal(t, "broken.pdf", summary.Errors[0].Filename)
	assert.Len(t, writer.docs, 1)
}

func TestIngestDirectoryOversizedFile(t *testing.T) {
	dir := t.TempDir()
	stage(t, dir, "huge.txt", strings.Repeat("x", 2048))
	writer := &fakeWriter{}
	p := NewPipeline(&fakeExtractor{}, &fakeEmbedder{}, writer, &Config{
		ChunkSize:    120,
		ChunkOverlap: 20,
		MaxFileBytes: 1024,
	})

	summary, err := p.IngestDirectory(context.Background(), dir, Options{})
	require.NoError(t, err)
	assert.Zero(t, summary.FilesProcessed)
	require.Len(t, summary.Errors, 1)
	assert.Contains(t, summary.Errors[0].Message, "exceeds")
	assert.Empty(t, writer.docs)
}

// A failed batch embed degrades to per-chunk calls; only the bad chunk is
// dropped and reported.
func TestIngestDirectoryPerChunkEmbedFallback(t *testing.T) {
	dir := t.TempDir()
	text := strings.Repeat("Derivatives measure instantaneous change. ", 20)
	stage(t, dir, "calc.txt", text)

	embedder := &fakeEmbedder{failBatches: true}
	writer := &fakeWriter{}
	p := newTestPipeline(&fakeExtractor{}, embedder, writer)

	summary, err := p.IngestDirectory(context.Background(), dir, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.FilesProcessed)
	assert.Empty(t, summary.Errors)
	assert.NotEmpty(t, writer.docs)
	assert.Greater(t, embedder.calls, 1, "fallback should issue per-chunk calls")
}

// An embedder that returns the wrong vector count without an error must still
// produce a descriptive per-chunk failure, not a formatted nil.
func TestIngestDirectoryEmbedCountMismatch(t *testing.T) {
	dir := t.TempDir()
	stage(t, dir, "notes.txt", "a single small chunk of text")
	writer := &fakeWriter{}
	p := newTestPipeline(&fakeExtractor{}, &fakeEmbedder{returnEmpty: true}, writer)

	summary, err := p.IngestDirectory(context.Background(), dir, Options{})
	require.NoError(t, err)
	require.NotEmpty(t, summary.Errors)
	for _, e := range summary.Errors {
		assert.NotContains(t, e.Message, "<nil>")
	}
	assert.Contains(t, summary.Errors[0].Message, "embedding")
	assert.Contains(t, summary.Errors[0].Message, "0 embeddings")
	assert.Empty(t, writer.docs)
}

func TestIngestDirectoryPerRecordInsertRetry(t *testing.T) {
	dir := t.TempDir()
	stage(t, dir, "short.txt", "a single small chunk")
	writer := &fakeWriter{failOnce: true}
	p := newTestPipeline(&fakeExtractor{}, &fakeEmbedder{}, writer)

	summary, err := p.IngestDirectory(context.Background(), dir, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.FilesProcessed)
	assert.Equal(t, 1, summary.ChunksIngested)
	assert.Len(t, writer.docs, 1)
}

func TestIngestDirectoryCollectsFileContents(t *testing.T) {
	dir := t.TempDir()
	stage(t, dir, "syllabus.txt", "week one: foundations")
	p := newTestPipeline(&fakeExtractor{}, &fakeEmbedder{}, &fakeWriter{})

	summary, err := p.IngestDirectory(context.Background(), dir, Options{CollectFileContents: true})
	require.NoError(t, err)
	assert.Equal(t, "week one: foundations", summary.FileContents["syllabus.txt"])

	summary, err = p.IngestDirectory(context.Background(), dir, Options{})
	require.NoError(t, err)
	assert.Nil(t, summary.FileContents)
}
