package core

import "errors"

// Pipeline and query-path error kinds. Callers classify wrapped errors with
// errors.Is so the API layer can map each kind to a response without parsing
// messages.
var (
	// ErrUnsupportedFormat indicates a file extension outside the closed
	// supported set. Rejected before any processing.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrFileTooLarge indicates a file over the configured byte limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrExtraction indicates the extractor failed on a specific file.
	ErrExtraction = errors.New("text extraction failed")

	// ErrEmbedding indicates the embedding service call failed.
	ErrEmbedding = errors.New("embedding service failed")

	// ErrStorage indicates a vector store write or read failed.
	ErrStorage = errors.New("storage operation failed")

	// ErrAnswerGeneration indicates the language model call exhausted its
	// retries without producing an answer.
	ErrAnswerGeneration = errors.New("answer generation failed")

	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized indicates the caller does not own the entity.
	ErrUnauthorized = errors.New("not authorized")
)
