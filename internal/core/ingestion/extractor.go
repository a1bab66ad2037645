package ingestion

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"code.sajari.com/docconv"

	"github.com/coursepilot-ai/coursepilot/internal/core"
)

// mimeTypes is the closed set of supported upload formats.
var mimeTypes = map[string]string{
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".ppt":  "application/vnd.ms-powerpoint",
	".pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".txt":  "text/plain",
}

// SupportedFile reports whether the filename's extension is in the supported
// set. The check is case-insensitive.
func SupportedFile(filename string) bool {
	_, ok := mimeTypes[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// SupportedExtensions returns the accepted extensions for error messages.
func SupportedExtensions() string {
	return "PDF, DOC, DOCX, PPT, PPTX, TXT"
}

var _ core.DocumentExtractor = (*DocconvExtractor)(nil)

// DocconvExtractor implements core.DocumentExtractor using sajari/docconv.
// PDF pages go through docconv's OCR path when built with tesseract support,
// treating every page as potentially scanned; lecture material is of unknown
// scan quality so recall wins over extraction latency.
type DocconvExtractor struct{}

func NewDocconvExtractor() *DocconvExtractor {
	return &DocconvExtractor{}
}

// ExtractFile converts the file at path into normalized plain text.
func (e *DocconvExtractor) ExtractFile(ctx context.Context, path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	mime, ok := mimeTypes[ext]
	if !ok {
		return "", fmt.Errorf("%w: %s (supported: %s)", core.ErrUnsupportedFormat, filepath.Base(path), SupportedExtensions())
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: open %s: %v", core.ErrExtraction, filepath.Base(path), err)
	}
	defer f.Close()

	res, err := docconv.Convert(f, mime, false)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", core.ErrExtraction, filepath.Base(path), err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return res.Body, nil
}
