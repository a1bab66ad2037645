package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/coursepilot-ai/coursepilot/internal/core"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps the service error taxonomy onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, core.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, core.ErrUnsupportedFormat), errors.Is(err, core.ErrFileTooLarge):
		status = http.StatusBadRequest
	case errors.Is(err, core.ErrEmbedding), errors.Is(err, core.ErrAnswerGeneration):
		status = http.StatusBadGateway
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
