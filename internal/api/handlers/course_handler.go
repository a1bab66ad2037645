package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	middleware "github.com/coursepilot-ai/coursepilot/internal/api/middlewares"
	"github.com/coursepilot-ai/coursepilot/internal/services"
)

type CourseHandler struct {
	courses  *services.CourseService
	maxBytes int64
}

func NewCourseHandler(courses *services.CourseService, maxBytes int64) *CourseHandler {
	return &CourseHandler{courses: courses, maxBytes: maxBytes}
}

// CreateCourse handles the multipart create-course form: code, name and one
// or more files under "files". Ingestion and quiz generation run before the
// response is written, so the summary reflects the whole upload.
func (h *CourseHandler) CreateCourse(w http.ResponseWriter, r *http.Request) {
	email, ok := middleware.UserEmail(r.Context())
	if !ok {
		http.Error(w, "user email not found in context", http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(h.maxBytes + (1 << 20)); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}
	code := r.FormValue("code")
	name := r.FormValue("name")
	if code == "" || name == "" {
		http.Error(w, "code and name are required", http.StatusBadRequest)
		return
	}

	files, err := h.readFiles(r)
	if err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Minute)
	defer cancel()

	result, err := h.courses.CreateCourse(ctx, code, name, email, files)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// UploadFiles adds files to an existing course.
func (h *CourseHandler) UploadFiles(w http.ResponseWriter, r *http.Request) {
	email, ok := middleware.UserEmail(r.Context())
	if !ok {
		http.Error(w, "user email not found in context", http.StatusUnauthorized)
		return
	}
	courseID := chi.URLParam(r, "course_id")

	if err := r.ParseMultipartForm(h.maxBytes + (1 << 20)); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}
	files, err := h.readFiles(r)
	if err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Minute)
	defer cancel()

	result, err := h.courses.UploadFiles(ctx, courseID, email, files)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *CourseHandler) ListCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := h.courses.ListCourses(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, courses)
}

func (h *CourseHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := h.courses.ListFiles(r.Context(), chi.URLParam(r, "course_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, files)
}

func (h *CourseHandler) DeleteCourse(w http.ResponseWriter, r *http.Request) {
	email, ok := middleware.UserEmail(r.Context())
	if !ok {
		http.Error(w, "user email not found in context", http.StatusUnauthorized)
		return
	}
	if err := h.courses.DeleteCourse(r.Context(), chi.URLParam(r, "course_id"), email); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *CourseHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	email, ok := middleware.UserEmail(r.Context())
	if !ok {
		http.Error(w, "user email not found in context", http.StatusUnauthorized)
		return
	}
	count, err := h.courses.DeleteCourseFile(r.Context(), chi.URLParam(r, "course_id"), chi.URLParam(r, "file_id"), email)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted", "files_count": count})
}

// readFiles drains every multipart file under the "files" field into memory.
// Uploads are bounded by the configured size limit, so buffering is fine.
func (h *CourseHandler) readFiles(r *http.Request) ([]services.UploadedFile, error) {
	if r.MultipartForm == nil || len(r.MultipartForm.File["files"]) == 0 {
		return nil, fmt.Errorf("no files provided")
	}

	var out []services.UploadedFile
	for _, header := range r.MultipartForm.File["files"] {
		f, err := header.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", header.Filename, err)
		}
		data, err := io.ReadAll(io.LimitReader(f, h.maxBytes+1))
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", header.Filename, err)
		}

		contentType := header.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		out = append(out, services.UploadedFile{
			Filename:    header.Filename,
			ContentType: contentType,
			Content:     data,
		})
	}
	return out, nil
}
