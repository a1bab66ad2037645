package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/coursepilot-ai/coursepilot/internal/services"
)

type QuizHandler struct {
	quizzes *services.QuizService
}

func NewQuizHandler(quizzes *services.QuizService) *QuizHandler {
	return &QuizHandler{quizzes: quizzes}
}

func (h *QuizHandler) ListTopics(w http.ResponseWriter, r *http.Request) {
	topics, err := h.quizzes.ListTopics(r.Context(), chi.URLParam(r, "course_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, topics)
}

func (h *QuizHandler) ListQuestions(w http.ResponseWriter, r *http.Request) {
	questions, err := h.quizzes.ListQuestions(r.Context(), chi.URLParam(r, "topic_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, questions)
}
