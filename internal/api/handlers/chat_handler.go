package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	middleware "github.com/coursepilot-ai/coursepilot/internal/api/middlewares"
	"github.com/coursepilot-ai/coursepilot/internal/services"
)

type ChatHandler struct {
	chat *services.ChatService
}

func NewChatHandler(chat *services.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

// Query answers a question against the course material. The identity claims
// from the token override anything in the body.
func (h *ChatHandler) Query(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req services.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	req.UserID = userID
	if email, ok := middleware.UserEmail(r.Context()); ok {
		req.UserEmail = email
	}

	resp, err := h.chat.Send(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ChatHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	email, ok := middleware.UserEmail(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	sessions, err := h.chat.ListSessions(r.Context(), email)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (h *ChatHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	email, ok := middleware.UserEmail(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	messages, err := h.chat.ListMessages(r.Context(), chi.URLParam(r, "session_id"), email)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}
