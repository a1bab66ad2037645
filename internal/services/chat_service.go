package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/coursepilot-ai/coursepilot/internal/core"
	"github.com/coursepilot-ai/coursepilot/internal/core/retrieval"
	"github.com/coursepilot-ai/coursepilot/internal/models"
)

// ChatRequest is one incoming question. SessionID empty means a new session
// is opened for the (user, course) pair.
type ChatRequest struct {
	Message    string `json:"message"`
	UserID     string `json:"user_id,omitempty"`
	UserEmail  string `json:"user_email,omitempty"`
	CourseID   string `json:"course_id,omitempty"`
	CourseCode string `json:"course_code,omitempty"`
	SessionID  string `json:"session_id,omitempty"`
}

// ChatResponse carries the generated answer together with the persisted
// message identifiers.
type ChatResponse struct {
	Response      string `json:"response"`
	SessionID     string `json:"session_id"`
	UserMessageID string `json:"user_message_id"`
	AIMessageID   string `json:"ai_message_id"`
	ThinkingSecs  int    `json:"thinking_time"`
}

// ChatService answers course questions: it retrieves the relevant chunks,
// composes an answer against them, and persists both sides of the exchange.
type ChatService struct {
	db        core.DbClient
	retriever *retrieval.Retriever
	composer  *retrieval.Composer
}

func NewChatService(db core.DbClient, retriever *retrieval.Retriever, composer *retrieval.Composer) *ChatService {
	return &ChatService{db: db, retriever: retriever, composer: composer}
}

// Send processes one question end to end. The user message is stored before
// generation, so a failed answer still leaves the question in the history.
func (s *ChatService) Send(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, fmt.Errorf("message must not be empty")
	}

	user, err := s.resolveUser(ctx, req)
	if err != nil {
		return nil, err
	}
	course, err := s.resolveCourse(ctx, req)
	if err != nil {
		return nil, err
	}

	session, err := s.resolveSession(ctx, req.SessionID, user, course)
	if err != nil {
		return nil, err
	}

	userMsg := &models.ChatMessage{
		ID:        uuid.NewString(),
		SessionID: session.ID,
		Sender:    "user",
		Content:   req.Message,
	}
	if err := s.db.AddChatMessage(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("%w: store user message: %v", core.ErrStorage, err)
	}

	started := time.Now()
	scope := retrieval.CourseScope{CourseID: course.ID}
	result, err := s.retriever.Retrieve(ctx, req.Message, scope)
	if err != nil {
		return nil, err
	}
	answer, err := s.composer.Answer(ctx, req.Message, result)
	if err != nil {
		return nil, err
	}
	thinking := int(time.Since(started).Seconds())

	aiMsg := &models.ChatMessage{
		ID:           uuid.NewString(),
		SessionID:    session.ID,
		Sender:       "ai",
		Content:      answer,
		ThinkingSecs: thinking,
	}
	if err := s.db.AddChatMessage(ctx, aiMsg); err != nil {
		return nil, fmt.Errorf("%w: store ai message: %v", core.ErrStorage, err)
	}

	return &ChatResponse{
		Response:      answer,
		SessionID:     session.ID,
		UserMessageID: userMsg.ID,
		AIMessageID:   aiMsg.ID,
		ThinkingSecs:  thinking,
	}, nil
}

// ListSessions returns the user's chat sessions.
func (s *ChatService) ListSessions(ctx context.Context, userEmail string) ([]models.ChatSession, error) {
	user, err := s.db.GetUserByEmail(ctx, userEmail)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user not found for provided email", core.ErrNotFound)
	}
	return s.db.ListChatSessionsByUser(ctx, user.ID)
}

// ListMessages returns a session's messages in chronological order, checking
// the session belongs to the requesting user.
func (s *ChatService) ListMessages(ctx context.Context, sessionID, userEmail string) ([]models.ChatMessage, error) {
	user, err := s.db.GetUserByEmail(ctx, userEmail)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user not found for provided email", core.ErrNotFound)
	}
	session, err := s.db.GetChatSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("%w: chat session %s", core.ErrNotFound, sessionID)
	}
	if session.UserID != user.ID {
		return nil, fmt.Errorf("%w: chat session %s", core.ErrUnauthorized, sessionID)
	}
	return s.db.ListMessagesBySession(ctx, sessionID)
}

func (s *ChatService) resolveUser(ctx context.Context, req ChatRequest) (*models.User, error) {
	if req.UserEmail != "" {
		user, err := s.db.GetUserByEmail(ctx, req.UserEmail)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, fmt.Errorf("%w: user not found for provided email", core.ErrNotFound)
		}
		return user, nil
	}
	if req.UserID != "" {
		return &models.User{ID: req.UserID}, nil
	}
	return nil, fmt.Errorf("user identity required")
}

// resolveCourse prefers the id; the code is the fallback when only it is
// known client-side.
func (s *ChatService) resolveCourse(ctx context.Context, req ChatRequest) (*models.Course, error) {
	switch {
	case req.CourseID != "":
		course, err := s.db.GetCourseByID(ctx, req.CourseID)
		if err != nil {
			return nil, err
		}
		if course == nil {
			return nil, fmt.Errorf("%w: course %s", core.ErrNotFound, req.CourseID)
		}
		return course, nil
	case req.CourseCode != "":
		course, err := s.db.GetCourseByCode(ctx, req.CourseCode)
		if err != nil {
			return nil, err
		}
		if course == nil {
			return nil, fmt.Errorf("%w: course %s", core.ErrNotFound, req.CourseCode)
		}
		return course, nil
	}
	return nil, fmt.Errorf("course_id or course_code required")
}

// resolveSession loads and authorizes an existing session, or opens a new one
// titled after the course and its ordinal for this user.
func (s *ChatService) resolveSession(ctx context.Context, sessionID string, user *models.User, course *models.Course) (*models.ChatSession, error) {
	if sessionID != "" {
		session, err := s.db.GetChatSession(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if session == nil {
			return nil, fmt.Errorf("%w: chat session %s", core.ErrNotFound, sessionID)
		}
		if session.UserID != user.ID {
			return nil, fmt.Errorf("%w: chat session %s", core.ErrUnauthorized, sessionID)
		}
		return session, nil
	}

	n, err := s.db.CountChatSessions(ctx, user.ID, course.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: count sessions: %v", core.ErrStorage, err)
	}
	session := &models.ChatSession{
		ID:       uuid.NewString(),
		UserID:   user.ID,
		CourseID: course.ID,
		Title:    fmt.Sprintf("%s - %s - Chat %d", course.Code, course.Name, n+1),
	}
	if err := s.db.CreateChatSession(ctx, session); err != nil {
		return nil, fmt.Errorf("%w: create session: %v", core.ErrStorage, err)
	}
	return session, nil
}
