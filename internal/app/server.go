package app

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/coursepilot-ai/coursepilot/internal/api/handlers"
	appMiddleware "github.com/coursepilot-ai/coursepilot/internal/api/middlewares"
	"github.com/coursepilot-ai/coursepilot/internal/config"
	"github.com/coursepilot-ai/coursepilot/internal/services"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
}

// NewServer builds and wires all routes.
func NewServer(cfg *config.Config, users *services.UserService, courses *services.CourseService, chat *services.ChatService, quizzes *services.QuizService) *Server {
	authHandler := handlers.NewAuthHandler(users, cfg.JWTSecret)
	courseHandler := handlers.NewCourseHandler(courses, cfg.MaxFileBytes)
	chatHandler := handlers.NewChatHandler(chat)
	quizHandler := handlers.NewQuizHandler(quizzes)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	// Uploads drive extraction, embedding and quiz generation, so the
	// request timeout has to cover the whole pipeline.
	r.Use(middleware.Timeout(10 * time.Minute))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8888"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(api chi.Router) {
		// public endpoints
		api.Post("/signup", authHandler.Signup)
		api.Post("/login", authHandler.Login)

		// protected endpoints
		api.Group(func(protected chi.Router) {
			protected.Use(appMiddleware.JWT(cfg.JWTSecret))

			protected.Post("/courses", courseHandler.CreateCourse)
			protected.Get("/courses", courseHandler.ListCourses)
			protected.Delete("/courses/{course_id}", courseHandler.DeleteCourse)
			protected.Post("/courses/{course_id}/files", courseHandler.UploadFiles)
			protected.Get("/courses/{course_id}/files", courseHandler.ListFiles)
			protected.Delete("/courses/{course_id}/files/{file_id}", courseHandler.DeleteFile)

			protected.Post("/chat/query", chatHandler.Query)
			protected.Get("/chat/sessions", chatHandler.ListSessions)
			protected.Get("/chat/sessions/{session_id}/messages", chatHandler.ListMessages)

			protected.Get("/courses/{course_id}/quizzes", quizHandler.ListTopics)
			protected.Get("/quizzes/{topic_id}/questions", quizHandler.ListQuestions)
		})
	})

	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	return &Server{httpServer: httpSrv}
}

// Start runs the HTTP server.
func (s *Server) Start() {
	log.Printf("HTTP server listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down HTTP server...")
	return s.httpServer.Shutdown(ctx)
}
