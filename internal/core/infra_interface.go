package core

import (
	"context"

	"github.com/coursepilot-ai/coursepilot/internal/models"
)

// VectorWriter persists ingested document chunks. Each row is written once
// and never updated; re-ingesting the same file produces duplicate rows.
type VectorWriter interface {
	InsertIngestedDocuments(ctx context.Context, docs []models.IngestedDocument) error
}

// VectorSearcher performs nearest-neighbor search over stored chunks.
// Results come back ordered by descending similarity, length <= q.Limit.
type VectorSearcher interface {
	SearchIngestedDocuments(ctx context.Context, q models.SearchQuery) ([]models.ScoredDocument, error)
}

// DbClient defines all persistence operations the services need.
// It abstracts Postgres/pgvector so higher layers never depend on a specific DB.
type DbClient interface {
	VectorWriter
	VectorSearcher

	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	CreateCourse(ctx context.Context, course *models.Course) error
	GetCourseByID(ctx context.Context, id string) (*models.Course, error)
	GetCourseByCode(ctx context.Context, code string) (*models.Course, error)
	ListCourses(ctx context.Context) ([]models.Course, error)
	UpdateCourseFilesCount(ctx context.Context, courseID string) (int, error)
	UpdateCourseQuizzesCount(ctx context.Context, courseID string) (int, error)
	DeleteCourse(ctx context.Context, courseID string) error

	CreateCourseFile(ctx context.Context, file *models.CourseFile) error
	GetCourseFileByID(ctx context.Context, id string) (*models.CourseFile, error)
	ListCourseFiles(ctx context.Context, courseID string) ([]models.CourseFile, error)
	DeleteCourseFile(ctx context.Context, courseFileID string) error

	DeleteIngestedDocumentsByCourse(ctx context.Context, courseID string) error
	DeleteIngestedDocumentsByFile(ctx context.Context, courseFileID string) error

	CreateChatSession(ctx context.Context, session *models.ChatSession) error
	GetChatSession(ctx context.Context, id string) (*models.ChatSession, error)
	CountChatSessions(ctx context.Context, userID, courseID string) (int, error)
	ListChatSessionsByUser(ctx context.Context, userID string) ([]models.ChatSession, error)
	AddChatMessage(ctx context.Context, message *models.ChatMessage) error
	ListMessagesBySession(ctx context.Context, sessionID string) ([]models.ChatMessage, error)

	CreateQuizTopic(ctx context.Context, topic *models.QuizTopic) error
	InsertQuizQuestions(ctx context.Context, questions []models.QuizQuestion) error
	ListQuizTopicsByCourse(ctx context.Context, courseID string) ([]models.QuizTopic, error)
	ListQuizQuestionsByTopic(ctx context.Context, topicID string) ([]models.QuizQuestion, error)

	Close() error
}

// ObjectClient defines interactions with S3 or any object storage.
// Abstract so AWS can be swapped for MinIO, GCP, etc.
type ObjectClient interface {
	UploadFile(ctx context.Context, key string, data []byte, contentType string) (url string, err error)
	DeleteFile(ctx context.Context, key string) error
	GetFile(ctx context.Context, key string) ([]byte, error)
}

// DocumentExtractor converts a file on disk into normalized plain text.
type DocumentExtractor interface {
	// ExtractFile returns the full extracted text for the file at path.
	// It fails with ErrUnsupportedFormat before touching the file when the
	// extension is outside the supported set.
	ExtractFile(ctx context.Context, path string) (string, error)
}
