package models

import (
	"time"
)

// User represents an authenticated user of the system.
type User struct {
	ID           string    `db:"id" json:"id"`
	FirstName    string    `db:"first_name" json:"first_name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Course groups uploaded material, chat sessions and quizzes under one unit.
type Course struct {
	ID           string    `db:"id" json:"id"`
	Code         string    `db:"code" json:"code"`
	Name         string    `db:"name" json:"name"`
	CreatedBy    string    `db:"created_by" json:"created_by"`
	FilesCount   int       `db:"files_count" json:"files_count"`
	QuizzesCount int       `db:"quizzes_count" json:"quizzes_count"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// CourseFile is the metadata row for one uploaded course document.
// The raw bytes are archived to object storage; only derived chunks persist
// in the vector store.
type CourseFile struct {
	ID         string    `db:"id" json:"id"`
	CourseID   string    `db:"course_id" json:"course_id"`
	UploadedBy string    `db:"uploaded_by" json:"uploaded_by"`
	Filename   string    `db:"filename" json:"filename"`
	StorageURL string    `db:"storage_url" json:"storage_url,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// IngestedDocument is the persisted unit of the ingestion pipeline: one text
// chunk with its embedding and optional course/file linkage. Rows are written
// once and never updated; deleting a course or file cascades to its rows.
type IngestedDocument struct {
	ID           string    `db:"id" json:"id"`
	Content      string    `db:"content" json:"content"`
	Embedding    []float32 `db:"embedding" json:"-"`
	CourseID     string    `db:"course_id" json:"course_id,omitempty"`
	CourseFileID string    `db:"course_file_id" json:"course_file_id,omitempty"`
	Filename     string    `db:"filename" json:"filename"`
	ChunkIndex   int       `db:"chunk_index" json:"chunk_index"`
	TotalChunks  int       `db:"total_chunks" json:"total_chunks"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// ScoredDocument pairs a stored chunk with its similarity to a query vector.
type ScoredDocument struct {
	IngestedDocument
	Similarity float32 `json:"similarity"`
}

// SearchQuery describes one nearest-neighbor lookup against the vector store.
// CourseID scopes candidates when set; CourseCode is the pre-resolution
// fallback; neither set means an unscoped search.
type SearchQuery struct {
	Embedding  []float32
	Limit      int
	CourseID   string
	CourseCode string
}

// ChatSession represents one conversation for a (user, course) pair.
type ChatSession struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	CourseID  string    `db:"course_id" json:"course_id"`
	Title     string    `db:"title" json:"title"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ChatMessage is an individual message within a session.
type ChatMessage struct {
	ID           string    `db:"id" json:"id"`
	SessionID    string    `db:"session_id" json:"session_id"`
	Sender       string    `db:"sender" json:"sender"` // "user" or "ai"
	Content      string    `db:"content" json:"content"`
	ThinkingSecs int       `db:"thinking_time" json:"thinking_time,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// QuizTopic is a generated quiz for one course file.
type QuizTopic struct {
	ID           string    `db:"id" json:"id"`
	CourseID     string    `db:"course_id" json:"course_id"`
	CourseFileID string    `db:"course_file_id" json:"course_file_id"`
	Title        string    `db:"title" json:"title"`
	CreatedBy    string    `db:"created_by" json:"created_by"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// QuizQuestion is one multiple-choice question with shuffled options.
// CorrectAnswer holds the letter of the correct option after shuffling.
type QuizQuestion struct {
	ID            string    `db:"id" json:"id"`
	TopicID       string    `db:"topic_id" json:"topic_id"`
	QuestionText  string    `db:"question_text" json:"question_text"`
	OptionA       string    `db:"option_a" json:"option_a"`
	OptionB       string    `db:"option_b" json:"option_b"`
	OptionC       string    `db:"option_c" json:"option_c"`
	OptionD       string    `db:"option_d" json:"option_d"`
	CorrectAnswer string    `db:"correct_answer" json:"correct_answer"`
	Explanation   string    `db:"explanation" json:"explanation"`
	Difficulty    string    `db:"difficulty" json:"difficulty"` // "simple" or "scenario"
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
