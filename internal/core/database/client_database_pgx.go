package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/coursepilot-ai/coursepilot/internal/config"
	"github.com/coursepilot-ai/coursepilot/internal/core"
	"github.com/coursepilot-ai/coursepilot/internal/models"
)

type DatabaseClient struct {
	db *sql.DB
}

var _ core.DbClient = (*DatabaseClient)(nil)

func NewDatabaseClient(ctx context.Context, cfg *config.Config) (*DatabaseClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Sensible pool settings for an API service; adjust as needed.
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &DatabaseClient{db: db}, nil
}

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// nullable maps the empty string to SQL NULL for optional uuid columns.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Users

func (c *DatabaseClient) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return errors.New("nil user")
	}
	const q = `
		INSERT INTO users (id, first_name, email, password_hash)
		VALUES ($1, $2, $3, $4)
	`
	_, err := c.db.ExecContext(ctx, q, user.ID, user.FirstName, user.Email, user.PasswordHash)
	return err
}

func (c *DatabaseClient) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const q = `
		SELECT id, first_name, email, password_hash, created_at, updated_at
		FROM users WHERE email = $1
	`
	var u models.User
	err := c.db.QueryRowContext(ctx, q, email).Scan(
		&u.ID, &u.FirstName, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Courses

func (c *DatabaseClient) CreateCourse(ctx context.Context, course *models.Course) error {
	if course == nil {
		return errors.New("nil course")
	}
	const q = `
		INSERT INTO courses (id, code, name, created_by, files_count, quizzes_count)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := c.db.ExecContext(ctx, q,
		course.ID, course.Code, course.Name, course.CreatedBy, course.FilesCount, course.QuizzesCount)
	return err
}

const courseColumns = `id, code, name, created_by, files_count, quizzes_count, created_at, updated_at`

func scanCourse(row interface{ Scan(...any) error }) (*models.Course, error) {
	var co models.Course
	err := row.Scan(&co.ID, &co.Code, &co.Name, &co.CreatedBy,
		&co.FilesCount, &co.QuizzesCount, &co.CreatedAt, &co.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &co, nil
}

func (c *DatabaseClient) GetCourseByID(ctx context.Context, id string) (*models.Course, error) {
	return scanCourse(c.db.QueryRowContext(ctx,
		`SELECT `+courseColumns+` FROM courses WHERE id = $1`, id))
}

func (c *DatabaseClient) GetCourseByCode(ctx context.Context, code string) (*models.Course, error) {
	return scanCourse(c.db.QueryRowContext(ctx,
		`SELECT `+courseColumns+` FROM courses WHERE code = $1`, code))
}

func (c *DatabaseClient) ListCourses(ctx context.Context) ([]models.Course, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT `+courseColumns+` FROM courses ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Course
	for rows.Next() {
		var co models.Course
		if err := rows.Scan(&co.ID, &co.Code, &co.Name, &co.CreatedBy,
			&co.FilesCount, &co.QuizzesCount, &co.CreatedAt, &co.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, co)
	}
	return out, rows.Err()
}

// UpdateCourseFilesCount recomputes files_count from course_files so the
// stored total stays authoritative after uploads and deletes.
func (c *DatabaseClient) UpdateCourseFilesCount(ctx context.Context, courseID string) (int, error) {
	const q = `
		UPDATE courses
		SET files_count = (SELECT count(*) FROM course_files WHERE course_id = $1),
		    updated_at = now()
		WHERE id = $1
		RETURNING files_count
	`
	var n int
	if err := c.db.QueryRowContext(ctx, q, courseID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (c *DatabaseClient) UpdateCourseQuizzesCount(ctx context.Context, courseID string) (int, error) {
	const q = `
		UPDATE courses
		SET quizzes_count = (SELECT count(*) FROM quiz_topics WHERE course_id = $1),
		    updated_at = now()
		WHERE id = $1
		RETURNING quizzes_count
	`
	var n int
	if err := c.db.QueryRowContext(ctx, q, courseID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// DeleteCourse removes the course row; ingested documents, files, chat
// sessions/messages and quizzes go with it via ON DELETE CASCADE.
func (c *DatabaseClient) DeleteCourse(ctx context.Context, courseID string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, courseID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("course not found: %s", courseID)
	}
	return nil
}

// Course files

func (c *DatabaseClient) CreateCourseFile(ctx context.Context, file *models.CourseFile) error {
	if file == nil {
		return errors.New("nil course file")
	}
	const q = `
		INSERT INTO course_files (id, course_id, uploaded_by, filename, storage_url)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := c.db.ExecContext(ctx, q,
		file.ID, file.CourseID, file.UploadedBy, file.Filename, file.StorageURL)
	return err
}

func (c *DatabaseClient) GetCourseFileByID(ctx context.Context, id string) (*models.CourseFile, error) {
	const q = `
		SELECT id, course_id, uploaded_by, filename, storage_url, created_at
		FROM course_files WHERE id = $1
	`
	var f models.CourseFile
	err := c.db.QueryRowContext(ctx, q, id).Scan(
		&f.ID, &f.CourseID, &f.UploadedBy, &f.Filename, &f.StorageURL, &f.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (c *DatabaseClient) ListCourseFiles(ctx context.Context, courseID string) ([]models.CourseFile, error) {
	const q = `
		SELECT id, course_id, uploaded_by, filename, storage_url, created_at
		FROM course_files
		WHERE course_id = $1
		ORDER BY created_at ASC
	`
	rows, err := c.db.QueryContext(ctx, q, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.CourseFile
	for rows.Next() {
		var f models.CourseFile
		if err := rows.Scan(&f.ID, &f.CourseID, &f.UploadedBy, &f.Filename, &f.StorageURL, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) DeleteCourseFile(ctx context.Context, courseFileID string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM course_files WHERE id = $1`, courseFileID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("course file not found: %s", courseFileID)
	}
	return nil
}

// Ingested documents

// InsertIngestedDocuments inserts chunk records in a single transaction.
func (c *DatabaseClient) InsertIngestedDocuments(ctx context.Context, docs []models.IngestedDocument) error {
	if len(docs) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	const q = `
		INSERT INTO ingested_documents
			(id, content, embedding, course_id, course_file_id, filename, chunk_index, total_chunks)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := range docs {
		d := &docs[i]
		vec := pgvector.NewVector(d.Embedding)
		if _, err := stmt.ExecContext(ctx,
			d.ID, d.Content, vec, nullable(d.CourseID), nullable(d.CourseFileID),
			d.Filename, d.ChunkIndex, d.TotalChunks,
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// SearchIngestedDocuments returns the top-k chunks nearest to the query
// embedding by cosine distance, optionally scoped to one course. CourseID
// wins over CourseCode; with neither set the search is unscoped.
func (c *DatabaseClient) SearchIngestedDocuments(ctx context.Context, q models.SearchQuery) ([]models.ScoredDocument, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 5
	}
	vec := pgvector.NewVector(q.Embedding)

	const cols = `id, content, course_id, course_file_id, filename, chunk_index, total_chunks,
		1 - (embedding <=> $1) AS similarity`

	var (
		rows *sql.Rows
		err  error
	)
	switch {
	case q.CourseID != "":
		rows, err = c.db.QueryContext(ctx, `
			SELECT `+cols+`
			FROM ingested_documents
			WHERE course_id = $2
			ORDER BY embedding <=> $1
			LIMIT $3`, vec, q.CourseID, limit)
	case q.CourseCode != "":
		rows, err = c.db.QueryContext(ctx, `
			SELECT `+cols+`
			FROM ingested_documents
			WHERE course_id IN (SELECT id FROM courses WHERE code = $2)
			ORDER BY embedding <=> $1
			LIMIT $3`, vec, q.CourseCode, limit)
	default:
		rows, err = c.db.QueryContext(ctx, `
			SELECT `+cols+`
			FROM ingested_documents
			ORDER BY embedding <=> $1
			LIMIT $2`, vec, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ScoredDocument
	for rows.Next() {
		var (
			d        models.ScoredDocument
			courseID sql.NullString
			fileID   sql.NullString
		)
		if err := rows.Scan(&d.ID, &d.Content, &courseID, &fileID,
			&d.Filename, &d.ChunkIndex, &d.TotalChunks, &d.Similarity); err != nil {
			return nil, err
		}
		d.CourseID = courseID.String
		d.CourseFileID = fileID.String
		out = append(out, d)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) DeleteIngestedDocumentsByCourse(ctx context.Context, courseID string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM ingested_documents WHERE course_id = $1`, courseID)
	return err
}

func (c *DatabaseClient) DeleteIngestedDocumentsByFile(ctx context.Context, courseFileID string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM ingested_documents WHERE course_file_id = $1`, courseFileID)
	return err
}

// Chat

func (c *DatabaseClient) CreateChatSession(ctx context.Context, session *models.ChatSession) error {
	if session == nil {
		return errors.New("nil session")
	}
	const q = `
		INSERT INTO chat_sessions (id, user_id, course_id, title)
		VALUES ($1, $2, $3, $4)
	`
	_, err := c.db.ExecContext(ctx, q, session.ID, session.UserID, session.CourseID, session.Title)
	return err
}

func (c *DatabaseClient) GetChatSession(ctx context.Context, id string) (*models.ChatSession, error) {
	const q = `
		SELECT id, user_id, course_id, title, created_at
		FROM chat_sessions WHERE id = $1
	`
	var s models.ChatSession
	err := c.db.QueryRowContext(ctx, q, id).Scan(&s.ID, &s.UserID, &s.CourseID, &s.Title, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *DatabaseClient) CountChatSessions(ctx context.Context, userID, courseID string) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx,
		`SELECT count(*) FROM chat_sessions WHERE user_id = $1 AND course_id = $2`,
		userID, courseID).Scan(&n)
	return n, err
}

func (c *DatabaseClient) ListChatSessionsByUser(ctx context.Context, userID string) ([]models.ChatSession, error) {
	const q = `
		SELECT id, user_id, course_id, title, created_at
		FROM chat_sessions
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := c.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ChatSession
	for rows.Next() {
		var s models.ChatSession
		if err := rows.Scan(&s.ID, &s.UserID, &s.CourseID, &s.Title, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) AddChatMessage(ctx context.Context, message *models.ChatMessage) error {
	if message == nil {
		return errors.New("nil message")
	}
	const q = `
		INSERT INTO chat_messages (id, session_id, sender, content, thinking_time)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := c.db.ExecContext(ctx, q,
		message.ID, message.SessionID, message.Sender, message.Content, message.ThinkingSecs)
	return err
}

func (c *DatabaseClient) ListMessagesBySession(ctx context.Context, sessionID string) ([]models.ChatMessage, error) {
	const q = `
		SELECT id, session_id, sender, content, thinking_time, created_at
		FROM chat_messages
		WHERE session_id = $1
		ORDER BY created_at ASC
	`
	rows, err := c.db.QueryContext(ctx, q, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ChatMessage
	for rows.Next() {
		var m models.ChatMessage
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Sender, &m.Content, &m.ThinkingSecs, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Quizzes

func (c *DatabaseClient) CreateQuizTopic(ctx context.Context, topic *models.QuizTopic) error {
	if topic == nil {
		return errors.New("nil topic")
	}
	const q = `
		INSERT INTO quiz_topics (id, course_id, course_file_id, title, created_by)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := c.db.ExecContext(ctx, q,
		topic.ID, topic.CourseID, topic.CourseFileID, topic.Title, topic.CreatedBy)
	return err
}

func (c *DatabaseClient) InsertQuizQuestions(ctx context.Context, questions []models.QuizQuestion) error {
	if len(questions) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	const q = `
		INSERT INTO quiz_questions
			(id, topic_id, question_text, option_a, option_b, option_c, option_d,
			 correct_answer, explanation, difficulty)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := range questions {
		qq := &questions[i]
		if _, err := stmt.ExecContext(ctx,
			qq.ID, qq.TopicID, qq.QuestionText, qq.OptionA, qq.OptionB, qq.OptionC, qq.OptionD,
			qq.CorrectAnswer, qq.Explanation, qq.Difficulty,
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (c *DatabaseClient) ListQuizTopicsByCourse(ctx context.Context, courseID string) ([]models.QuizTopic, error) {
	const q = `
		SELECT id, course_id, course_file_id, title, created_by, created_at
		FROM quiz_topics
		WHERE course_id = $1
		ORDER BY created_at ASC
	`
	rows, err := c.db.QueryContext(ctx, q, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.QuizTopic
	for rows.Next() {
		var t models.QuizTopic
		if err := rows.Scan(&t.ID, &t.CourseID, &t.CourseFileID, &t.Title, &t.CreatedBy, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) ListQuizQuestionsByTopic(ctx context.Context, topicID string) ([]models.QuizQuestion, error) {
	const q = `
		SELECT id, topic_id, question_text, option_a, option_b, option_c, option_d,
		       correct_answer, explanation, difficulty, created_at
		FROM quiz_questions
		WHERE topic_id = $1
		ORDER BY created_at ASC
	`
	rows, err := c.db.QueryContext(ctx, q, topicID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.QuizQuestion
	for rows.Next() {
		var qq models.QuizQuestion
		if err := rows.Scan(&qq.ID, &qq.TopicID, &qq.QuestionText,
			&qq.OptionA, &qq.OptionB, &qq.OptionC, &qq.OptionD,
			&qq.CorrectAnswer, &qq.Explanation, &qq.Difficulty, &qq.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, qq)
	}
	return out, rows.Err()
}
