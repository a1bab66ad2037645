package services

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/coursepilot-ai/coursepilot/internal/models"
)

// fakeDB is an in-memory stand-in for the database client, shared by the
// service tests.
type fakeDB struct {
	mu sync.Mutex

	users    map[string]models.User // keyed by email
	courses  map[string]models.Course
	files    map[string]models.CourseFile
	docs     []models.IngestedDocument
	sessions map[string]models.ChatSession
	messages map[string][]models.ChatMessage
	topics   map[string]models.QuizTopic
	question map[string][]models.QuizQuestion

	failInsertDocs bool
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		users:    map[string]models.User{},
		courses:  map[string]models.Course{},
		files:    map[string]models.CourseFile{},
		sessions: map[string]models.ChatSession{},
		messages: map[string][]models.ChatMessage{},
		topics:   map[string]models.QuizTopic{},
		question: map[string][]models.QuizQuestion{},
	}
}

func (f *fakeDB) InsertIngestedDocuments(_ context.Context, docs []models.IngestedDocument) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failInsertDocs {
		return fmt.Errorf("insert failed")
	}
	f.docs = append(f.docs, docs...)
	return nil
}

func (f *fakeDB) SearchIngestedDocuments(_ context.Context, q models.SearchQuery) ([]models.ScoredDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ScoredDocument
	for _, doc := range f.docs {
		if q.CourseID != "" && doc.CourseID != q.CourseID {
			continue
		}
		out = append(out, models.ScoredDocument{IngestedDocument: doc, Similarity: 1})
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

func (f *fakeDB) CreateUser(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.users[user.Email]; exists {
		return fmt.Errorf("duplicate email")
	}
	f.users[user.Email] = *user
	return nil
}

func (f *fakeDB) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[email]; ok {
		return &u, nil
	}
	return nil, nil
}

func (f *fakeDB) CreateCourse(_ context.Context, course *models.Course) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.courses {
		if c.Code == course.Code {
			return fmt.Errorf("duplicate code")
		}
	}
	f.courses[course.ID] = *course
	return nil
}

func (f *fakeDB) GetCourseByID(_ context.Context, id string) (*models.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.courses[id]; ok {
		return &c, nil
	}
	return nil, nil
}

func (f *fakeDB) GetCourseByCode(_ context.Context, code string) (*models.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.courses {
		if c.Code == code {
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fakeDB) ListCourses(_ context.Context) ([]models.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Course
	for _, c := range f.courses {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeDB) UpdateCourseFilesCount(_ context.Context, courseID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, file := range f.files {
		if file.CourseID == courseID {
			n++
		}
	}
	if c, ok := f.courses[courseID]; ok {
		c.FilesCount = n
		f.courses[courseID] = c
	}
	return n, nil
}

func (f *fakeDB) UpdateCourseQuizzesCount(_ context.Context, courseID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, topic := range f.topics {
		if topic.CourseID == courseID {
			n++
		}
	}
	if c, ok := f.courses[courseID]; ok {
		c.QuizzesCount = n
		f.courses[courseID] = c
	}
	return n, nil
}

func (f *fakeDB) DeleteCourse(_ context.Context, courseID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.courses, courseID)
	for id, file := range f.files {
		if file.CourseID == courseID {
			delete(f.files, id)
		}
	}
	return nil
}

func (f *fakeDB) CreateCourseFile(_ context.Context, file *models.CourseFile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[file.ID] = *file
	return nil
}

func (f *fakeDB) GetCourseFileByID(_ context.Context, id string) (*models.CourseFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if file, ok := f.files[id]; ok {
		return &file, nil
	}
	return nil, nil
}

func (f *fakeDB) ListCourseFiles(_ context.Context, courseID string) ([]models.CourseFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.CourseFile
	for _, file := range f.files {
		if file.CourseID == courseID {
			out = append(out, file)
		}
	}
	return out, nil
}

func (f *fakeDB) DeleteCourseFile(_ context.Context, courseFileID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.files, courseFileID)
	return nil
}

func (f *fakeDB) DeleteIngestedDocumentsByCourse(_ context.Context, courseID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.docs[:0]
	for _, doc := range f.docs {
		if doc.CourseID != courseID {
			kept = append(kept, doc)
		}
	}
	f.docs = kept
	return nil
}

func (f *fakeDB) DeleteIngestedDocumentsByFile(_ context.Context, courseFileID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.docs[:0]
	for _, doc := range f.docs {
		if doc.CourseFileID != courseFileID {
			kept = append(kept, doc)
		}
	}
	f.docs = kept
	return nil
}

func (f *fakeDB) CreateChatSession(_ context.Context, session *models.ChatSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[session.ID] = *session
	return nil
}

func (f *fakeDB) GetChatSession(_ context.Context, id string) (*models.ChatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[id]; ok {
		return &s, nil
	}
	return nil, nil
}

func (f *fakeDB) CountChatSessions(_ context.Context, userID, courseID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.sessions {
		if s.UserID == userID && s.CourseID == courseID {
			n++
		}
	}
	return n, nil
}

func (f *fakeDB) ListChatSessionsByUser(_ context.Context, userID string) ([]models.ChatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ChatSession
	for _, s := range f.sessions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeDB) AddChatMessage(_ context.Context, message *models.ChatMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages[message.SessionID] = append(f.messages[message.SessionID], *message)
	return nil
}

func (f *fakeDB) ListMessagesBySession(_ context.Context, sessionID string) ([]models.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.messages[sessionID], nil
}

func (f *fakeDB) CreateQuizTopic(_ context.Context, topic *models.QuizTopic) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topics[topic.ID] = *topic
	return nil
}

func (f *fakeDB) InsertQuizQuestions(_ context.Context, questions []models.QuizQuestion) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, q := range questions {
		f.question[q.TopicID] = append(f.question[q.TopicID], q)
	}
	return nil
}

func (f *fakeDB) ListQuizTopicsByCourse(_ context.Context, courseID string) ([]models.QuizTopic, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.QuizTopic
	for _, topic := range f.topics {
		if topic.CourseID == courseID {
			out = append(out, topic)
		}
	}
	return out, nil
}

func (f *fakeDB) ListQuizQuestionsByTopic(_ context.Context, topicID string) ([]models.QuizQuestion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.question[topicID], nil
}

func (f *fakeDB) Close() error { return nil }

// fakeLLM replays canned responses in order, repeating the last one.
type fakeLLM struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	calls     int
}

func (f *fakeLLM) Generate(_ context.Context, _, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if len(f.responses) == 0 {
		return "", fmt.Errorf("no scripted response")
	}
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	return f.responses[i], nil
}

// fakeEmbedder returns a fixed-size vector per text.
type fakeEmbedder struct{}

func (fakeEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

// fakeObjectStore records uploads and deletions.
type fakeObjectStore struct {
	mu      sync.Mutex
	uploads map[string][]byte
	deleted []string
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{uploads: map[string][]byte{}}
}

func (f *fakeObjectStore) UploadFile(_ context.Context, key string, data []byte, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads[key] = data
	return "https://bucket.local/" + key, nil
}

func (f *fakeObjectStore) DeleteFile(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.uploads, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeObjectStore) GetFile(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if data, ok := f.uploads[key]; ok {
		return data, nil
	}
	return nil, fmt.Errorf("no such key")
}

// fakeFileExtractor reads staged files verbatim.
type fakeFileExtractor struct{}

func (fakeFileExtractor) ExtractFile(_ context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
