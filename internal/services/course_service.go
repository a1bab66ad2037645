package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/coursepilot-ai/coursepilot/internal/core"
	"github.com/coursepilot-ai/coursepilot/internal/core/ingestion"
	"github.com/coursepilot-ai/coursepilot/internal/models"
)

// UploadedFile is one incoming file from the upload-handling layer.
type UploadedFile struct {
	Filename    string
	ContentType string
	Content     []byte
}

// CourseUploadResult aggregates everything one create/upload call produced.
type CourseUploadResult struct {
	Course    *models.Course       `json:"course"`
	Files     []models.CourseFile  `json:"files"`
	Ingestion *ingestion.Summary   `json:"ingestion_result"`
	Quizzes   *GenerationResult    `json:"quiz_generation_result,omitempty"`
}

// CourseService owns the course lifecycle: creation, file uploads driving the
// ingestion pipeline, quiz generation from the extracted text, and deletion
// with its cascades.
type CourseService struct {
	db       core.DbClient
	storage  core.ObjectClient
	pipeline *ingestion.Pipeline
	quizzes  *QuizService
	maxBytes int64
}

func NewCourseService(db core.DbClient, storage core.ObjectClient, pipeline *ingestion.Pipeline, quizzes *QuizService, maxBytes int64) *CourseService {
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	return &CourseService{db: db, storage: storage, pipeline: pipeline, quizzes: quizzes, maxBytes: maxBytes}
}

// CreateCourse creates a course for the user and ingests the initial batch of
// files. The upload is validated up front: any unsupported or oversized file
// rejects the whole request before anything is written.
func (s *CourseService) CreateCourse(ctx context.Context, code, name, userEmail string, files []UploadedFile) (*CourseUploadResult, error) {
	user, err := s.resolveUser(ctx, userEmail)
	if err != nil {
		return nil, err
	}
	if err := s.validateFiles(files); err != nil {
		return nil, err
	}

	course := &models.Course{
		ID:         uuid.NewString(),
		Code:       code,
		Name:       name,
		CreatedBy:  user.ID,
		FilesCount: len(files),
	}
	if err := s.db.CreateCourse(ctx, course); err != nil {
		// Most likely a duplicate code hitting the unique constraint.
		return nil, fmt.Errorf("create course: %w", err)
	}

	return s.ingestFiles(ctx, course, user.ID, files)
}

// UploadFiles adds files to an existing course and ingests them.
func (s *CourseService) UploadFiles(ctx context.Context, courseID, userEmail string, files []UploadedFile) (*CourseUploadResult, error) {
	user, err := s.resolveUser(ctx, userEmail)
	if err != nil {
		return nil, err
	}
	if err := s.validateFiles(files); err != nil {
		return nil, err
	}

	course, err := s.db.GetCourseByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if course == nil {
		return nil, fmt.Errorf("%w: course %s", core.ErrNotFound, courseID)
	}

	return s.ingestFiles(ctx, course, user.ID, files)
}

// ingestFiles writes course_files rows, archives the originals, stages the
// batch in a temp directory and runs the ingestion pipeline over it, then
// generates quizzes from the captured text. Per-file ingestion failures stay
// inside the returned summary.
func (s *CourseService) ingestFiles(ctx context.Context, course *models.Course, userID string, files []UploadedFile) (*CourseUploadResult, error) {
	tempDir, err := os.MkdirTemp("", "coursepilot-ingest-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	result := &CourseUploadResult{Course: course}
	fileIDs := make(map[string]string, len(files))

	for _, f := range files {
		name := filepath.Base(f.Filename)
		cf := &models.CourseFile{
			ID:         uuid.NewString(),
			CourseID:   course.ID,
			UploadedBy: userID,
			Filename:   name,
		}

		// Archive the original; ingestion proceeds even if archival fails.
		if s.storage != nil {
			key := objectKey(course.ID, cf.ID, name)
			url, err := s.storage.UploadFile(ctx, key, f.Content, f.ContentType)
			if err != nil {
				log.Printf("archive failed for %s: %v", name, err)
			} else {
				cf.StorageURL = url
			}
		}

		if err := s.db.CreateCourseFile(ctx, cf); err != nil {
			return nil, fmt.Errorf("%w: create course file record: %v", core.ErrStorage, err)
		}
		fileIDs[name] = cf.ID
		result.Files = append(result.Files, *cf)

		if err := os.WriteFile(filepath.Join(tempDir, name), f.Content, 0o600); err != nil {
			return nil, fmt.Errorf("stage %s: %w", name, err)
		}
	}

	summary, err := s.pipeline.IngestDirectory(ctx, tempDir, ingestion.Options{
		CourseID:            course.ID,
		CourseFileIDs:       fileIDs,
		CollectFileContents: true,
	})
	if err != nil {
		return nil, err
	}
	result.Ingestion = summary

	if s.quizzes != nil && len(summary.FileContents) > 0 {
		result.Quizzes = s.quizzes.GenerateForFiles(ctx, course.ID, userID, summary.FileContents, fileIDs)
		if _, err := s.db.UpdateCourseQuizzesCount(ctx, course.ID); err != nil {
			log.Printf("quizzes_count update failed for course %s: %v", course.ID, err)
		}
	}

	if n, err := s.db.UpdateCourseFilesCount(ctx, course.ID); err != nil {
		log.Printf("files_count update failed for course %s: %v", course.ID, err)
	} else {
		course.FilesCount = n
	}

	// Return the fresh row so counts reflect this upload.
	if updated, err := s.db.GetCourseByID(ctx, course.ID); err == nil && updated != nil {
		result.Course = updated
	}
	return result, nil
}

// DeleteCourseFile removes one file from a course together with its ingested
// documents, and returns the recomputed files_count.
func (s *CourseService) DeleteCourseFile(ctx context.Context, courseID, courseFileID, userEmail string) (int, error) {
	user, err := s.resolveUser(ctx, userEmail)
	if err != nil {
		return 0, err
	}
	course, err := s.ownedCourse(ctx, courseID, user.ID)
	if err != nil {
		return 0, err
	}

	file, err := s.db.GetCourseFileByID(ctx, courseFileID)
	if err != nil {
		return 0, err
	}
	if file == nil {
		return 0, fmt.Errorf("%w: course file %s", core.ErrNotFound, courseFileID)
	}
	if file.CourseID != course.ID {
		return 0, fmt.Errorf("file does not belong to the provided course")
	}

	if err := s.db.DeleteIngestedDocumentsByFile(ctx, courseFileID); err != nil {
		log.Printf("delete ingested documents for file %s: %v", courseFileID, err)
	}
	if err := s.db.DeleteCourseFile(ctx, courseFileID); err != nil {
		return 0, fmt.Errorf("%w: delete course file: %v", core.ErrStorage, err)
	}
	if s.storage != nil {
		if err := s.storage.DeleteFile(ctx, objectKey(course.ID, file.ID, file.Filename)); err != nil {
			log.Printf("archive delete failed for %s: %v", file.Filename, err)
		}
	}

	return s.db.UpdateCourseFilesCount(ctx, courseID)
}

// DeleteCourse removes the course and all dependent data.
func (s *CourseService) DeleteCourse(ctx context.Context, courseID, userEmail string) error {
	user, err := s.resolveUser(ctx, userEmail)
	if err != nil {
		return err
	}
	if _, err := s.ownedCourse(ctx, courseID, user.ID); err != nil {
		return err
	}

	if err := s.db.DeleteIngestedDocumentsByCourse(ctx, courseID); err != nil {
		log.Printf("delete ingested documents for course %s: %v", courseID, err)
	}
	return s.db.DeleteCourse(ctx, courseID)
}

// ListCourses returns all courses.
func (s *CourseService) ListCourses(ctx context.Context) ([]models.Course, error) {
	return s.db.ListCourses(ctx)
}

// ListFiles returns a course's file records.
func (s *CourseService) ListFiles(ctx context.Context, courseID string) ([]models.CourseFile, error) {
	return s.db.ListCourseFiles(ctx, courseID)
}

func (s *CourseService) resolveUser(ctx context.Context, email string) (*models.User, error) {
	user, err := s.db.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user not found for provided email", core.ErrNotFound)
	}
	return user, nil
}

func (s *CourseService) ownedCourse(ctx context.Context, courseID, userID string) (*models.Course, error) {
	course, err := s.db.GetCourseByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if course == nil {
		return nil, fmt.Errorf("%w: course %s", core.ErrNotFound, courseID)
	}
	if course.CreatedBy != userID {
		return nil, fmt.Errorf("%w: course %s", core.ErrUnauthorized, courseID)
	}
	return course, nil
}

// validateFiles rejects the whole upload when any file is unsupported or over
// the size limit, before any row is written or record ingested.
func (s *CourseService) validateFiles(files []UploadedFile) error {
	if len(files) == 0 {
		return fmt.Errorf("no files provided")
	}
	for _, f := range files {
		if !ingestion.SupportedFile(f.Filename) {
			return fmt.Errorf("%w: %s (supported: %s)", core.ErrUnsupportedFormat, f.Filename, ingestion.SupportedExtensions())
		}
		if int64(len(f.Content)) > s.maxBytes {
			return fmt.Errorf("%w: %s exceeds the %d byte limit", core.ErrFileTooLarge, f.Filename, s.maxBytes)
		}
	}
	return nil
}

// objectKey creates a consistent archival key layout.
func objectKey(courseID, fileID, filename string) string {
	return fmt.Sprintf("courses/%s/%s/%s", courseID, fileID, filename)
}
