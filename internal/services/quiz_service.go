package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/coursepilot-ai/coursepilot/internal/core"
	"github.com/coursepilot-ai/coursepilot/internal/models"
)

// maxModelContentChars bounds how much extracted text one model call sees;
// longer files are split and generated per piece.
const maxModelContentChars = 50000

// minQuizContentChars is the minimum amount of material worth quizzing on.
const minQuizContentChars = 100

const quizSystemPrompt = `You are an expert educator creating comprehensive quiz questions based on educational content.

Your task is to return a JSON object with exactly this structure:
{
  "topic_title": "A descriptive title based on filename and content",
  "questions": [
    {
      "question_text": "The question text",
      "correct_answer": "The correct answer",
      "wrong_answers": ["wrong answer 1", "wrong answer 2", "wrong answer 3"],
      "explanation": "Explanation based on the document",
      "difficulty": "simple"
    }
  ]
}

Requirements:
- Each question must have exactly 3 wrong_answers and 1 correct_answer
- Difficulty is either "simple" or "scenario"
- Topic title should reflect the content (e.g., "Lecture 1 - Introduction to Networks")
- Questions should test understanding of the material
- Wrong answers should be plausible but clearly incorrect
- Explanations should reference the source material

IMPORTANT: Return ONLY the JSON object, no additional text.`

// QuizService synthesizes multiple-choice quizzes from the extracted text an
// ingestion run captured, and persists them per course file.
type QuizService struct {
	db      core.DbClient
	llm     core.LLMProvider
	retries int
}

func NewQuizService(db core.DbClient, llm core.LLMProvider, retries int) *QuizService {
	if retries < 0 {
		retries = 2
	}
	return &QuizService{db: db, llm: llm, retries: retries}
}

type generatedQuestion struct {
	QuestionText  string   `json:"question_text"`
	CorrectAnswer string   `json:"correct_answer"`
	WrongAnswers  []string `json:"wrong_answers"`
	Explanation   string   `json:"explanation"`
	Difficulty    string   `json:"difficulty"`
}

type generatedQuiz struct {
	TopicTitle string              `json:"topic_title"`
	Questions  []generatedQuestion `json:"questions"`
}

// QuizFileError mirrors the ingestion summary's per-file error shape.
type QuizFileError struct {
	Filename string `json:"filename"`
	Message  string `json:"message"`
}

// GenerationResult reports which files produced a quiz and which failed.
type GenerationResult struct {
	Topics []models.QuizTopic `json:"topics"`
	Errors []QuizFileError    `json:"errors"`
}

// GenerateForFiles builds one quiz topic per file from the extracted text
// gathered during ingestion. Failures are isolated per file.
func (s *QuizService) GenerateForFiles(ctx context.Context, courseID, userID string, fileContents map[string]string, courseFileIDs map[string]string) *GenerationResult {
	result := &GenerationResult{Errors: []QuizFileError{}}

	for filename, content := range fileContents {
		fileID, ok := courseFileIDs[filename]
		if !ok {
			result.Errors = append(result.Errors, QuizFileError{Filename: filename, Message: "no course file record"})
			continue
		}

		quiz, err := s.generateQuiz(ctx, filename, content)
		if err != nil {
			log.Printf("quiz generation failed for %s: %v", filename, err)
			result.Errors = append(result.Errors, QuizFileError{Filename: filename, Message: err.Error()})
			continue
		}

		topic, err := s.persistQuiz(ctx, courseID, fileID, userID, quiz)
		if err != nil {
			result.Errors = append(result.Errors, QuizFileError{Filename: filename, Message: err.Error()})
			continue
		}
		result.Topics = append(result.Topics, *topic)
	}

	return result
}

// generateQuiz asks the model for questions over the file content, splitting
// oversized content and generating per piece concurrently.
func (s *QuizService) generateQuiz(ctx context.Context, filename, content string) (*generatedQuiz, error) {
	if len(strings.TrimSpace(content)) < minQuizContentChars {
		return nil, fmt.Errorf("content too short to generate meaningful quiz questions")
	}

	pieces := splitForModel(content, maxModelContentChars)
	if len(pieces) == 1 {
		return s.generatePiece(ctx, filename, pieces[0], 40)
	}

	perPiece := 40 / len(pieces)
	if perPiece < 10 {
		perPiece = 10
	}

	quizzes := make([]*generatedQuiz, len(pieces))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(2)
	for i, piece := range pieces {
		g.Go(func() error {
			quiz, err := s.generatePiece(gctx, filename, piece, perPiece)
			if err != nil {
				return err
			}
			mu.Lock()
			quizzes[i] = quiz
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := &generatedQuiz{TopicTitle: quizzes[0].TopicTitle}
	for _, quiz := range quizzes {
		merged.Questions = append(merged.Questions, quiz.Questions...)
	}
	return merged, nil
}

// generatePiece runs one model call with bounded retries and parses the JSON
// reply.
func (s *QuizService) generatePiece(ctx context.Context, filename, content string, questionCount int) (*generatedQuiz, error) {
	userPrompt := fmt.Sprintf(
		"Based on this file content, generate a quiz with exactly %d questions (half simple, half scenario-based):\n\nFilename: %s\nContent:\n%s\n\nReturn as JSON with the exact structure specified.",
		questionCount, filename, content)

	var lastErr error
	for attempt := 0; attempt <= s.retries; attempt++ {
		raw, err := s.llm.Generate(ctx, quizSystemPrompt, userPrompt)
		if err != nil {
			lastErr = err
			continue
		}

		quiz, err := parseQuizJSON(raw)
		if err != nil {
			lastErr = err
			continue
		}
		if quiz.TopicTitle == "" {
			quiz.TopicTitle = filename
		}
		return quiz, nil
	}
	return nil, fmt.Errorf("quiz generation exhausted %d attempt(s): %w", s.retries+1, lastErr)
}

// persistQuiz shuffles options, writes the topic and its questions.
func (s *QuizService) persistQuiz(ctx context.Context, courseID, fileID, userID string, quiz *generatedQuiz) (*models.QuizTopic, error) {
	topic := &models.QuizTopic{
		ID:           uuid.NewString(),
		CourseID:     courseID,
		CourseFileID: fileID,
		Title:        quiz.TopicTitle,
		CreatedBy:    userID,
	}
	if err := s.db.CreateQuizTopic(ctx, topic); err != nil {
		return nil, fmt.Errorf("%w: create quiz topic: %v", core.ErrStorage, err)
	}

	var rows []models.QuizQuestion
	for _, gq := range quiz.Questions {
		if gq.QuestionText == "" || gq.CorrectAnswer == "" || len(gq.WrongAnswers) != 3 {
			continue
		}
		opts, correct := shuffleOptions(gq.CorrectAnswer, gq.WrongAnswers)
		difficulty := gq.Difficulty
		if difficulty != "scenario" {
			difficulty = "simple"
		}
		rows = append(rows, models.QuizQuestion{
			ID:            uuid.NewString(),
			TopicID:       topic.ID,
			QuestionText:  gq.QuestionText,
			OptionA:       opts[0],
			OptionB:       opts[1],
			OptionC:       opts[2],
			OptionD:       opts[3],
			CorrectAnswer: correct,
			Explanation:   gq.Explanation,
			Difficulty:    difficulty,
		})
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("model returned no usable questions")
	}
	if err := s.db.InsertQuizQuestions(ctx, rows); err != nil {
		return nil, fmt.Errorf("%w: insert quiz questions: %v", core.ErrStorage, err)
	}
	return topic, nil
}

// ListTopics returns a course's quiz topics.
func (s *QuizService) ListTopics(ctx context.Context, courseID string) ([]models.QuizTopic, error) {
	return s.db.ListQuizTopicsByCourse(ctx, courseID)
}

// ListQuestions returns the questions under one topic.
func (s *QuizService) ListQuestions(ctx context.Context, topicID string) ([]models.QuizQuestion, error) {
	return s.db.ListQuizQuestionsByTopic(ctx, topicID)
}

// shuffleOptions randomizes option order and reports which letter holds the
// correct answer.
func shuffleOptions(correct string, wrong []string) ([4]string, string) {
	all := append([]string{correct}, wrong...)
	rand.Shuffle(len(all), func(i, j int) {
		all[i], all[j] = all[j], all[i]
	})

	labels := [4]string{"A", "B", "C", "D"}
	var opts [4]string
	correctLabel := ""
	for i, opt := range all {
		opts[i] = opt
		if opt == correct && correctLabel == "" {
			correctLabel = labels[i]
		}
	}
	return opts, correctLabel
}

// splitForModel breaks content into line-aligned pieces no longer than max.
// A single line over the limit is hard-split.
func splitForModel(content string, max int) []string {
	if len(content) <= max {
		return []string{content}
	}

	var pieces []string
	var current strings.Builder
	for _, line := range strings.Split(content, "\n") {
		for len(line) > max {
			if current.Len() > 0 {
				pieces = append(pieces, strings.TrimSpace(current.String()))
				current.Reset()
			}
			pieces = append(pieces, line[:max])
			line = line[max:]
		}
		if current.Len()+len(line)+1 > max {
			pieces = append(pieces, strings.TrimSpace(current.String()))
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(line)
	}
	if strings.TrimSpace(current.String()) != "" {
		pieces = append(pieces, strings.TrimSpace(current.String()))
	}
	return pieces
}

// parseQuizJSON tolerates the model wrapping its reply in markdown fences.
func parseQuizJSON(raw string) (*generatedQuiz, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var quiz generatedQuiz
	if err := json.Unmarshal([]byte(raw), &quiz); err != nil {
		return nil, fmt.Errorf("parse quiz response: %w", err)
	}
	if len(quiz.Questions) == 0 {
		return nil, fmt.Errorf("quiz response contained no questions")
	}
	return &quiz, nil
}
