package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"docquiz/internal/cache"
	"docquiz/internal/model"
	"docquiz/internal/repository"

	"go.uber.org/zap"
)

var (
	ErrQuestionNotFound = errors.New("question not found")
	ErrDocumentNotFound = errors.New("document not found")
)

// previewSize is how many generated questions are echoed back as a preview
const previewSize = 3

// QuestionService handles question generation, lookup, grading and removal
type QuestionService struct {
	questions   repository.QuestionRepo
	documents   repository.DocumentRepo
	cache       cache.QuestionCache
	generator   Generator
	broadcaster Broadcaster
	logger      *zap.Logger
}

// NewQuestionService creates a new question service
func NewQuestionService(questions repository.QuestionRepo, documents repository.DocumentRepo, questionCache cache.QuestionCache, generator Generator, logger *zap.Logger) *QuestionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuestionService{
		questions:   questions,
		documents:   documents,
		cache:       questionCache,
		generator:   generator,
		broadcaster: nopBroadcaster{},
		logger:      logger.With(zap.String("module", "questions")),
	}
}

// SetBroadcaster sets the WebSocket broadcaster
func (s *QuestionService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// GenerateResult is returned by Generate
type GenerateResult struct {
	Questions []*model.Question
	Preview   []*model.Question
}

// Generate creates and stores questions for an owned document
func (s *QuestionService) Generate(ctx context.Context, userID, documentID string, opts model.GenerateOptions) (*GenerateResult, error) {
	doc, err := s.ownedDocument(ctx, userID, documentID)
	if err != nil {
		return nil, err
	}

	questions, err := s.generator.Generate(ctx, doc, opts)
	if err != nil {
		return nil, fmt.Errorf("generate questions: %w", err)
	}
	if err := s.questions.CreateMany(ctx, questions); err != nil {
		return nil, fmt.Errorf("store questions: %w", err)
	}
	s.invalidate(ctx, userID, documentID)

	s.logger.Info("questions generated",
		zap.String("userId", userID),
		zap.String("documentId", documentID),
		zap.Int("count", len(questions)))

	s.broadcaster.BroadcastToUser(userID, model.EventQuestionsGenerated, model.QuestionsGeneratedPayload{
		DocumentID: documentID,
		Questions:  derefQuestions(questions),
	})

	preview := questions
	if len(preview) > previewSize {
		preview = preview[:previewSize]
	}
	return &GenerateResult{Questions: questions, Preview: preview}, nil
}

// ListAll returns every question owned by the user
func (s *QuestionService) ListAll(ctx context.Context, userID string) ([]*model.Question, error) {
	return s.questions.ListByUser(ctx, userID)
}

// ListByDocument returns the user's questions for one document, served from
// the cache when warm
func (s *QuestionService) ListByDocument(ctx context.Context, userID, documentID string) ([]*model.Question, error) {
	if cached, err := s.cache.GetByDocument(ctx, userID, documentID); err != nil {
		s.logger.Warn("question cache read failed", zap.Error(err))
	} else if cached != nil {
		return cached, nil
	}

	questions, err := s.questions.ListByDocument(ctx, userID, documentID)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetByDocument(ctx, userID, documentID, questions); err != nil {
		s.logger.Warn("question cache write failed", zap.Error(err))
	}
	return questions, nil
}

// GetByID returns one owned question
func (s *QuestionService) GetByID(ctx context.Context, userID, id string) (*model.Question, error) {
	q, err := s.questions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if q == nil || q.UserID != userID {
		return nil, ErrQuestionNotFound
	}
	return q, nil
}

// ValidateAnswer grades one answer against the stored correct answer
func (s *QuestionService) ValidateAnswer(ctx context.Context, userID, id, userAnswer string) (*model.ValidationResult, error) {
	q, err := s.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	result := grade(q, userAnswer)
	return &result, nil
}

// ValidateExam grades a batch of answers. Unknown or foreign question ids
// count as incorrect.
func (s *QuestionService) ValidateExam(ctx context.Context, userID string, answers []model.ExamAnswer) (*model.ExamResult, error) {
	ids := make([]string, len(answers))
	for i, a := range answers {
		ids[i] = a.QuestionID
	}

	found, err := s.questions.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*model.Question, len(found))
	for _, q := range found {
		if q.UserID == userID {
			byID[q.ID.Hex()] = q
		}
	}

	result := &model.ExamResult{
		Total:   len(answers),
		Results: make([]model.ValidationResult, 0, len(answers)),
	}
	for _, a := range answers {
		q, ok := byID[a.QuestionID]
		if !ok {
			result.Results = append(result.Results, model.ValidationResult{
				QuestionID: a.QuestionID,
				UserAnswer: a.UserAnswer,
			})
			continue
		}
		r := grade(q, a.UserAnswer)
		if r.IsCorrect {
			result.Correct++
		}
		result.Results = append(result.Results, r)
	}
	if result.Total > 0 {
		result.Score = math.Round(float64(result.Correct)/float64(result.Total)*10000) / 100
	}
	return result, nil
}

// Delete removes one owned question
func (s *QuestionService) Delete(ctx context.Context, userID, id string) error {
	q, err := s.GetByID(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.questions.Delete(ctx, id); err != nil {
		return err
	}
	documentID := q.DocumentID.Hex()
	s.invalidate(ctx, userID, documentID)

	s.broadcaster.BroadcastToUser(userID, model.EventQuestionDeleted, model.QuestionDeletedPayload{
		ID:         id,
		DocumentID: documentID,
	})
	return nil
}

func (s *QuestionService) ownedDocument(ctx context.Context, userID, documentID string) (*model.Document, error) {
	doc, err := s.documents.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil || doc.UserID != userID {
		return nil, ErrDocumentNotFound
	}
	return doc, nil
}

func (s *QuestionService) invalidate(ctx context.Context, userID, documentID string) {
	if err := s.cache.InvalidateDocument(ctx, userID, documentID); err != nil {
		s.logger.Warn("question cache invalidation failed", zap.Error(err), zap.String("documentId", documentID))
	}
}

func grade(q *model.Question, userAnswer string) model.ValidationResult {
	return model.ValidationResult{
		QuestionID:    q.ID.Hex(),
		IsCorrect:     answersMatch(q, userAnswer),
		UserAnswer:    userAnswer,
		CorrectAnswer: q.CorrectAnswer,
		Explanation:   q.Explanation,
	}
}

// answersMatch compares case- and whitespace-insensitively. A single letter
// answer to an option question selects the option at that position.
func answersMatch(q *model.Question, userAnswer string) bool {
	want := normalize(q.CorrectAnswer)
	got := normalize(userAnswer)
	if got == want {
		return true
	}
	if len(got) == 1 && len(q.Options) > 0 {
		idx := int(got[0] - 'a')
		if idx >= 0 && idx < len(q.Options) {
			return normalize(q.Options[idx]) == want
		}
	}
	return false
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func derefQuestions(questions []*model.Question) []model.Question {
	out := make([]model.Question, len(questions))
	for i, q := range questions {
		out[i] = *q
	}
	return out
}
